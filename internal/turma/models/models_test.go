package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModalidadeDecodesAmbiguousRosters(t *testing.T) {
	raw := `{
		"nome": "futebol",
		"turmas": {
			"1": {
				"nome_da_turma": "Sub 11",
				"uuidTurma": "u1",
				"capacidade_maxima_da_turma": 20,
				"capacidade_atual_da_turma": 7,
				"alunos": [null, {"nome": "Ana", "endereco": "Rua A"}, null, {"id": 9, "nome": "Bia"}],
				"professor": "Carlos"
			},
			"0": null
		}
	}`

	var m Modalidade
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	require.Len(t, m.Turmas, 1)

	turma := m.Turmas[0]
	require.Len(t, turma.Alunos, 2)
	assert.Equal(t, "Ana", turma.Alunos[0].Nome)
	assert.Equal(t, 2, turma.Alunos[0].ID, "id derives from the stored index")
	assert.Equal(t, "1", turma.Alunos[0].StoredKey)
	assert.Equal(t, 9, turma.Alunos[1].ID)
	assert.Equal(t, "Carlos", turma.Extras["professor"])
	assert.Equal(t, "Rua A", turma.Alunos[0].Extras["endereco"])

	m.Prepare()
	assert.Equal(t, 2, m.Turmas[0].CapacidadeAtual)
	assert.Equal(t, "futebol", m.Turmas[0].Modalidade)

	out, err := json.Marshal(m)
	require.NoError(t, err)
	var generic map[string]any
	require.NoError(t, json.Unmarshal(out, &generic))
	turmas := generic["turmas"].([]any)
	alunos := turmas[0].(map[string]any)["alunos"].([]any)
	assert.Len(t, alunos, 2, "rosters are written compact")
	assert.Equal(t, "Rua A", alunos[0].(map[string]any)["endereco"])
	assert.Equal(t, "Carlos", turmas[0].(map[string]any)["professor"])
}

func TestNestedExtrasSurvive(t *testing.T) {
	raw := `{"nome":"Ana","informacoesAdicionais":{"IdentificadorUnico":"X","alergias":"nenhuma",
		"pagadorMensalidades":{"cpf":"123","rg":"9"}}}`
	var a Aluno
	require.NoError(t, json.Unmarshal([]byte(raw), &a))
	assert.Equal(t, "X", a.UniqueID())
	assert.Equal(t, "123", a.CPF())

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"alergias":"nenhuma"`)
	assert.Contains(t, string(out), `"rg":"9"`)
}

func TestTurmaRoster(t *testing.T) {
	turma := Turma{CapacidadeMaxima: 2, Alunos: []Aluno{{ID: 4, Nome: "Ana"}, {ID: 2, Nome: " Bia "}}}

	assert.Equal(t, 5, turma.NextID())
	assert.True(t, turma.Full())
	assert.Equal(t, 1, turma.IndexByName("Bia"))
	assert.Equal(t, -1, turma.IndexByName("bia"))
	assert.Equal(t, 0, turma.IndexOf(Aluno{Nome: "ANA"}))

	removed := turma.RemoveAt(0)
	assert.Equal(t, "Ana", removed.Nome)
	turma.Renumber()
	turma.Recount()
	assert.Equal(t, 1, turma.Alunos[0].ID)
	assert.Equal(t, 1, turma.CapacidadeAtual)
	assert.Equal(t, 1, turma.ContadorAlunos)
	assert.False(t, turma.Full())
	assert.Equal(t, 1, (&Turma{}).NextID())
}

func TestNames(t *testing.T) {
	assert.True(t, SameName("  Turma   A ", "turma a"))
	assert.False(t, SameName("Turma A", "Turma B"))
	assert.True(t, IsReserved(" Excluidos"))
	assert.False(t, IsReserved("futebol"))
	assert.True(t, ValidKey("futebol society"))
	assert.False(t, ValidKey("a/b"))
	assert.False(t, ValidKey(""))

	m := Modalidade{Turmas: []Turma{{Nome: "Sub 11", UUID: "u1"}, {Nome: "Sub 13"}}}
	assert.Equal(t, 1, m.FindTurma("sub  13"))
	assert.Equal(t, 0, m.FindTurmaByUUID("u1"))
	assert.Equal(t, -1, m.FindTurmaByUUID(""))
}
