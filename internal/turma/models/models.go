// Package models holds the roster documents stored under modalidades/{nome}.
package models

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"

	"escolinha/internal/attendance"
	"escolinha/internal/identity"
	"escolinha/internal/normalize"
)

// Reserved modalidades are kept in storage but hidden from listings.
const (
	ModalidadeArquivados  = "arquivados"
	ModalidadeExcluidos   = "excluidos"
	ModalidadeTemporarios = "temporarios"
)

// IsReserved reports whether nome is one of the reserved modalidades.
func IsReserved(nome string) bool {
	switch FoldName(nome) {
	case ModalidadeArquivados, ModalidadeExcluidos, ModalidadeTemporarios:
		return true
	}
	return false
}

// FoldName is the comparison form of class and modalidade names: lower-case
// with runs of whitespace collapsed.
func FoldName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// SameName compares names ignoring case and whitespace.
func SameName(a, b string) bool {
	return FoldName(a) == FoldName(b)
}

// Pagador is the person paying the monthly fee.
type Pagador struct {
	NomeCompleto string `json:"nomeCompleto,omitempty"`
	Email        string `json:"email,omitempty"`
	Celular      string `json:"celularWhatsapp,omitempty"`
	CPF          string `json:"cpf,omitempty"`

	Extras map[string]any `json:"-"`
}

// InformacoesAdicionais groups identity and payer data.
type InformacoesAdicionais struct {
	IdentificadorUnico string   `json:"IdentificadorUnico,omitempty"`
	Pagador            *Pagador `json:"pagadorMensalidades,omitempty"`

	Extras map[string]any `json:"-"`
}

// Aluno is one roster entry.
type Aluno struct {
	ID                    int                   `json:"id,omitempty"`
	Nome                  string                `json:"nome"`
	DataNascimento        string                `json:"dataNascimento,omitempty"`
	Telefone              string                `json:"telefoneComWhatsapp,omitempty"`
	InformacoesAdicionais InformacoesAdicionais `json:"informacoesAdicionais"`
	Presencas             attendance.Presencas  `json:"presencas,omitempty"`

	// StoredKey is the array index or object key the record was read from.
	StoredKey string         `json:"-"`
	Extras    map[string]any `json:"-"`
}

func (a Aluno) UniqueID() string  { return a.InformacoesAdicionais.IdentificadorUnico }
func (a Aluno) Name() string      { return a.Nome }
func (a Aluno) BirthDate() string { return a.DataNascimento }

// IdentityKey is the resolved identity of the record.
func (a Aluno) IdentityKey() string {
	return identity.ResolveKey(a)
}

// CPF returns the payer's tax id, if any.
func (a Aluno) CPF() string {
	if a.InformacoesAdicionais.Pagador == nil {
		return ""
	}
	return a.InformacoesAdicionais.Pagador.CPF
}

// AttendanceRecord is the view the attendance aggregator reads.
func (a Aluno) AttendanceRecord() attendance.Student {
	return attendance.Student{Nome: a.Nome, Presencas: a.Presencas}
}

// Clone returns a deep copy.
func (a Aluno) Clone() (Aluno, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return Aluno{}, err
	}
	var out Aluno
	if err := json.Unmarshal(data, &out); err != nil {
		return Aluno{}, err
	}
	out.StoredKey = a.StoredKey
	return out, nil
}

// Origem names a class by modalidade and class name.
type Origem struct {
	Modalidade string `json:"modalidade"`
	Turma      string `json:"turma"`
}

// Turma is a class. UUID is the only stable reference; name and capacity
// change. CapacidadeAtual and ContadorAlunos always equal len(Alunos) once
// Recount has run, which every writer does before persisting.
type Turma struct {
	UUID             string     `json:"uuidTurma,omitempty"`
	Modalidade       string     `json:"modalidade,omitempty"`
	Nome             string     `json:"nome_da_turma"`
	Nucleo           string     `json:"nucleo,omitempty"`
	Categoria        string     `json:"categoria,omitempty"`
	DiaDaSemana      string     `json:"diaDaSemana,omitempty"`
	Horario          string     `json:"horario,omitempty"`
	CapacidadeMaxima int        `json:"capacidade_maxima_da_turma"`
	CapacidadeAtual  int        `json:"capacidade_atual_da_turma"`
	ContadorAlunos   int        `json:"contadorAlunos"`
	Alunos           []Aluno    `json:"alunos"`
	CriadaEm         *time.Time `json:"criadaEm,omitempty"`
	MescladaDe       []Origem   `json:"mescladaDe,omitempty"`
	MescladaEm       *time.Time `json:"mescladaEm,omitempty"`
	ExcluidaDe       string     `json:"excluidaDe,omitempty"`
	ExcluidaEm       *time.Time `json:"excluidaEm,omitempty"`

	Extras map[string]any `json:"-"`
}

// Recount derives the counters from the roster.
func (t *Turma) Recount() {
	t.CapacidadeAtual = len(t.Alunos)
	t.ContadorAlunos = len(t.Alunos)
}

// NextID is one past the highest numeric id on the roster.
func (t *Turma) NextID() int {
	next := 1
	for _, a := range t.Alunos {
		if a.ID >= next {
			next = a.ID + 1
		}
	}
	return next
}

// Renumber assigns ids 1..n in roster order.
func (t *Turma) Renumber() {
	for i := range t.Alunos {
		t.Alunos[i].ID = i + 1
	}
}

// Full reports whether a capped class has no free slot.
func (t *Turma) Full() bool {
	return t.CapacidadeMaxima > 0 && len(t.Alunos) >= t.CapacidadeMaxima
}

// IndexByName finds a student by exact (trimmed) name, or -1.
func (t *Turma) IndexByName(nome string) int {
	nome = strings.TrimSpace(nome)
	for i, a := range t.Alunos {
		if strings.TrimSpace(a.Nome) == nome {
			return i
		}
	}
	return -1
}

// IndexOf finds the student matching s under duplicate-registration rules,
// or -1.
func (t *Turma) IndexOf(s identity.Subject) int {
	for i, a := range t.Alunos {
		if identity.SameStudent(a, s) {
			return i
		}
	}
	return -1
}

// RemoveAt deletes the student at i and returns it.
func (t *Turma) RemoveAt(i int) Aluno {
	removed := t.Alunos[i]
	t.Alunos = append(t.Alunos[:i:i], t.Alunos[i+1:]...)
	return removed
}

// Ref names the class.
func (t *Turma) Ref() Origem {
	return Origem{Modalidade: t.Modalidade, Turma: t.Nome}
}

// Modalidade is the document stored at modalidades/{nome}.
type Modalidade struct {
	Nome   string  `json:"nome"`
	Turmas []Turma `json:"turmas"`

	Extras map[string]any `json:"-"`
}

// FindTurma returns the index of the class named nome, or -1.
func (m *Modalidade) FindTurma(nome string) int {
	for i := range m.Turmas {
		if SameName(m.Turmas[i].Nome, nome) {
			return i
		}
	}
	return -1
}

// FindTurmaByUUID returns the index of the class with id, or -1.
func (m *Modalidade) FindTurmaByUUID(id string) int {
	if id == "" {
		return -1
	}
	for i := range m.Turmas {
		if m.Turmas[i].UUID == id {
			return i
		}
	}
	return -1
}

// RemoveTurma deletes the class at i and returns it.
func (m *Modalidade) RemoveTurma(i int) Turma {
	removed := m.Turmas[i]
	m.Turmas = append(m.Turmas[:i:i], m.Turmas[i+1:]...)
	return removed
}

// Prepare recounts every class and stamps the modalidade name on it. Called
// before every write.
func (m *Modalidade) Prepare() {
	for i := range m.Turmas {
		m.Turmas[i].Modalidade = m.Nome
		m.Turmas[i].Recount()
	}
}

// -----------------------------------------------------------------------------
// JSON
// -----------------------------------------------------------------------------

func (p *Pagador) UnmarshalJSON(data []byte) error {
	type plain Pagador
	if err := json.Unmarshal(data, (*plain)(p)); err != nil {
		return err
	}
	extras, err := splitExtras(data, reflect.TypeOf(plain{}))
	p.Extras = extras
	return err
}

func (p Pagador) MarshalJSON() ([]byte, error) {
	type plain Pagador
	return joinExtras(plain(p), p.Extras)
}

func (i *InformacoesAdicionais) UnmarshalJSON(data []byte) error {
	type plain InformacoesAdicionais
	if err := json.Unmarshal(data, (*plain)(i)); err != nil {
		return err
	}
	extras, err := splitExtras(data, reflect.TypeOf(plain{}))
	i.Extras = extras
	return err
}

func (i InformacoesAdicionais) MarshalJSON() ([]byte, error) {
	type plain InformacoesAdicionais
	return joinExtras(plain(i), i.Extras)
}

func (a *Aluno) UnmarshalJSON(data []byte) error {
	type plain Aluno
	if err := json.Unmarshal(data, (*plain)(a)); err != nil {
		return err
	}
	extras, err := splitExtras(data, reflect.TypeOf(plain{}))
	a.Extras = extras
	return err
}

func (a Aluno) MarshalJSON() ([]byte, error) {
	type plain Aluno
	return joinExtras(plain(a), a.Extras)
}

func (t *Turma) UnmarshalJSON(data []byte) error {
	type plain Turma
	*t = Turma{}
	aux := struct {
		*plain
		Alunos any `json:"alunos"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	alunos, err := decodeAlunos(aux.Alunos)
	if err != nil {
		return err
	}
	t.Alunos = alunos
	extras, err := splitExtras(data, reflect.TypeOf(plain{}))
	t.Extras = extras
	return err
}

func (t Turma) MarshalJSON() ([]byte, error) {
	type plain Turma
	out := plain(t)
	if out.Alunos == nil {
		out.Alunos = []Aluno{}
	}
	return joinExtras(out, t.Extras)
}

func (m *Modalidade) UnmarshalJSON(data []byte) error {
	type plain Modalidade
	*m = Modalidade{}
	aux := struct {
		*plain
		Turmas any `json:"turmas"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	for _, raw := range normalize.Objects(aux.Turmas) {
		var t Turma
		if err := remarshal(raw, &t); err != nil {
			return err
		}
		m.Turmas = append(m.Turmas, t)
	}
	if m.Turmas == nil {
		m.Turmas = []Turma{}
	}
	extras, err := splitExtras(data, reflect.TypeOf(plain{}))
	m.Extras = extras
	return err
}

func (m Modalidade) MarshalJSON() ([]byte, error) {
	type plain Modalidade
	out := plain(m)
	if out.Turmas == nil {
		out.Turmas = []Turma{}
	}
	return joinExtras(out, m.Extras)
}

// decodeAlunos compacts a roster. Records without a numeric id get one
// derived from the key they were stored under.
func decodeAlunos(v any) ([]Aluno, error) {
	entries := normalize.Entries(v)
	out := make([]Aluno, 0, len(entries))
	for _, e := range entries {
		if _, ok := e.Value.(map[string]any); !ok {
			continue
		}
		var a Aluno
		if err := remarshal(e.Value, &a); err != nil {
			return nil, err
		}
		a.StoredKey = e.Key
		if a.ID == 0 {
			if n, err := strconv.Atoi(e.Key); err == nil {
				a.ID = n + 1
			}
		}
		out = append(out, a)
	}
	return out, nil
}

func remarshal(v any, dst any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}
