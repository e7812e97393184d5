// Package models holds the re-enrollment record, its lock slots and the
// per-class offer configuration.
package models

import (
	"strings"
	"time"

	"escolinha/internal/identity"
	turmaModels "escolinha/internal/turma/models"
)

// Status is the lifecycle state of a record. Aplicada and NaoRematriculado
// are terminal.
type Status string

const (
	StatusPendente         Status = "pendente"
	StatusAplicada         Status = "aplicada"
	StatusNaoRematriculado Status = "nao-rematriculado"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPendente, StatusAplicada, StatusNaoRematriculado:
		return true
	}
	return false
}

// Resposta is the family's answer. The zero value means unanswered.
type Resposta string

const (
	RespostaSim Resposta = "sim"
	RespostaNao Resposta = "nao"
)

// ParseResposta accepts "sim", "não" and "nao" in any case.
func ParseResposta(s string) (Resposta, bool) {
	switch identity.NormalizeText(s) {
	case "sim":
		return RespostaSim, true
	case "nao":
		return RespostaNao, true
	}
	return "", false
}

// TurmaRef names a class. UUID is authoritative once resolved; the names
// are kept for display and for legacy classes without one.
type TurmaRef struct {
	Modalidade string `json:"modalidade"`
	Turma      string `json:"turma"`
	UUID       string `json:"uuidTurma,omitempty"`
}

// Same reports whether r and o name the same class, by UUID when both carry
// one.
func (r TurmaRef) Same(o TurmaRef) bool {
	if r.UUID != "" && o.UUID != "" {
		return r.UUID == o.UUID
	}
	return r.Modalidade == o.Modalidade && turmaModels.SameName(r.Turma, o.Turma)
}

// Find locates the class in m, by UUID first and then by name.
func (r TurmaRef) Find(m *turmaModels.Modalidade) int {
	if m == nil {
		return -1
	}
	if i := m.FindTurmaByUUID(r.UUID); i >= 0 {
		return i
	}
	return m.FindTurma(r.Turma)
}

// AlunoRef is the snapshot of the student taken when the link is created.
type AlunoRef struct {
	Nome               string `json:"nome"`
	DataNascimento     string `json:"dataNascimento,omitempty"`
	IdentificadorUnico string `json:"IdentificadorUnico,omitempty"`
	CPFPagador         string `json:"cpfPagador,omitempty"`
}

func (a AlunoRef) UniqueID() string  { return a.IdentificadorUnico }
func (a AlunoRef) Name() string      { return a.Nome }
func (a AlunoRef) BirthDate() string { return a.DataNascimento }

// DadosContato is the contact patch a family may send with its answer.
// Empty fields leave the roster untouched.
type DadosContato struct {
	Telefone       string `json:"telefoneComWhatsapp,omitempty"`
	PagadorNome    string `json:"nomePagador,omitempty"`
	PagadorEmail   string `json:"emailPagador,omitempty"`
	PagadorCelular string `json:"celularPagador,omitempty"`
	PagadorCPF     string `json:"cpfPagador,omitempty"`
}

func (d *DadosContato) normalize() {
	d.Telefone = strings.TrimSpace(d.Telefone)
	d.PagadorNome = strings.TrimSpace(d.PagadorNome)
	d.PagadorEmail = strings.TrimSpace(d.PagadorEmail)
	d.PagadorCelular = strings.TrimSpace(d.PagadorCelular)
	d.PagadorCPF = strings.TrimSpace(d.PagadorCPF)
}

// Empty reports whether the patch changes nothing.
func (d *DadosContato) Empty() bool {
	return d == nil || *d == DadosContato{}
}

// ApplyTo merges the patch onto the phone and payer fields of a.
func (d *DadosContato) ApplyTo(a *turmaModels.Aluno) {
	if d.Empty() {
		return
	}
	if d.Telefone != "" {
		a.Telefone = d.Telefone
	}
	if d.PagadorNome == "" && d.PagadorEmail == "" && d.PagadorCelular == "" && d.PagadorCPF == "" {
		return
	}
	if a.InformacoesAdicionais.Pagador == nil {
		a.InformacoesAdicionais.Pagador = &turmaModels.Pagador{}
	}
	p := a.InformacoesAdicionais.Pagador
	if d.PagadorNome != "" {
		p.NomeCompleto = d.PagadorNome
	}
	if d.PagadorEmail != "" {
		p.Email = d.PagadorEmail
	}
	if d.PagadorCelular != "" {
		p.Celular = d.PagadorCelular
	}
	if d.PagadorCPF != "" {
		p.CPF = d.PagadorCPF
	}
}

// Rematricula is one student's re-enrollment for one year, stored at
// rematriculas/{id}.
type Rematricula struct {
	ID     string   `json:"id"`
	Ano    int      `json:"ano"`
	Aluno  AlunoRef `json:"aluno"`
	Origem TurmaRef `json:"origem"`
	Status Status   `json:"status"`

	Resposta         Resposta      `json:"resposta,omitempty"`
	RespondidoEm     *time.Time    `json:"respondidoEm,omitempty"`
	RespondidoVia    string        `json:"respondidoVia,omitempty"`
	DestinoPrincipal *TurmaRef     `json:"destinoPrincipal,omitempty"`
	DestinosExtras   []TurmaRef    `json:"destinosExtras,omitempty"`
	DadosAtualizados *DadosContato `json:"dadosAtualizados,omitempty"`

	// ChaveAluno is the lock key the record claimed slots under.
	ChaveAluno string `json:"chaveAluno,omitempty"`

	CriadoEm     time.Time  `json:"criadoEm"`
	AplicadoEm   *time.Time `json:"aplicadoEm,omitempty"`
	FinalizadoEm *time.Time `json:"finalizadoEm,omitempty"`
}

// Answered reports whether a response has been stored.
func (r *Rematricula) Answered() bool {
	return r.Resposta != ""
}

// Eligible reports whether batch apply may process the record.
func (r *Rematricula) Eligible() bool {
	return r.Status == StatusPendente && r.Resposta == RespostaSim && r.RespondidoEm != nil && r.DestinoPrincipal != nil
}

// Destinos is the principal destination followed by the extras, without
// repeats.
func (r *Rematricula) Destinos() []TurmaRef {
	if r.DestinoPrincipal == nil {
		return nil
	}
	out := []TurmaRef{*r.DestinoPrincipal}
	for _, e := range r.DestinosExtras {
		dup := false
		for _, d := range out {
			if d.Same(e) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, e)
		}
	}
	return out
}

// LockedUUIDs lists the class UUIDs the record holds slots for.
func (r *Rematricula) LockedUUIDs() []string {
	if r.ChaveAluno == "" {
		return nil
	}
	var out []string
	for _, d := range r.Destinos() {
		if d.UUID != "" {
			out = append(out, d.UUID)
		}
	}
	return out
}

// Opcao is a class offered as a destination.
type Opcao struct {
	Modalidade       string `json:"modalidade"`
	Turma            string `json:"turma"`
	UUID             string `json:"uuidTurma"`
	Nucleo           string `json:"nucleo,omitempty"`
	DiaDaSemana      string `json:"diaDaSemana,omitempty"`
	Horario          string `json:"horario,omitempty"`
	CapacidadeMaxima int    `json:"capacidade_maxima_da_turma"`
	CapacidadeAtual  int    `json:"capacidade_atual_da_turma"`
	Habilitada       bool   `json:"habilitada"`
}
