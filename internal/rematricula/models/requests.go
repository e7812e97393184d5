package models

import (
	"strings"

	dErrors "escolinha/pkg/domain-errors"
)

const maxDestinosExtras = 3

// CreateLinkRequest creates links for one student, or for every student of
// the class when Aluno is empty.
type CreateLinkRequest struct {
	Ano        int    `json:"ano" validate:"required,gte=2000,lte=2100"`
	Modalidade string `json:"modalidade" validate:"required"`
	Turma      string `json:"turma" validate:"required"`
	Aluno      string `json:"aluno"`
}

func (r *CreateLinkRequest) Normalize() {
	if r == nil {
		return
	}
	r.Modalidade = strings.TrimSpace(r.Modalidade)
	r.Turma = strings.TrimSpace(r.Turma)
	r.Aluno = strings.TrimSpace(r.Aluno)
}

// RespondRequest carries a family's answer. The token is the only
// credential.
type RespondRequest struct {
	Token            string        `json:"token" validate:"required"`
	Resposta         string        `json:"resposta" validate:"required"`
	DestinoPrincipal *TurmaRef     `json:"destinoPrincipal,omitempty"`
	DestinosExtras   []TurmaRef    `json:"destinosExtras,omitempty"`
	DadosAtualizados *DadosContato `json:"dadosAtualizados,omitempty"`
}

// Normalize trims fields and canonicalises the answer ("não" becomes "nao").
func (r *RespondRequest) Normalize() {
	if r == nil {
		return
	}
	r.Token = strings.TrimSpace(r.Token)
	if resp, ok := ParseResposta(r.Resposta); ok {
		r.Resposta = string(resp)
	}
	if r.DestinoPrincipal != nil {
		r.DestinoPrincipal.normalize()
	}
	for i := range r.DestinosExtras {
		r.DestinosExtras[i].normalize()
	}
	if r.DadosAtualizados != nil {
		r.DadosAtualizados.normalize()
	}
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *RespondRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "requisição obrigatória")
	}
	if len(r.DestinosExtras) > maxDestinosExtras {
		return dErrors.New(dErrors.CodeValidation, "no máximo 3 turmas extras")
	}
	resp, ok := ParseResposta(r.Resposta)
	if !ok {
		return dErrors.New(dErrors.CodeValidation, "resposta deve ser sim ou não")
	}
	if resp == RespostaNao {
		return nil
	}
	if r.DestinoPrincipal == nil || !r.DestinoPrincipal.complete() {
		return dErrors.New(dErrors.CodeValidation, "destinoPrincipal é obrigatório")
	}
	for i, e := range r.DestinosExtras {
		if !e.complete() {
			return dErrors.New(dErrors.CodeValidation, "destinosExtras incompleto")
		}
		if e.Same(*r.DestinoPrincipal) {
			return dErrors.New(dErrors.CodeValidation, "a mesma turma foi escolhida mais de uma vez")
		}
		for _, prev := range r.DestinosExtras[:i] {
			if e.Same(prev) {
				return dErrors.New(dErrors.CodeValidation, "a mesma turma foi escolhida mais de uma vez")
			}
		}
	}
	return nil
}

// ApplyRequest selects records for batch application.
type ApplyRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500"`
}

func (r *ApplyRequest) Normalize() {
	if r == nil {
		return
	}
	r.IDs = compactIDs(r.IDs)
}

// CleanupRequest finalises "não" answers: the listed ids, or every record of
// Ano when no id is given.
type CleanupRequest struct {
	Ano int      `json:"ano" validate:"omitempty,gte=2000,lte=2100"`
	IDs []string `json:"ids" validate:"max=500"`
}

func (r *CleanupRequest) Normalize() {
	if r == nil {
		return
	}
	r.IDs = compactIDs(r.IDs)
}

func (r *CleanupRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "requisição obrigatória")
	}
	if r.Ano == 0 && len(r.IDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "informe ano ou ids")
	}
	return nil
}

// ConfigRequest enables or disables a class as a destination for one year.
type ConfigRequest struct {
	Ano        int    `json:"ano" validate:"required,gte=2000,lte=2100"`
	UUID       string `json:"uuidTurma" validate:"required"`
	Habilitada bool   `json:"habilitada"`
}

func (r *ConfigRequest) Normalize() {
	if r == nil {
		return
	}
	r.UUID = strings.TrimSpace(r.UUID)
}

// ListFilter narrows a listing. Zero fields match everything.
type ListFilter struct {
	Ano        int
	Status     Status
	Modalidade string
	Turma      string
}

// Matches reports whether rec passes the filter.
func (f ListFilter) Matches(rec *Rematricula) bool {
	if f.Ano != 0 && rec.Ano != f.Ano {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if f.Modalidade != "" && rec.Origem.Modalidade != f.Modalidade {
		return false
	}
	if f.Turma != "" && !rec.Origem.Same(TurmaRef{Modalidade: rec.Origem.Modalidade, Turma: f.Turma}) {
		return false
	}
	return true
}

func (r *TurmaRef) normalize() {
	r.Modalidade = strings.TrimSpace(r.Modalidade)
	r.Turma = strings.TrimSpace(r.Turma)
	r.UUID = strings.TrimSpace(r.UUID)
}

func (r TurmaRef) complete() bool {
	return r.UUID != "" || (r.Modalidade != "" && r.Turma != "")
}

func compactIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
