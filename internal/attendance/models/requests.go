// Package models holds the attendance request and response shapes.
package models

import (
	"strings"
	"time"

	"escolinha/internal/attendance"
	dErrors "escolinha/pkg/domain-errors"
)

const maxRegistros = 200

// Registro is one student's mark. The student is matched by identifier when
// given, otherwise by exact name.
type Registro struct {
	Aluno              string `json:"aluno"`
	IdentificadorUnico string `json:"IdentificadorUnico,omitempty"`
	Presente           bool   `json:"presente"`
}

// RecordPresenceRequest marks attendance for one class on one day. Data is
// "YYYY-MM-DD" or "D-M-YYYY"; empty means today.
type RecordPresenceRequest struct {
	Modalidade string     `json:"modalidade" validate:"required"`
	Turma      string     `json:"turma" validate:"required"`
	Data       string     `json:"data"`
	Registros  []Registro `json:"registros" validate:"required,min=1"`
}

func (r *RecordPresenceRequest) Normalize() {
	if r == nil {
		return
	}
	r.Modalidade = strings.TrimSpace(r.Modalidade)
	r.Turma = strings.TrimSpace(r.Turma)
	r.Data = strings.TrimSpace(r.Data)
	for i := range r.Registros {
		r.Registros[i].Aluno = strings.TrimSpace(r.Registros[i].Aluno)
		r.Registros[i].IdentificadorUnico = strings.TrimSpace(r.Registros[i].IdentificadorUnico)
	}
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *RecordPresenceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "requisição obrigatória")
	}
	if len(r.Registros) > maxRegistros {
		return dErrors.New(dErrors.CodeValidation, "no máximo 200 registros por chamada")
	}
	for _, reg := range r.Registros {
		if reg.Aluno == "" && reg.IdentificadorUnico == "" {
			return dErrors.New(dErrors.CodeValidation, "registro sem aluno")
		}
	}
	if r.Data != "" {
		if _, ok := ParseDate(r.Data, time.UTC); !ok {
			return dErrors.New(dErrors.CodeValidation, "data inválida")
		}
	}
	return nil
}

// ParseDate accepts "YYYY-MM-DD" or a "D-M-YYYY" day key and returns
// midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, true
	}
	t, ok := attendance.ParseDayKey(s)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
}

// RecordResult counts applied and unmatched marks.
type RecordResult struct {
	Registrados int      `json:"registrados"`
	Ignorados   []string `json:"ignorados"`
}

// ClassRisk lists the at-risk students of one class.
type ClassRisk struct {
	Modalidade string              `json:"modalidade"`
	Turma      string              `json:"turma"`
	Alunos     []attendance.Streak `json:"alunos"`
}
