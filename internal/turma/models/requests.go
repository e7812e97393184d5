package models

import (
	"strings"

	dErrors "escolinha/pkg/domain-errors"
)

const maxNameLength = 120

var errInvalidModalidade = dErrors.New(dErrors.CodeValidation, "nome de modalidade inválido")

type CreateTurmaRequest struct {
	Modalidade       string `json:"modalidade" validate:"required"`
	Nome             string `json:"nome_da_turma" validate:"required"`
	Nucleo           string `json:"nucleo"`
	Categoria        string `json:"categoria"`
	DiaDaSemana      string `json:"diaDaSemana"`
	Horario          string `json:"horario"`
	CapacidadeMaxima int    `json:"capacidade_maxima_da_turma" validate:"gte=0"`
}

func (r *CreateTurmaRequest) Normalize() {
	if r == nil {
		return
	}
	r.Modalidade = strings.TrimSpace(r.Modalidade)
	r.Nome = strings.TrimSpace(r.Nome)
	r.Nucleo = strings.TrimSpace(r.Nucleo)
	r.Categoria = strings.TrimSpace(r.Categoria)
	r.DiaDaSemana = strings.TrimSpace(r.DiaDaSemana)
	r.Horario = strings.TrimSpace(r.Horario)
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *CreateTurmaRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "requisição obrigatória")
	}
	if len(r.Nome) > maxNameLength || len(r.Modalidade) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "nome muito longo")
	}
	if r.Modalidade == "" || r.Nome == "" {
		return dErrors.New(dErrors.CodeValidation, "modalidade e nome_da_turma são obrigatórios")
	}
	if !ValidKey(r.Modalidade) {
		return errInvalidModalidade
	}
	if r.CapacidadeMaxima < 0 {
		return dErrors.New(dErrors.CodeValidation, "capacidade_maxima_da_turma não pode ser negativa")
	}
	return nil
}

// UpdateTurmaRequest changes descriptive attributes. Nil fields are kept.
type UpdateTurmaRequest struct {
	Modalidade       string  `json:"modalidade" validate:"required"`
	Nome             string  `json:"nome_da_turma" validate:"required"`
	NovoNome         *string `json:"novoNome,omitempty"`
	Nucleo           *string `json:"nucleo,omitempty"`
	Categoria        *string `json:"categoria,omitempty"`
	DiaDaSemana      *string `json:"diaDaSemana,omitempty"`
	Horario          *string `json:"horario,omitempty"`
	CapacidadeMaxima *int    `json:"capacidade_maxima_da_turma,omitempty"`
}

func (r *UpdateTurmaRequest) Normalize() {
	if r == nil {
		return
	}
	r.Modalidade = strings.TrimSpace(r.Modalidade)
	r.Nome = strings.TrimSpace(r.Nome)
	for _, p := range []*string{r.NovoNome, r.Nucleo, r.Categoria, r.DiaDaSemana, r.Horario} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
}

func (r *UpdateTurmaRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "requisição obrigatória")
	}
	if r.NovoNome != nil && len(*r.NovoNome) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "nome muito longo")
	}
	if r.Modalidade == "" || r.Nome == "" {
		return dErrors.New(dErrors.CodeValidation, "modalidade e nome_da_turma são obrigatórios")
	}
	if !ValidKey(r.Modalidade) {
		return errInvalidModalidade
	}
	if r.NovoNome != nil && *r.NovoNome == "" {
		return dErrors.New(dErrors.CodeValidation, "novoNome não pode ser vazio")
	}
	if r.CapacidadeMaxima != nil && *r.CapacidadeMaxima < 0 {
		return dErrors.New(dErrors.CodeValidation, "capacidade_maxima_da_turma não pode ser negativa")
	}
	return nil
}

type DeleteTurmaRequest struct {
	Modalidade string `json:"modalidade" validate:"required"`
	Nome       string `json:"nome_da_turma" validate:"required"`
}

func (r *DeleteTurmaRequest) Normalize() {
	if r == nil {
		return
	}
	r.Modalidade = strings.TrimSpace(r.Modalidade)
	r.Nome = strings.TrimSpace(r.Nome)
}

func (r *DeleteTurmaRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "requisição obrigatória")
	}
	if !ValidKey(r.Modalidade) {
		return errInvalidModalidade
	}
	return nil
}

type EnrollRequest struct {
	Modalidade string `json:"modalidade" validate:"required"`
	Turma      string `json:"turma" validate:"required"`
	Aluno      Aluno  `json:"aluno"`
}

func (r *EnrollRequest) Normalize() {
	if r == nil {
		return
	}
	r.Modalidade = strings.TrimSpace(r.Modalidade)
	r.Turma = strings.TrimSpace(r.Turma)
	r.Aluno.Nome = strings.TrimSpace(r.Aluno.Nome)
	r.Aluno.DataNascimento = strings.TrimSpace(r.Aluno.DataNascimento)
	r.Aluno.InformacoesAdicionais.IdentificadorUnico = strings.TrimSpace(r.Aluno.InformacoesAdicionais.IdentificadorUnico)
}

func (r *EnrollRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "requisição obrigatória")
	}
	if !ValidKey(r.Modalidade) {
		return errInvalidModalidade
	}
	if r.Aluno.Nome == "" {
		return dErrors.New(dErrors.CodeValidation, "aluno.nome é obrigatório")
	}
	if r.Aluno.UniqueID() == "" && r.Aluno.DataNascimento == "" {
		return dErrors.New(dErrors.CodeValidation, "aluno.dataNascimento é obrigatório sem IdentificadorUnico")
	}
	return nil
}

// MergeDestino describes the class a merge creates. Empty descriptive fields
// are taken from the first source class; a zero capacity takes the larger
// of the two sources.
type MergeDestino struct {
	Modalidade       string `json:"modalidade" validate:"required"`
	Nome             string `json:"nome_da_turma" validate:"required"`
	Nucleo           string `json:"nucleo"`
	Categoria        string `json:"categoria"`
	DiaDaSemana      string `json:"diaDaSemana"`
	Horario          string `json:"horario"`
	CapacidadeMaxima int    `json:"capacidade_maxima_da_turma" validate:"gte=0"`
}

type MergeRequest struct {
	TurmaA  Origem       `json:"turmaA"`
	TurmaB  Origem       `json:"turmaB"`
	Destino MergeDestino `json:"destino"`
}

func (r *MergeRequest) Normalize() {
	if r == nil {
		return
	}
	r.TurmaA.normalize()
	r.TurmaB.normalize()
	r.Destino.Modalidade = strings.TrimSpace(r.Destino.Modalidade)
	r.Destino.Nome = strings.TrimSpace(r.Destino.Nome)
}

func (r *MergeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "requisição obrigatória")
	}
	if !r.TurmaA.complete() || !r.TurmaB.complete() {
		return dErrors.New(dErrors.CodeValidation, "informe modalidade e turma das duas turmas de origem")
	}
	if !ValidKey(r.TurmaA.Modalidade) || !ValidKey(r.TurmaB.Modalidade) || !ValidKey(r.Destino.Modalidade) {
		return errInvalidModalidade
	}
	if r.TurmaA.Same(r.TurmaB) {
		return dErrors.New(dErrors.CodeValidation, "selecione duas turmas diferentes")
	}
	return nil
}

// TransferRequest moves or copies students, by exact name, between classes.
type TransferRequest struct {
	Origem  Origem   `json:"origem"`
	Destino Origem   `json:"destino"`
	Alunos  []string `json:"alunos" validate:"required,min=1"`
}

func (r *TransferRequest) Normalize() {
	if r == nil {
		return
	}
	r.Origem.normalize()
	r.Destino.normalize()
	out := r.Alunos[:0]
	for _, a := range r.Alunos {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	r.Alunos = out
}

func (r *TransferRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "requisição obrigatória")
	}
	if len(r.Alunos) > 500 {
		return dErrors.New(dErrors.CodeValidation, "no máximo 500 alunos por operação")
	}
	if !r.Origem.complete() || !r.Destino.complete() {
		return dErrors.New(dErrors.CodeValidation, "informe modalidade e turma de origem e destino")
	}
	if !ValidKey(r.Origem.Modalidade) || !ValidKey(r.Destino.Modalidade) {
		return errInvalidModalidade
	}
	if len(r.Alunos) == 0 {
		return dErrors.New(dErrors.CodeValidation, "alunos é obrigatório")
	}
	if r.Origem.Same(r.Destino) {
		return dErrors.New(dErrors.CodeValidation, "origem e destino são a mesma turma")
	}
	return nil
}

// Same reports whether o and other name the same class.
func (o Origem) Same(other Origem) bool {
	return o.Modalidade == other.Modalidade && SameName(o.Turma, other.Turma)
}

func (o *Origem) normalize() {
	o.Modalidade = strings.TrimSpace(o.Modalidade)
	o.Turma = strings.TrimSpace(o.Turma)
}

func (o Origem) complete() bool {
	return o.Modalidade != "" && o.Turma != ""
}

// ValidKey reports whether nome can be used as a modalidade document key.
func ValidKey(nome string) bool {
	return nome != "" && !strings.ContainsAny(nome, "/.#$[]")
}
