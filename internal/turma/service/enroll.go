package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"escolinha/internal/audit"
	"escolinha/internal/turma/models"
	"escolinha/internal/turma/store"
	dErrors "escolinha/pkg/domain-errors"
)

var (
	errAlunoDuplicado = dErrors.New(dErrors.CodeConflict, "aluno já cadastrado nesta turma")
	errTurmaLotada    = dErrors.New(dErrors.CodeConflict, "turma lotada")
)

// Enroll registers a student in a class. The student is rejected when the
// roster already holds the same identifier, or when either side has no
// identifier and the normalized name and birth date match. Students without
// an identifier receive one.
func (s *Service) Enroll(ctx context.Context, req *models.EnrollRequest) (*models.Aluno, error) {
	defer s.metrics.ObserveMutation("enroll", time.Now())
	newID := uuid.NewString()

	var (
		enrolled  models.Aluno
		turmaUUID string
	)
	err := s.store.Mutate(ctx, []string{req.Modalidade}, func(docs store.Docs) error {
		m := docs[req.Modalidade]
		if m == nil {
			return errModalidadeNotFound
		}
		i := m.FindTurma(req.Turma)
		if i < 0 {
			return errTurmaNotFound
		}
		t := &m.Turmas[i]
		if t.IndexOf(req.Aluno) >= 0 {
			return errAlunoDuplicado
		}
		if t.Full() {
			return errTurmaLotada
		}
		aluno, err := req.Aluno.Clone()
		if err != nil {
			return err
		}
		if aluno.UniqueID() == "" {
			aluno.InformacoesAdicionais.IdentificadorUnico = newID
		}
		aluno.ID = t.NextID()
		t.Alunos = append(t.Alunos, aluno)
		enrolled = aluno
		turmaUUID = t.UUID
		return nil
	})
	if err != nil {
		return nil, s.translate(err, "failed to enroll aluno")
	}

	s.metrics.IncrementMatriculas()
	s.logAudit(ctx, audit.Event{
		Action:     audit.EventAlunoMatriculado,
		Subject:    enrolled.UniqueID(),
		Modalidade: req.Modalidade,
		Turma:      req.Turma,
		Detail:     map[string]string{"turma_uuid": turmaUUID, "aluno_id": strconv.Itoa(enrolled.ID)},
	})
	return &enrolled, nil
}
