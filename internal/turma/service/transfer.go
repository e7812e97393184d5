package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"escolinha/internal/audit"
	"escolinha/internal/turma/models"
	"escolinha/internal/turma/store"
)

// TransferResult counts the students a move or copy handled.
type TransferResult struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

// Move takes students out of the origin class and appends them to the
// destination. Students are matched by exact name; names missing from the
// origin or already on the destination roster are skipped. A moved student
// keeps its identifier and gets the destination's next numeric id.
func (s *Service) Move(ctx context.Context, req *models.TransferRequest) (*TransferResult, error) {
	return s.transfer(ctx, req, true)
}

// Copy appends students to the destination and leaves the origin untouched.
func (s *Service) Copy(ctx context.Context, req *models.TransferRequest) (*TransferResult, error) {
	return s.transfer(ctx, req, false)
}

func (s *Service) transfer(ctx context.Context, req *models.TransferRequest, move bool) (*TransferResult, error) {
	op, action := "copy", audit.EventAlunoCopiado
	if move {
		op, action = "move", audit.EventAlunoMovido
	}
	defer s.metrics.ObserveMutation(op, time.Now())

	ids := make([]string, len(req.Alunos))
	for i := range ids {
		ids[i] = uuid.NewString()
	}

	var (
		result TransferResult
		moved  []models.Aluno
	)
	err := s.store.Mutate(ctx, []string{req.Origem.Modalidade, req.Destino.Modalidade}, func(docs store.Docs) error {
		result = TransferResult{}
		moved = moved[:0]

		origem, err := lookupTurma(docs, req.Origem)
		if err != nil {
			return err
		}
		destino, err := lookupTurma(docs, req.Destino)
		if err != nil {
			return err
		}
		for n, nome := range req.Alunos {
			i := origem.IndexByName(nome)
			if i < 0 {
				result.Skipped++
				continue
			}
			if destino.IndexOf(origem.Alunos[i]) >= 0 {
				result.Skipped++
				continue
			}
			aluno, err := origem.Alunos[i].Clone()
			if err != nil {
				return err
			}
			if move {
				origem.RemoveAt(i)
				if aluno.UniqueID() == "" {
					aluno.InformacoesAdicionais.IdentificadorUnico = ids[n]
				}
			}
			aluno.ID = destino.NextID()
			destino.Alunos = append(destino.Alunos, aluno)
			moved = append(moved, aluno)
			result.Processed++
		}
		return nil
	})
	if err != nil {
		return nil, s.translate(err, "failed to "+op+" alunos")
	}

	s.metrics.AddTransfers(op, result.Processed, result.Skipped)
	for _, aluno := range moved {
		s.logAudit(ctx, audit.Event{
			Action:     action,
			Subject:    aluno.UniqueID(),
			Modalidade: req.Destino.Modalidade,
			Turma:      req.Destino.Turma,
			Detail: map[string]string{
				"origem":   req.Origem.Modalidade + "/" + req.Origem.Turma,
				"aluno_id": strconv.Itoa(aluno.ID),
			},
		})
	}
	return &result, nil
}
