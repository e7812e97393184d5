package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"escolinha/internal/attendance"
	"escolinha/internal/audit"
	"escolinha/internal/turma/models"
	"escolinha/internal/turma/store"
	dErrors "escolinha/pkg/domain-errors"
	"escolinha/pkg/requestcontext"
)

// Merge replaces two classes with a new one holding the union of their
// rosters. Sources and destination are rewritten in one atomic mutation, so
// a failure leaves every modalidade untouched.
func (s *Service) Merge(ctx context.Context, req *models.MergeRequest) (*models.Turma, error) {
	defer s.metrics.ObserveMutation("merge", time.Now())
	if req.TurmaA.Same(req.TurmaB) {
		return nil, dErrors.New(dErrors.CodeValidation, "selecione duas turmas diferentes")
	}
	id := uuid.NewString()
	now := requestcontext.Now(ctx)
	dest := req.Destino

	var merged models.Turma
	nomes := []string{req.TurmaA.Modalidade, req.TurmaB.Modalidade, dest.Modalidade}
	err := s.store.Mutate(ctx, nomes, func(docs store.Docs) error {
		a, err := lookupTurma(docs, req.TurmaA)
		if err != nil {
			return err
		}
		b, err := lookupTurma(docs, req.TurmaB)
		if err != nil {
			return err
		}
		d := docs[dest.Modalidade]
		if d == nil {
			return errModalidadeNotFound
		}
		if d.FindTurma(dest.Nome) >= 0 {
			return errTurmaNameTaken
		}

		alunos, err := MergeRosters(a.Alunos, b.Alunos)
		if err != nil {
			return err
		}
		merged = models.Turma{
			UUID:             id,
			Modalidade:       dest.Modalidade,
			Nome:             dest.Nome,
			Nucleo:           firstNonEmpty(dest.Nucleo, a.Nucleo),
			Categoria:        firstNonEmpty(dest.Categoria, a.Categoria),
			DiaDaSemana:      firstNonEmpty(dest.DiaDaSemana, a.DiaDaSemana),
			Horario:          firstNonEmpty(dest.Horario, a.Horario),
			CapacidadeMaxima: dest.CapacidadeMaxima,
			Alunos:           alunos,
			CriadaEm:         &now,
			MescladaDe:       []models.Origem{req.TurmaA, req.TurmaB},
			MescladaEm:       &now,
		}
		if merged.CapacidadeMaxima == 0 {
			merged.CapacidadeMaxima = max(a.CapacidadeMaxima, b.CapacidadeMaxima)
		}
		merged.Renumber()
		merged.Recount()

		// a and b point into the rosters; remove by name only after copying.
		for _, src := range []models.Origem{req.TurmaA, req.TurmaB} {
			m := docs[src.Modalidade]
			m.RemoveTurma(m.FindTurma(src.Turma))
		}

		d.Turmas = append(d.Turmas, merged)
		return nil
	})
	if err != nil {
		return nil, s.translate(err, "failed to merge turmas")
	}

	s.metrics.IncrementMerges()
	s.logAudit(ctx, audit.Event{
		Action:     audit.EventTurmasMescladas,
		Subject:    id,
		Modalidade: dest.Modalidade,
		Turma:      dest.Nome,
		Detail: map[string]string{
			"turma_a": req.TurmaA.Modalidade + "/" + req.TurmaA.Turma,
			"turma_b": req.TurmaB.Modalidade + "/" + req.TurmaB.Turma,
			"alunos":  fmt.Sprint(len(merged.Alunos)),
		},
	})
	return &merged, nil
}

// MergeRosters concatenates a and b and collapses records sharing an
// identity key. Order follows first appearance. When two records collide,
// the second one's fields win and their attendance is unioned.
func MergeRosters(a, b []models.Aluno) ([]models.Aluno, error) {
	out := make([]models.Aluno, 0, len(a)+len(b))
	index := make(map[string]int, len(a)+len(b))
	for _, roster := range [][]models.Aluno{a, b} {
		for _, aluno := range roster {
			key := aluno.IdentityKey()
			if i, ok := index[key]; ok {
				combined, err := mergeAluno(out[i], aluno)
				if err != nil {
					return nil, err
				}
				out[i] = combined
				continue
			}
			clone, err := aluno.Clone()
			if err != nil {
				return nil, err
			}
			index[key] = len(out)
			out = append(out, clone)
		}
	}
	return out, nil
}

// mergeAluno overlays next's top-level fields onto prev and ORs their
// attendance.
func mergeAluno(prev, next models.Aluno) (models.Aluno, error) {
	base, err := toMap(prev)
	if err != nil {
		return models.Aluno{}, err
	}
	overlay, err := toMap(next)
	if err != nil {
		return models.Aluno{}, err
	}
	for k, v := range overlay {
		base[k] = v
	}
	data, err := json.Marshal(base)
	if err != nil {
		return models.Aluno{}, err
	}
	var out models.Aluno
	if err := json.Unmarshal(data, &out); err != nil {
		return models.Aluno{}, err
	}
	out.Presencas = attendance.Merge(prev.Presencas, next.Presencas)
	return out, nil
}

func toMap(a models.Aluno) (map[string]any, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func lookupTurma(docs store.Docs, o models.Origem) (*models.Turma, error) {
	m := docs[o.Modalidade]
	if m == nil {
		return nil, errModalidadeNotFound
	}
	i := m.FindTurma(o.Turma)
	if i < 0 {
		return nil, errTurmaNotFound
	}
	return &m.Turmas[i], nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
