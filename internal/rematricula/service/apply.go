package service

import (
	"context"
	"errors"

	"escolinha/internal/audit"
	"escolinha/internal/rematricula/models"
	"escolinha/internal/rematricula/store"
	turmaModels "escolinha/internal/turma/models"
	turmaStore "escolinha/internal/turma/store"
	dErrors "escolinha/pkg/domain-errors"
	"escolinha/pkg/platform/sentinel"
	"escolinha/pkg/requestcontext"
)

var (
	errOrigemMissing = dErrors.New(dErrors.CodeNotFound, "turma de origem não encontrada")
	errAlunoGone     = dErrors.New(dErrors.CodeNotFound, "aluno não encontrado na turma de origem")
	errNotPending    = dErrors.New(dErrors.CodeConflict, "apenas rematrículas pendentes podem ser excluídas")
)

// ApplyError reports one record apply could not process.
type ApplyError struct {
	ID   string `json:"id"`
	Erro string `json:"erro"`
}

// ApplyResult summarises a batch apply.
type ApplyResult struct {
	Aplicadas int          `json:"aplicadas"`
	Ignoradas int          `json:"ignoradas"`
	Erros     []ApplyError `json:"erros"`
}

// Apply moves every eligible record's student from the origin class into
// its destinations. Each record commits on its own; one failure does not
// stop the batch.
func (s *Service) Apply(ctx context.Context, req *models.ApplyRequest) (*ApplyResult, error) {
	result := &ApplyResult{Erros: []ApplyError{}}
	now := requestcontext.Now(ctx)
	for _, id := range req.IDs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.records.Get(ctx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				result.Erros = append(result.Erros, ApplyError{ID: id, Erro: dErrors.MessageOf(errNotFound)})
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rematricula")
		}
		if !rec.Eligible() {
			result.Ignoradas++
			continue
		}

		modalidades := []string{rec.Origem.Modalidade}
		for _, d := range rec.Destinos() {
			modalidades = append(modalidades, d.Modalidade)
		}
		var applied models.Rematricula
		committed, err := s.records.Run(ctx, store.Tx{ID: id, Modalidades: modalidades},
			func(r **models.Rematricula, _ store.Slots, docs turmaStore.Docs) error {
				if *r == nil || !(*r).Eligible() {
					return sentinel.ErrAborted
				}
				next := **r
				if err := applyRecord(&next, docs); err != nil {
					return err
				}
				next.Status = models.StatusAplicada
				next.AplicadoEm = &now
				*r = &next
				applied = next
				return nil
			})
		switch {
		case err != nil:
			translated := s.translate(err, "failed to apply rematricula")
			msg := dErrors.MessageOf(translated)
			if dErrors.HasCode(translated, dErrors.CodeInternal) {
				if s.logger != nil {
					s.logger.ErrorContext(ctx, "failed to apply rematricula", "rematricula_id", id, "error", err)
				}
				msg = "erro interno"
			}
			result.Erros = append(result.Erros, ApplyError{ID: id, Erro: msg})
		case !committed:
			result.Ignoradas++
		default:
			result.Aplicadas++
			s.logAudit(ctx, audit.Event{
				Action:     audit.EventRematriculaAplicada,
				Subject:    applied.ID,
				Modalidade: applied.Origem.Modalidade,
				Turma:      applied.Origem.Turma,
				Detail:     map[string]string{"destino": applied.DestinoPrincipal.Modalidade + "/" + applied.DestinoPrincipal.Turma},
			})
		}
	}
	s.metrics.AddApplied(result.Aplicadas, result.Ignoradas, len(result.Erros))
	return result, nil
}

// applyRecord rewrites the rosters in docs for one eligible record. The
// student leaves the origin unless the principal destination is the origin
// itself, and joins every destination it is not already on.
func applyRecord(rec *models.Rematricula, docs turmaStore.Docs) error {
	om := docs[rec.Origem.Modalidade]
	oi := rec.Origem.Find(om)
	if oi < 0 {
		return errOrigemMissing
	}
	origem := &om.Turmas[oi]
	ai := origem.IndexOf(rec.Aluno)
	if ai < 0 {
		return errAlunoGone
	}

	destinos := rec.Destinos()
	targets := make([]*turmaModels.Turma, len(destinos))
	for i, d := range destinos {
		dm := docs[d.Modalidade]
		di := d.Find(dm)
		if di < 0 {
			return errDestinoMissing
		}
		targets[i] = &dm.Turmas[di]
	}

	aluno, err := origem.Alunos[ai].Clone()
	if err != nil {
		return err
	}
	rec.DadosAtualizados.ApplyTo(&aluno)
	if targets[0] == origem {
		rec.DadosAtualizados.ApplyTo(&origem.Alunos[ai])
	} else {
		origem.RemoveAt(ai)
	}

	for _, t := range targets {
		if j := t.IndexOf(aluno); j >= 0 {
			rec.DadosAtualizados.ApplyTo(&t.Alunos[j])
			continue
		}
		copied, err := aluno.Clone()
		if err != nil {
			return err
		}
		copied.ID = t.NextID()
		copied.StoredKey = ""
		t.Alunos = append(t.Alunos, copied)
	}
	return nil
}

// CleanupResult summarises a cleanup run.
type CleanupResult struct {
	Finalizadas int `json:"deleted"`
	Ignoradas   int `json:"skipped"`
}

// Cleanup finalises "não" answers: the student leaves the origin class and
// the record becomes nao-rematriculado.
func (s *Service) Cleanup(ctx context.Context, req *models.CleanupRequest) (*CleanupResult, error) {
	ids := req.IDs
	if len(ids) == 0 {
		all, err := s.records.List(ctx, req.Ano)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list rematriculas")
		}
		for _, r := range all {
			if r.Status == models.StatusPendente && r.Resposta == models.RespostaNao {
				ids = append(ids, r.ID)
			}
		}
	}

	result := &CleanupResult{}
	now := requestcontext.Now(ctx)
	for _, id := range ids {
		rec, err := s.records.Get(ctx, id)
		if err != nil {
			if !errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rematricula")
			}
			result.Ignoradas++
			continue
		}
		var finalized models.Rematricula
		committed, err := s.records.Run(ctx, store.Tx{ID: id, Modalidades: []string{rec.Origem.Modalidade}},
			func(r **models.Rematricula, _ store.Slots, docs turmaStore.Docs) error {
				current := *r
				if current == nil || current.Status != models.StatusPendente || current.Resposta != models.RespostaNao {
					return sentinel.ErrAborted
				}
				removeFromOrigem(current, docs)
				next := *current
				next.Status = models.StatusNaoRematriculado
				next.FinalizadoEm = &now
				*r = &next
				finalized = next
				return nil
			})
		if err != nil {
			if s.logger != nil {
				s.logger.ErrorContext(ctx, "failed to finalize rematricula", "rematricula_id", id, "error", err)
			}
			result.Ignoradas++
			continue
		}
		if !committed {
			result.Ignoradas++
			continue
		}
		result.Finalizadas++
		s.logAudit(ctx, audit.Event{
			Action:     audit.EventRematriculaRemovida,
			Subject:    finalized.ID,
			Modalidade: finalized.Origem.Modalidade,
			Turma:      finalized.Origem.Turma,
			Detail:     map[string]string{"motivo": "nao"},
		})
	}
	s.metrics.AddFinalized("cleanup", result.Finalizadas)
	return result, nil
}

// DeletePending removes a pending record: the student leaves the origin
// class, the record's slots are freed and the record is deleted.
func (s *Service) DeletePending(ctx context.Context, id string) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status != models.StatusPendente {
		return errNotPending
	}
	tx := store.Tx{
		ID:          id,
		Ano:         rec.Ano,
		ChaveAluno:  rec.ChaveAluno,
		Slots:       rec.LockedUUIDs(),
		Modalidades: []string{rec.Origem.Modalidade},
	}
	_, err = s.records.Run(ctx, tx, func(r **models.Rematricula, slots store.Slots, docs turmaStore.Docs) error {
		current := *r
		if current == nil {
			return errNotFound
		}
		if current.Status != models.StatusPendente {
			return errNotPending
		}
		if current.ChaveAluno != rec.ChaveAluno {
			return sentinel.ErrConflict
		}
		removeFromOrigem(current, docs)
		slots.Release(current.ID)
		*r = nil
		return nil
	})
	if err != nil {
		return s.translate(err, "failed to delete rematricula")
	}
	s.metrics.AddFinalized("delete", 1)
	s.logAudit(ctx, audit.Event{
		Action:     audit.EventRematriculaRemovida,
		Subject:    rec.ID,
		Modalidade: rec.Origem.Modalidade,
		Turma:      rec.Origem.Turma,
		Detail:     map[string]string{"motivo": "excluida"},
	})
	return nil
}

func removeFromOrigem(rec *models.Rematricula, docs turmaStore.Docs) {
	m := docs[rec.Origem.Modalidade]
	i := rec.Origem.Find(m)
	if i < 0 {
		return
	}
	t := &m.Turmas[i]
	if j := t.IndexOf(rec.Aluno); j >= 0 {
		t.RemoveAt(j)
	}
}
