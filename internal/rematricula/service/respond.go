package service

import (
	"context"
	"errors"

	"escolinha/internal/audit"
	"escolinha/internal/identity"
	"escolinha/internal/rematricula/models"
	"escolinha/internal/rematricula/store"
	turmaModels "escolinha/internal/turma/models"
	turmaStore "escolinha/internal/turma/store"
	dErrors "escolinha/pkg/domain-errors"
	"escolinha/pkg/platform/middleware/device"
	"escolinha/pkg/platform/sentinel"
	"escolinha/pkg/requestcontext"
)

var (
	errLockTaken      = dErrors.New(dErrors.CodeConflict, "vaga já reservada para este aluno em outra rematrícula")
	errDestinoMissing = dErrors.New(dErrors.CodeNotFound, "turma de destino não encontrada")
	errDestinoLegacy  = dErrors.New(dErrors.CodeValidation, "turma de destino sem identificador, procure a secretaria")
	errDestinoOff     = dErrors.New(dErrors.CodeValidation, "turma indisponível para rematrícula")
	errDestinoDup     = dErrors.New(dErrors.CodeValidation, "a mesma turma foi escolhida mais de uma vez")
	errChaveIncomplet = dErrors.New(dErrors.CodeValidation, "CPF do pagador e data de nascimento são necessários para reservar a vaga")
)

// Respond stores a family's answer. A "sim" claims one lock slot per
// destination under the student key, in the same transaction that writes
// the record, so either the answer and every slot land or nothing does.
func (s *Service) Respond(ctx context.Context, req *models.RespondRequest) (*models.Rematricula, error) {
	rec, err := s.fromToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.StatusPendente || rec.Answered() {
		return nil, errAlreadyAnswered
	}

	resposta, _ := models.ParseResposta(req.Resposta)
	now := requestcontext.Now(ctx)
	via := device.FromContext(ctx)

	tx := store.Tx{ID: rec.ID, Ano: rec.Ano}
	var destinos []models.TurmaRef
	if resposta == models.RespostaSim {
		destinos, err = s.resolveDestinos(ctx, rec.Ano, req)
		if err != nil {
			return nil, err
		}
		cpf := rec.Aluno.CPFPagador
		if req.DadosAtualizados != nil && req.DadosAtualizados.PagadorCPF != "" {
			cpf = req.DadosAtualizados.PagadorCPF
		}
		chave, err := identity.StudentKey(cpf, rec.Aluno.DataNascimento)
		if err != nil {
			if errors.Is(err, identity.ErrIncompleteKey) {
				return nil, errChaveIncomplet
			}
			return nil, err
		}
		tx.ChaveAluno = chave
		for _, d := range destinos {
			tx.Slots = append(tx.Slots, d.UUID)
		}
	}

	var updated models.Rematricula
	_, err = s.records.Run(ctx, tx, func(r **models.Rematricula, slots store.Slots, _ turmaStore.Docs) error {
		current := *r
		if current == nil || current.Ano != rec.Ano {
			return errInvalidLink
		}
		if current.Status != models.StatusPendente || current.Answered() {
			return errAlreadyAnswered
		}
		next := *current
		next.Resposta = resposta
		next.RespondidoEm = &now
		next.RespondidoVia = via
		next.DadosAtualizados = nil
		if !req.DadosAtualizados.Empty() {
			dados := *req.DadosAtualizados
			next.DadosAtualizados = &dados
		}
		if resposta == models.RespostaSim {
			if err := slots.Claim(next.ID); err != nil {
				return err
			}
			principal := destinos[0]
			next.DestinoPrincipal = &principal
			next.DestinosExtras = append([]models.TurmaRef(nil), destinos[1:]...)
			next.ChaveAluno = tx.ChaveAluno
		}
		*r = &next
		updated = next
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrLockTaken) {
			s.metrics.IncrementLockConflicts()
			return nil, errLockTaken
		}
		return nil, s.translate(err, "failed to store resposta")
	}

	s.metrics.IncrementResponses(string(resposta))
	s.logAudit(ctx, audit.Event{
		Action:     audit.EventRematriculaRespondida,
		Subject:    updated.ID,
		Modalidade: updated.Origem.Modalidade,
		Turma:      updated.Origem.Turma,
		Detail:     map[string]string{"resposta": string(resposta), "via": via},
	})
	return &updated, nil
}

// resolveDestinos turns the requested classes into references carrying
// their current UUID, name and modalidade, principal first.
func (s *Service) resolveDestinos(ctx context.Context, ano int, req *models.RespondRequest) ([]models.TurmaRef, error) {
	if req.DestinoPrincipal == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "destinoPrincipal é obrigatório")
	}
	requested := append([]models.TurmaRef{*req.DestinoPrincipal}, req.DestinosExtras...)
	out := make([]models.TurmaRef, 0, len(requested))
	for _, ref := range requested {
		resolved, err := s.resolveDestino(ctx, ref)
		if err != nil {
			return nil, err
		}
		for _, prev := range out {
			if prev.UUID == resolved.UUID {
				return nil, errDestinoDup
			}
		}
		enabled, err := s.records.Enabled(ctx, ano, resolved.UUID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rematricula config")
		}
		if !enabled {
			return nil, errDestinoOff
		}
		out = append(out, resolved)
	}
	return out, nil
}

func (s *Service) resolveDestino(ctx context.Context, ref models.TurmaRef) (models.TurmaRef, error) {
	var (
		m   *turmaModels.Modalidade
		idx = -1
		err error
	)
	if ref.UUID != "" {
		m, idx, err = s.rosters.FindByUUID(ctx, ref.UUID)
	} else {
		m, err = s.rosters.Get(ctx, ref.Modalidade)
		if err == nil {
			idx = m.FindTurma(ref.Turma)
		}
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.TurmaRef{}, errDestinoMissing
		}
		return models.TurmaRef{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve turma")
	}
	if idx < 0 || turmaModels.IsReserved(m.Nome) {
		return models.TurmaRef{}, errDestinoMissing
	}
	t := m.Turmas[idx]
	if t.UUID == "" {
		return models.TurmaRef{}, errDestinoLegacy
	}
	return models.TurmaRef{Modalidade: m.Nome, Turma: t.Nome, UUID: t.UUID}, nil
}
