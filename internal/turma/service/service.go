package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"escolinha/internal/audit"
	"escolinha/internal/turma/metrics"
	"escolinha/internal/turma/models"
	"escolinha/internal/turma/store"
	dErrors "escolinha/pkg/domain-errors"
	"escolinha/pkg/platform/sentinel"
	"escolinha/pkg/requestcontext"
)

// ModalidadeStore is the roster persistence the service needs.
type ModalidadeStore interface {
	Get(ctx context.Context, nome string) (*models.Modalidade, error)
	List(ctx context.Context) ([]*models.Modalidade, error)
	Mutate(ctx context.Context, nomes []string, fn func(docs store.Docs) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates class management, enrollment, merges and transfers.
type Service struct {
	store          ModalidadeStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(st ModalidadeStore, opts ...Option) *Service {
	s := &Service{store: st}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	errModalidadeNotFound = dErrors.New(dErrors.CodeNotFound, "modalidade não encontrada")
	errTurmaNotFound      = dErrors.New(dErrors.CodeNotFound, "turma não encontrada")
	errTurmaNameTaken     = dErrors.New(dErrors.CodeConflict, "já existe uma turma com esse nome nesta modalidade")
)

// ModalidadeResumo is a listing entry.
type ModalidadeResumo struct {
	Nome   string `json:"nome"`
	Turmas int    `json:"turmas"`
	Alunos int    `json:"alunos"`
}

// ListModalidades lists the modalidades shown to staff; reserved ones are
// hidden unless includeReserved is set.
func (s *Service) ListModalidades(ctx context.Context, includeReserved bool) ([]ModalidadeResumo, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list modalidades")
	}
	out := make([]ModalidadeResumo, 0, len(all))
	for _, m := range all {
		if models.IsReserved(m.Nome) && !includeReserved {
			continue
		}
		r := ModalidadeResumo{Nome: m.Nome, Turmas: len(m.Turmas)}
		for _, t := range m.Turmas {
			r.Alunos += len(t.Alunos)
		}
		out = append(out, r)
	}
	return out, nil
}

// ListTurmas returns the classes of one modalidade, or of every visible
// modalidade when nome is empty.
func (s *Service) ListTurmas(ctx context.Context, nome string) ([]models.Turma, error) {
	if nome != "" {
		m, err := s.loadModalidade(ctx, nome)
		if err != nil {
			return nil, err
		}
		m.Prepare()
		return m.Turmas, nil
	}
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list turmas")
	}
	out := []models.Turma{}
	for _, m := range all {
		if models.IsReserved(m.Nome) {
			continue
		}
		m.Prepare()
		out = append(out, m.Turmas...)
	}
	return out, nil
}

// GetTurma returns one class by modalidade and name.
func (s *Service) GetTurma(ctx context.Context, modalidade, nome string) (*models.Turma, error) {
	m, err := s.loadModalidade(ctx, modalidade)
	if err != nil {
		return nil, err
	}
	i := m.FindTurma(nome)
	if i < 0 {
		return nil, errTurmaNotFound
	}
	m.Prepare()
	return &m.Turmas[i], nil
}

// CreateTurma adds a class with a fresh UUID, creating the modalidade when
// it does not exist yet.
func (s *Service) CreateTurma(ctx context.Context, req *models.CreateTurmaRequest) (*models.Turma, error) {
	defer s.metrics.ObserveMutation("create", time.Now())
	id := uuid.NewString()
	now := requestcontext.Now(ctx)

	var created models.Turma
	err := s.store.Mutate(ctx, []string{req.Modalidade}, func(docs store.Docs) error {
		m := docs[req.Modalidade]
		if m == nil {
			m = &models.Modalidade{Nome: req.Modalidade, Turmas: []models.Turma{}}
			docs[req.Modalidade] = m
		}
		if m.FindTurma(req.Nome) >= 0 {
			return errTurmaNameTaken
		}
		created = models.Turma{
			UUID:             id,
			Modalidade:       req.Modalidade,
			Nome:             req.Nome,
			Nucleo:           req.Nucleo,
			Categoria:        req.Categoria,
			DiaDaSemana:      req.DiaDaSemana,
			Horario:          req.Horario,
			CapacidadeMaxima: req.CapacidadeMaxima,
			Alunos:           []models.Aluno{},
			CriadaEm:         &now,
		}
		m.Turmas = append(m.Turmas, created)
		return nil
	})
	if err != nil {
		return nil, s.translate(err, "failed to create turma")
	}

	s.metrics.IncrementTurmasCriadas()
	s.logAudit(ctx, audit.Event{Action: audit.EventTurmaCriada, Subject: id, Modalidade: req.Modalidade, Turma: req.Nome})
	return &created, nil
}

// UpdateTurma changes descriptive attributes. The UUID never changes and the
// capacity cannot drop below the current roster.
func (s *Service) UpdateTurma(ctx context.Context, req *models.UpdateTurmaRequest) (*models.Turma, error) {
	defer s.metrics.ObserveMutation("update", time.Now())

	var updated models.Turma
	err := s.store.Mutate(ctx, []string{req.Modalidade}, func(docs store.Docs) error {
		m := docs[req.Modalidade]
		if m == nil {
			return errModalidadeNotFound
		}
		i := m.FindTurma(req.Nome)
		if i < 0 {
			return errTurmaNotFound
		}
		t := &m.Turmas[i]
		if req.NovoNome != nil && !models.SameName(*req.NovoNome, t.Nome) {
			if m.FindTurma(*req.NovoNome) >= 0 {
				return errTurmaNameTaken
			}
		}
		if req.CapacidadeMaxima != nil && *req.CapacidadeMaxima > 0 && *req.CapacidadeMaxima < len(t.Alunos) {
			return dErrors.New(dErrors.CodeValidation, "capacidade máxima menor que o número de alunos da turma")
		}
		if t.UUID == "" {
			t.UUID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("turma:"+m.Nome+"/"+t.Nome)).String()
		}
		if req.NovoNome != nil {
			t.Nome = *req.NovoNome
		}
		setIf(&t.Nucleo, req.Nucleo)
		setIf(&t.Categoria, req.Categoria)
		setIf(&t.DiaDaSemana, req.DiaDaSemana)
		setIf(&t.Horario, req.Horario)
		if req.CapacidadeMaxima != nil {
			t.CapacidadeMaxima = *req.CapacidadeMaxima
		}
		t.Recount()
		updated = *t
		return nil
	})
	if err != nil {
		return nil, s.translate(err, "failed to update turma")
	}

	s.logAudit(ctx, audit.Event{Action: audit.EventTurmaAtualizada, Subject: updated.UUID, Modalidade: req.Modalidade, Turma: updated.Nome})
	return &updated, nil
}

// DeleteTurma moves a class into the reserved "excluidos" modalidade,
// recording where it came from. Deleting from "excluidos" itself is final.
func (s *Service) DeleteTurma(ctx context.Context, req *models.DeleteTurmaRequest) error {
	defer s.metrics.ObserveMutation("delete", time.Now())
	now := requestcontext.Now(ctx)
	hard := models.SameName(req.Modalidade, models.ModalidadeExcluidos)

	var removed models.Turma
	err := s.store.Mutate(ctx, []string{req.Modalidade, models.ModalidadeExcluidos}, func(docs store.Docs) error {
		m := docs[req.Modalidade]
		if m == nil {
			return errModalidadeNotFound
		}
		i := m.FindTurma(req.Nome)
		if i < 0 {
			return errTurmaNotFound
		}
		removed = m.RemoveTurma(i)
		if hard {
			return nil
		}
		archive := docs[models.ModalidadeExcluidos]
		if archive == nil {
			archive = &models.Modalidade{Nome: models.ModalidadeExcluidos}
			docs[models.ModalidadeExcluidos] = archive
		}
		archived := removed
		archived.ExcluidaDe = req.Modalidade
		archived.ExcluidaEm = &now
		archive.Turmas = append(archive.Turmas, archived)
		return nil
	})
	if err != nil {
		return s.translate(err, "failed to delete turma")
	}

	s.logAudit(ctx, audit.Event{
		Action:     audit.EventTurmaExcluida,
		Subject:    removed.UUID,
		Modalidade: req.Modalidade,
		Turma:      removed.Nome,
		Detail:     map[string]string{"definitiva": boolString(hard)},
	})
	return nil
}

func (s *Service) loadModalidade(ctx context.Context, nome string) (*models.Modalidade, error) {
	m, err := s.store.Get(ctx, nome)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errModalidadeNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load modalidade")
	}
	return m, nil
}

// translate keeps domain errors from mutation callbacks and maps storage
// facts.
func (s *Service) translate(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return errModalidadeNotFound
	}
	if errors.Is(err, sentinel.ErrConflict) {
		s.metrics.IncrementConflicts()
		return dErrors.New(dErrors.CodeConflict, "turma alterada por outra operação, tente novamente")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event.Action),
			"subject", event.Subject,
			"modalidade", event.Modalidade,
			"turma", event.Turma,
			"request_id", requestcontext.RequestID(ctx),
			"log_type", "audit",
		)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, event)
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
