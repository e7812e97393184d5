package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"escolinha/internal/audit"
	jwttoken "escolinha/internal/jwt_token"
	"escolinha/internal/rematricula/metrics"
	"escolinha/internal/rematricula/models"
	"escolinha/internal/rematricula/store"
	turmaModels "escolinha/internal/turma/models"
	dErrors "escolinha/pkg/domain-errors"
	"escolinha/pkg/platform/sentinel"
	"escolinha/pkg/requestcontext"
)

// RecordStore persists records, slots and offer flags.
type RecordStore interface {
	Get(ctx context.Context, id string) (*models.Rematricula, error)
	CreateIfAbsent(ctx context.Context, r *models.Rematricula) (*models.Rematricula, bool, error)
	List(ctx context.Context, ano int) ([]*models.Rematricula, error)
	Run(ctx context.Context, tx store.Tx, fn store.TxFunc) (bool, error)
	Enabled(ctx context.Context, ano int, uuidTurma string) (bool, error)
	EnabledMap(ctx context.Context, ano int) (map[string]bool, error)
	SetEnabled(ctx context.Context, ano int, uuidTurma string, enabled bool) error
}

// RosterReader reads class rosters.
type RosterReader interface {
	Get(ctx context.Context, nome string) (*turmaModels.Modalidade, error)
	List(ctx context.Context) ([]*turmaModels.Modalidade, error)
	FindByUUID(ctx context.Context, id string) (*turmaModels.Modalidade, int, error)
}

// TokenService signs and checks re-enrollment links.
type TokenService interface {
	GenerateLinkToken(rematriculaID string, ano int, now time.Time, expiresIn time.Duration) (string, error)
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service drives re-enrollment records from link creation to application.
type Service struct {
	records        RecordStore
	rosters        RosterReader
	tokens         TokenService
	tokenTTL       time.Duration
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

// WithTokenTTL sets how long links stay valid.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

const defaultTokenTTL = 60 * 24 * time.Hour

func New(records RecordStore, rosters RosterReader, tokens TokenService, opts ...Option) *Service {
	s := &Service{
		records:  records,
		rosters:  rosters,
		tokens:   tokens,
		tokenTTL: defaultTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	errInvalidLink       = jwttoken.ErrInvalidLink
	errNotFound          = dErrors.New(dErrors.CodeNotFound, "rematrícula não encontrada")
	errAlreadyAnswered   = dErrors.New(dErrors.CodeConflict, "rematrícula já respondida")
	errModalidadeMissing = dErrors.New(dErrors.CodeNotFound, "modalidade não encontrada")
	errTurmaMissing      = dErrors.New(dErrors.CodeNotFound, "turma não encontrada")
	errAlunoMissing      = dErrors.New(dErrors.CodeNotFound, "aluno não encontrado na turma")
)

var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("escolinha/rematricula"))

// RecordID derives the id of the record for one student, origin class and
// year, so creating twice lands on the same record.
func RecordID(identityKey string, origem models.TurmaRef, ano int) string {
	class := origem.UUID
	if class == "" {
		class = origem.Modalidade + "/" + turmaModels.FoldName(origem.Turma)
	}
	return uuid.NewSHA1(recordNamespace, []byte(identityKey+"|"+class+"|"+strconv.Itoa(ano))).String()
}

// Link is a created (or found) record with a fresh token.
type Link struct {
	ID     string        `json:"id"`
	Aluno  string        `json:"aluno"`
	Status models.Status `json:"status"`
	Token  string        `json:"token"`
	Criado bool          `json:"criado"`
}

// CreateLinks looks up or creates the records of one student, or of every
// student of the class, and issues a token for each.
func (s *Service) CreateLinks(ctx context.Context, req *models.CreateLinkRequest) ([]Link, error) {
	m, err := s.loadModalidade(ctx, req.Modalidade)
	if err != nil {
		return nil, err
	}
	ti := m.FindTurma(req.Turma)
	if ti < 0 {
		return nil, errTurmaMissing
	}
	t := m.Turmas[ti]
	alunos := t.Alunos
	if req.Aluno != "" {
		i := t.IndexByName(req.Aluno)
		if i < 0 {
			return nil, errAlunoMissing
		}
		alunos = alunos[i : i+1]
	}

	now := requestcontext.Now(ctx)
	origem := models.TurmaRef{Modalidade: m.Nome, Turma: t.Nome, UUID: t.UUID}
	links := make([]Link, 0, len(alunos))
	for _, a := range alunos {
		rec := &models.Rematricula{
			ID:  RecordID(a.IdentityKey(), origem, req.Ano),
			Ano: req.Ano,
			Aluno: models.AlunoRef{
				Nome:               a.Nome,
				DataNascimento:     a.DataNascimento,
				IdentificadorUnico: a.UniqueID(),
				CPFPagador:         a.CPF(),
			},
			Origem:   origem,
			Status:   models.StatusPendente,
			CriadoEm: now,
		}
		stored, created, err := s.records.CreateIfAbsent(ctx, rec)
		if err != nil {
			return nil, s.translate(err, "failed to create rematricula")
		}
		token, err := s.tokens.GenerateLinkToken(stored.ID, stored.Ano, now, s.tokenTTL)
		if err != nil {
			return nil, err
		}
		links = append(links, Link{ID: stored.ID, Aluno: stored.Aluno.Nome, Status: stored.Status, Token: token, Criado: created})
		if created {
			s.metrics.IncrementLinksCreated()
			s.logAudit(ctx, audit.Event{
				Action:     audit.EventRematriculaCriada,
				Subject:    stored.ID,
				Modalidade: origem.Modalidade,
				Turma:      origem.Turma,
				Detail:     map[string]string{"ano": strconv.Itoa(stored.Ano)},
			})
		}
	}
	return links, nil
}

// LinkView is what a family sees when opening a link.
type LinkView struct {
	Rematricula *models.Rematricula `json:"rematricula"`
	Opcoes      []models.Opcao      `json:"opcoes"`
}

// View resolves a token to its record and the classes on offer. Bad tokens
// and missing records are indistinguishable.
func (s *Service) View(ctx context.Context, token string) (*LinkView, error) {
	rec, err := s.fromToken(ctx, token)
	if err != nil {
		return nil, err
	}
	opcoes, err := s.Options(ctx, rec.Ano)
	if err != nil {
		return nil, err
	}
	offered := make([]models.Opcao, 0, len(opcoes))
	for _, o := range opcoes {
		if o.Habilitada {
			offered = append(offered, o)
		}
	}
	public := *rec
	public.Aluno.CPFPagador = ""
	public.ChaveAluno = ""
	return &LinkView{Rematricula: &public, Opcoes: offered}, nil
}

// Options lists every class with a UUID outside the reserved modalidades,
// with its offer flag for ano.
func (s *Service) Options(ctx context.Context, ano int) ([]models.Opcao, error) {
	all, err := s.rosters.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list turmas")
	}
	flags, err := s.records.EnabledMap(ctx, ano)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rematricula config")
	}
	out := []models.Opcao{}
	for _, m := range all {
		if turmaModels.IsReserved(m.Nome) {
			continue
		}
		m.Prepare()
		for _, t := range m.Turmas {
			if t.UUID == "" {
				continue
			}
			enabled, ok := flags[t.UUID]
			out = append(out, models.Opcao{
				Modalidade:       m.Nome,
				Turma:            t.Nome,
				UUID:             t.UUID,
				Nucleo:           t.Nucleo,
				DiaDaSemana:      t.DiaDaSemana,
				Horario:          t.Horario,
				CapacidadeMaxima: t.CapacidadeMaxima,
				CapacidadeAtual:  t.CapacidadeAtual,
				Habilitada:       !ok || enabled,
			})
		}
	}
	return out, nil
}

// SetConfig turns a class on or off as a destination for one year.
func (s *Service) SetConfig(ctx context.Context, req *models.ConfigRequest) error {
	if _, _, err := s.rosters.FindByUUID(ctx, req.UUID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return errTurmaMissing
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to find turma")
	}
	if err := s.records.SetEnabled(ctx, req.Ano, req.UUID, req.Habilitada); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save rematricula config")
	}
	return nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, id string) (*models.Rematricula, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rematricula")
	}
	return rec, nil
}

// List returns the records matching filter.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.Rematricula, error) {
	all, err := s.records.List(ctx, filter.Ano)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list rematriculas")
	}
	out := make([]*models.Rematricula, 0, len(all))
	for _, r := range all {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Service) fromToken(ctx context.Context, token string) (*models.Rematricula, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, errInvalidLink
	}
	rec, err := s.records.Get(ctx, claims.RematriculaID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errInvalidLink
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rematricula")
	}
	if rec.Ano != claims.Ano {
		return nil, errInvalidLink
	}
	return rec, nil
}

func (s *Service) loadModalidade(ctx context.Context, nome string) (*turmaModels.Modalidade, error) {
	m, err := s.rosters.Get(ctx, nome)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errModalidadeMissing
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load modalidade")
	}
	return m, nil
}

func (s *Service) translate(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "operação concorrente, tente novamente")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event.Action),
			"rematricula_id", event.Subject,
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
