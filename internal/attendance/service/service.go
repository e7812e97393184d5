package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"escolinha/internal/attendance"
	attendanceModels "escolinha/internal/attendance/models"
	"escolinha/internal/audit"
	"escolinha/internal/turma/models"
	"escolinha/internal/turma/store"
	dErrors "escolinha/pkg/domain-errors"
	"escolinha/pkg/platform/sentinel"
	"escolinha/pkg/requestcontext"
)

// RosterStore reads and rewrites modalidade documents.
type RosterStore interface {
	Get(ctx context.Context, nome string) (*models.Modalidade, error)
	Mutate(ctx context.Context, nomes []string, fn func(docs store.Docs) error) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service records presence and builds month reports over class rosters.
type Service struct {
	store          RosterStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	location       *time.Location
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

// WithLocation sets the school's time zone, which decides what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

func New(st RosterStore, opts ...Option) *Service {
	s := &Service{store: st, location: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	errModalidadeNotFound = dErrors.New(dErrors.CodeNotFound, "modalidade não encontrada")
	errTurmaNotFound      = dErrors.New(dErrors.CodeNotFound, "turma não encontrada")
)

func (s *Service) today(ctx context.Context) time.Time {
	now := requestcontext.Now(ctx).In(s.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
}

// RecordPresence writes one day's marks into the class roster. Marks whose
// student is not on the roster are returned as ignored.
func (s *Service) RecordPresence(ctx context.Context, req *attendanceModels.RecordPresenceRequest) (*attendanceModels.RecordResult, error) {
	day := s.today(ctx)
	if req.Data != "" {
		d, ok := attendanceModels.ParseDate(req.Data, s.location)
		if !ok {
			return nil, dErrors.New(dErrors.CodeValidation, "data inválida")
		}
		day = d
	}

	var (
		result    attendanceModels.RecordResult
		turmaUUID string
	)
	err := s.store.Mutate(ctx, []string{req.Modalidade}, func(docs store.Docs) error {
		result = attendanceModels.RecordResult{Ignorados: []string{}}
		m := docs[req.Modalidade]
		if m == nil {
			return errModalidadeNotFound
		}
		i := m.FindTurma(req.Turma)
		if i < 0 {
			return errTurmaNotFound
		}
		t := &m.Turmas[i]
		turmaUUID = t.UUID
		for _, reg := range req.Registros {
			j := findAluno(t, reg)
			if j < 0 {
				result.Ignorados = append(result.Ignorados, firstNonEmpty(reg.Aluno, reg.IdentificadorUnico))
				continue
			}
			a := &t.Alunos[j]
			if a.Presencas == nil {
				a.Presencas = attendance.Presencas{}
			}
			a.Presencas.Set(day, reg.Presente)
			result.Registrados++
		}
		return nil
	})
	if err != nil {
		return nil, s.translate(err, "failed to record presence")
	}

	s.logAudit(ctx, audit.Event{
		Action:     audit.EventPresencaRegistrada,
		Subject:    turmaUUID,
		Modalidade: req.Modalidade,
		Turma:      req.Turma,
		Detail: map[string]string{
			"dia":         attendance.DayKey(day),
			"registrados": strconv.Itoa(result.Registrados),
		},
	})
	return &result, nil
}

// Summary builds the month report of one class. An empty month means the
// current one.
func (s *Service) Summary(ctx context.Context, modalidade, turma, mes string) (*attendance.Report, error) {
	t, err := s.loadTurma(ctx, modalidade, turma)
	if err != nil {
		return nil, err
	}
	mes, err = s.month(ctx, mes)
	if err != nil {
		return nil, err
	}
	report := attendance.BuildReport(students(t), mes, s.today(ctx))
	return &report, nil
}

// AtRisk lists the students with a trailing absence streak of at least
// attendance.RiskThreshold. With an empty turma every class of the
// modalidade is scanned; classes without flagged students are omitted.
func (s *Service) AtRisk(ctx context.Context, modalidade, turma, mes string) ([]attendanceModels.ClassRisk, error) {
	m, err := s.loadModalidade(ctx, modalidade)
	if err != nil {
		return nil, err
	}
	mes, err = s.month(ctx, mes)
	if err != nil {
		return nil, err
	}
	today := s.today(ctx)
	out := []attendanceModels.ClassRisk{}
	for i := range m.Turmas {
		t := &m.Turmas[i]
		if turma != "" && !models.SameName(t.Nome, turma) {
			continue
		}
		flagged := attendance.AtRisk(students(t), mes, today)
		if len(flagged) == 0 {
			continue
		}
		out = append(out, attendanceModels.ClassRisk{Modalidade: m.Nome, Turma: t.Nome, Alunos: flagged})
	}
	if turma != "" && m.FindTurma(turma) < 0 {
		return nil, errTurmaNotFound
	}
	return out, nil
}

// Export writes the month sheet of one class as CSV.
func (s *Service) Export(ctx context.Context, w io.Writer, modalidade, turma, mes string) error {
	t, err := s.loadTurma(ctx, modalidade, turma)
	if err != nil {
		return err
	}
	mes, err = s.month(ctx, mes)
	if err != nil {
		return err
	}
	if err := attendance.WriteCSV(w, students(t), mes); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write csv")
	}
	return nil
}

func (s *Service) month(ctx context.Context, mes string) (string, error) {
	if mes == "" {
		return attendance.MonthName(s.today(ctx).Month()), nil
	}
	if _, ok := attendance.MonthNumber(mes); !ok {
		return "", dErrors.New(dErrors.CodeValidation, "mês inválido")
	}
	return mes, nil
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

func (s *Service) loadTurma(ctx context.Context, modalidade, turma string) (*models.Turma, error) {
	m, err := s.loadModalidade(ctx, modalidade)
	if err != nil {
		return nil, err
	}
	i := m.FindTurma(turma)
	if i < 0 {
		return nil, errTurmaNotFound
	}
	return &m.Turmas[i], nil
}

func (s *Service) translate(err error, msg string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.New(dErrors.CodeConflict, "chamada alterada por outra operação, tente novamente")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event.Action),
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

func findAluno(t *models.Turma, reg attendanceModels.Registro) int {
	if reg.IdentificadorUnico != "" {
		for i, a := range t.Alunos {
			if a.UniqueID() == reg.IdentificadorUnico {
				return i
			}
		}
		return -1
	}
	return t.IndexByName(reg.Aluno)
}

func students(t *models.Turma) []attendance.Student {
	out := make([]attendance.Student, len(t.Alunos))
	for i, a := range t.Alunos {
		out[i] = a.AttendanceRecord()
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
