package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"escolinha/internal/attendance"
	"escolinha/internal/attendance/models"
	dErrors "escolinha/pkg/domain-errors"
	"escolinha/pkg/platform/httputil"
	"escolinha/pkg/requestcontext"
)

// Service defines the attendance operations the handler exposes.
type Service interface {
	RecordPresence(ctx context.Context, req *models.RecordPresenceRequest) (*models.RecordResult, error)
	Summary(ctx context.Context, modalidade, turma, mes string) (*attendance.Report, error)
	AtRisk(ctx context.Context, modalidade, turma, mes string) ([]models.ClassRisk, error)
	Export(ctx context.Context, w io.Writer, modalidade, turma, mes string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.Post("/", h.HandleRecord)
		r.Get("/summary", h.HandleSummary)
		r.Get("/at-risk", h.HandleAtRisk)
		r.Get("/export", h.HandleExport)
	})
}

func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.RecordPresenceRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	res, err := h.service.RecordPresence(ctx, req)
	if err != nil {
		h.fail(ctx, w, err, "failed to record presence")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, ok := h.classQuery(w, r, true)
	if !ok {
		return
	}
	report, err := h.service.Summary(ctx, q.modalidade, q.turma, q.mes)
	if err != nil {
		h.fail(ctx, w, err, "failed to build attendance summary")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) HandleAtRisk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, ok := h.classQuery(w, r, false)
	if !ok {
		return
	}
	res, err := h.service.AtRisk(ctx, q.modalidade, q.turma, q.mes)
	if err != nil {
		h.fail(ctx, w, err, "failed to list at-risk students")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"turmas": res})
}

// HandleExport streams the month sheet. Headers go out with the first CSV
// byte, so failures before it still get the JSON envelope.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, ok := h.classQuery(w, r, true)
	if !ok {
		return
	}
	sheet := &lazyWriter{w: w, filename: q.modalidade + "-" + q.turma + ".csv"}
	if err := h.service.Export(ctx, sheet, q.modalidade, q.turma, q.mes); err != nil {
		if sheet.started {
			h.logger.ErrorContext(ctx, "csv export aborted mid-stream",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			return
		}
		h.fail(ctx, w, err, "failed to export attendance")
	}
}

type classQuery struct {
	modalidade, turma, mes string
}

func (h *Handler) classQuery(w http.ResponseWriter, r *http.Request, turmaRequired bool) (classQuery, bool) {
	v := r.URL.Query()
	q := classQuery{modalidade: v.Get("modalidade"), turma: v.Get("turma"), mes: v.Get("mes")}
	if q.modalidade == "" || (turmaRequired && q.turma == "") {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "modalidade e turma são obrigatórias"))
		return q, false
	}
	return q, true
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}

// lazyWriter sets the CSV headers on the first write.
type lazyWriter struct {
	w        http.ResponseWriter
	filename string
	started  bool
}

func (l *lazyWriter) Write(p []byte) (int, error) {
	if !l.started {
		l.started = true
		l.w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		l.w.Header().Set("Content-Disposition", `attachment; filename="`+l.filename+`"`)
		l.w.WriteHeader(http.StatusOK)
	}
	return l.w.Write(p)
}
