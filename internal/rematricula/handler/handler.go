package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"escolinha/internal/rematricula/models"
	"escolinha/internal/rematricula/service"
	dErrors "escolinha/pkg/domain-errors"
	"escolinha/pkg/platform/httputil"
	"escolinha/pkg/requestcontext"
)

// Service defines the re-enrollment operations the handler exposes.
type Service interface {
	CreateLinks(ctx context.Context, req *models.CreateLinkRequest) ([]service.Link, error)
	View(ctx context.Context, token string) (*service.LinkView, error)
	Respond(ctx context.Context, req *models.RespondRequest) (*models.Rematricula, error)
	Apply(ctx context.Context, req *models.ApplyRequest) (*service.ApplyResult, error)
	Cleanup(ctx context.Context, req *models.CleanupRequest) (*service.CleanupResult, error)
	DeletePending(ctx context.Context, id string) error
	List(ctx context.Context, filter models.ListFilter) ([]*models.Rematricula, error)
	Options(ctx context.Context, ano int) ([]models.Opcao, error)
	SetConfig(ctx context.Context, req *models.ConfigRequest) error
}

// Handler serves the family-facing link routes and the secretaria's batch
// routes.
type Handler struct {
	service Service
	logger  *slog.Logger
	public  []func(http.Handler) http.Handler
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// UsePublic adds middleware to the token routes families reach without an
// account.
func (h *Handler) UsePublic(mw ...func(http.Handler) http.Handler) *Handler {
	h.public = append(h.public, mw...)
	return h
}

// Register mounts the routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/createReenrollmentLink", h.HandleCreateLink)
	public := r.With(h.public...)
	public.Get("/reenrollment", h.HandleView)
	public.Post("/respondReenrollment", h.HandleRespond)
	r.Post("/applyReenrollments", h.HandleApply)
	r.Post("/cleanupReenrollments", h.HandleCleanup)
	r.Get("/listReenrollments", h.HandleList)
	r.Get("/reenrollmentOptions", h.HandleOptions)
	r.Put("/reenrollmentConfig", h.HandleConfig)
	r.Delete("/reenrollments/{id}", h.HandleDelete)
}

func (h *Handler) HandleCreateLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.CreateLinkRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	links, err := h.service.CreateLinks(ctx, req)
	if err != nil {
		h.fail(ctx, w, err, "failed to create rematricula links")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"links": links})
}

func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "token é obrigatório"))
		return
	}
	view, err := h.service.View(ctx, token)
	if err != nil {
		h.fail(ctx, w, err, "failed to open rematricula link")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.RespondRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	rec, err := h.service.Respond(ctx, req)
	if err != nil {
		h.fail(ctx, w, err, "failed to respond rematricula")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.ApplyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	res, err := h.service.Apply(ctx, req)
	if err != nil {
		h.fail(ctx, w, err, "failed to apply rematriculas")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.CleanupRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	res, err := h.service.Cleanup(ctx, req)
	if err != nil {
		h.fail(ctx, w, err, "failed to clean up rematriculas")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	ano, err := parseAno(q.Get("ano"), false)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status := models.Status(q.Get("status"))
	if status != "" && !status.IsValid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "status inválido"))
		return
	}
	recs, err := h.service.List(ctx, models.ListFilter{
		Ano:        ano,
		Status:     status,
		Modalidade: strings.TrimSpace(q.Get("modalidade")),
		Turma:      strings.TrimSpace(q.Get("turma")),
	})
	if err != nil {
		h.fail(ctx, w, err, "failed to list rematriculas")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"rematriculas": recs})
}

func (h *Handler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ano, err := parseAno(r.URL.Query().Get("ano"), true)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	opcoes, err := h.service.Options(ctx, ano)
	if err != nil {
		h.fail(ctx, w, err, "failed to list rematricula options")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"opcoes": opcoes})
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.ConfigRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.SetConfig(ctx, req); err != nil {
		h.fail(ctx, w, err, "failed to save rematricula config")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := h.service.DeletePending(ctx, id); err != nil {
		h.fail(ctx, w, err, "failed to delete rematricula")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"deleted": 1})
}

func parseAno(raw string, required bool) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if required {
			return 0, dErrors.New(dErrors.CodeValidation, "ano é obrigatório")
		}
		return 0, nil
	}
	ano, err := strconv.Atoi(raw)
	if err != nil || ano < 2000 || ano > 2100 {
		return 0, dErrors.New(dErrors.CodeValidation, "ano inválido")
	}
	return ano, nil
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
