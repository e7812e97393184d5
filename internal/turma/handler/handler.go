package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"escolinha/internal/turma/models"
	"escolinha/internal/turma/service"
	dErrors "escolinha/pkg/domain-errors"
	"escolinha/pkg/platform/httputil"
	"escolinha/pkg/requestcontext"
)

// Service defines the class operations the handler exposes.
type Service interface {
	ListModalidades(ctx context.Context, includeReserved bool) ([]service.ModalidadeResumo, error)
	ListTurmas(ctx context.Context, modalidade string) ([]models.Turma, error)
	GetTurma(ctx context.Context, modalidade, nome string) (*models.Turma, error)
	CreateTurma(ctx context.Context, req *models.CreateTurmaRequest) (*models.Turma, error)
	UpdateTurma(ctx context.Context, req *models.UpdateTurmaRequest) (*models.Turma, error)
	DeleteTurma(ctx context.Context, req *models.DeleteTurmaRequest) error
	Enroll(ctx context.Context, req *models.EnrollRequest) (*models.Aluno, error)
	Merge(ctx context.Context, req *models.MergeRequest) (*models.Turma, error)
	Move(ctx context.Context, req *models.TransferRequest) (*service.TransferResult, error)
	Copy(ctx context.Context, req *models.TransferRequest) (*service.TransferResult, error)
}

// Handler serves class management, enrollment, merge and transfer routes.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a turma Handler.
func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/modalidades", h.HandleListModalidades)
	r.Route("/classes", func(r chi.Router) {
		r.Get("/", h.HandleGetClasses)
		r.Post("/", h.HandleCreateClass)
		r.Put("/", h.HandleUpdateClass)
		r.Delete("/", h.HandleDeleteClass)
	})
	r.Post("/enrollStudent", h.HandleEnroll)
	r.Post("/mergeClasses", h.HandleMerge)
	r.Post("/moveStudent", h.HandleMove)
	r.Post("/copyStudent", h.HandleCopy)
}

func (h *Handler) HandleListModalidades(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	includeReserved := r.URL.Query().Get("incluirReservadas") == "true"
	res, err := h.service.ListModalidades(ctx, includeReserved)
	if err != nil {
		h.fail(ctx, w, err, "failed to list modalidades")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"modalidades": res})
}

// HandleGetClasses returns one class when both modalidade and nome_da_turma
// are given, otherwise a listing.
func (h *Handler) HandleGetClasses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	modalidade, nome := q.Get("modalidade"), q.Get("nome_da_turma")

	if modalidade != "" && nome != "" {
		t, err := h.service.GetTurma(ctx, modalidade, nome)
		if err != nil {
			h.fail(ctx, w, err, "failed to get turma")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, t)
		return
	}
	if nome != "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "modalidade é obrigatória"))
		return
	}
	turmas, err := h.service.ListTurmas(ctx, modalidade)
	if err != nil {
		h.fail(ctx, w, err, "failed to list turmas")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"turmas": turmas})
}

func (h *Handler) HandleCreateClass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.CreateTurmaRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	t, err := h.service.CreateTurma(ctx, req)
	if err != nil {
		h.fail(ctx, w, err, "failed to create turma")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) HandleUpdateClass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.UpdateTurmaRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	t, err := h.service.UpdateTurma(ctx, req)
	if err != nil {
		h.fail(ctx, w, err, "failed to update turma")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) HandleDeleteClass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.DeleteTurmaRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := h.service.DeleteTurma(ctx, req); err != nil {
		h.fail(ctx, w, err, "failed to delete turma")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"deleted": 1})
}

func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.EnrollRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	aluno, err := h.service.Enroll(ctx, req)
	if err != nil {
		h.fail(ctx, w, err, "failed to enroll aluno")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, aluno)
}

func (h *Handler) HandleMerge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.MergeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	t, err := h.service.Merge(ctx, req)
	if err != nil {
		h.fail(ctx, w, err, "failed to merge turmas")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) HandleMove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.TransferRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	res, err := h.service.Move(ctx, req)
	if err != nil {
		h.fail(ctx, w, err, "failed to move alunos")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"moved": res.Processed, "skipped": res.Skipped})
}

func (h *Handler) HandleCopy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.TransferRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	res, err := h.service.Copy(ctx, req)
	if err != nil {
		h.fail(ctx, w, err, "failed to copy alunos")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"copied": res.Processed, "skipped": res.Skipped})
}

// fail logs at error level for internal failures and at warn level for
// rejections, then writes the envelope.
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
