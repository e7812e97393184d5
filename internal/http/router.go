// Package httpapi assembles the chi router: shared middleware, health and
// metrics endpoints, and every feature's routes.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"escolinha/internal/audit"
	"escolinha/internal/platform/metrics"
	dErrors "escolinha/pkg/domain-errors"
	"escolinha/pkg/platform/httputil"
	"escolinha/pkg/platform/middleware/metadata"
	"escolinha/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

// Registrar is a feature handler that mounts its own routes.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker is a dependency checked by /health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// AuditReader lists recorded audit events.
type AuditReader interface {
	ListBySubject(ctx context.Context, subject string) ([]audit.Event, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// Deps is what the router needs from main.
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Handlers []Registrar
	Health   map[string]HealthChecker
	Audit    AuditReader
}

// NewRouter wires the middleware chain and mounts every handler.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(observe(d.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth(d.Health))
	r.Handle("/metrics", metrics.Handler())
	if d.Audit != nil {
		r.Get("/auditEvents", handleAuditEvents(d.Audit, d.Logger))
	}
	for _, h := range d.Handlers {
		h.Register(r)
	}
	return r
}

// observe records request duration labelled by route pattern, so ids in
// paths do not explode cardinality.
func observe(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveRequest(r.Method, route, strconv.Itoa(status), time.Since(start).Seconds())
		})
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		var (
			mu      sync.Mutex
			results = make(map[string]string, len(checks))
			failed  bool
		)
		g, gctx := errgroup.WithContext(ctx)
		for name, c := range checks {
			g.Go(func() error {
				err := c.Health(gctx)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					results[name] = err.Error()
					failed = true
					return nil
				}
				results[name] = "ok"
				return nil
			})
		}
		_ = g.Wait()

		if failed {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Checks: results})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Checks: results})
	}
}

func handleAuditEvents(reader AuditReader, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()

		var (
			events []audit.Event
			err    error
		)
		if subject := strings.TrimSpace(q.Get("subject")); subject != "" {
			events, err = reader.ListBySubject(ctx, subject)
		} else {
			limit := 100
			if raw := q.Get("limit"); raw != "" {
				limit, err = strconv.Atoi(raw)
				if err != nil || limit <= 0 || limit > 1000 {
					httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit inválido"))
					return
				}
			}
			events, err = reader.ListRecent(ctx, limit)
		}
		if err != nil {
			if logger != nil {
				logger.ErrorContext(ctx, "failed to list audit events", "error", err)
			}
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
			return
		}
		if events == nil {
			events = []audit.Event{}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
	}
}
