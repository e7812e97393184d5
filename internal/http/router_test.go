package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escolinha/internal/audit"
	auditmemory "escolinha/internal/audit/store/memory"
	"escolinha/internal/storage"
	"escolinha/internal/turma"
	turmaService "escolinha/internal/turma/service"
	turmaStore "escolinha/internal/turma/store"
	"escolinha/pkg/testutil"
)

type checker struct{ err error }

func (c checker) Health(context.Context) error { return c.err }

func newTestRouter(t *testing.T, health map[string]HealthChecker) (http.Handler, *auditmemory.InMemoryStore) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	events := auditmemory.NewInMemoryStore()
	publisher := audit.NewPublisher(events)
	svc := turma.NewService(turmaStore.New(storage.NewMemory()),
		turmaService.WithLogger(logger),
		turmaService.WithAuditPublisher(publisher),
	)
	return NewRouter(Deps{
		Logger:   logger,
		Handlers: []Registrar{turma.NewHandler(svc, logger)},
		Health:   health,
		Audit:    events,
	}), events
}

func TestHealth(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		router, _ := newTestRouter(t, map[string]HealthChecker{"store": checker{}})
		rr := testutil.DoJSON(t, router, http.MethodGet, "/health", nil)
		testutil.AssertStatus(t, rr, http.StatusOK)
		body := testutil.UnmarshalResponse[healthResponse](t, rr)
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "ok", body.Checks["store"])
	})

	t.Run("one dependency down", func(t *testing.T) {
		router, _ := newTestRouter(t, map[string]HealthChecker{
			"store": checker{},
			"kafka": checker{err: errors.New("no brokers")},
		})
		rr := testutil.DoJSON(t, router, http.MethodGet, "/health", nil)
		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		body := testutil.UnmarshalResponse[healthResponse](t, rr)
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "no brokers", body.Checks["kafka"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rr := testutil.DoJSON(t, router, http.MethodGet, "/metrics", nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
}

func TestFeatureRoutesAndAudit(t *testing.T) {
	router, events := newTestRouter(t, nil)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/classes", map[string]any{
		"modalidade": "judo", "nome_da_turma": "Faixa branca", "capacidade_maxima_da_turma": 15,
	})
	req.Header.Set("X-Real-IP", "203.0.113.9")
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)

	recent, err := events.ListRecent(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, audit.EventTurmaCriada, recent[0].Action)
	assert.Equal(t, "203.0.113.9", recent[0].ClientIP)
	assert.NotEmpty(t, recent[0].RequestID)
	assert.WithinDuration(t, time.Now(), recent[0].Timestamp, time.Minute)

	rr = testutil.DoJSON(t, router, http.MethodGet, "/auditEvents?subject="+recent[0].Subject, nil)
	testutil.AssertStatus(t, rr, http.StatusOK)
	body := testutil.UnmarshalResponse[struct {
		Events []audit.Event `json:"events"`
	}](t, rr)
	assert.Len(t, body.Events, 1)

	rr = testutil.DoJSON(t, router, http.MethodGet, "/auditEvents?limit=abc", nil)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}

func TestUnknownRouteIs404(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rr := testutil.DoJSON(t, router, http.MethodGet, "/nada", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
