package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	attendanceHandler "escolinha/internal/attendance/handler"
	attendanceService "escolinha/internal/attendance/service"
	"escolinha/internal/audit"
	kafkasink "escolinha/internal/audit/store/kafka"
	auditmemory "escolinha/internal/audit/store/memory"
	auditpostgres "escolinha/internal/audit/store/postgres"
	httpapi "escolinha/internal/http"
	jwttoken "escolinha/internal/jwt_token"
	"escolinha/internal/platform/config"
	"escolinha/internal/platform/httpserver"
	"escolinha/internal/platform/kafka"
	"escolinha/internal/platform/logger"
	"escolinha/internal/platform/metrics"
	"escolinha/internal/platform/postgres"
	"escolinha/internal/platform/redis"
	"escolinha/internal/ratelimit"
	"escolinha/internal/rematricula"
	rematriculaMetrics "escolinha/internal/rematricula/metrics"
	rematriculaService "escolinha/internal/rematricula/service"
	rematriculaStore "escolinha/internal/rematricula/store"
	"escolinha/internal/storage"
	"escolinha/internal/turma"
	turmaMetrics "escolinha/internal/turma/metrics"
	turmaService "escolinha/internal/turma/service"
	turmaStore "escolinha/internal/turma/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "escolinha: %v\n", err)
		os.Exit(1)
	}
}

// run wires dependencies and blocks until a signal arrives or a component
// fails. Business logic lives in the feature packages.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.Log.Level)
	if cfg.UsesDevSigningKey() {
		log.Warn("using the development signing key for re-enrollment links")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := map[string]httpapi.HealthChecker{}
	stores, err := openStore(ctx, cfg, log, health)
	if err != nil {
		return err
	}
	defer stores.close()

	var events auditStore = auditmemory.NewInMemoryStore()
	if stores.events != nil {
		events = stores.events
	}
	sinks := audit.Fanout{events}
	if cfg.Kafka.Enabled() {
		kc, err := kafka.New(ctx, cfg.Kafka)
		if err != nil {
			return err
		}
		defer kc.Close()
		if err := kafka.EnsureTopic(ctx, kc.Client, cfg.Kafka.AuditTopic, cfg.Kafka.Partitions, cfg.Kafka.Replicas); err != nil {
			return err
		}
		sinks = append(sinks, kafkasink.New(kc, cfg.Kafka.AuditTopic))
		health["kafka"] = kc
	}
	auditMetrics := audit.NewMetrics()
	queue := make(chan audit.Event, cfg.Audit.QueueSize)
	publisher := audit.NewPublisher(sinks,
		audit.WithQueue(queue),
		audit.WithLogger(log),
		audit.WithMetrics(auditMetrics),
	)
	worker := audit.NewWorker(sinks, queue,
		audit.WithWorkerLogger(log),
		audit.WithWorkerMetrics(auditMetrics),
		audit.WithBreakerPolicy(5, 30*time.Second),
	)

	rosters := turmaStore.New(stores.tree)
	turmaSvc := turma.NewService(rosters,
		turmaService.WithLogger(log),
		turmaService.WithMetrics(turmaMetrics.New()),
		turmaService.WithAuditPublisher(publisher),
	)
	attendanceSvc := attendanceService.New(rosters,
		attendanceService.WithLogger(log),
		attendanceService.WithAuditPublisher(publisher),
		attendanceService.WithLocation(cfg.Server.Location),
	)
	tokens := jwttoken.NewJWTService(cfg.Token.SigningKey, cfg.Token.Issuer)
	rematriculaSvc := rematricula.NewService(rematriculaStore.New(stores.tree), rosters, tokens,
		rematriculaService.WithLogger(log),
		rematriculaService.WithMetrics(rematriculaMetrics.New()),
		rematriculaService.WithAuditPublisher(publisher),
		rematriculaService.WithTokenTTL(cfg.Token.TTL),
	)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:  log,
		Metrics: metrics.New(),
		Handlers: []httpapi.Registrar{
			turma.NewHandler(turmaSvc, log),
			attendanceHandler.New(attendanceSvc, log),
			publicLimits(rematricula.NewHandler(rematriculaSvc, log), cfg.Limit, stores.limits, log),
		},
		Health: health,
		Audit:  events,
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting escolinha", "addr", cfg.Server.Addr, "store", cfg.Store.Backend, "kafka", cfg.Kafka.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

type auditStore interface {
	audit.Store
	httpapi.AuditReader
}

// backing holds what the configured backend provides. events is nil unless
// the backend can persist audit events itself.
type backing struct {
	tree   *storage.Tree
	limits ratelimit.Store
	events auditStore
	close  func()
}

// openStore builds the tree store for the configured backend and registers
// its health check.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger, health map[string]httpapi.HealthChecker) (backing, error) {
	switch cfg.Store.Backend {
	case config.BackendRedis:
		rc, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return backing{}, err
		}
		health["redis"] = rc
		return backing{
			tree:   storage.NewTree(storage.NewRedisBackend(rc.Client)),
			limits: ratelimit.NewRedisStore(rc.Client),
			close:  func() { _ = rc.Close() },
		}, nil
	case config.BackendPostgres:
		pool, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return backing{}, err
		}
		backend := storage.NewPostgresBackend(pool.Pool)
		if err := backend.Migrate(ctx); err != nil {
			pool.Close()
			return backing{}, fmt.Errorf("migrate tree store: %w", err)
		}
		events := auditpostgres.New(pool.Pool)
		if err := events.Migrate(ctx); err != nil {
			pool.Close()
			return backing{}, fmt.Errorf("migrate audit store: %w", err)
		}
		health["postgres"] = pool
		return backing{
			tree:   storage.NewTree(backend),
			limits: ratelimit.NewMemoryStore(),
			events: events,
			close:  pool.Close,
		}, nil
	default:
		log.Warn("using the in-memory store; data is lost on restart")
		return backing{
			tree:   storage.NewMemory(),
			limits: ratelimit.NewMemoryStore(),
			close:  func() {},
		}, nil
	}
}

func publicLimits(h *rematricula.Handler, cfg config.RateLimitConfig, store ratelimit.Store, log *slog.Logger) *rematricula.Handler {
	if cfg.Requests <= 0 {
		return h
	}
	return h.UsePublic(ratelimit.New(store, cfg.Requests, cfg.Window, log).Handler)
}
