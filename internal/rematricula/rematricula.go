package rematricula

import (
	"log/slog"

	"escolinha/internal/rematricula/handler"
	"escolinha/internal/rematricula/service"
)

// Service runs the yearly re-enrollment: links, answers, slot locks and
// batch application.
type Service = service.Service

// Handler wires HTTP endpoints to the re-enrollment service.
type Handler = handler.Handler

// NewService constructs the re-enrollment service.
func NewService(records service.RecordStore, rosters service.RosterReader, tokens service.TokenService, opts ...service.Option) *Service {
	return service.New(records, rosters, tokens, opts...)
}

// NewHandler constructs the HTTP handler for re-enrollment routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
