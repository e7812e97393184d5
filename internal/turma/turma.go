package turma

import (
	"log/slog"

	"escolinha/internal/turma/handler"
	"escolinha/internal/turma/service"
)

// Service exposes class management, enrollment, merges and transfers.
type Service = service.Service

// Handler wires HTTP endpoints to the turma service.
type Handler = handler.Handler

// NewService constructs the turma service.
func NewService(st service.ModalidadeStore, opts ...service.Option) *Service {
	return service.New(st, opts...)
}

// NewHandler constructs the HTTP handler for class routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
