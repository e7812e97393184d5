package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"escolinha/internal/audit"
)

const eventsTable = "audit_events"

// Store keeps audit events in Postgres so /auditEvents survives restarts
// when the tree lives in the same database.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the events table and its lookup indexes.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+eventsTable+` (
			id          UUID PRIMARY KEY,
			timestamp   TIMESTAMPTZ NOT NULL,
			action      TEXT NOT NULL,
			subject     TEXT NOT NULL,
			modalidade  TEXT NOT NULL DEFAULT '',
			turma       TEXT NOT NULL DEFAULT '',
			detail      JSONB,
			request_id  TEXT NOT NULL DEFAULT '',
			client_ip   TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS audit_events_subject_idx ON `+eventsTable+` (subject, timestamp);
		CREATE INDEX IF NOT EXISTS audit_events_timestamp_idx ON `+eventsTable+` (timestamp DESC);`)
	if err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	return nil
}

func (s *Store) Name() string { return "postgres" }

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	var detail []byte
	if len(event.Detail) > 0 {
		var err error
		if detail, err = json.Marshal(event.Detail); err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+eventsTable+` (id, timestamp, action, subject, modalidade, turma, detail, request_id, client_ip)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New(), event.Timestamp, string(event.Action), event.Subject,
		event.Modalidade, event.Turma, detail, event.RequestID, event.ClientIP,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySubject returns the events about subject, oldest first.
func (s *Store) ListBySubject(ctx context.Context, subject string) ([]audit.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT timestamp, action, subject, modalidade, turma, detail, request_id, client_ip
		FROM `+eventsTable+`
		WHERE subject = $1
		ORDER BY timestamp ASC`, subject)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	return scanEvents(rows)
}

// ListRecent returns up to limit events, most recent first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT timestamp, action, subject, modalidade, turma, detail, request_id, client_ip
		FROM `+eventsTable+`
		ORDER BY timestamp DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]audit.Event, error) {
	defer rows.Close()
	var events []audit.Event
	for rows.Next() {
		var (
			e      audit.Event
			action string
			detail []byte
		)
		if err := rows.Scan(&e.Timestamp, &action, &e.Subject, &e.Modalidade, &e.Turma, &detail, &e.RequestID, &e.ClientIP); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = audit.Action(action)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				return nil, fmt.Errorf("decode audit detail: %w", err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
