package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/divsage/internal/contracts"
	"github.com/wonny/divsage/pkg/logger"
)

// Sink persists pipeline audit events.
// SSOT: audit event writes happen here only.
// Every event is also written to the structured log so the trail
// survives a database outage in degraded form.
type Sink struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewSink creates a new audit sink. A nil pool degrades to log-only
// mode, used by the CLI runner without a database.
func NewSink(pool *pgxpool.Pool, log *logger.Logger) *Sink {
	return &Sink{pool: pool, logger: log}
}

// Emit records one audit event
func (s *Sink) Emit(ctx context.Context, event contracts.AuditEvent) error {
	s.logger.WithFields(map[string]interface{}{
		"action":         event.Action,
		"correlation_id": event.CorrelationID,
		"details":        event.Details,
	}).Info("Audit event")

	if s.pool == nil {
		return nil
	}

	detailsJSON, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit.events (
			action, correlation_id, details, occurred_at
		) VALUES ($1, $2, $3, $4)
	`

	_, err = s.pool.Exec(ctx, query,
		event.Action, event.CorrelationID, detailsJSON, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}

	return nil
}

// ListByCorrelationID retrieves the audit trail for one pipeline run
func (s *Sink) ListByCorrelationID(ctx context.Context, correlationID string) ([]contracts.AuditEvent, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("audit queries require a database")
	}

	query := `
		SELECT action, correlation_id, details, occurred_at
		FROM audit.events
		WHERE correlation_id = $1
		ORDER BY occurred_at ASC
	`

	rows, err := s.pool.Query(ctx, query, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]contracts.AuditEvent, 0)

	for rows.Next() {
		var event contracts.AuditEvent
		var detailsJSON []byte

		if err := rows.Scan(&event.Action, &event.CorrelationID, &detailsJSON, &event.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &event.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit details: %w", err)
			}
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return events, nil
}
