package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/dens-health/casetrack-api/internal/models"
)

// EventRepository is the append-only store for case audit events. There is no
// update or delete; events disappear only when their case is hard-deleted.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new instance of EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Record appends an audit event for a case.
func (r *EventRepository) Record(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO events (id, case_id, status, action, payload, note, actor, ip, user_agent, created_at)
		VALUES (:id, :case_id, :status, :action, :payload, :note, :actor, :ip, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ListByCase returns the full audit trail for a case, creation time
// ascending. Re-querying returns the same sequence plus any new entries.
func (r *EventRepository) ListByCase(ctx context.Context, caseID string) ([]models.Event, error) {
	const query = `SELECT id, case_id, status, action, payload, note, actor, ip, user_agent, created_at
		FROM events WHERE case_id = $1 ORDER BY created_at ASC, id ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, caseID); err != nil {
		return nil, fmt.Errorf("list events for case: %w", err)
	}
	return events, nil
}
