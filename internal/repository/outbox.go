package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/V-Shkrobatskyi/lux-clothing-portal/internal/domain"
	"github.com/google/uuid"
)

func (q *Queries) InsertOutboxEvent(ctx context.Context, eventType, aggregateID string, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}

	query := `INSERT INTO outbox_events (event_id, aggregate_id, event_type, payload, created_at)
	          VALUES ($1, $2, $3, $4, NOW())`

	if _, err := q.db.ExecContext(ctx, query, uuid.New(), aggregateID, eventType, payloadJSON); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func (q *Queries) GetUnprocessedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	query := `SELECT id, event_id, aggregate_id, event_type, payload, attempts, created_at
	          FROM outbox_events WHERE processed_at IS NULL
	          ORDER BY attempts, id LIMIT $1`

	rows, err := q.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox events: %w", err)
	}
	defer rows.Close()

	var events []*domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(&e.ID, &e.EventID, &e.AggregateID, &e.EventType, &e.Payload, &e.Attempts, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event row: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return events, nil
}

func (q *Queries) MarkEventAsProcessed(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = NOW(), attempts = attempts + 1, last_error = NULL WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark outbox event processed: %w", err)
	}
	return nil
}

func (q *Queries) MarkEventFailed(ctx context.Context, id int64, reason string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE outbox_events SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, id, reason)
	if err != nil {
		return fmt.Errorf("mark outbox event failed: %w", err)
	}
	return nil
}

// MarkEventDead closes an event that will not be retried, keeping the error.
func (q *Queries) MarkEventDead(ctx context.Context, id int64, reason string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE outbox_events SET processed_at = NOW(), attempts = attempts + 1, last_error = $2 WHERE id = $1`, id, reason)
	if err != nil {
		return fmt.Errorf("mark outbox event dead: %w", err)
	}
	return nil
}
