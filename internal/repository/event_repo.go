package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository stores processed webhook event ids so replayed deliveries
// can be acknowledged without reapplying state. Markers survive process
// restarts; rows are pruned after a bounded retention window.
type EventRepository interface {
	WasProcessed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string) error
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type eventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) EventRepository {
	return &eventRepo{pool: pool}
}

func (r *eventRepo) WasProcessed(ctx context.Context, eventID string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM processor_events WHERE event_id = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, eventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check processed event %s: %w", eventID, err)
	}
	return exists, nil
}

func (r *eventRepo) MarkProcessed(ctx context.Context, eventID, eventType string) error {
	const q = `
        INSERT INTO processor_events (event_id, event_type, received_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (event_id) DO NOTHING;
    `
	if _, err := r.pool.Exec(ctx, q, eventID, eventType); err != nil {
		return fmt.Errorf("mark event %s processed: %w", eventID, err)
	}
	return nil
}

func (r *eventRepo) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM processor_events WHERE received_at < $1`
	tag, err := r.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune processed events: %w", err)
	}
	return tag.RowsAffected(), nil
}
