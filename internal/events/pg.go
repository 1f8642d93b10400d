package events

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists domain events to Postgres.
type PGStore struct {
	Pool *pgxpool.Pool
}

// Insert writes the event and returns it with the database timestamp.
func (s PGStore) Insert(ctx context.Context, e Event) (Event, error) {
	row := s.Pool.QueryRow(ctx,
		`INSERT INTO domain_events (id, topic, store_id, aggregate_id, payload)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING occurred_at`,
		e.ID, e.Topic, e.StoreID, e.AggregateID, []byte(e.Payload))
	if err := row.Scan(&e.OccurredAt); err != nil {
		return Event{}, fmt.Errorf("insert domain event: %w", err)
	}
	return e, nil
}
