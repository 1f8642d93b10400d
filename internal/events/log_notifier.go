package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes each emitted event to the structured log.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, e Event) error {
	n.Logger.Info().
		Str("topic", e.Topic).
		Str("store_id", e.StoreID.String()).
		Str("aggregate_id", e.AggregateID.String()).
		Time("occurred_at", e.OccurredAt).
		Msg("domain_event")
	return nil
}
