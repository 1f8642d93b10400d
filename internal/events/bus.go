// Package events persists domain events and fans them out to downstream
// handlers (notifiers, schedulers). Emission failures never abort the
// operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is one recorded domain event.
type Event struct {
	ID          uuid.UUID
	Topic       string
	StoreID     uuid.UUID
	AggregateID uuid.UUID
	Payload     json.RawMessage
	OccurredAt  time.Time
}

// Store persists emitted events.
type Store interface {
	Insert(ctx context.Context, e Event) (Event, error)
}

// Notifier reacts to emitted events (logging, metrics, task scheduling).
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Bus persists domain events and dispatches them to all notifiers.
type Bus struct {
	Store     Store
	Notifiers []Notifier
}

// Emit records the event and dispatches it. Notifier errors are joined and
// returned but the event is already durable at that point.
func (b *Bus) Emit(ctx context.Context, topic string, storeID, aggregateID uuid.UUID, payload any) (Event, error) {
	if b == nil || b.Store == nil {
		return Event{}, errors.New("events: store not configured")
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Event{}, errors.New("events: topic is required")
	}
	if aggregateID == uuid.Nil {
		return Event{}, errors.New("events: aggregate id is required")
	}
	encoded, err := encodePayload(payload)
	if err != nil {
		return Event{}, fmt.Errorf("events: encode payload: %w", err)
	}
	stored, err := b.Store.Insert(ctx, Event{
		ID:          uuid.New(),
		Topic:       topic,
		StoreID:     storeID,
		AggregateID: aggregateID,
		Payload:     encoded,
		OccurredAt:  time.Now(),
	})
	if err != nil {
		return Event{}, fmt.Errorf("events: persist event: %w", err)
	}
	var joined error
	for _, notifier := range b.Notifiers {
		if notifier == nil {
			continue
		}
		if notifyErr := notifier.Notify(ctx, stored); notifyErr != nil {
			joined = errors.Join(joined, fmt.Errorf("events: notifier: %w", notifyErr))
		}
	}
	return stored, joined
}

func encodePayload(payload any) (json.RawMessage, error) {
	if payload == nil {
		return json.RawMessage("{}"), nil
	}
	switch v := payload.(type) {
	case json.RawMessage:
		if len(v) == 0 {
			return json.RawMessage("{}"), nil
		}
		if !json.Valid(v) {
			return nil, errors.New("payload is not valid json")
		}
		return append(json.RawMessage(nil), v...), nil
	case []byte:
		return encodePayload(json.RawMessage(v))
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}
