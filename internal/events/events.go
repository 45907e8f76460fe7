// Package events publishes triage state transitions for downstream consumers
// (review queue UI, audit trail). Publishing is advisory: the orchestrator
// logs a failed publish and moves on.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is one state transition of a triage work item.
type Event struct {
	ID         uuid.UUID `json:"id"`
	EntityKind string    `json:"entity_kind"`
	EntityKey  string    `json:"entity_key"`
	State      string    `json:"state"`
	Detail     string    `json:"detail,omitempty"`
	At         time.Time `json:"at"`
}

// New stamps an event with an ID and timestamp.
func New(entityKind, entityKey, state, detail string) Event {
	return Event{
		ID:         uuid.New(),
		EntityKind: entityKind,
		EntityKey:  entityKey,
		State:      state,
		Detail:     detail,
		At:         time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event Event) error { return nil }
