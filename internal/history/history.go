// Package history exports replica lifecycle events to external audit and
// analytics systems. Writes are best-effort and never sit on a worker's
// critical path.
package history

import (
	"context"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventCreated EventType = "created"
	EventFailed  EventType = "failed"
	EventStopped EventType = "stopped"
	EventDeleted EventType = "deleted"
)

// Event is one lifecycle transition observed by the coordinator.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	ReplicaID  string    `json:"replica_id"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"`
	PID        int       `json:"pid"`
	Error      string    `json:"error,omitempty"`
}

// Sink is a destination for history events. Implementations must be safe for
// concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
