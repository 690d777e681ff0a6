package domain

import (
	"context"
	"time"
)

// EventType names a lifecycle event that user handlers can subscribe to.
type EventType string

const (
	EventStart    EventType = "start"
	EventComplete EventType = "complete"
)

// Valid reports whether the event type is one the experiment emits.
func (e EventType) Valid() bool {
	return e == EventStart || e == EventComplete
}

// Handler receives the current assignment of a lifecycle event.
// The assignment is nil when no segmentation decision is stored.
type Handler func(ctx context.Context, assignment *Assignment) error

// EventBase contains common fields for all observability events.
type EventBase struct {
	Timestamp    time.Time `json:"timestamp"`
	ExperimentID string    `json:"experiment_id"`
}

// SegmentEvent describes the outcome of a Segment call.
type SegmentEvent struct {
	EventBase
	Identity   int     `json:"identity"`
	VariantID  string  `json:"variant_id"`
	Eligible   bool    `json:"eligible"`
	Reused     bool    `json:"reused,omitempty"` // An earlier decision was kept
	SampleSize float64 `json:"sample_size"`
}

// LifecycleEvent describes a start or completion.
type LifecycleEvent struct {
	EventBase
	Type       EventType   `json:"type"`
	Assignment *Assignment `json:"assignment,omitempty"`
}

// LifecycleHooks defines callbacks for observability. Unlike Handlers they cannot fail
// and never change the outcome of an operation.
type LifecycleHooks struct {
	OnSegment  func(context.Context, *SegmentEvent)
	OnStart    func(context.Context, *LifecycleEvent)
	OnComplete func(context.Context, *LifecycleEvent)
	OnExpired  func(context.Context, *EventBase)
}
