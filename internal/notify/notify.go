// Package notify delivers confirmed-new activity to the configured
// channels. Delivery is at most one attempt per item per channel per
// cycle; retry policy, if any, belongs to the channel itself.
package notify

import (
	"context"
	"time"

	"snoowatch/internal/watch"
)

// EventKind discriminates what is being reported.
type EventKind string

const (
	EventActivity     EventKind = "activity"
	EventAvailability EventKind = "availability"
)

// Event is one rendered-notification input.
// Item is only valid for EventActivity; Available only for EventAvailability.
type Event struct {
	Kind   EventKind
	Target watch.Target
	Item   watch.Item

	Available bool
	At        time.Time
}

// Notifier is a single delivery channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, ev Event) error
}
