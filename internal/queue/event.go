// Package queue carries account events over RabbitMQ: a fire-and-forget
// publisher used by the auth service and a background consumer that
// appends every event to an audit log file.
package queue

import "time"

// AccountEventQueue is the durable queue account events are routed to.
const AccountEventQueue = "account.events"

// EventType names what happened to an account.
type EventType string

const (
	EventRegistered      EventType = "registered"
	EventDetailsUpdated  EventType = "details_updated"
	EventPasswordChanged EventType = "password_changed"
	EventResetRequested  EventType = "reset_requested"
	EventResetCompleted  EventType = "reset_completed"
)

// AccountEvent is published whenever credentials change.  It never
// carries passwords or reset secrets.
type AccountEvent struct {
	Type       EventType `json:"type"`
	UserID     uint64    `json:"user_id"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}
