package events

import "time"

// DomainEvent is raised by aggregates on meaningful state changes.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventRecorder collects domain events until a handler drains them into the outbox.
// Embed it into aggregates by value.
type EventRecorder struct {
	pending []DomainEvent
}

// Record appends an event to the pending list.
func (r *EventRecorder) Record(ev DomainEvent) {
	r.pending = append(r.pending, ev)
}

// PendingEvents returns the events recorded since the last clear.
func (r *EventRecorder) PendingEvents() []DomainEvent {
	return r.pending
}

// ClearEvents drops all pending events.
func (r *EventRecorder) ClearEvents() {
	r.pending = nil
}
