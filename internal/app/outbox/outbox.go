package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"carrental/internal/domain/shared/events"
)

// EventRecord is the serialized form of a domain event awaiting publication.
type EventRecord struct {
	ID         string
	Name       string
	Aggregate  string
	Payload    []byte
	Headers    map[string]string
	OccurredAt time.Time
}

// Outbox buffers event records inside a command execution. Flush is called by
// the middleware after the handler (and its transaction) succeeded.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

// EventEncoder turns a domain event into a payload body.
type EventEncoder interface {
	Encode(ev events.DomainEvent) ([]byte, error)
}

// JSONEventEncoder marshals the event struct as-is.
type JSONEventEncoder struct{}

func (JSONEventEncoder) Encode(ev events.DomainEvent) ([]byte, error) {
	return json.Marshal(ev)
}

// RecordDomainEvents encodes and stages every pending event on the outbox.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		payload, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		record := EventRecord{
			ID:         uuid.NewString(),
			Name:       ev.EventName(),
			Aggregate:  ev.AggregateID(),
			Payload:    payload,
			OccurredAt: ev.OccurredAt(),
		}
		if err := box.Add(ctx, record); err != nil {
			return err
		}
	}
	return nil
}
