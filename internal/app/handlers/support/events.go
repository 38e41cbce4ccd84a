package support

import (
	"context"

	"carrental/internal/app/outbox"
	"carrental/internal/domain/shared/events"
)

// DrainEvents moves an aggregate's pending events into the outbox.
func DrainEvents(ctx context.Context, box outbox.Outbox, encoder outbox.EventEncoder, rec *events.EventRecorder) error {
	pending := rec.PendingEvents()
	rec.ClearEvents()
	return outbox.RecordDomainEvents(ctx, box, encoder, pending)
}
