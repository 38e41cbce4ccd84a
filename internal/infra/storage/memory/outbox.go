package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "carrental/internal/app/outbox"
	infraoutbox "carrental/internal/infra/outbox"
)

// Outbox keeps staged event records in memory. Add buffers them, Flush moves
// them onto the pending queue the worker drains. Crash durability is out of
// scope for this mode.
type Outbox struct {
	mu      sync.Mutex
	staged  []appoutbox.EventRecord
	pending []infraoutbox.EventDocument
	claimed map[string]infraoutbox.EventDocument
}

func NewOutbox() *Outbox {
	return &Outbox{claimed: make(map[string]infraoutbox.EventDocument)}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.staged = append(o.staged, record)
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, rec := range o.staged {
		o.pending = append(o.pending, infraoutbox.EventDocument{
			ID:         rec.ID,
			Name:       rec.Name,
			Aggregate:  rec.Aggregate,
			Payload:    rec.Payload,
			Headers:    rec.Headers,
			OccurredAt: rec.OccurredAt,
		})
	}
	o.staged = nil
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.pending) == 0 {
		return nil, nil
	}
	doc := o.pending[0]
	o.pending = o.pending[1:]
	o.claimed[doc.ID] = doc
	return &doc, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.claimed, id)
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, retryAt time.Time, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	doc, ok := o.claimed[id]
	if !ok {
		return nil
	}
	delete(o.claimed, id)
	doc.Attempts++
	o.pending = append(o.pending, doc)
	return nil
}

var _ appoutbox.Outbox = (*Outbox)(nil)
var _ infraoutbox.Store = (*Outbox)(nil)
