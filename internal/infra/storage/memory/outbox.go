package memory

import (
	"context"
	"sync"

	appoutbox "rentcal/internal/app/outbox"
)

// Outbox buffers records until Flush hands them to Sink, if any. Without a
// broker the records are simply dropped on flush. Records are grouped by the
// batch of the ctx they were added under; a ctx without a batch flushes or
// discards everything.
type Outbox struct {
	mu      sync.Mutex
	entries []bufferedRecord
	Sink    func(ctx context.Context, records []appoutbox.EventRecord)
}

type bufferedRecord struct {
	batch  string
	record appoutbox.EventRecord
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, bufferedRecord{batch: appoutbox.BatchFrom(ctx), record: record})
	return nil
}

func (o *Outbox) Flush(ctx context.Context) error {
	records := o.take(appoutbox.BatchFrom(ctx))
	if o.Sink != nil && len(records) > 0 {
		o.Sink(ctx, records)
	}
	return nil
}

func (o *Outbox) Discard(ctx context.Context) {
	o.take(appoutbox.BatchFrom(ctx))
}

func (o *Outbox) take(batch string) []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	var taken []appoutbox.EventRecord
	kept := o.entries[:0]
	for _, e := range o.entries {
		if batch == "" || e.batch == batch {
			taken = append(taken, e.record)
			continue
		}
		kept = append(kept, e)
	}
	clear(o.entries[len(kept):])
	o.entries = kept
	return taken
}

// Pending returns a copy of the records not yet flushed.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e.record)
	}
	return out
}

var (
	_ appoutbox.Outbox    = (*Outbox)(nil)
	_ appoutbox.Discarder = (*Outbox)(nil)
)
