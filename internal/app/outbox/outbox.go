// Package outbox turns domain events into records that are persisted with the
// aggregate and relayed to the broker later.
package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentcal/internal/domain/shared/events"
)

// HeaderPartitionKey carries the broker message key chosen by the event.
const HeaderPartitionKey = "partition_key"

type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	Aggregate  string
	Headers    map[string]string
}

// AggregateType is the event name up to its first dot ("occupancy" for
// "occupancy.created").
func (r EventRecord) AggregateType() string {
	if idx := strings.IndexByte(r.Name, '.'); idx > 0 {
		return r.Name[:idx]
	}
	return r.Name
}

type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

// Discarder is implemented by outboxes that buffer records outside the
// transaction. Discard drops the records added under the batch of ctx.
type Discarder interface {
	Discard(ctx context.Context)
}

type batchKey struct{}

// WithBatch tags ctx with a fresh batch id. Buffering outboxes group records
// by it, so one command's flush or discard leaves concurrent commands alone.
func WithBatch(ctx context.Context) context.Context {
	return context.WithValue(ctx, batchKey{}, uuid.NewString())
}

// BatchFrom returns the batch id set by WithBatch, or "" outside a command.
func BatchFrom(ctx context.Context) string {
	id, _ := ctx.Value(batchKey{}).(string)
	return id
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	rec := EventRecord{
		ID:         idGen(),
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers:    map[string]string{},
	}
	if p, ok := ev.(events.Partitioned); ok && p.PartitionKey() != "" {
		rec.Headers[HeaderPartitionKey] = p.PartitionKey()
	}
	return rec, nil
}

// PartitionKey is the broker key for r: the partition header when the event
// set one, the aggregate id otherwise.
func (r EventRecord) PartitionKey() string {
	if key := r.Headers[HeaderPartitionKey]; key != "" {
		return key
	}
	return r.Aggregate
}

// RecordDomainEvents encodes evs and adds them to box in order. A nil box
// discards the events.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
