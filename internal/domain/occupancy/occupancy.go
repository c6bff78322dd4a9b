package occupancy

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"rentcal/internal/domain/shared/daterange"
	"rentcal/internal/domain/shared/events"
)

var (
	ErrNotFound          = errors.New("occupancy: not found")
	ErrInvalidTransition = errors.New("occupancy: invalid status transition")
	ErrPropertyRequired  = errors.New("occupancy: property id required")
	ErrTenantRequired    = errors.New("occupancy: tenant name required")
	ErrUnknownKind       = errors.New("occupancy: unknown kind")
	// ErrConcurrentUpdate is wrapped by repositories when Save sees a stale Version.
	ErrConcurrentUpdate = errors.New("occupancy: concurrent update detected")
)

type ID string

type PropertyID string

// Kind separates long-term leases from short stays; both occupy the same calendar.
type Kind string

const (
	KindLease       Kind = "LEASE"
	KindReservation Kind = "RESERVATION"
)

func ParseKind(raw string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", string(KindReservation):
		return KindReservation, nil
	case string(KindLease):
		return KindLease, nil
	}
	return "", ErrUnknownKind
}

// Occupancy is a lease or reservation holding a property for a span of days.
type Occupancy struct {
	ID         ID
	PropertyID PropertyID
	Kind       Kind
	TenantName string
	Span       daterange.DateRange
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Version    int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Occupancy, error)
	Save(ctx context.Context, o *Occupancy) error
	// ListByProperty returns occupancies whose span intersects window, in start order.
	ListByProperty(ctx context.Context, propertyID PropertyID, window daterange.DateRange) ([]*Occupancy, error)
}

type CreateParams struct {
	ID         ID
	PropertyID PropertyID
	Kind       Kind
	TenantName string
	Span       daterange.DateRange
	Status     Status
	Now        time.Time
}

// NewID returns a lexically time-ordered identifier.
func NewID() ID {
	return ID(strings.ToLower(ulid.Make().String()))
}

func New(params CreateParams) (*Occupancy, error) {
	if strings.TrimSpace(string(params.PropertyID)) == "" {
		return nil, ErrPropertyRequired
	}
	tenant := strings.TrimSpace(params.TenantName)
	if tenant == "" {
		return nil, ErrTenantRequired
	}
	if err := params.Span.Validate(); err != nil {
		return nil, err
	}
	kind := params.Kind
	if kind == "" {
		kind = KindReservation
	}
	status := params.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return nil, ErrUnknownStatus
	}
	id := params.ID
	if id == "" {
		id = NewID()
	}
	now := params.Now.UTC()
	o := &Occupancy{
		ID:         id,
		PropertyID: params.PropertyID,
		Kind:       kind,
		TenantName: tenant,
		Span:       daterange.MustNew(params.Span.Start, params.Span.End),
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	o.Record(Created{OccupancyID: string(o.ID), PropertyID: string(o.PropertyID), Kind: o.Kind, Range: o.Span, Status: o.Status, At: now})
	return o, nil
}

// Blocking reports whether the occupancy takes part in overlap checks and calendar coverage.
func (o *Occupancy) Blocking() bool {
	return !o.Status.Cancelled()
}

func (o *Occupancy) Confirm(now time.Time) error {
	if o.Status != StatusPending {
		return ErrInvalidTransition
	}
	return o.transition(StatusConfirmed, now)
}

func (o *Occupancy) CheckIn(now time.Time) error {
	if o.Status != StatusConfirmed {
		return ErrInvalidTransition
	}
	return o.transition(StatusCheckedIn, now)
}

func (o *Occupancy) Complete(now time.Time) error {
	if o.Status != StatusCheckedIn {
		return ErrInvalidTransition
	}
	return o.transition(StatusCompleted, now)
}

func (o *Occupancy) Cancel(reason string, now time.Time) error {
	switch o.Status {
	case StatusPending, StatusConfirmed:
	default:
		return ErrInvalidTransition
	}
	o.Status = StatusCancelled
	o.UpdatedAt = now.UTC()
	o.Record(Cancelled{OccupancyID: string(o.ID), PropertyID: string(o.PropertyID), Reason: reason, At: o.UpdatedAt})
	return nil
}

// Reschedule moves the stay to new dates. Finished or cancelled stays keep their dates.
func (o *Occupancy) Reschedule(span daterange.DateRange, now time.Time) error {
	if err := span.Validate(); err != nil {
		return err
	}
	switch o.Status {
	case StatusPending, StatusConfirmed, StatusCheckedIn:
	default:
		return ErrInvalidTransition
	}
	previous := o.Span
	o.Span = daterange.MustNew(span.Start, span.End)
	o.UpdatedAt = now.UTC()
	o.Record(Rescheduled{OccupancyID: string(o.ID), PropertyID: string(o.PropertyID), Previous: previous, Range: o.Span, At: o.UpdatedAt})
	return nil
}

// AcceptOverlaps records that the stay was saved although it overlaps others.
func (o *Occupancy) AcceptOverlaps(overlaps []*Occupancy, now time.Time) {
	if len(overlaps) == 0 {
		return
	}
	ids := make([]string, 0, len(overlaps))
	for _, other := range overlaps {
		ids = append(ids, string(other.ID))
	}
	o.Record(OverlapAccepted{OccupancyID: string(o.ID), PropertyID: string(o.PropertyID), Overlapping: ids, At: now.UTC()})
}

func (o *Occupancy) transition(to Status, now time.Time) error {
	from := o.Status
	o.Status = to
	o.UpdatedAt = now.UTC()
	o.Record(StatusChanged{OccupancyID: string(o.ID), PropertyID: string(o.PropertyID), From: from, To: to, At: o.UpdatedAt})
	return nil
}
