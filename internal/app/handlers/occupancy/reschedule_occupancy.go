package occupancy

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/outbox"
	"rentcal/internal/app/policies"
	"rentcal/internal/app/uow"
	domainoccupancy "rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/shared/daterange"
)

const rescheduleOccupancyKey = "occupancy.reschedule"

type RescheduleOccupancyCommand struct {
	OccupancyID  string
	Start        time.Time
	End          time.Time
	AllowOverlap bool
}

func (c RescheduleOccupancyCommand) Key() string { return rescheduleOccupancyKey }

func (c RescheduleOccupancyCommand) Validate() error {
	if strings.TrimSpace(c.OccupancyID) == "" {
		return ErrOccupancyIDRequired
	}
	_, err := daterange.New(c.Start, c.End)
	return err
}

type RescheduleOccupancyHandler struct {
	UoWFactory uow.UoWFactory
	Overlaps   policies.OverlapChecker
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *RescheduleOccupancyHandler) Handle(ctx context.Context, cmd RescheduleOccupancyCommand) (*WriteResult, error) {
	span, err := daterange.New(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}

	unit, execCtx, commit, finish, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer finish()

	o, err := unit.Occupancies().ByID(execCtx, domainoccupancy.ID(strings.TrimSpace(cmd.OccupancyID)))
	if err != nil {
		return nil, err
	}
	previous := o.Span
	now := h.now()
	if err := o.Reschedule(span, now); err != nil {
		return nil, err
	}

	var overlaps []*domainoccupancy.Occupancy
	if o.Blocking() {
		// the stay being moved must not be reported against itself
		overlaps = advisoryOverlaps(execCtx, h.Overlaps, h.Logger, o.PropertyID, o.Span, o.ID)
	}
	if len(overlaps) > 0 && !cmd.AllowOverlap {
		return nil, &OverlapError{Overlaps: overlaps}
	}
	o.AcceptOverlaps(overlaps, now)

	if err := unit.Occupancies().Save(execCtx, o); err != nil {
		return nil, err
	}
	if err := outbox.RecordDomainEvents(execCtx, h.Outbox, h.Encoder, o.DrainEvents()); err != nil {
		return nil, err
	}
	if err := commit(); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "occupancy rescheduled",
			"occupancy_id", o.ID,
			"from", previous.String(),
			"to", o.Span.String(),
			"overlaps", len(overlaps),
		)
	}
	return writeResult(o, overlaps), nil
}

func (h *RescheduleOccupancyHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

var _ commands.Handler[RescheduleOccupancyCommand, *WriteResult] = (*RescheduleOccupancyHandler)(nil)
