package occupancy

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	"rentcal/internal/app/middleware"
	"rentcal/internal/app/outbox"
	"rentcal/internal/app/policies"
	"rentcal/internal/app/uow"
	domainoccupancy "rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/shared/daterange"
)

const createOccupancyKey = "occupancy.create"

type CreateOccupancyCommand struct {
	// CommandID traces the request; the stay gets its own ULID.
	CommandID  string
	PropertyID string
	Kind       string
	TenantName string
	Start      time.Time
	End        time.Time
	// Status defaults to PENDING; accepts a name or a numeric code.
	Status string
	// AllowOverlap saves the stay even when it overlaps blocking stays.
	AllowOverlap    bool
	IdempotencyKeyV string
}

func (c CreateOccupancyCommand) Key() string { return createOccupancyKey }

func (c CreateOccupancyCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateOccupancyCommand) ResultPrototype() any { return &WriteResult{} }

func (c CreateOccupancyCommand) Validate() error {
	if strings.TrimSpace(c.PropertyID) == "" {
		return domainoccupancy.ErrPropertyRequired
	}
	if strings.TrimSpace(c.TenantName) == "" {
		return domainoccupancy.ErrTenantRequired
	}
	_, err := daterange.New(c.Start, c.End)
	return err
}

// WriteResult is returned by commands that create or move a stay. Overlaps
// lists stays that were knowingly overlapped.
type WriteResult struct {
	Occupancy dto.Occupancy   `json:"occupancy"`
	Overlaps  []dto.Occupancy `json:"overlaps,omitempty"`
	Warning   string          `json:"warning,omitempty"`
}

type CreateOccupancyHandler struct {
	UoWFactory uow.UoWFactory
	Overlaps   policies.OverlapChecker
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *CreateOccupancyHandler) Handle(ctx context.Context, cmd CreateOccupancyCommand) (*WriteResult, error) {
	span, err := daterange.New(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}
	kind, err := domainoccupancy.ParseKind(cmd.Kind)
	if err != nil {
		return nil, err
	}
	var status domainoccupancy.Status
	if strings.TrimSpace(cmd.Status) != "" {
		if status, err = domainoccupancy.ParseStatus(cmd.Status); err != nil {
			return nil, err
		}
	}

	unit, execCtx, commit, finish, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer finish()

	o, err := domainoccupancy.New(domainoccupancy.CreateParams{
		PropertyID: domainoccupancy.PropertyID(strings.TrimSpace(cmd.PropertyID)),
		Kind:       kind,
		TenantName: cmd.TenantName,
		Span:       span,
		Status:     status,
		Now:        h.now(),
	})
	if err != nil {
		return nil, err
	}

	var overlaps []*domainoccupancy.Occupancy
	if o.Blocking() {
		overlaps = advisoryOverlaps(execCtx, h.Overlaps, h.Logger, o.PropertyID, o.Span, o.ID)
	}
	if len(overlaps) > 0 {
		if !cmd.AllowOverlap {
			return nil, &OverlapError{Overlaps: overlaps}
		}
		o.AcceptOverlaps(overlaps, h.now())
	}

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
		h.Logger.InfoContext(ctx, "occupancy created",
			"command_id", cmd.CommandID,
			"occupancy_id", o.ID,
			"property_id", o.PropertyID,
			"range", o.Span.String(),
			"overlaps", len(overlaps),
		)
	}
	return writeResult(o, overlaps), nil
}

func (h *CreateOccupancyHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

func writeResult(o *domainoccupancy.Occupancy, overlaps []*domainoccupancy.Occupancy) *WriteResult {
	res := &WriteResult{Occupancy: dto.MapOccupancy(o)}
	if len(overlaps) > 0 {
		res.Overlaps = dto.MapOccupancies(overlaps)
		res.Warning = domainoccupancy.OverlapMessage(overlaps)
	}
	return res
}

var _ commands.Handler[CreateOccupancyCommand, *WriteResult] = (*CreateOccupancyHandler)(nil)
var _ middleware.IdempotentCommand = CreateOccupancyCommand{}
