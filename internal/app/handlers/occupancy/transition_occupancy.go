package occupancy

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/dto"
	"rentcal/internal/app/outbox"
	"rentcal/internal/app/uow"
	domainoccupancy "rentcal/internal/domain/occupancy"
)

const transitionOccupancyKey = "occupancy.transition"

type Action string

const (
	ActionConfirm  Action = "confirm"
	ActionCheckIn  Action = "check-in"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
)

func ParseAction(raw string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionConfirm:
		return ActionConfirm, nil
	case ActionCheckIn, "checkin", "check_in":
		return ActionCheckIn, nil
	case ActionComplete:
		return ActionComplete, nil
	case ActionCancel:
		return ActionCancel, nil
	}
	return "", ErrUnknownAction
}

type TransitionOccupancyCommand struct {
	OccupancyID string
	Action      string
	Reason      string
}

func (c TransitionOccupancyCommand) Key() string { return transitionOccupancyKey }

func (c TransitionOccupancyCommand) Validate() error {
	if strings.TrimSpace(c.OccupancyID) == "" {
		return ErrOccupancyIDRequired
	}
	_, err := ParseAction(c.Action)
	return err
}

type TransitionOccupancyHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
	Now        func() time.Time
}

func (h *TransitionOccupancyHandler) Handle(ctx context.Context, cmd TransitionOccupancyCommand) (dto.Occupancy, error) {
	action, err := ParseAction(cmd.Action)
	if err != nil {
		return dto.Occupancy{}, err
	}

	unit, execCtx, commit, finish, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{})
	if err != nil {
		return dto.Occupancy{}, err
	}
	defer finish()

	o, err := unit.Occupancies().ByID(execCtx, domainoccupancy.ID(strings.TrimSpace(cmd.OccupancyID)))
	if err != nil {
		return dto.Occupancy{}, err
	}
	from := o.Status
	now := h.now()
	switch action {
	case ActionConfirm:
		err = o.Confirm(now)
	case ActionCheckIn:
		err = o.CheckIn(now)
	case ActionComplete:
		err = o.Complete(now)
	case ActionCancel:
		err = o.Cancel(strings.TrimSpace(cmd.Reason), now)
	}
	if err != nil {
		return dto.Occupancy{}, err
	}

	if err := unit.Occupancies().Save(execCtx, o); err != nil {
		return dto.Occupancy{}, err
	}
	if err := outbox.RecordDomainEvents(execCtx, h.Outbox, h.Encoder, o.DrainEvents()); err != nil {
		return dto.Occupancy{}, err
	}
	if err := commit(); err != nil {
		return dto.Occupancy{}, err
	}

	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "occupancy status changed", "occupancy_id", o.ID, "from", from, "to", o.Status)
	}
	return dto.MapOccupancy(o), nil
}

func (h *TransitionOccupancyHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

var _ commands.Handler[TransitionOccupancyCommand, dto.Occupancy] = (*TransitionOccupancyHandler)(nil)
