package occupancy

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rentcal/internal/app/dto"
	"rentcal/internal/app/queries"
	"rentcal/internal/app/uow"
	domainoccupancy "rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/shared/daterange"
)

const listOccupanciesKey = "occupancy.list"

// AllTime is the window used when a listing has no bounds.
var AllTime = daterange.DateRange{
	Start: time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC),
}

type ListOccupanciesQuery struct {
	PropertyID string
	From       time.Time
	To         time.Time
	// Status filters by lifecycle state; empty means any.
	Status string
}

func (q ListOccupanciesQuery) Key() string { return listOccupanciesKey }

func (q ListOccupanciesQuery) Validate() error {
	if strings.TrimSpace(q.PropertyID) == "" {
		return domainoccupancy.ErrPropertyRequired
	}
	if _, err := q.window(); err != nil {
		return err
	}
	if strings.TrimSpace(q.Status) != "" {
		if _, err := domainoccupancy.ParseStatus(q.Status); err != nil {
			return err
		}
	}
	return nil
}

func (q ListOccupanciesQuery) window() (daterange.DateRange, error) {
	from, to := AllTime.Start, AllTime.End
	if !q.From.IsZero() {
		from = q.From
	}
	if !q.To.IsZero() {
		to = q.To
	}
	return daterange.New(from, to)
}

type ListOccupanciesHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *ListOccupanciesHandler) Handle(ctx context.Context, q ListOccupanciesQuery) (dto.OccupancyCollection, error) {
	propertyID := strings.TrimSpace(q.PropertyID)
	window, err := q.window()
	if err != nil {
		return dto.OccupancyCollection{}, err
	}
	var status domainoccupancy.Status
	if strings.TrimSpace(q.Status) != "" {
		if status, err = domainoccupancy.ParseStatus(q.Status); err != nil {
			return dto.OccupancyCollection{}, err
		}
	}

	unit, execCtx, _, finish, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.OccupancyCollection{}, err
	}
	defer finish()

	items, err := unit.Occupancies().ListByProperty(execCtx, domainoccupancy.PropertyID(propertyID), window)
	if err != nil {
		return dto.OccupancyCollection{}, err
	}
	if status != "" {
		filtered := make([]*domainoccupancy.Occupancy, 0, len(items))
		for _, o := range items {
			if o.Status == status {
				filtered = append(filtered, o)
			}
		}
		items = filtered
	}

	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "occupancies listed", "property_id", propertyID, "count", len(items), "status", status)
	}
	return dto.OccupancyCollection{PropertyID: propertyID, Items: dto.MapOccupancies(items)}, nil
}

var _ queries.Handler[ListOccupanciesQuery, dto.OccupancyCollection] = (*ListOccupanciesHandler)(nil)
