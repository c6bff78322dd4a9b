package calendar

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rentcal/internal/app/dto"
	"rentcal/internal/app/queries"
	"rentcal/internal/app/uow"
	domaincalendar "rentcal/internal/domain/calendar"
	domainoccupancy "rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/shared/daterange"
)

const getMonthKey = "calendar.month"

var ErrInvalidMonth = errors.New("calendar: month must be 1-12 and year 1-9999")

type GetMonthQuery struct {
	PropertyID string
	Year       int
	Month      int
}

func (q GetMonthQuery) Key() string { return getMonthKey }

func (q GetMonthQuery) Validate() error {
	if strings.TrimSpace(q.PropertyID) == "" {
		return domainoccupancy.ErrPropertyRequired
	}
	if q.Month < 1 || q.Month > 12 || q.Year < 1 || q.Year > 9999 {
		return ErrInvalidMonth
	}
	return nil
}

type GetMonthHandler struct {
	UoWFactory uow.UoWFactory
	// Location decides which calendar day is today. Defaults to UTC.
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *GetMonthHandler) Handle(ctx context.Context, q GetMonthQuery) (dto.MonthCalendar, error) {
	if err := q.Validate(); err != nil {
		return dto.MonthCalendar{}, err
	}
	propertyID := strings.TrimSpace(q.PropertyID)

	unit, execCtx, _, finish, err := uow.Join(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.MonthCalendar{}, err
	}
	defer finish()

	grid := domaincalendar.GridRange(q.Year, time.Month(q.Month))
	// a stay ending the day before the first cell still marks that cell as its checkout morning
	window := daterange.DateRange{Start: grid.Start.AddDate(0, 0, -1), End: grid.End}
	items, err := unit.Occupancies().ListByProperty(execCtx, domainoccupancy.PropertyID(propertyID), window)
	if err != nil {
		return dto.MonthCalendar{}, err
	}

	month := domaincalendar.BuildMonthGrid(q.Year, time.Month(q.Month), domaincalendar.EntriesFrom(items), h.today())
	if h.Logger != nil {
		h.Logger.DebugContext(ctx, "calendar built", "property_id", propertyID, "year", q.Year, "month", q.Month, "stays", len(items))
	}
	return dto.MapMonthCalendar(propertyID, month), nil
}

func (h *GetMonthHandler) today() time.Time {
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc)
}

var _ queries.Handler[GetMonthQuery, dto.MonthCalendar] = (*GetMonthHandler)(nil)
