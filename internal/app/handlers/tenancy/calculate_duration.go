package tenancy

import (
	"context"
	"time"

	"rentcal/internal/app/dto"
	"rentcal/internal/app/queries"
	"rentcal/internal/domain/shared/daterange"
	domaintenancy "rentcal/internal/domain/tenancy"
)

const calculateDurationKey = "duration.calculate"

// CalculateDurationQuery asks for the calendar length of a tenancy. Start and
// End may be given in either order.
type CalculateDurationQuery struct {
	Start time.Time
	End   time.Time
}

func (q CalculateDurationQuery) Key() string { return calculateDurationKey }

func (q CalculateDurationQuery) Validate() error {
	if q.Start.IsZero() || q.End.IsZero() {
		return daterange.ErrMissingDate
	}
	return nil
}

type CalculateDurationHandler struct{}

func (CalculateDurationHandler) Handle(_ context.Context, q CalculateDurationQuery) (dto.Duration, error) {
	if err := q.Validate(); err != nil {
		return dto.Duration{}, err
	}
	return dto.MapDuration(q.Start, q.End, domaintenancy.Calculate(q.Start, q.End)), nil
}

var _ queries.Handler[CalculateDurationQuery, dto.Duration] = CalculateDurationHandler{}
