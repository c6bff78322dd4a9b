package occupancy

import (
	"context"
	"strings"
	"time"

	"rentcal/internal/app/dto"
	"rentcal/internal/app/policies"
	"rentcal/internal/app/queries"
	domainoccupancy "rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/shared/daterange"
)

const checkOverlapsKey = "occupancy.overlaps"

type CheckOverlapsQuery struct {
	PropertyID string
	Start      time.Time
	End        time.Time
	ExcludeID  string
}

func (q CheckOverlapsQuery) Key() string { return checkOverlapsKey }

func (q CheckOverlapsQuery) Validate() error {
	if strings.TrimSpace(q.PropertyID) == "" {
		return domainoccupancy.ErrPropertyRequired
	}
	_, err := daterange.New(q.Start, q.End)
	return err
}

type CheckOverlapsHandler struct {
	Checker policies.OverlapChecker
}

func (h *CheckOverlapsHandler) Handle(ctx context.Context, q CheckOverlapsQuery) (dto.OverlapReport, error) {
	span, err := daterange.New(q.Start, q.End)
	if err != nil {
		return dto.OverlapReport{}, err
	}
	found, err := h.Checker.Overlaps(ctx,
		domainoccupancy.PropertyID(strings.TrimSpace(q.PropertyID)),
		span,
		domainoccupancy.ID(strings.TrimSpace(q.ExcludeID)),
	)
	if err != nil {
		return dto.OverlapReport{}, err
	}
	return dto.MapOverlapReport(found), nil
}

var _ queries.Handler[CheckOverlapsQuery, dto.OverlapReport] = (*CheckOverlapsHandler)(nil)
