package policies

import (
	"context"

	"rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/shared/daterange"
)

// OverlapChecker finds the blocking occupancies of a property that share at
// least one day with span, skipping exclude. Callers treat a failure as
// advisory: the write goes ahead and the error is logged.
type OverlapChecker interface {
	Overlaps(ctx context.Context, propertyID occupancy.PropertyID, span daterange.DateRange, exclude occupancy.ID) ([]*occupancy.Occupancy, error)
}
