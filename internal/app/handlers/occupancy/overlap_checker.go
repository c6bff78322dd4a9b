package occupancy

import (
	"context"
	"log/slog"

	"rentcal/internal/app/policies"
	"rentcal/internal/app/uow"
	domainoccupancy "rentcal/internal/domain/occupancy"
	"rentcal/internal/domain/shared/daterange"
)

// UnitOverlapChecker loads the property's stays through the unit of work bound
// to the context, or a read-only one of its own, and runs FindOverlaps over the
// blocking ones. Writers call it through advisoryOverlaps.
type UnitOverlapChecker struct {
	UoWFactory uow.UoWFactory
}

func (c UnitOverlapChecker) Overlaps(ctx context.Context, propertyID domainoccupancy.PropertyID, span daterange.DateRange, exclude domainoccupancy.ID) ([]*domainoccupancy.Occupancy, error) {
	if err := span.Validate(); err != nil {
		return nil, err
	}
	unit, execCtx, _, finish, err := uow.Join(ctx, c.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer finish()

	existing, err := unit.Occupancies().ListByProperty(execCtx, propertyID, span)
	if err != nil {
		return nil, err
	}
	return domainoccupancy.FindOverlaps(span, domainoccupancy.BlockingOnly(existing), exclude), nil
}

var _ policies.OverlapChecker = UnitOverlapChecker{}

// advisoryOverlaps runs the overlap check for a write, isolated from the write
// transaction. A failing check is logged and reported as no overlaps, and the
// write goes ahead.
func advisoryOverlaps(ctx context.Context, checker policies.OverlapChecker, logger *slog.Logger, propertyID domainoccupancy.PropertyID, span daterange.DateRange, exclude domainoccupancy.ID) []*domainoccupancy.Occupancy {
	if checker == nil {
		return nil
	}
	var found []*domainoccupancy.Occupancy
	err := uow.Isolate(ctx, func(ctx context.Context) error {
		var err error
		found, err = checker.Overlaps(ctx, propertyID, span, exclude)
		return err
	})
	if err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "overlap check failed, saving anyway",
				"property_id", propertyID,
				"range", span.String(),
				"exclude", exclude,
				"error", err,
			)
		}
		return nil
	}
	return found
}
