package occupancy

import (
	"errors"

	"rentcal/internal/app/dto"
	domainoccupancy "rentcal/internal/domain/occupancy"
)

var (
	ErrOccupancyIDRequired = errors.New("occupancy: id required")
	ErrOverlap             = errors.New("occupancy: dates overlap existing stays")
	ErrUnknownAction       = errors.New("occupancy: unknown action")
)

// OverlapError rejects a write whose dates overlap blocking stays when the
// caller did not allow overlaps. It matches ErrOverlap.
type OverlapError struct {
	Overlaps []*domainoccupancy.Occupancy
}

func (e *OverlapError) Error() string {
	return ErrOverlap.Error() + ": " + domainoccupancy.OverlapMessage(e.Overlaps)
}

func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlap
}

func (e *OverlapError) Report() dto.OverlapReport {
	return dto.MapOverlapReport(e.Overlaps)
}
