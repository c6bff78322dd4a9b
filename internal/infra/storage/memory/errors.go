package memory

import (
	"errors"
	"fmt"

	domainoccupancy "rentcal/internal/domain/occupancy"
)

var (
	ErrConcurrentUpdate     = fmt.Errorf("memory: %w", domainoccupancy.ErrConcurrentUpdate)
	ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")
)
