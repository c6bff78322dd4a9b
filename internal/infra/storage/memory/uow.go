package memory

import (
	"context"

	"rentcal/internal/app/uow"
	domainoccupancy "rentcal/internal/domain/occupancy"
)

// Factory wires in-memory repositories into a unit-of-work boundary. No
// isolation is provided; writes are visible as soon as Save returns.
type Factory struct {
	OccupancyRepo domainoccupancy.Repository
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.OccupancyRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{occupancies: f.OccupancyRepo}, nil
}

type Unit struct {
	occupancies domainoccupancy.Repository
}

func (u *Unit) Occupancies() domainoccupancy.Repository {
	return u.occupancies
}

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
