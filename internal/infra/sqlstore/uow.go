package sqlstore

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"rentcal/internal/app/uow"
	domainoccupancy "rentcal/internal/domain/occupancy"
)

var ErrUnitOfWorkNotConfigured = errors.New("sqlstore: unit of work factory missing database")

const isolateSavepoint = "rentcal_isolated_read"

// Factory opens one database transaction per unit of work.
type Factory struct {
	DB *gorm.DB
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	tx := f.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &Unit{tx: tx, occupancies: NewOccupancyRepository(tx)}, nil
}

type Unit struct {
	tx          *gorm.DB
	occupancies *OccupancyRepository
}

func (u *Unit) Occupancies() domainoccupancy.Repository {
	return u.occupancies
}

// Isolate runs fn behind a savepoint. Postgres aborts the whole transaction on
// a failed statement, so an error from fn rolls back to the savepoint and the
// unit can still save and commit.
func (u *Unit) Isolate(ctx context.Context, fn func(context.Context) error) error {
	if err := u.tx.SavePoint(isolateSavepoint).Error; err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		if rbErr := u.tx.RollbackTo(isolateSavepoint).Error; rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	return u.tx.Commit().Error
}

func (u *Unit) Rollback(ctx context.Context) error {
	return u.tx.Rollback().Error
}

var _ uow.Isolator = (*Unit)(nil)
