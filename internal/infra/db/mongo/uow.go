package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	"rentcal/internal/app/uow"
	domainoccupancy "rentcal/internal/domain/occupancy"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory opens one multi-document transaction per unit. Transactions need a
// replica set; a standalone server rejects StartTransaction.
type Factory struct {
	DB            *mongo.Database
	OccupancyRepo domainoccupancy.Repository
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil || f.OccupancyRepo == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	rc := f.DB.ReadConcern()
	if opts.ReadOnly {
		rc = readconcern.Snapshot()
	}
	txnOpts := options.Transaction().SetReadConcern(rc).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{session: session, occupancies: f.OccupancyRepo}, nil
}

type Unit struct {
	session     mongo.Session
	occupancies domainoccupancy.Repository
	done        bool
}

func (u *Unit) Occupancies() domainoccupancy.Repository {
	return u.occupancies
}

// Commit maps a transient write conflict, two writers touching the same
// occupancy, to ErrConcurrentUpdate.
func (u *Unit) Commit(ctx context.Context) error {
	err := u.session.CommitTransaction(ctx)
	u.end(ctx)
	if isWriteConflict(err) {
		return ErrConcurrentUpdate
	}
	return err
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	err := u.session.AbortTransaction(ctx)
	u.end(ctx)
	return err
}

func (u *Unit) end(ctx context.Context) {
	u.done = true
	u.session.EndSession(ctx)
}

// InjectContext binds the session so repositories and the outbox write inside
// the transaction.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

// Isolate runs fn outside the session. A failed command inside a transaction
// can abort it server side, so fn begins its own unit from a detached context.
func (u *Unit) Isolate(ctx context.Context, fn func(context.Context) error) error {
	return fn(uow.Detach(ctx))
}

var _ uow.Isolator = (*Unit)(nil)

func isWriteConflict(err error) bool {
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel("TransientTransactionError") || se.HasErrorCode(112)
	}
	return false
}
