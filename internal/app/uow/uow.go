package uow

import (
	"context"
	"errors"

	"rentcal/internal/domain/occupancy"
)

var ErrUnitOfWorkMissing = errors.New("uow: no unit of work and no factory to begin one")

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Occupancies() occupancy.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// Join returns the unit already bound to ctx, or begins a new one from
// factory. finish must be deferred by the caller; it rolls back a unit that
// Join started unless commit was called first. commit is a no-op for a
// borrowed unit, which the outer owner commits.
func Join(ctx context.Context, factory UoWFactory, opts TxOptions) (unit UnitOfWork, execCtx context.Context, commit func() error, finish func(), err error) {
	if existing, ok := FromContext(ctx); ok {
		return existing, ctx, func() error { return nil }, func() {}, nil
	}
	if factory == nil {
		return nil, ctx, nil, nil, ErrUnitOfWorkMissing
	}
	unit, err = factory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, nil, nil, err
	}
	execCtx = ctx
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		execCtx = injector.InjectContext(ctx)
	}
	execCtx = WithUnit(execCtx, unit)

	committed := false
	commit = func() error {
		if err := unit.Commit(execCtx); err != nil {
			return err
		}
		committed = true
		return nil
	}
	finish = func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}
	return unit, execCtx, commit, finish, nil
}

type unitKey struct{}

// WithUnit binds unit to ctx so nested handlers share one transaction.
func WithUnit(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, unitKey{}, unit)
}

// FromContext returns the unit bound by WithUnit, if any.
func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(unitKey{}).(UnitOfWork)
	return unit, ok && unit != nil
}

// Isolator is implemented by units whose transaction must survive a failed
// read. Isolate runs fn so that an error from fn leaves the unit usable.
type Isolator interface {
	Isolate(ctx context.Context, fn func(context.Context) error) error
}

// Isolate runs fn through the Isolator bound to ctx, or calls fn directly when
// the bound unit has nothing to protect.
func Isolate(ctx context.Context, fn func(context.Context) error) error {
	if unit, ok := FromContext(ctx); ok {
		if isolator, ok := unit.(Isolator); ok {
			return isolator.Isolate(ctx, fn)
		}
	}
	return fn(ctx)
}

// Detach keeps the deadline and cancellation of ctx but drops its values, so a
// unit begun from the result owns a fresh transaction or session.
func Detach(ctx context.Context) context.Context {
	return detached{ctx}
}

type detached struct {
	context.Context
}

func (detached) Value(any) any { return nil }
