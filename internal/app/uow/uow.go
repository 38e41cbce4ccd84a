package uow

import (
	"context"
	"errors"

	domainbooking "carrental/internal/domain/booking"
	domaincar "carrental/internal/domain/car"
)

// ErrUnitOfWorkMissing reports a handler that needs a unit but got neither an
// ambient one nor a factory.
var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

// ErrConcurrentConflict marks a serialization failure: two units touched the
// same rows and this one lost. The work itself is valid and may be retried.
var ErrConcurrentConflict = errors.New("uow: concurrent update conflict")

// UnitOfWork coordinates repositories inside a transaction boundary. The
// isolation contract: after Cars().TouchBookingSet succeeds for a car, the
// unit's reads of that car's bookings and the writes that follow commit as one
// indivisible step with respect to other units touching the same car.
type UnitOfWork interface {
	Cars() domaincar.Repository
	Bookings() domainbooking.Repository

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

type ctxKey struct{}

// ContextWithUnitOfWork stores the unit in context so nested handlers join the
// ambient transaction instead of opening their own.
func ContextWithUnitOfWork(ctx context.Context, unit UnitOfWork) context.Context {
	return context.WithValue(ctx, ctxKey{}, unit)
}

// FromContext retrieves the ambient unit, if any.
func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok
}
