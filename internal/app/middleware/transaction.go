package middleware

import (
	"context"
	"errors"

	"carrental/internal/app/commands"
	"carrental/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// conflictRetries bounds re-runs of a command whose transaction lost a
// serialization race. One re-run resolves the common two-writer case; a
// command that keeps losing surfaces the conflict.
const conflictRetries = 1

// Transaction opens a unit of work per command, commits on success and rolls
// back otherwise. A unit that aborts with a concurrent conflict is re-run once
// against fresh state. Handlers that must release the transaction around an
// external call manage their own units and are dispatched on a bus without
// this wrapper.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next DispatchFunc) DispatchFunc {
		return func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			var (
				res any
				err error
			)
			for attempt := 0; ; attempt++ {
				res, err = runInUnit(ctx, factory, opts, cmd, next)
				if err != nil && errors.Is(err, uow.ErrConcurrentConflict) && attempt < conflictRetries {
					continue
				}
				return res, err
			}
		}
	}
}

func runInUnit(ctx context.Context, factory uow.UoWFactory, opts uow.TxOptions, cmd commands.Command, next DispatchFunc) (any, error) {
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	execCtx := ctx
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		execCtx = injector.InjectContext(ctx)
	}
	execCtx = uow.ContextWithUnitOfWork(execCtx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()

	res, err := next(execCtx, cmd)
	if err != nil {
		return nil, err
	}
	if err := unit.Commit(execCtx); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}
