package middleware

import (
	"context"

	"carrental/internal/app/commands"
	"carrental/internal/app/queries"
)

// DispatchFunc is one step of a command pipeline.
type DispatchFunc func(ctx context.Context, cmd commands.Command) (any, error)

// AskFunc is one step of a query pipeline.
type AskFunc func(ctx context.Context, q queries.Query) (any, error)

// CommandMiddleware wraps a dispatch step with additional behavior.
type CommandMiddleware func(next DispatchFunc) DispatchFunc

// QueryMiddleware wraps an ask step with additional behavior.
type QueryMiddleware func(next AskFunc) AskFunc

// ChainCommands builds a command bus from base with the middleware applied,
// outermost first.
func ChainCommands(base commands.Bus, mws ...CommandMiddleware) commands.Bus {
	fn := DispatchFunc(base.Dispatch)
	for i := len(mws) - 1; i >= 0; i-- {
		fn = mws[i](fn)
	}
	return dispatchBus(fn)
}

// ChainQueries builds a query bus with middleware applied.
func ChainQueries(base queries.Bus, mws ...QueryMiddleware) queries.Bus {
	fn := AskFunc(base.Ask)
	for i := len(mws) - 1; i >= 0; i-- {
		fn = mws[i](fn)
	}
	return askBus(fn)
}

type dispatchBus DispatchFunc

func (f dispatchBus) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

type askBus AskFunc

func (f askBus) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}
