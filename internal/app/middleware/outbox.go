package middleware

import (
	"context"

	"carrental/internal/app/commands"
	"carrental/internal/app/outbox"
)

// OutboxFlush hands staged event records to the publisher once the command
// (and its transaction, when one wraps it) succeeded.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next DispatchFunc) DispatchFunc {
		return func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, err
			}
			return res, nil
		}
	}
}
