package middleware

import (
	"context"
	"fmt"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/outbox"
)

// OutboxFlush releases the occupancy events a command recorded. It sits outside
// Transaction, so only events of a committed write reach the broker. Each
// command gets its own outbox batch. When the command fails, a buffering outbox
// drops that batch; the mongo store needs nothing here since its inserts rolled
// back with the session.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			ctx = outbox.WithBatch(ctx)
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				if d, ok := box.(outbox.Discarder); ok {
					d.Discard(ctx)
				}
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, fmt.Errorf("%s: flush events: %w", cmd.Key(), err)
			}
			return res, nil
		})
	}
}
