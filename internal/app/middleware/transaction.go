package middleware

import (
	"context"
	"fmt"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/uow"
)

// Transaction wraps every occupancy write in one unit of work. Handlers join
// the unit through uow.Join, so the aggregate save and its outbox records land
// in the same transaction; the advisory overlap read stays outside its failure
// domain via uow.Isolate.
//
// A commit error keeps its cause, so a lost version race still matches
// occupancy.ErrConcurrentUpdate and maps to 409 at the edge.
func Transaction(factory uow.UoWFactory) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			_, execCtx, commit, finish, err := uow.Join(ctx, factory, uow.TxOptions{})
			if err != nil {
				return nil, fmt.Errorf("%s: begin: %w", cmd.Key(), err)
			}
			defer finish()

			res, err := next.Dispatch(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if err := commit(); err != nil {
				return nil, fmt.Errorf("%s: commit: %w", cmd.Key(), err)
			}
			return res, nil
		})
	}
}
