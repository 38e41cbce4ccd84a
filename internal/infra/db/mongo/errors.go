package mongo

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	appuow "carrental/internal/app/uow"
)

// ErrConcurrentUpdate reports a version-filtered write that matched nothing:
// another unit changed the row first. It carries the generic conflict sentinel
// so upper layers can classify it without importing this package.
var ErrConcurrentUpdate = fmt.Errorf("mongo: concurrent update detected: %w", appuow.ErrConcurrentConflict)

const (
	writeConflictCode         = 112
	transientTransactionLabel = "TransientTransactionError"
)

// classifyWriteError rewrites snapshot write conflicts as the conflict
// sentinel. Mongo labels those transient, so the loser of two transactions
// bumping the same booking fence can be retried whole instead of surfacing a
// server error.
func classifyWriteError(err error) error {
	if err == nil {
		return nil
	}
	var srv mongo.ServerError
	if errors.As(err, &srv) && (srv.HasErrorLabel(transientTransactionLabel) || srv.HasErrorCode(writeConflictCode)) {
		return fmt.Errorf("%w: %v", appuow.ErrConcurrentConflict, err)
	}
	return err
}
