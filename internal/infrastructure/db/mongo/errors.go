package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/school-records/records-api/internal/core/domain"
)

// classifyError maps driver errors onto the store error kinds. Duplicate keys
// surface as domain.ErrDuplicateUser with no extra wrapping. Only rejected
// writes are conflicts; a refused command (auth, not primary, ...) means the
// store cannot serve the request.
func classifyError(op string, err error) error {
	var (
		we  mongo.WriteException
		bwe mongo.BulkWriteException
		ce  mongo.CommandError
	)

	switch {
	case mongo.IsDuplicateKeyError(err):
		return domain.ErrDuplicateUser
	case mongo.IsTimeout(err), mongo.IsNetworkError(err),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	case errors.As(err, &we), errors.As(err, &bwe):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreConflict, err)
	case errors.As(err, &ce):
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
