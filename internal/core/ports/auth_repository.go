package ports

import (
	"context"

	"github.com/school-records/records-api/internal/core/domain"
)

// UserRepository is the identity-record store.
//
// Implementations report a missing record as domain.ErrUserNotFound, a
// unique-username violation as domain.ErrDuplicateUser, connectivity failures
// wrapped in domain.ErrStoreUnavailable and other rejected writes wrapped in
// domain.ErrStoreConflict.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Insert(ctx context.Context, user *domain.User) (*domain.User, error)
	CountAdmins(ctx context.Context) (int64, error)
}
