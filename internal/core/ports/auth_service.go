package ports

import (
	"context"
	"time"

	"github.com/school-records/records-api/internal/core/domain"
)

// TokenTypeBearer is the only token type handed out at login.
const TokenTypeBearer = "bearer"

// RegisterInput is the untyped registration payload as it arrives from the
// transport layer.
type RegisterInput struct {
	Username  string
	Password  string
	Role      string
	StudentID string
	TeacherID string
}

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
	Identity  domain.Identity
}

// AdminAccount describes the account created by Bootstrap.
type AdminAccount struct {
	Username string
	Password string
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Lookup(ctx context.Context, username string) (*domain.User, error)
	Bootstrap(ctx context.Context, admin AdminAccount) error
}
