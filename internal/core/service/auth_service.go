package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/school-records/records-api/internal/core/domain"
	"github.com/school-records/records-api/internal/core/ports"
)

// LoginLimiter abstracts the per-username attempt counter (Redis). Acquire
// reserves an attempt atomically; Reset runs after a successful login.
type LoginLimiter interface {
	Acquire(ctx context.Context, username string) (bool, error)
	Reset(ctx context.Context, username string) error
}

// AuthService implements registration, login and admin bootstrap.
type AuthService struct {
	repo    ports.UserRepository
	hasher  ports.PasswordHasher
	tokens  ports.TokenIssuer
	limiter LoginLimiter
	log     zerolog.Logger
}

// NewAuthService wires the service. limiter may be nil, which disables
// failed-login throttling.
func NewAuthService(
	repo ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	limiter LoginLimiter,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		repo:    repo,
		hasher:  hasher,
		tokens:  tokens,
		limiter: limiter,
		log:     log,
	}
}

// Register creates an identity record. The returned user still carries the
// password hash; transport layers must not render it.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	if in.Username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}

	// Fast path only; the unique index on username is what actually prevents
	// two records with the same name.
	if _, err := s.repo.FindByUsername(ctx, in.Username); err == nil {
		return nil, domain.ErrDuplicateUser
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	principal, err := domain.NewPrincipal(in.Role, in.StudentID, in.TeacherID)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	created, err := s.repo.Insert(ctx, &domain.User{
		Username:     in.Username,
		PasswordHash: hash,
		Principal:    principal,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateUser) {
			return nil, domain.ErrDuplicateUser
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().
		Str("username", created.Username).
		Str("role", string(created.Principal.Role())).
		Msg("user registered")

	return created, nil
}

// Login checks credentials and mints a bearer token. Unknown usernames and
// wrong passwords both yield domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Acquire(ctx, username)
		if err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("login limiter check failed, continuing")
		} else if !allowed {
			return nil, domain.ErrTooManyAttempts
		}
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	identity := domain.Identity{Username: user.Username, Principal: user.Principal}
	token, claims, err := s.tokens.Issue(identity)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, username); err != nil {
			s.log.Warn().Err(err).Str("username", username).Msg("failed to reset login attempts")
		}
	}

	s.log.Info().
		Str("username", user.Username).
		Str("role", string(user.Principal.Role())).
		Str("jti", claims.TokenID).
		Msg("user logged in")

	return &ports.LoginResult{
		Token:     token,
		TokenType: ports.TokenTypeBearer,
		ExpiresAt: claims.ExpiresAt,
		Identity:  identity,
	}, nil
}

// Lookup returns the identity record for username.
func (s *AuthService) Lookup(ctx context.Context, username string) (*domain.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	return s.repo.FindByUsername(ctx, username)
}

// Bootstrap creates the first admin account when the store has none. Several
// processes may run it at once; the loser's insert hits the unique username
// index, and it succeeds only if an admin exists afterwards.
func (s *AuthService) Bootstrap(ctx context.Context, admin ports.AdminAccount) error {
	count, err := s.repo.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: count admins: %w", err)
	}
	if count > 0 {
		s.log.Debug().Int64("admins", count).Msg("admin account present, bootstrap skipped")
		return nil
	}

	if admin.Username == "" {
		return fmt.Errorf("%w: bootstrap admin username is required", domain.ErrInvalidInput)
	}
	hash, err := s.hasher.Hash(admin.Password)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.repo.Insert(ctx, &domain.User{
		Username:     admin.Username,
		PasswordHash: hash,
		Principal:    domain.AdminPrincipal(),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, domain.ErrDuplicateUser) {
		// Either a concurrent start created the admin, or the name is held by
		// a non-admin account and the store still has no admin.
		count, cerr := s.repo.CountAdmins(ctx)
		if cerr != nil {
			return fmt.Errorf("bootstrap: recount admins: %w", cerr)
		}
		if count == 0 {
			return fmt.Errorf("bootstrap: username %q is held by a non-admin account: %w", admin.Username, domain.ErrDuplicateUser)
		}
		s.log.Debug().Str("username", admin.Username).Msg("admin created concurrently, bootstrap skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap: insert admin: %w", err)
	}

	s.log.Warn().Str("username", admin.Username).Msg("bootstrap admin created with default credentials, rotate the password")
	return nil
}
