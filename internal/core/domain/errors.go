package domain

import "errors"

// Input and account errors.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidLinkage     = errors.New("invalid linkage")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

// Token and access errors.
var (
	ErrTokenMalformed        = errors.New("malformed token")
	ErrTokenSignatureInvalid = errors.New("invalid token signature")
	ErrTokenExpired          = errors.New("token expired")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrForbidden             = errors.New("access forbidden")
)

// Store errors.
var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrStoreConflict    = errors.New("store conflict")
)
