package ports

import "github.com/school-records/records-api/internal/core/domain"

// PasswordHasher turns plaintext passwords into self-describing salted hashes.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify never fails loudly: a malformed hash simply does not match.
	Verify(plaintext, hash string) bool
}

// TokenIssuer mints signed, expiring tokens.
type TokenIssuer interface {
	Issue(identity domain.Identity) (token string, claims domain.Claims, err error)
}

// TokenVerifier checks a token and returns its claims. Failures are
// domain.ErrTokenMalformed, domain.ErrTokenSignatureInvalid or
// domain.ErrTokenExpired.
type TokenVerifier interface {
	Verify(token string) (domain.Claims, error)
}

type TokenCodec interface {
	TokenIssuer
	TokenVerifier
}
