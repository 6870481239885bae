package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/school-records/records-api/internal/core/domain"
)

// TokenConfig is the signing configuration of a TokenCodec.
type TokenConfig struct {
	Secret    string
	Algorithm string
	TTL       time.Duration
}

// tokenClaims is the wire payload: username, role, exp, jti and the optional
// student_id / teacher_id, which are left out entirely when absent.
type tokenClaims struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	StudentID string `json:"student_id,omitempty"`
	TeacherID string `json:"teacher_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HMAC-signed JWTs. It holds no mutable state
// and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec validates cfg and returns a codec bound to it.
func NewTokenCodec(cfg TokenConfig) (*TokenCodec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token codec: secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("token codec: ttl must be positive, got %s", cfg.TTL)
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("token codec: unsupported algorithm %q (HS256, HS384, HS512)", alg)
	}

	return &TokenCodec{
		secret: []byte(cfg.Secret),
		method: method,
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

// Issue signs a token for identity that expires one TTL from now.
func (c *TokenCodec) Issue(identity domain.Identity) (string, domain.Claims, error) {
	if identity.Username == "" || identity.Principal.IsZero() {
		return "", domain.Claims{}, fmt.Errorf("%w: token requires username and role", domain.ErrInvalidInput)
	}

	// exp travels as whole seconds; truncate so the returned claims match
	// what Verify will decode.
	expiresAt := c.now().Add(c.ttl).Truncate(time.Second)
	claims := tokenClaims{
		Username:  identity.Username,
		Role:      string(identity.Principal.Role()),
		StudentID: identity.Principal.StudentID(),
		TeacherID: identity.Principal.TeacherID(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", domain.Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, domain.Claims{Identity: identity, TokenID: claims.ID, ExpiresAt: expiresAt}, nil
}

// Verify checks the signature and then the expiry of token.
func (c *TokenCodec) Verify(token string) (domain.Claims, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return domain.Claims{}, classifyTokenError(err)
	}

	if claims.Username == "" {
		return domain.Claims{}, fmt.Errorf("%w: missing username claim", domain.ErrTokenMalformed)
	}
	principal, err := domain.NewPrincipal(claims.Role, claims.StudentID, claims.TeacherID)
	if err != nil {
		return domain.Claims{}, fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}

	return domain.Claims{
		Identity:  domain.Identity{Username: claims.Username, Principal: principal},
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", domain.ErrTokenSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	default:
		// Missing exp, bad nbf, undecodable claim types.
		return fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}
}
