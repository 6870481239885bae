package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/school-records/records-api/internal/api/metrics"
	"github.com/school-records/records-api/internal/core/domain"
	"github.com/school-records/records-api/internal/core/ports"
)

const identityKey = "identity"

// Auth extracts the bearer token, verifies it and stores the caller's
// identity in the echo context. Verification errors are returned unchanged so
// the error handler can tell malformed tokens (400) from bad or expired ones
// (401).
func Auth(verifier ports.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				metrics.TokenVerificationsTotal.WithLabelValues("missing").Inc()
				return fmt.Errorf("%w: missing authorization header", domain.ErrUnauthenticated)
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			token = strings.TrimSpace(token)
			if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
				metrics.TokenVerificationsTotal.WithLabelValues("missing").Inc()
				return fmt.Errorf("%w: authorization header must be a bearer token", domain.ErrUnauthenticated)
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				metrics.TokenVerificationsTotal.WithLabelValues(verificationResult(err)).Inc()
				return err
			}
			metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()

			c.Set(identityKey, claims.Identity)
			return next(c)
		}
	}
}

// IdentityFrom returns the identity stored by Auth.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	id, ok := c.Get(identityKey).(domain.Identity)
	return id, ok
}

// SetIdentity stores id the way Auth does. Used by tests and by handlers
// mounted behind other authenticators.
func SetIdentity(c echo.Context, id domain.Identity) {
	c.Set(identityKey, id)
}

func verificationResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrTokenSignatureInvalid):
		return "signature_invalid"
	default:
		return "malformed"
	}
}
