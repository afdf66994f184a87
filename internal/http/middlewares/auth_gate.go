package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"task-manager.com/task-manager/internal/auth"
	apperrors "task-manager.com/task-manager/internal/errors"
)

const identityKey = "identity"

// AuthGate verifies the bearer token of every request it guards and stores
// the resulting auth.Identity on the echo context.
func AuthGate(verifier auth.TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return apperrors.ErrMissingToken
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					return apperrors.ErrTokenExpired
				}
				return apperrors.ErrInvalidToken
			}

			c.Set(identityKey, identity)
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// IdentityFrom returns the identity placed on c by AuthGate.
func IdentityFrom(c echo.Context) (auth.Identity, bool) {
	identity, ok := c.Get(identityKey).(auth.Identity)
	return identity, ok && identity.Valid()
}
