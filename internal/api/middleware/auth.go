package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hockeyunion/membership/internal/core/domain"
)

// Context keys set by Auth.
const (
	CtxSession     = "session"
	CtxSubject     = "subject"
	CtxEmail       = "email"
	CtxAccessToken = "access_token"
)

// SessionVerifier resolves a bearer token to a live session.
type SessionVerifier interface {
	GetSession(ctx context.Context, accessToken string) (*domain.Session, error)
}

// Auth validates the bearer token against the session store and injects the
// session into context.
func Auth(verifier SessionVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := BearerToken(c.Request())
			if err != nil {
				return err
			}

			session, err := verifier.GetSession(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrSessionNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired session")
				}
				return err
			}

			c.Set(CtxSession, session)
			c.Set(CtxSubject, session.User.ID)
			c.Set(CtxEmail, session.User.Email)
			c.Set(CtxAccessToken, token)

			return next(c)
		}
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}
	return strings.TrimSpace(parts[1]), nil
}
