package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hockeyunion/membership/internal/api/middleware"
	"github.com/hockeyunion/membership/internal/core/domain"
	"github.com/hockeyunion/membership/internal/core/ports"
)

// ctxCaller extracts the caller injected by the Auth middleware. A missing
// subject means the route was mounted without Auth.
func ctxCaller(c echo.Context) (ports.Caller, error) {
	subject, _ := c.Get(middleware.CtxSubject).(string)
	if subject == "" {
		return ports.Caller{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	email, _ := c.Get(middleware.CtxEmail).(string)
	return ports.Caller{Subject: subject, Email: email}, nil
}

func ctxSession(c echo.Context) (*domain.Session, error) {
	session, _ := c.Get(middleware.CtxSession).(*domain.Session)
	if session == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return session, nil
}
