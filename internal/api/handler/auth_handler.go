package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hockeyunion/membership/internal/api/metrics"
	"github.com/hockeyunion/membership/internal/api/middleware"
	"github.com/hockeyunion/membership/internal/core/domain"
	"github.com/hockeyunion/membership/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignUp creates an identity and signs it in.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Credentials and user metadata"
// @Success      201   {object}  signUpResponse
// @Failure      400   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /auth/v1/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.SignUpsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	identity, session, err := h.authService.SignUp(c.Request().Context(), req.Email, req.Password, req.Data)
	if err != nil {
		metrics.SignUpsTotal.WithLabelValues(signUpOutcome(err)).Inc()
		return err
	}

	metrics.SignUpsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusCreated, signUpResponse{User: identity, Session: session})
}

// Token issues a session for a password or refresh_token grant.
//
// @Summary      Token grant
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        grant_type  query     string                true  "password or refresh_token"
// @Param        body        body      passwordGrantRequest  true  "Grant payload"
// @Success      200         {object}  domain.Session
// @Failure      400         {object}  ErrorResponse
// @Failure      401         {object}  ErrorResponse
// @Router       /auth/v1/token [post]
func (h *AuthHandler) Token(c echo.Context) error {
	grant := c.QueryParam("grant_type")

	var (
		session *domain.Session
		err     error
	)
	switch grant {
	case grantPassword:
		var req passwordGrantRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		session, err = h.authService.SignIn(c.Request().Context(), req.Email, req.Password)
	case grantRefreshToken:
		var req refreshGrantRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
		session, err = h.authService.Refresh(c.Request().Context(), req.RefreshToken)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unsupported grant_type")
	}

	if err != nil {
		metrics.SignInsTotal.WithLabelValues(grant, signInOutcome(err)).Inc()
		return err
	}

	metrics.SignInsTotal.WithLabelValues(grant, "success").Inc()
	return c.JSON(http.StatusOK, session)
}

// Logout revokes the caller's session.
//
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/v1/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	token, _ := c.Get(middleware.CtxAccessToken).(string)
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	if err := h.authService.SignOut(c.Request().Context(), token); err != nil {
		return err
	}

	metrics.SignOutsTotal.Inc()
	return c.NoContent(http.StatusNoContent)
}

// User returns the identity behind the bearer token.
//
// @Summary      Current user
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  domain.Identity
// @Failure      401  {object}  ErrorResponse
// @Router       /auth/v1/user [get]
func (h *AuthHandler) User(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session.User)
}

func signUpOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserExists):
		return "exists"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidRole):
		return "invalid"
	default:
		return "error"
	}
}

func signInOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrSessionNotFound):
		return "invalid_credentials"
	default:
		return "error"
	}
}
