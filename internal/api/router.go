package api

import (
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/hockeyunion/membership/docs"

	"github.com/hockeyunion/membership/internal/api/handler"
	"github.com/hockeyunion/membership/internal/api/middleware"
	"github.com/hockeyunion/membership/internal/core/domain"
	"github.com/hockeyunion/membership/internal/core/ports"
	"github.com/hockeyunion/membership/internal/infrastructure/http/handlers"
)

// Dependencies are the services the router mounts.
type Dependencies struct {
	Auth     ports.AuthService
	Profiles ports.ProfileService
	// Checks feed /health/ready, keyed by dependency name.
	Checks map[string]handlers.Checker
	Log    zerolog.Logger
	// Metrics enables the Prometheus middleware and /metrics.
	Metrics bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	if deps.Metrics {
		e.Use(echoprometheus.NewMiddleware("membership"))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	authMiddleware := middleware.Auth(deps.Auth)
	adminOnly := middleware.RBAC(deps.Profiles, domain.RoleAdmin)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	auth := e.Group("/auth/v1")
	auth.POST("/signup", authHandler.SignUp)
	auth.POST("/token", authHandler.Token)
	auth.POST("/logout", authHandler.Logout, authMiddleware)
	auth.GET("/user", authHandler.User, authMiddleware)

	// --- Profile routes ---
	profileHandler := handler.NewProfileHandler(deps.Profiles)
	rest := e.Group("/rest/v1", authMiddleware)
	rest.GET("/profiles", profileHandler.List, adminOnly)
	rest.POST("/profiles", profileHandler.Create)
	rest.GET("/profiles/:id", profileHandler.Get)
	rest.PATCH("/profiles/:id", profileHandler.Update)

	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	readinessHandler := handlers.NewReadinessHandler(deps.Checks)

	e.GET("/health", healthHandler.Liveness)           // liveness  – is the process alive?
	e.GET("/health/ready", readinessHandler.Readiness) // readiness – are dependencies up?

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
