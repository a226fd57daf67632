package router

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/opalhq/walletd/internal/api"
	"github.com/opalhq/walletd/internal/api/handlers"
	"github.com/opalhq/walletd/internal/api/httperrors"
	"github.com/opalhq/walletd/internal/api/middleware"
)

func Init(s *api.Server) {
	s.Echo = echo.New()

	s.Echo.Debug = false
	s.Echo.HideBanner = true

	s.Echo.HTTPErrorHandler = httperrors.HTTPErrorHandler

	s.Echo.Use(echoMiddleware.RequestID())
	s.Echo.Use(middleware.Logger())
	s.Echo.Use(echoMiddleware.Recover())
	s.Echo.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "walletd",
		Registerer: s.Metrics.Registry,
	}))

	s.Router = &api.Router{
		Routes: nil, // will be populated by handlers.AttachAllRoutes(s)

		// Unsecured base group
		Root: s.Echo.Group(""),

		// Management endpoints, locally accessible only
		Management: s.Echo.Group("/-"),

		// Wallet endpoints, bearer token required
		APIWallet: s.Echo.Group("", middleware.Auth(s)),
	}

	s.Router.Management.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: s.Metrics.Registry,
	}))

	handlers.AttachAllRoutes(s)
}
