package common

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opalhq/walletd/internal/api"
	"github.com/opalhq/walletd/internal/util"
)

func GetReadyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/ready", getReadyHandler(s))
}

func getReadyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.Ready() {
			log := util.LogFromContext(c.Request().Context())
			log.Warn().Msg("Server is not ready")

			return c.String(521, "Not ready.")
		}

		return c.String(http.StatusOK, "Ready.")
	}
}
