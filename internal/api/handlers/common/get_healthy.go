package common

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opalhq/walletd/internal/api"
)

func GetHealthyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/healthy", getHealthyHandler(s))
}

// getHealthyHandler returns 200 as long as the process can serve requests.
// Deeper component checks live behind /-/ready.
func getHealthyHandler(_ *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, "Healthy.")
	}
}
