package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/opalhq/walletd/internal/api"
	"github.com/opalhq/walletd/internal/api/handlers/auth"
	"github.com/opalhq/walletd/internal/api/handlers/common"
	"github.com/opalhq/walletd/internal/api/handlers/wallet"
)

// AttachAllRoutes attaches all registered routes to the server's router.
func AttachAllRoutes(s *api.Server) {
	s.Router.Routes = []*echo.Route{
		auth.PostSignupRoute(s),
		auth.PostLoginRoute(s),
		common.GetHealthyRoute(s),
		common.GetReadyRoute(s),
		common.GetVersionRoute(s),
		wallet.GetWalletRoute(s),
		wallet.PostSendRoute(s),
	}
}
