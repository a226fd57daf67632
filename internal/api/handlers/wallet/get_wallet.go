package wallet

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opalhq/walletd/internal/api"
	"github.com/opalhq/walletd/internal/api/httperrors"
	"github.com/opalhq/walletd/internal/auth"
	"github.com/opalhq/walletd/internal/util"
	"github.com/opalhq/walletd/internal/wallet"
	"github.com/opalhq/walletd/internal/wallet/units"
)

type GetWalletResponse struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
}

func GetWalletRoute(s *api.Server) *echo.Route {
	return s.Router.APIWallet.GET("/wallet", getWalletHandler(s))
}

// getWalletHandler resolves the caller's wallet and reads its confirmed
// balance from the chain endpoint. Nothing is served from local state.
func getWalletHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		user := auth.UserFromContext(ctx)
		if user == nil {
			return httperrors.ErrUnauthorized
		}

		details, err := s.Wallet.Fetch(ctx, user.ID)
		if err != nil {
			if errors.Is(err, wallet.ErrNoAssociation) {
				return httperrors.ErrNotFoundWalletAssociation
			}

			log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to fetch wallet state")
			return httperrors.NewHTTPError(http.StatusBadGateway, httperrors.TypeUpstream, "Failed to fetch wallet state from upstream.")
		}

		return c.JSON(http.StatusOK, GetWalletResponse{
			Address: details.Address,
			Balance: units.FormatWei(details.BalanceWei),
		})
	}
}
