package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/opalhq/walletd/internal/api"
	"github.com/opalhq/walletd/internal/api/httperrors"
	"github.com/opalhq/walletd/internal/custody"
	"github.com/opalhq/walletd/internal/identity"
	"github.com/opalhq/walletd/internal/util"
)

type PostSignupPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PostSignupResponse struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	WalletAddress string `json:"wallet_address"`
}

func PostSignupRoute(s *api.Server) *echo.Route {
	return s.Router.Root.POST("/signup", postSignupHandler(s))
}

// postSignupHandler registers the account with the identity provider and
// provisions its wallet in one call. The account and the wallet association
// are only reported on full success.
func postSignupHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body PostSignupPayload
		if err := c.Bind(&body); err != nil {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "Malformed request body.")
		}
		if body.Email == "" || body.Password == "" {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "Email and password are required.")
		}

		account, err := s.Identity.Register(ctx, body.Email, body.Password)
		if err != nil {
			return signupIdentityError(log, err)
		}

		provisioned, err := s.Wallet.Provision(ctx, account.ID, account.Email)
		if err != nil {
			log.Error().Err(err).Str("user_id", account.ID).Msg("Wallet provisioning failed after account registration")

			errType := httperrors.TypeUpstream
			if errors.Is(err, custody.ErrProvisioningTimeout) {
				errType = httperrors.TypeProvisioningTimeout
			}

			// the identity account exists at this point, the caller has to
			// retry the signup to get a wallet attached
			return httperrors.NewHTTPErrorWithDetail(http.StatusInternalServerError, errType,
				"Wallet provisioning failed.",
				"The account was created but no wallet could be provisioned. Retry the signup with the same credentials later.")
		}

		s.Metrics.Signups.Inc()

		log.Info().Str("user_id", account.ID).Str("wallet_address", provisioned.Address).Msg("Account registered and wallet provisioned")

		return c.JSON(http.StatusOK, PostSignupResponse{
			UserID:        account.ID,
			Email:         account.Email,
			WalletAddress: provisioned.Address,
		})
	}
}

func signupIdentityError(log *zerolog.Logger, err error) error {
	var providerErr *identity.ProviderError
	if errors.As(err, &providerErr) {
		log.Debug().Err(err).Msg("Identity provider rejected signup")
		return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, providerErr.Message)
	}

	log.Warn().Err(err).Msg("Identity provider unavailable during signup")
	return httperrors.NewHTTPError(http.StatusBadGateway, httperrors.TypeUpstream, "Identity provider is unavailable.")
}
