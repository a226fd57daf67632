package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opalhq/walletd/internal/api"
	"github.com/opalhq/walletd/internal/api/httperrors"
	"github.com/opalhq/walletd/internal/identity"
	"github.com/opalhq/walletd/internal/util"
)

type PostLoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PostLoginResponse struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
}

func PostLoginRoute(s *api.Server) *echo.Route {
	return s.Router.Root.POST("/login", postLoginHandler(s))
}

func postLoginHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		var body PostLoginPayload
		if err := c.Bind(&body); err != nil {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "Malformed request body.")
		}
		if body.Email == "" || body.Password == "" {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "Email and password are required.")
		}

		session, err := s.Identity.Authenticate(ctx, body.Email, body.Password)
		if err != nil {
			var providerErr *identity.ProviderError
			if errors.As(err, &providerErr) {
				log.Debug().Err(err).Msg("Identity provider rejected credentials")
				return httperrors.NewHTTPError(http.StatusUnauthorized, httperrors.TypeAuth, providerErr.Message)
			}

			log.Warn().Err(err).Msg("Identity provider unavailable during login")
			return httperrors.NewHTTPError(http.StatusBadGateway, httperrors.TypeUpstream, "Identity provider is unavailable.")
		}

		return c.JSON(http.StatusOK, PostLoginResponse{
			UserID:      session.Account.ID,
			Email:       session.Account.Email,
			AccessToken: session.AccessToken,
		})
	}
}
