package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/opalhq/walletd/internal/api"
	"github.com/opalhq/walletd/internal/api/httperrors"
	"github.com/opalhq/walletd/internal/auth"
	"github.com/opalhq/walletd/internal/util"
)

const headerAuthorization = "Authorization"

// Auth verifies the bearer token of every request against the identity
// provider. Verification is performed freshly per request, nothing is cached
// locally. Requests failing verification never reach the wallet handlers.
func Auth(s *api.Server) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			log := util.LogFromContext(ctx)

			token, ok := bearerToken(c.Request().Header.Get(headerAuthorization))
			if !ok {
				log.Debug().Msg("Missing or malformed authorization header")
				return httperrors.ErrUnauthorized
			}

			account, ok := s.Identity.Verify(ctx, token)
			if !ok {
				log.Debug().Msg("Token verification rejected by identity provider")
				return httperrors.ErrUnauthorized
			}

			c.SetRequest(c.Request().WithContext(auth.WithUser(ctx, &auth.User{
				ID:    account.ID,
				Email: account.Email,
			})))

			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}
