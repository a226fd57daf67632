package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/opalhq/walletd/internal/config"
	"github.com/opalhq/walletd/internal/identity"
	"github.com/opalhq/walletd/internal/metrics"
	"github.com/opalhq/walletd/internal/wallet"
)

// IdentityService is the pass-through surface of the external identity
// provider consumed by the handlers and the auth middleware.
type IdentityService interface {
	Register(ctx context.Context, email, password string) (*identity.Account, error)
	Authenticate(ctx context.Context, email, password string) (*identity.Session, error)
	Verify(ctx context.Context, token string) (*identity.Account, bool)
}

// WalletService covers the wallet-scoped operations.
type WalletService interface {
	Provision(ctx context.Context, accountID, email string) (*wallet.Provisioned, error)
	Fetch(ctx context.Context, accountID string) (*wallet.Details, error)
	Send(ctx context.Context, accountID string, req wallet.SendRequest) (*wallet.SendResult, error)
}

type Router struct {
	Routes     []*echo.Route
	Root       *echo.Group
	Management *echo.Group
	APIWallet  *echo.Group
}

// Server is the central struct keeping all the dependencies. Echo and Router
// are initialized by router.Init after the components are in place.
type Server struct {
	Echo   *echo.Echo
	Router *Router

	Config   config.Server
	Identity IdentityService
	Wallet   WalletService
	Metrics  *metrics.Service
}

func NewServer(cfg config.Server) *Server {
	return &Server{
		Config: cfg,
	}
}

func (s *Server) Ready() bool {
	return s.Echo != nil &&
		s.Router != nil &&
		s.Identity != nil &&
		s.Wallet != nil &&
		s.Metrics != nil
}

func (s *Server) Start() error {
	if !s.Ready() {
		return errors.New("server is not ready")
	}

	if err := s.Echo.Start(s.Config.Echo.ListenAddress); err != nil {
		return fmt.Errorf("failed to start echo server: %w", err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Warn().Msg("Shutting down server")

	if s.Echo != nil {
		if err := s.Echo.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Failed to shutdown echo server")
			return err
		}
	}

	return nil
}
