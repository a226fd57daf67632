package api

import (
	"context"

	"github.com/pkg/errors"

	"github.com/opalhq/walletd/internal/chain"
	"github.com/opalhq/walletd/internal/config"
	"github.com/opalhq/walletd/internal/custody"
	"github.com/opalhq/walletd/internal/identity"
	"github.com/opalhq/walletd/internal/metrics"
	"github.com/opalhq/walletd/internal/wallet"
	"github.com/opalhq/walletd/internal/wallet/store"
)

// InitNewServer assembles a server with its real upstream clients according
// to the given config. The echo instance is attached separately via
// router.Init.
func InitNewServer(ctx context.Context, cfg config.Server) (*Server, error) {
	chainClient, err := chain.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial chain endpoint")
	}

	s := NewServer(cfg)
	s.Metrics = metrics.New()
	s.Identity = identity.NewClient(cfg.Identity)
	s.Wallet = wallet.NewService(
		chainClient,
		custody.NewService(custody.NewClient(cfg.Custody), cfg.Custody),
		store.NewMemory(),
		cfg.Chain,
		s.Metrics,
	)

	return s, nil
}
