package test

import (
	"testing"

	"github.com/opalhq/walletd/internal/api"
	"github.com/opalhq/walletd/internal/api/router"
	"github.com/opalhq/walletd/internal/config"
	"github.com/opalhq/walletd/internal/metrics"
	"github.com/opalhq/walletd/internal/wallet"
	"github.com/opalhq/walletd/internal/wallet/store"
)

// Fixture bundles the fakes backing a test server so tests can reach behind
// the HTTP surface (seed balances, revoke tokens, count upstream calls).
type Fixture struct {
	Identity *FakeIdentity
	Custody  *FakeCustody
	Chain    *FakeChain
}

func DefaultServiceConfig() config.Server {
	return config.Server{
		Echo: config.EchoServer{
			ListenAddress: ":0",
		},
		Chain: config.Chain{
			ChainID:          11155111,
			TransferGasLimit: 21000,
		},
	}
}

// WithTestServer returns a fully initialized server with all fakes wired,
// ready to serve requests in-process via PerformRequest.
func WithTestServer(t *testing.T, closure func(s *api.Server)) {
	t.Helper()
	WithTestServerFixture(t, func(s *api.Server, _ *Fixture) {
		closure(s)
	})
}

func WithTestServerFixture(t *testing.T, closure func(s *api.Server, fix *Fixture)) {
	t.Helper()

	cfg := DefaultServiceConfig()

	fix := &Fixture{
		Identity: NewFakeIdentity(),
		Custody:  NewFakeCustody(),
		Chain:    NewFakeChain(),
	}

	s := api.NewServer(cfg)
	s.Identity = fix.Identity
	s.Metrics = metrics.New()
	s.Wallet = wallet.NewService(fix.Chain, fix.Custody, store.NewMemory(), cfg.Chain, s.Metrics)

	router.Init(s)

	closure(s, fix)
}
