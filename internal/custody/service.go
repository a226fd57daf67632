package custody

import (
	"context"

	"github.com/pkg/errors"

	"github.com/opalhq/walletd/internal/config"
	"github.com/opalhq/walletd/internal/util"
	"github.com/opalhq/walletd/internal/util/retry"
)

// ErrProvisioningTimeout means the readiness polling budget was exhausted
// before the wallet reported ready. Distinct from a generic upstream error:
// the wallet may still complete shortly and a retry after a delay is a
// reasonable caller action.
var ErrProvisioningTimeout = errors.New("custody: wallet provisioning timed out")

// Service wraps the provider client with the bounded readiness-polling
// policy. Creation returns a non-ready handle immediately; Provision blocks
// until readiness or policy exhaustion.
type Service struct {
	client *Client
	policy retry.Policy
}

func NewService(client *Client, cfg config.Custody) *Service {
	return &Service{
		client: client,
		policy: retry.Policy{
			MaxAttempts: cfg.PollMaxAttempts,
			Interval:    cfg.PollInterval,
		},
	}
}

// Provision creates a custodial wallet for the account's email and waits
// until the provider reports it ready, returning the handle with its derived
// address populated.
func (s *Service) Provision(ctx context.Context, email string) (*Wallet, error) {
	log := util.LogFromContext(ctx)

	created, err := s.client.Create(ctx, email)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create wallet")
	}

	log.Debug().Str("wallet_id", created.ID).Str("status", created.Status).Msg("Wallet created, awaiting readiness")

	ready, err := s.WaitReady(ctx, created.ID)
	if err != nil {
		return nil, err
	}

	return ready, nil
}

// WaitReady polls the wallet handle until it reports ready. A handle that is
// already ready returns after a single poll. Exhausting the attempt budget is
// a hard failure, never a silent partial success.
func (s *Service) WaitReady(ctx context.Context, walletID string) (*Wallet, error) {
	var wallet *Wallet

	err := s.policy.Do(ctx, func(ctx context.Context) (bool, error) {
		current, err := s.client.Get(ctx, walletID)
		if err != nil {
			return false, errors.Wrap(err, "failed to poll wallet status")
		}

		wallet = current
		return current.Ready(), nil
	})
	if errors.Is(err, retry.ErrAttemptsExhausted) {
		return nil, ErrProvisioningTimeout
	}
	if err != nil {
		return nil, err
	}

	return wallet, nil
}

// GetWallet returns the current state of a wallet handle.
func (s *Service) GetWallet(ctx context.Context, walletID string) (*Wallet, error) {
	return s.client.Get(ctx, walletID)
}

// SignDigest delegates raw digest signing to the provider.
func (s *Service) SignDigest(ctx context.Context, walletID, digestHex string) (string, error) {
	return s.client.SignDigest(ctx, walletID, digestHex)
}
