// Package wallet orchestrates the wallet-scoped operations: provisioning a
// custodial wallet for a new account, reading wallet state, and driving one
// send through the build, digest, remote-sign, reassemble, broadcast
// pipeline.
package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/opalhq/walletd/internal/chain"
	"github.com/opalhq/walletd/internal/config"
	"github.com/opalhq/walletd/internal/custody"
	"github.com/opalhq/walletd/internal/metrics"
	"github.com/opalhq/walletd/internal/util"
	"github.com/opalhq/walletd/internal/wallet/store"
	"github.com/opalhq/walletd/internal/wallet/txbuilder"
)

// ErrNoAssociation means the account has no recorded wallet handle. With the
// volatile store this is a normal condition after a restart; the caller
// re-registers to re-establish the association.
var ErrNoAssociation = errors.New("wallet: no association for account")

// ChainClient is the chain reader/broadcaster surface this service consumes.
type ChainClient interface {
	BalanceAt(ctx context.Context, address common.Address) (*big.Int, error)
	PendingNonceAt(ctx context.Context, address common.Address) (uint64, error)
	EstimateFees(ctx context.Context) (*chain.FeeEstimate, error)
	BroadcastRaw(ctx context.Context, raw []byte) (common.Hash, error)
}

// CustodyProvider is the wallet-provider surface this service consumes.
type CustodyProvider interface {
	Provision(ctx context.Context, email string) (*custody.Wallet, error)
	GetWallet(ctx context.Context, walletID string) (*custody.Wallet, error)
	SignDigest(ctx context.Context, walletID, digestHex string) (string, error)
}

// Provisioned is the outcome of wallet provisioning for an account.
type Provisioned struct {
	WalletID string
	Address  string
}

// Details is the wallet state returned to an authenticated account.
type Details struct {
	Address    string
	BalanceWei *big.Int
}

// SendRequest is one value transfer. To and ValueWei are already validated
// by the caller.
type SendRequest struct {
	To       common.Address
	ValueWei *big.Int
}

// SendResult is a broadcast transaction, its hash as assigned by the network.
type SendResult struct {
	TxHash string
	From   string
}

type Service struct {
	chain        ChainClient
	custody      CustodyProvider
	associations store.Associations
	cfg          config.Chain
	metrics      *metrics.Service
}

func NewService(chainClient ChainClient, custodyProvider CustodyProvider, associations store.Associations, cfg config.Chain, m *metrics.Service) *Service {
	return &Service{
		chain:        chainClient,
		custody:      custodyProvider,
		associations: associations,
		cfg:          cfg,
		metrics:      m,
	}
}

// Provision creates a custodial wallet for the account and records the
// association. A prior entry for the account is overwritten, last write wins.
func (s *Service) Provision(ctx context.Context, accountID, email string) (*Provisioned, error) {
	wallet, err := s.custody.Provision(ctx, email)
	if err != nil {
		return nil, err
	}

	s.associations.Set(ctx, accountID, wallet.ID)
	s.metrics.WalletsProvisioned.Inc()

	util.LogFromContext(ctx).Info().
		Str("account_id", accountID).
		Str("wallet_id", wallet.ID).
		Str("address", wallet.Address).
		Msg("Wallet provisioned")

	return &Provisioned{WalletID: wallet.ID, Address: wallet.Address}, nil
}

// Fetch resolves the account's wallet and its live balance.
func (s *Service) Fetch(ctx context.Context, accountID string) (*Details, error) {
	wallet, err := s.walletForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	balance, err := s.chain.BalanceAt(ctx, common.HexToAddress(wallet.Address))
	if err != nil {
		return nil, err
	}

	return &Details{Address: wallet.Address, BalanceWei: balance}, nil
}

// Send drives one transfer through the pipeline. Every failure is tagged
// with the step it occurred in, and no state is carried between attempts: a
// retried send restarts from fresh chain state.
func (s *Service) Send(ctx context.Context, accountID string, req SendRequest) (*SendResult, error) {
	wallet, err := s.walletForAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	result, err := s.send(ctx, wallet, req)
	if err != nil {
		s.metrics.TransactionsSent.WithLabelValues("failure").Inc()
		return nil, err
	}

	s.metrics.TransactionsSent.WithLabelValues("success").Inc()
	return result, nil
}

func (s *Service) send(ctx context.Context, wallet *custody.Wallet, req SendRequest) (*SendResult, error) {
	log := util.LogFromContext(ctx)
	from := common.HexToAddress(wallet.Address)

	// chain state is fetched immediately before building; a stale nonce or
	// fee gets the transaction rejected by the network
	nonce, err := s.chain.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, &SendError{Step: StepGatherChainState, Err: err}
	}

	fees, err := s.chain.EstimateFees(ctx)
	if err != nil {
		return nil, &SendError{Step: StepGatherChainState, Err: err}
	}

	unsigned, err := txbuilder.Build(txbuilder.Params{
		ChainID:   s.cfg.ChainID,
		Nonce:     nonce,
		To:        req.To,
		Value:     req.ValueWei,
		GasLimit:  s.cfg.TransferGasLimit,
		GasTipCap: fees.GasTipCap,
		GasFeeCap: fees.GasFeeCap,
	})
	if err != nil {
		return nil, &SendError{Step: StepBuildUnsigned, Err: err}
	}

	digest := unsigned.Digest()

	log.Debug().
		Str("wallet_id", wallet.ID).
		Str("digest", digest.Hex()).
		Uint64("nonce", nonce).
		Msg("Requesting remote signature")

	sigHex, err := s.custody.SignDigest(ctx, wallet.ID, digest.Hex())
	if err != nil {
		return nil, &SendError{Step: StepAwaitSignature, Err: err}
	}

	sig, err := txbuilder.DecodeSignature(sigHex)
	if err != nil {
		return nil, &SendError{Step: StepReconstructSigned, Err: err}
	}

	signed, err := unsigned.Attach(sig, from)
	if err != nil {
		return nil, &SendError{Step: StepReconstructSigned, Err: err}
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, &SendError{Step: StepReconstructSigned, Err: errors.Wrap(err, "failed to encode signed transaction")}
	}

	txHash, err := s.chain.BroadcastRaw(ctx, raw)
	if err != nil {
		return nil, &SendError{Step: StepBroadcast, Err: err}
	}

	log.Info().
		Str("tx_hash", txHash.Hex()).
		Str("from", wallet.Address).
		Str("to", req.To.Hex()).
		Msg("Transaction broadcast")

	return &SendResult{TxHash: txHash.Hex(), From: wallet.Address}, nil
}

func (s *Service) walletForAccount(ctx context.Context, accountID string) (*custody.Wallet, error) {
	walletID, ok := s.associations.Get(ctx, accountID)
	if !ok {
		return nil, ErrNoAssociation
	}

	wallet, err := s.custody.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if !wallet.Ready() || wallet.Address == "" {
		return nil, errors.Errorf("wallet %s is not ready", walletID)
	}

	return wallet, nil
}
