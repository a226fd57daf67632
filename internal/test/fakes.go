package test

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/opalhq/walletd/internal/chain"
	"github.com/opalhq/walletd/internal/custody"
	"github.com/opalhq/walletd/internal/identity"
)

// FakeIdentity is an in-memory stand-in for the identity provider.
type FakeIdentity struct {
	mu        sync.Mutex
	accounts  map[string]identity.Account // email -> account
	passwords map[string]string           // email -> password
	tokens    map[string]identity.Account // token -> account

	VerifyCalls atomic.Int64
}

func NewFakeIdentity() *FakeIdentity {
	return &FakeIdentity{
		accounts:  make(map[string]identity.Account),
		passwords: make(map[string]string),
		tokens:    make(map[string]identity.Account),
	}
}

func (f *FakeIdentity) Register(_ context.Context, email, password string) (*identity.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.accounts[email]; exists {
		return nil, &identity.ProviderError{StatusCode: 422, Message: "User already registered"}
	}

	account := identity.Account{ID: uuid.NewString(), Email: email}
	f.accounts[email] = account
	f.passwords[email] = password

	return &account, nil
}

func (f *FakeIdentity) Authenticate(_ context.Context, email, password string) (*identity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	account, exists := f.accounts[email]
	if !exists || f.passwords[email] != password {
		return nil, &identity.ProviderError{StatusCode: 400, Message: "Invalid login credentials"}
	}

	token := uuid.NewString()
	f.tokens[token] = account

	return &identity.Session{AccessToken: token, Account: account}, nil
}

func (f *FakeIdentity) Verify(_ context.Context, token string) (*identity.Account, bool) {
	f.VerifyCalls.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()

	account, ok := f.tokens[token]
	if !ok {
		return nil, false
	}

	return &account, true
}

// RevokeAll invalidates every issued token.
func (f *FakeIdentity) RevokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tokens = make(map[string]identity.Account)
}

// FakeCustody is an in-memory stand-in for the MPC wallet provider. It holds
// a real secp256k1 key per wallet so signatures attach and recover like the
// provider's would.
type FakeCustody struct {
	mu      sync.Mutex
	wallets map[string]*custody.Wallet
	keys    map[string]*ecdsa.PrivateKey

	// LegacyRecoveryID makes SignDigest return signatures with V of 27/28.
	LegacyRecoveryID bool

	ProvisionErr error
	SignErr      error

	ProvisionCalls atomic.Int64
	SignCalls      atomic.Int64
}

func NewFakeCustody() *FakeCustody {
	return &FakeCustody{
		wallets: make(map[string]*custody.Wallet),
		keys:    make(map[string]*ecdsa.PrivateKey),
	}
}

func (f *FakeCustody) Provision(_ context.Context, _ string) (*custody.Wallet, error) {
	f.ProvisionCalls.Add(1)

	if f.ProvisionErr != nil {
		return nil, f.ProvisionErr
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	wallet := &custody.Wallet{
		ID:      fmt.Sprintf("wallet-%d", len(f.wallets)+1),
		Status:  custody.StatusReady,
		Address: crypto.PubkeyToAddress(key.PublicKey).Hex(),
	}
	f.wallets[wallet.ID] = wallet
	f.keys[wallet.ID] = key

	return wallet, nil
}

func (f *FakeCustody) GetWallet(_ context.Context, walletID string) (*custody.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	wallet, ok := f.wallets[walletID]
	if !ok {
		return nil, &custody.ProviderError{StatusCode: 404, Message: "wallet not found"}
	}

	return wallet, nil
}

func (f *FakeCustody) SignDigest(_ context.Context, walletID, digestHex string) (string, error) {
	f.SignCalls.Add(1)

	if f.SignErr != nil {
		return "", f.SignErr
	}

	f.mu.Lock()
	key, ok := f.keys[walletID]
	f.mu.Unlock()
	if !ok {
		return "", &custody.ProviderError{StatusCode: 404, Message: "wallet not found"}
	}

	digest, err := hexutil.Decode(digestHex)
	if err != nil || len(digest) != 32 {
		return "", &custody.ProviderError{StatusCode: 400, Message: "digest must be 32 hex bytes"}
	}

	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return "", err
	}

	if f.LegacyRecoveryID {
		sig[64] += 27
	}

	return hexutil.Encode(sig), nil
}

// FakeChain is an in-memory chain reader/broadcaster.
type FakeChain struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	nonces   map[common.Address]uint64

	GasTipCap *big.Int
	GasFeeCap *big.Int

	BalanceErr   error
	NonceErr     error
	FeeErr       error
	BroadcastErr error

	Broadcasted []*types.Transaction

	Calls atomic.Int64
}

func NewFakeChain() *FakeChain {
	return &FakeChain{
		balances:  make(map[common.Address]*big.Int),
		nonces:    make(map[common.Address]uint64),
		GasTipCap: big.NewInt(1_000_000_000),
		GasFeeCap: big.NewInt(2_000_000_000),
	}
}

// SetBalance seeds the balance of an address.
func (f *FakeChain) SetBalance(address common.Address, wei *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.balances[address] = new(big.Int).Set(wei)
}

func (f *FakeChain) BalanceAt(_ context.Context, address common.Address) (*big.Int, error) {
	f.Calls.Add(1)

	if f.BalanceErr != nil {
		return nil, f.BalanceErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	balance, ok := f.balances[address]
	if !ok {
		return big.NewInt(0), nil
	}

	return new(big.Int).Set(balance), nil
}

func (f *FakeChain) PendingNonceAt(_ context.Context, address common.Address) (uint64, error) {
	f.Calls.Add(1)

	if f.NonceErr != nil {
		return 0, f.NonceErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.nonces[address], nil
}

func (f *FakeChain) EstimateFees(_ context.Context) (*chain.FeeEstimate, error) {
	f.Calls.Add(1)

	if f.FeeErr != nil {
		return nil, f.FeeErr
	}

	return &chain.FeeEstimate{
		GasTipCap: new(big.Int).Set(f.GasTipCap),
		GasFeeCap: new(big.Int).Set(f.GasFeeCap),
	}, nil
}

// BroadcastRaw decodes and sanity-checks the wire bytes like a node would,
// bumps the sender nonce and returns the decoded transaction's hash.
func (f *FakeChain) BroadcastRaw(_ context.Context, raw []byte) (common.Hash, error) {
	f.Calls.Add(1)

	if f.BroadcastErr != nil {
		return common.Hash{}, f.BroadcastErr
	}

	var tx types.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, errors.Wrap(err, "invalid wire bytes")
	}

	sender, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), &tx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "invalid signature")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nonces[sender]++
	f.Broadcasted = append(f.Broadcasted, &tx)

	return tx.Hash(), nil
}
