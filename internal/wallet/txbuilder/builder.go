// Package txbuilder builds unsigned EIP-1559 transactions, computes the
// digest a remote signer must sign over, and reattaches the returned
// signature into a broadcastable transaction.
//
// The digest is the hash of the serialized unsigned transaction payload
// (keccak256 over 0x02 || rlp(unsigned fields)), which is NOT the value of
// the transaction's own Hash method. Sending the wrong hash upstream yields
// a cryptographically valid signature over the wrong payload, so the digest
// and the reattachment both operate on one and the same transaction object.
package txbuilder

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// ErrSignerMismatch means the sender recovered from the attached signature
// is not the expected wallet address: either the remote signer signed a
// different digest, or the transaction drifted between digesting and
// reattachment. Never expected in correct operation.
var ErrSignerMismatch = errors.New("txbuilder: recovered signer does not match sender address")

// Params are the fields of an unsigned EIP-1559 value transfer. All numeric
// fields must reflect chain state fetched immediately before building.
type Params struct {
	ChainID   int64
	Nonce     uint64
	To        common.Address
	Value     *big.Int // wei
	GasLimit  uint64
	GasTipCap *big.Int // max priority fee per gas, wei
	GasFeeCap *big.Int // max fee per gas, wei
	Data      []byte   // empty for plain transfers
}

// UnsignedTx pins one transaction object together with its signer so digest
// computation and signature reattachment cannot diverge.
type UnsignedTx struct {
	tx     *types.Transaction
	signer types.Signer
}

// Build assembles the unsigned transaction after validating the parameters.
func Build(p Params) (*UnsignedTx, error) {
	if p.ChainID <= 0 {
		return nil, errors.New("chain id must be positive")
	}
	if p.Value == nil || p.Value.Sign() < 0 {
		return nil, errors.New("value must be a non-negative amount in wei")
	}
	if p.GasLimit == 0 {
		return nil, errors.New("gas limit must be positive")
	}
	if p.GasTipCap == nil || p.GasTipCap.Sign() < 0 {
		return nil, errors.New("max priority fee per gas must be non-negative")
	}
	if p.GasFeeCap == nil || p.GasFeeCap.Sign() < 0 {
		return nil, errors.New("max fee per gas must be non-negative")
	}
	if p.GasFeeCap.Cmp(p.GasTipCap) < 0 {
		return nil, errors.New("max fee per gas must not be below max priority fee per gas")
	}

	chainID := big.NewInt(p.ChainID)
	to := p.To

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     p.Nonce,
		GasTipCap: p.GasTipCap,
		GasFeeCap: p.GasFeeCap,
		Gas:       p.GasLimit,
		To:        &to,
		Value:     p.Value,
		Data:      p.Data,
	})

	return &UnsignedTx{
		tx:     tx,
		signer: types.NewLondonSigner(chainID),
	}, nil
}

// Digest returns the signing hash: keccak256 over the canonical serialization
// of the unsigned transaction. This exact value goes to the remote signer.
func (u *UnsignedTx) Digest() common.Hash {
	return u.signer.Hash(u.tx)
}

// Attach reattaches a 65-byte {R || S || V} signature (V in {0, 1}) to the
// same transaction object the digest was computed over and verifies that the
// recovered sender matches the expected wallet address.
func (u *UnsignedTx) Attach(sig []byte, from common.Address) (*types.Transaction, error) {
	signed, err := u.tx.WithSignature(u.signer, sig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to attach signature")
	}

	recovered, err := types.Sender(u.signer, signed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to recover signer")
	}
	if recovered != from {
		return nil, ErrSignerMismatch
	}

	return signed, nil
}

// DecodeSignature parses the provider's hex signature into the 65-byte
// {R || S || V} form Attach expects, normalizing a legacy V of 27/28 to 0/1.
func DecodeSignature(sigHex string) ([]byte, error) {
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return nil, errors.Wrap(err, "signature is not valid hex")
	}
	if len(sig) != 65 {
		return nil, errors.Errorf("signature must be 65 bytes, got %d", len(sig))
	}

	if sig[64] == 27 || sig[64] == 28 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return nil, errors.Errorf("invalid recovery id %d", sig[64])
	}

	return sig, nil
}

// ValidateAddress parses a 0x-prefixed recipient address. All-lowercase and
// all-uppercase hex is accepted as-is; mixed-case input must carry a valid
// EIP-55 checksum.
func ValidateAddress(s string) (common.Address, error) {
	if !strings.HasPrefix(s, "0x") {
		return common.Address{}, errors.New("address must start with 0x")
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.New("address must be 20 hex bytes")
	}

	addr := common.HexToAddress(s)

	hexPart := s[2:]
	hasLower := strings.ContainsAny(hexPart, "abcdef")
	hasUpper := strings.ContainsAny(hexPart, "ABCDEF")
	if hasLower && hasUpper && addr.Hex() != s {
		return common.Address{}, errors.New("address checksum mismatch")
	}

	return addr, nil
}
