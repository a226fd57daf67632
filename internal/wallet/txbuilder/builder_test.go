package txbuilder_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opalhq/walletd/internal/wallet/txbuilder"
)

// referenceDigest independently computes keccak256(0x02 || rlp(chainId,
// nonce, tipCap, feeCap, gas, to, value, data, accessList)), the canonical
// signing payload of an EIP-1559 transaction, without going through the
// builder under test.
func referenceDigest(t *testing.T, p txbuilder.Params) common.Hash {
	t.Helper()

	encoded, err := rlp.EncodeToBytes([]interface{}{
		big.NewInt(p.ChainID),
		p.Nonce,
		p.GasTipCap,
		p.GasFeeCap,
		p.GasLimit,
		p.To,
		p.Value,
		p.Data,
		types.AccessList{},
	})
	require.NoError(t, err)

	return crypto.Keccak256Hash(append([]byte{types.DynamicFeeTxType}, encoded...))
}

func sepoliaTransfer() txbuilder.Params {
	return txbuilder.Params{
		ChainID:   11155111,
		Nonce:     0,
		To:        common.HexToAddress("0x0000000000000000000000000000000000000000"),
		Value:     big.NewInt(0),
		GasLimit:  21000,
		GasTipCap: big.NewInt(1_000_000_000),
		GasFeeCap: big.NewInt(1_000_000_000),
	}
}

func TestDigestMatchesReferenceVectors(t *testing.T) {
	vectors := []struct {
		name   string
		params txbuilder.Params
	}{
		{"sepolia zero-value transfer", sepoliaTransfer()},
		{
			"mainnet transfer with value and nonce",
			txbuilder.Params{
				ChainID:   1,
				Nonce:     7,
				To:        common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"),
				Value:     big.NewInt(1_500_000_000_000_000_000),
				GasLimit:  21000,
				GasTipCap: big.NewInt(2_000_000_000),
				GasFeeCap: big.NewInt(60_000_000_000),
			},
		},
		{
			"transfer with payload",
			txbuilder.Params{
				ChainID:   137,
				Nonce:     42,
				To:        common.HexToAddress("0x000000000000000000000000000000000000dEaD"),
				Value:     big.NewInt(1),
				GasLimit:  50000,
				GasTipCap: big.NewInt(30_000_000_000),
				GasFeeCap: big.NewInt(200_000_000_000),
				Data:      []byte{0xca, 0xfe},
			},
		},
	}

	for _, v := range vectors {
		t.Run(v.name, func(t *testing.T) {
			unsigned, err := txbuilder.Build(v.params)
			require.NoError(t, err)

			assert.Equal(t, referenceDigest(t, v.params), unsigned.Digest())
		})
	}
}

// The transaction's own Hash method covers the full payload including the
// (empty) signature fields. Submitting it upstream instead of the signing
// digest would produce a valid-looking signature over the wrong payload.
func TestDigestIsNotTheTransactionHash(t *testing.T) {
	params := sepoliaTransfer()

	unsigned, err := txbuilder.Build(params)
	require.NoError(t, err)

	chainID := big.NewInt(params.ChainID)
	to := params.To
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     params.Nonce,
		GasTipCap: params.GasTipCap,
		GasFeeCap: params.GasFeeCap,
		Gas:       params.GasLimit,
		To:        &to,
		Value:     params.Value,
	})

	assert.NotEqual(t, tx.Hash(), unsigned.Digest())
}

func TestDigestIsDeterministic(t *testing.T) {
	unsigned, err := txbuilder.Build(sepoliaTransfer())
	require.NoError(t, err)

	assert.Equal(t, unsigned.Digest(), unsigned.Digest())
}

func TestAttachRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	params := txbuilder.Params{
		ChainID:   11155111,
		Nonce:     3,
		To:        common.HexToAddress("0x000000000000000000000000000000000000dEaD"),
		Value:     big.NewInt(123456789),
		GasLimit:  21000,
		GasTipCap: big.NewInt(1_000_000_000),
		GasFeeCap: big.NewInt(3_000_000_000),
	}

	unsigned, err := txbuilder.Build(params)
	require.NoError(t, err)

	digest := unsigned.Digest()
	sig, err := crypto.Sign(digest[:], key)
	require.NoError(t, err)

	signed, err := unsigned.Attach(sig, from)
	require.NoError(t, err)

	raw, err := signed.MarshalBinary()
	require.NoError(t, err)

	var decoded types.Transaction
	require.NoError(t, decoded.UnmarshalBinary(raw))

	assert.Equal(t, uint8(types.DynamicFeeTxType), decoded.Type())
	assert.Zero(t, decoded.ChainId().Cmp(big.NewInt(params.ChainID)))
	assert.Equal(t, params.Nonce, decoded.Nonce())
	assert.Equal(t, params.To, *decoded.To())
	assert.Zero(t, decoded.Value().Cmp(params.Value))
	assert.Equal(t, params.GasLimit, decoded.Gas())
	assert.Zero(t, decoded.GasTipCap().Cmp(params.GasTipCap))
	assert.Zero(t, decoded.GasFeeCap().Cmp(params.GasFeeCap))
	assert.Empty(t, decoded.Data())

	recovered, err := types.Sender(types.NewLondonSigner(big.NewInt(params.ChainID)), &decoded)
	require.NoError(t, err)
	assert.Equal(t, from, recovered)
}

func TestAttachRejectsForeignSignature(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	unsigned, err := txbuilder.Build(sepoliaTransfer())
	require.NoError(t, err)

	digest := unsigned.Digest()
	sig, err := crypto.Sign(digest[:], otherKey)
	require.NoError(t, err)

	_, err = unsigned.Attach(sig, crypto.PubkeyToAddress(key.PublicKey))
	require.ErrorIs(t, err, txbuilder.ErrSignerMismatch)
}

func TestDecodeSignatureNormalizesLegacyRecoveryID(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	unsigned, err := txbuilder.Build(sepoliaTransfer())
	require.NoError(t, err)

	digest := unsigned.Digest()
	sig, err := crypto.Sign(digest[:], key)
	require.NoError(t, err)

	// re-encode with a legacy 27/28 recovery id, as some providers return
	legacy := make([]byte, 65)
	copy(legacy, sig)
	legacy[64] += 27

	decoded, err := txbuilder.DecodeSignature("0x" + common.Bytes2Hex(legacy))
	require.NoError(t, err)
	assert.Equal(t, sig, decoded)

	signed, err := unsigned.Attach(decoded, crypto.PubkeyToAddress(key.PublicKey))
	require.NoError(t, err)
	assert.NotNil(t, signed)
}

func TestDecodeSignatureRejectsMalformedInput(t *testing.T) {
	_, err := txbuilder.DecodeSignature("not-hex")
	require.Error(t, err)

	_, err = txbuilder.DecodeSignature("0xdeadbeef")
	require.Error(t, err)

	bad := make([]byte, 65)
	bad[64] = 5
	_, err = txbuilder.DecodeSignature("0x" + common.Bytes2Hex(bad))
	require.Error(t, err)
}

func TestBuildValidation(t *testing.T) {
	valid := sepoliaTransfer()

	p := valid
	p.Value = big.NewInt(-1)
	_, err := txbuilder.Build(p)
	require.Error(t, err)

	p = valid
	p.Value = nil
	_, err = txbuilder.Build(p)
	require.Error(t, err)

	p = valid
	p.ChainID = 0
	_, err = txbuilder.Build(p)
	require.Error(t, err)

	p = valid
	p.GasLimit = 0
	_, err = txbuilder.Build(p)
	require.Error(t, err)

	p = valid
	p.GasFeeCap = big.NewInt(1)
	p.GasTipCap = big.NewInt(2)
	_, err = txbuilder.Build(p)
	require.Error(t, err)
}

func TestValidateAddress(t *testing.T) {
	// all-lowercase is accepted without checksum verification
	addr, err := txbuilder.ValidateAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"), addr)

	// mixed-case must pass the EIP-55 checksum
	_, err = txbuilder.ValidateAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.NoError(t, err)

	// one flipped character breaks the checksum
	_, err = txbuilder.ValidateAddress("0x5aaeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.Error(t, err)

	_, err = txbuilder.ValidateAddress("5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	require.Error(t, err)

	_, err = txbuilder.ValidateAddress("0x1234")
	require.Error(t, err)
}
