package units_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opalhq/walletd/internal/wallet/units"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		amount  string
		wantWei string
		wantErr bool
	}{
		{amount: "0", wantWei: "0"},
		{amount: "1", wantWei: "1000000000000000000"},
		{amount: "0.5", wantWei: "500000000000000000"},
		{amount: "1.5", wantWei: "1500000000000000000"},
		// smallest representable unit round-trips exactly
		{amount: "0.000000000000000001", wantWei: "1"},
		{amount: "123456.789012345678901234", wantWei: "123456789012345678901234"},
		{amount: "-0.1", wantErr: true},
		{amount: "-1", wantErr: true},
		{amount: "abc", wantErr: true},
		{amount: "", wantErr: true},
		{amount: "1.2.3", wantErr: true},
		// more fractional digits than wei can represent
		{amount: "0.0000000000000000001", wantErr: true},
		// exponent notation is not a human decimal string
		{amount: "1e9", wantErr: true},
		{amount: "1E-18", wantErr: true},
		{amount: "2.5e3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			wei, err := units.ParseAmount(tt.amount)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			want, ok := new(big.Int).SetString(tt.wantWei, 10)
			require.True(t, ok)
			assert.Zero(t, wei.Cmp(want))
		})
	}
}

func TestFormatWei(t *testing.T) {
	assert.Equal(t, "0", units.FormatWei(big.NewInt(0)))
	assert.Equal(t, "0.000000000000000001", units.FormatWei(big.NewInt(1)))
	assert.Equal(t, "1.5", units.FormatWei(big.NewInt(1_500_000_000_000_000_000)))

	big1, ok := new(big.Int).SetString("123456789012345678901234", 10)
	require.True(t, ok)
	assert.Equal(t, "123456.789012345678901234", units.FormatWei(big1))
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, amount := range []string{"0", "0.000000000000000001", "42.000000000000000123"} {
		wei, err := units.ParseAmount(amount)
		require.NoError(t, err)
		assert.Equal(t, amount, units.FormatWei(wei))
	}
}
