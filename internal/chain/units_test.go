package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// ParseEther / ParseAmount / FormatEther
// ---------------------------------------------------------------------------

func TestParseEther(t *testing.T) {
	cases := map[string]string{
		"0.01":                 "10000000000000000",
		"1":                    "1000000000000000000",
		"0":                    "0",
		"0.000000000000000001": "1",
		" 2.5 ":                "2500000000000000000",
	}
	for in, want := range cases {
		got, err := ParseEther(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.String(), in)
	}
}

func TestParseEtherRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "0.0000000000000000001"} {
		_, err := ParseEther(in)
		assert.Error(t, err, in)
	}
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("0.02eth")
	require.NoError(t, err)
	assert.Equal(t, "20000000000000000", got.String())

	got, err = ParseAmount("500wei")
	require.NoError(t, err)
	assert.Equal(t, int64(500), got.Int64())

	got, err = ParseAmount("1 ether")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", got.String())

	_, err = ParseAmount("-5wei")
	assert.Error(t, err)
}

func TestFormatEther(t *testing.T) {
	assert.Equal(t, "0.01", FormatEther(big.NewInt(10_000_000_000_000_000)))
	assert.Equal(t, "1", FormatEther(big.NewInt(1_000_000_000_000_000_000)))
	assert.Equal(t, "0.000000000000000001", FormatEther(big.NewInt(1)))
	assert.Equal(t, "0", FormatEther(new(big.Int)))
	assert.Equal(t, "0", FormatEther(nil))
}

func TestFormatParseRoundTrip(t *testing.T) {
	wei, _ := new(big.Int).SetString("123456789012345678901", 10)
	back, err := ParseEther(FormatEther(wei))
	require.NoError(t, err)
	assert.Equal(t, 0, wei.Cmp(back))
}

func TestWeiToGwei(t *testing.T) {
	assert.InDelta(t, 1.5, WeiToGwei(big.NewInt(1_500_000_000)), 1e-9)
	assert.Equal(t, float64(0), WeiToGwei(nil))
}
