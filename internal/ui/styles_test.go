package ui

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ---------------------------------------------------------------------------
// TruncateAddr
// ---------------------------------------------------------------------------

func TestTruncateAddr(t *testing.T) {
	assert.Equal(t, "0x1234…5678", TruncateAddr("0x1234000000000000000000000000000000005678"))
	assert.Equal(t, "0xabc", TruncateAddr("0xabc"))
	assert.Equal(t, "", TruncateAddr(""))
}

// ---------------------------------------------------------------------------
// Ether
// ---------------------------------------------------------------------------

func TestEther(t *testing.T) {
	wei, _ := new(big.Int).SetString("10000000000000000", 10)
	assert.Equal(t, "0.01 ETH", Ether(wei, ""))
	assert.Equal(t, "0.01 POL", Ether(wei, "POL"))
	assert.Equal(t, "0 ETH", Ether(nil, "ETH"))
}

// ---------------------------------------------------------------------------
// message helpers
// ---------------------------------------------------------------------------

func TestMessageHelpers(t *testing.T) {
	assert.Contains(t, Success("done"), "done")
	assert.Contains(t, Warn("careful"), "careful")
	assert.Contains(t, Err("broken"), "broken")
	assert.Contains(t, Info("fyi"), "fyi")
	assert.Contains(t, Hint("try this"), "try this")
	assert.Contains(t, Banner(), "nftsale")
}

func TestPadR(t *testing.T) {
	assert.Equal(t, "ab   ", padR("ab", 5))
	assert.Equal(t, "abcdef", padR("abcdef", 3))
	// multi-byte runes count as one cell
	assert.Equal(t, 4, len([]rune(padR("…", 4))))
	assert.True(t, strings.HasPrefix(padR("x", 2), "x"))
}
