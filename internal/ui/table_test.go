package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableRender(t *testing.T) {
	tbl := NewTable([]Column{{Title: "NAME", Width: 6}, {Title: "VALUE", Width: 8}})
	tbl.AddRow(Row{"cost", "0.01"})
	tbl.AddRow(Row{"baseURI-long", "ipfs://x"})
	tbl.AddRow(Row{"short"})

	out := tbl.Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 5)
	assert.Contains(t, lines[0], "NAME")
	assert.Contains(t, lines[0], "VALUE")
	assert.Contains(t, lines[2], "cost")
	assert.Contains(t, lines[3], "baseU…", "long cells are cut with an ellipsis")
	assert.NotContains(t, lines[3], "baseURI-long")
	assert.Contains(t, lines[4], "short")
}

func TestFit(t *testing.T) {
	assert.Equal(t, "abc  ", fit("abc", 5))
	assert.Equal(t, "abcd…", fit("abcdefgh", 5))
	assert.Equal(t, "a", fit("abc", 1))
	assert.Equal(t, "", fit("abc", 0))
}

func TestKeyValueBlock(t *testing.T) {
	out := KeyValueBlock("Sale", [][2]string{{"Cost", "0.01 ETH"}, {"Owner", "0xabc"}})
	assert.Contains(t, out, "Sale")
	assert.Contains(t, out, "Cost:")
	assert.Contains(t, out, "0.01 ETH")
	assert.Contains(t, out, "0xabc")
}
