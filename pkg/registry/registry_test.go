package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryChains(t *testing.T) {
	reg := Default()

	tests := []struct {
		chainID      int
		name         string
		nativeSymbol string
	}{
		{chainID: 1, name: "ETHEREUM", nativeSymbol: "ETH"},
		{chainID: 137, name: "POLYGON", nativeSymbol: "POL"},
		{chainID: 42161, name: "ARBITRUM", nativeSymbol: "ETH"},
		{chainID: 8453, name: "BASE", nativeSymbol: "ETH"},
		{chainID: 7000, name: "ZETACHAIN", nativeSymbol: "ZETA"},
	}

	for _, tc := range tests {
		info, ok := reg.Get(tc.chainID)
		require.True(t, ok, "chain %d should be configured", tc.chainID)
		assert.Equal(t, tc.name, info.Name)
		assert.Equal(t, tc.nativeSymbol, info.NativeSymbol)
		assert.NotEmpty(t, info.RPCURL)
		assert.NotEmpty(t, info.ExplorerBaseURL)
	}
}

func TestGetUnknownChain(t *testing.T) {
	reg := Default()
	_, ok := reg.Get(99999)
	assert.False(t, ok)
	assert.Empty(t, reg.Name(99999))
}

func TestExplorerTxURLDeterministic(t *testing.T) {
	reg := Default()
	info, ok := reg.Get(8453)
	require.True(t, ok)

	hash := common.HexToHash("0xabc1230000000000000000000000000000000000000000000000000000000000")
	url := info.ExplorerTxURL(hash)
	assert.Equal(t, "https://basescan.org/tx/"+hash.Hex(), url)
}

func TestRPCURLEnvOverride(t *testing.T) {
	t.Setenv("POLYGON_RPC_URL", "http://localhost:8545")

	reg := Default()
	info, ok := reg.Get(137)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:8545", info.RPCURL)
}

func TestCustomRegistry(t *testing.T) {
	reg := New([]ChainInfo{{ChainID: 31337, Name: "ANVIL", NativeSymbol: "ETH", NativeDecimals: 18}})

	assert.Equal(t, []int{31337}, reg.ChainIDs())
	_, ok := reg.Get(1)
	assert.False(t, ok, "custom registry should not inherit defaults")
}
