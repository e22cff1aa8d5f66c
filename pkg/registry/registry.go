// Package registry is the static chain lookup table: chain ID to native
// currency metadata, RPC endpoint and block explorer base URL.
package registry

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
)

// EthereumChainID is the default active chain for fresh sessions.
const EthereumChainID = 1

// ChainInfo describes one supported chain.
type ChainInfo struct {
	ChainID         int
	Name            string
	NativeSymbol    string
	NativeDecimals  uint8
	RPCURL          string
	ExplorerBaseURL string
}

// ExplorerTxURL builds the deterministic explorer link for a transaction.
func (c ChainInfo) ExplorerTxURL(hash common.Hash) string {
	return fmt.Sprintf("%s/tx/%s", c.ExplorerBaseURL, hash.Hex())
}

// defaults lists the supported mainnet chains. RPC URLs can be overridden
// per chain with <NAME>_RPC_URL environment variables.
var defaults = []ChainInfo{
	{ChainID: 1, Name: "ETHEREUM", NativeSymbol: "ETH", NativeDecimals: 18, RPCURL: "https://eth.llamarpc.com", ExplorerBaseURL: "https://etherscan.io"},
	{ChainID: 137, Name: "POLYGON", NativeSymbol: "POL", NativeDecimals: 18, RPCURL: "https://polygon-rpc.com", ExplorerBaseURL: "https://polygonscan.com"},
	{ChainID: 42161, Name: "ARBITRUM", NativeSymbol: "ETH", NativeDecimals: 18, RPCURL: "https://arb1.arbitrum.io/rpc", ExplorerBaseURL: "https://arbiscan.io"},
	{ChainID: 43114, Name: "AVALANCHE", NativeSymbol: "AVAX", NativeDecimals: 18, RPCURL: "https://avalanche-c-chain-rpc.publicnode.com", ExplorerBaseURL: "https://snowtrace.io"},
	{ChainID: 56, Name: "BSC", NativeSymbol: "BNB", NativeDecimals: 18, RPCURL: "https://bsc-dataseed.bnbchain.org", ExplorerBaseURL: "https://bscscan.com"},
	{ChainID: 8453, Name: "BASE", NativeSymbol: "ETH", NativeDecimals: 18, RPCURL: "https://mainnet.base.org", ExplorerBaseURL: "https://basescan.org"},
	{ChainID: 7000, Name: "ZETACHAIN", NativeSymbol: "ZETA", NativeDecimals: 18, RPCURL: "https://zetachain-evm.blockpi.network/v1/rpc/public", ExplorerBaseURL: "https://zetachain.blockscout.com"},
}

// Registry resolves chain metadata by chain ID.
type Registry struct {
	chains map[int]ChainInfo
}

// New creates a registry from an explicit chain list.
func New(chains []ChainInfo) *Registry {
	m := make(map[int]ChainInfo, len(chains))
	for _, c := range chains {
		m[c.ChainID] = c
	}
	return &Registry{chains: m}
}

// Default creates a registry with the supported mainnet chains, applying
// <NAME>_RPC_URL environment overrides.
func Default() *Registry {
	chains := make([]ChainInfo, 0, len(defaults))
	for _, c := range defaults {
		if rpc := os.Getenv(c.Name + "_RPC_URL"); rpc != "" {
			c.RPCURL = rpc
		}
		chains = append(chains, c)
	}
	return New(chains)
}

// Get returns the chain info for a chain ID.
func (r *Registry) Get(chainID int) (ChainInfo, bool) {
	c, ok := r.chains[chainID]
	return c, ok
}

// Name returns the display name for a chain ID, or an empty string.
func (r *Registry) Name(chainID int) string {
	return r.chains[chainID].Name
}

// ChainIDs returns all registered chain IDs.
func (r *Registry) ChainIDs() []int {
	ids := make([]int, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	return ids
}
