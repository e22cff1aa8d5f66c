package normalize

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hashdesk/intent-engine/pkg/models"
)

// Catalog resolves token references (symbols, nicknames) to concrete
// chain-qualified tokens.
type Catalog interface {
	// Lookup returns every known token matching the reference. When
	// preferredChainID is nonzero, tokens on that chain are tried first and
	// returned alone if the reference is unambiguous there.
	Lookup(ref string, preferredChainID int) []models.Token
	// ByID resolves a concrete token id from a disambiguated resubmission.
	ByID(id string) (models.Token, bool)
}

// StaticCatalog is an in-memory catalog keyed by lowercase symbol and alias.
type StaticCatalog struct {
	tokens  []models.Token
	aliases map[string][]int
	byID    map[string]int
}

var _ Catalog = (*StaticCatalog)(nil)

// NewStaticCatalog indexes the given tokens by id, symbol and aliases.
func NewStaticCatalog(tokens []models.Token, aliases map[string][]string) *StaticCatalog {
	c := &StaticCatalog{
		tokens:  tokens,
		aliases: make(map[string][]int),
		byID:    make(map[string]int),
	}
	for i, tok := range tokens {
		c.byID[tok.ID] = i
		key := strings.ToLower(tok.Symbol)
		c.aliases[key] = append(c.aliases[key], i)
	}
	for alias, ids := range aliases {
		key := strings.ToLower(alias)
		for _, id := range ids {
			if i, ok := c.byID[id]; ok {
				c.aliases[key] = append(c.aliases[key], i)
			}
		}
	}
	return c
}

func (c *StaticCatalog) Lookup(ref string, preferredChainID int) []models.Token {
	indices, ok := c.aliases[strings.ToLower(strings.TrimSpace(ref))]
	if !ok {
		return nil
	}

	var all, preferred []models.Token
	for _, i := range indices {
		tok := c.tokens[i]
		all = append(all, tok)
		if tok.ChainID == preferredChainID {
			preferred = append(preferred, tok)
		}
	}
	// A single match on the preferred chain wins outright.
	if len(preferred) == 1 {
		return preferred
	}
	return all
}

func (c *StaticCatalog) ByID(id string) (models.Token, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Token{}, false
	}
	return c.tokens[i], true
}

// DefaultCatalog returns the built-in stablecoin catalog covering the
// registry's mainnet chains.
func DefaultCatalog() *StaticCatalog {
	mk := func(id string, chainID int, addr, symbol string, decimals uint8) models.Token {
		return models.Token{
			ID:       id,
			ChainID:  chainID,
			Address:  common.HexToAddress(addr),
			Symbol:   symbol,
			Decimals: decimals,
			Verified: true,
		}
	}
	tokens := []models.Token{
		mk("usdc-1", 1, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "USDC", 6),
		mk("usdc-137", 137, "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", "USDC", 6),
		mk("usdc-42161", 42161, "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", "USDC", 6),
		mk("usdc-43114", 43114, "0xb97ef9ef8734c71904d8002f8b6bc66dd9c48a6e", "USDC", 6),
		mk("usdc-56", 56, "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d", "USDC", 18),
		mk("usdc-7000", 7000, "0x0cbe0dF132a6c6B4a2974Fa1b7Fb953CF0Cc798a", "USDC", 6),
		mk("usdc-8453", 8453, "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", "USDC", 6),
		mk("usdt-1", 1, "0xdAC17F958D2ee523a2206206994597C13D831ec7", "USDT", 6),
		mk("usdt-137", 137, "0xc2132D05D31c914a87C6611C10748AEb04B58e8F", "USDT", 6),
		mk("usdt-42161", 42161, "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", "USDT", 6),
		mk("usdt-43114", 43114, "0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7", "USDT", 6),
		mk("usdt-56", 56, "0x55d398326f99059fF775485246999027B3197955", "USDT", 18),
		mk("usdt-7000", 7000, "0x7c8dDa80bbBE1254a7aACf3219EBe1481c6E01d7", "USDT", 6),
		mk("usdt-8453", 8453, "0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb", "USDT", 6),
	}
	aliases := map[string][]string{
		"tether": {"usdt-1", "usdt-137", "usdt-42161", "usdt-43114", "usdt-56", "usdt-7000", "usdt-8453"},
	}
	return NewStaticCatalog(tokens, aliases)
}
