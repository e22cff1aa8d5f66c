package wallet

import (
	"context"
	"sync"
)

// LocalBridge is an in-process wallet bridge for engine-held keys. The active
// chain is plain state here: switching selects which per-chain signer the
// engine uses, so a wallet-level switch request always succeeds.
type LocalBridge struct {
	mu     sync.Mutex
	active int
}

// NewLocalBridge creates a bridge starting on the given chain.
func NewLocalBridge(initialChainID int) *LocalBridge {
	return &LocalBridge{active: initialChainID}
}

// ActiveChainID returns the currently selected chain.
func (b *LocalBridge) ActiveChainID(_ context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active, nil
}

// SetActiveChain selects the chain.
func (b *LocalBridge) SetActiveChain(_ context.Context, chainID int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = chainID
	return nil
}

// RequestWalletSwitch selects the chain. Engine-held keys have no external
// wallet to ask.
func (b *LocalBridge) RequestWalletSwitch(_ context.Context, chainID int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = chainID
	return nil
}
