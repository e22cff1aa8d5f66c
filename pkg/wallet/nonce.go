package wallet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// nonceSyncInterval bounds how stale the local nonce view may get before it
// is re-read from the chain.
const nonceSyncInterval = 5 * time.Minute

// NonceTracker allocates transaction nonces for one account on one chain.
// It keeps a local counter so back-to-back submissions within a pipeline run
// (approve, then transfer) never reuse a nonce, and periodically re-syncs
// with the chain's pending nonce.
type NonceTracker struct {
	mu       sync.Mutex
	current  uint64
	lastSync time.Time
}

// NewNonceTracker creates an unsynced tracker; the first Next call syncs.
func NewNonceTracker() *NonceTracker {
	return &NonceTracker{}
}

// Next reserves and returns the next available nonce.
func (t *NonceTracker) Next(ctx context.Context, client *ethclient.Client, address common.Address) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lastSync.IsZero() || time.Since(t.lastSync) > nonceSyncInterval {
		pending, err := client.PendingNonceAt(ctx, address)
		if err != nil {
			return 0, fmt.Errorf("failed to get pending nonce: %v", err)
		}
		if pending > t.current {
			t.current = pending
		}
		t.lastSync = time.Now()
	}

	nonce := t.current
	t.current++
	return nonce, nil
}

// Release returns a nonce after a failed submission so the next transaction
// can reuse it. Only the most recently allocated nonce can be released.
func (t *NonceTracker) Release(nonce uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nonce+1 {
		t.current = nonce
	}
}

// Resync forces the tracker to re-read the pending nonce on the next Next.
func (t *NonceTracker) Resync() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSync = time.Time{}
}
