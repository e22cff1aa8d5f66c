// Package chainsync aligns the wallet's active chain with the chain an
// operation requires before the pipeline is allowed to proceed.
package chainsync

import (
	"context"
	"time"

	"github.com/hashdesk/intent-engine/pkg/logger"
	"github.com/hashdesk/intent-engine/pkg/models"
	"github.com/hashdesk/intent-engine/pkg/pipeerr"
	"github.com/hashdesk/intent-engine/pkg/registry"
)

// DefaultSettleDelay is how long to wait for a chain switch to propagate
// through dependent state before the pipeline continues.
const DefaultSettleDelay = time.Second

// WalletBridge is the pipeline's view of the surrounding wallet/UI layer.
type WalletBridge interface {
	// ActiveChainID returns the chain the wallet session currently targets.
	ActiveChainID(ctx context.Context) (int, error)
	// SetActiveChain changes the UI-level active chain. A failure here is
	// fatal for the run.
	SetActiveChain(ctx context.Context, chainID int) error
	// RequestWalletSwitch asks the connected wallet itself to change
	// network. Best effort; only meaningful for externally-owned accounts.
	RequestWalletSwitch(ctx context.Context, chainID int) error
}

// Synchronizer performs the switch sequence.
type Synchronizer struct {
	bridge   WalletBridge
	registry *registry.Registry
	settle   time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	logger   logger.Logger
}

// New creates a synchronizer. settle <= 0 uses DefaultSettleDelay.
func New(bridge WalletBridge, reg *registry.Registry, settle time.Duration, log logger.Logger) *Synchronizer {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Synchronizer{
		bridge:   bridge,
		registry: reg,
		settle:   settle,
		sleep:    sleepCtx,
		logger:   log,
	}
}

// Sync ensures the wallet is on requiredChainID. alreadySwitched is the
// per-run flag that keeps the sequence idempotent when normalization is
// re-entered after token disambiguation. It returns whether a switch was
// performed during this call.
func (s *Synchronizer) Sync(ctx context.Context, requiredChainID int, mode models.AccountMode, alreadySwitched bool) (bool, error) {
	active, err := s.bridge.ActiveChainID(ctx)
	if err != nil {
		return false, pipeerr.Wrap(pipeerr.PhaseChainSync, pipeerr.CodeChainSwitchFailed, "could not read active chain", err)
	}
	if active == requiredChainID {
		return false, nil
	}
	if alreadySwitched {
		// The switch already ran once during this pipeline run; if the
		// wallet still disagrees the router's execute-time re-check will
		// refuse with CHAIN_MISMATCH rather than looping here.
		return false, nil
	}

	name := s.registry.Name(requiredChainID)
	s.logger.InfoWithChain(requiredChainID, "switching active chain %d -> %d", active, requiredChainID)

	if err := s.bridge.SetActiveChain(ctx, requiredChainID); err != nil {
		return false, pipeerr.Wrap(pipeerr.PhaseChainSync, pipeerr.CodeChainSwitchFailed,
			"could not switch to "+name, err)
	}

	// Smart accounts are chain-agnostic at the signer level; only EOAs need
	// the wallet itself to move.
	if mode == models.ModeEOA {
		if err := s.bridge.RequestWalletSwitch(ctx, requiredChainID); err != nil {
			s.logger.ErrorWithChain(requiredChainID, "wallet network switch request failed: %v", err)
		}
	}

	if err := s.sleep(ctx, s.settle); err != nil {
		return false, pipeerr.Wrap(pipeerr.PhaseChainSync, pipeerr.CodeChainSwitchFailed, "cancelled while settling", err)
	}
	return true, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SetSleep overrides the settle wait, for tests.
func (s *Synchronizer) SetSleep(f func(ctx context.Context, d time.Duration) error) {
	s.sleep = f
}
