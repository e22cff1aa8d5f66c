package chainsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashdesk/intent-engine/pkg/models"
	"github.com/hashdesk/intent-engine/pkg/pipeerr"
	"github.com/hashdesk/intent-engine/pkg/registry"
)

// fakeBridge records the switch sequence and can fail either step.
type fakeBridge struct {
	active          int
	activeErr       error
	setErr          error
	walletErr       error
	setCalls       int
	walletCalls    int
	walletSwitched []int
}

func (b *fakeBridge) ActiveChainID(_ context.Context) (int, error) {
	return b.active, b.activeErr
}

func (b *fakeBridge) SetActiveChain(_ context.Context, chainID int) error {
	b.setCalls++
	if b.setErr != nil {
		return b.setErr
	}
	b.active = chainID
	return nil
}

func (b *fakeBridge) RequestWalletSwitch(_ context.Context, chainID int) error {
	b.walletCalls++
	b.walletSwitched = append(b.walletSwitched, chainID)
	return b.walletErr
}

func newTestSync(bridge *fakeBridge) *Synchronizer {
	s := New(bridge, registry.Default(), time.Millisecond, nil)
	s.SetSleep(func(_ context.Context, _ time.Duration) error { return nil })
	return s
}

func TestSyncNoSwitchWhenAligned(t *testing.T) {
	bridge := &fakeBridge{active: 137}
	s := newTestSync(bridge)

	switched, err := s.Sync(context.Background(), 137, models.ModeEOA, false)
	require.NoError(t, err)
	assert.False(t, switched)
	assert.Zero(t, bridge.setCalls)
	assert.Zero(t, bridge.walletCalls)
}

func TestSyncSwitchSequenceEOA(t *testing.T) {
	bridge := &fakeBridge{active: 1}
	s := newTestSync(bridge)

	switched, err := s.Sync(context.Background(), 8453, models.ModeEOA, false)
	require.NoError(t, err)
	assert.True(t, switched)
	assert.Equal(t, 8453, bridge.active)
	assert.Equal(t, []int{8453}, bridge.walletSwitched, "EOA mode asks the wallet itself to move")
}

func TestSyncSmartAccountSkipsWalletSwitch(t *testing.T) {
	bridge := &fakeBridge{active: 1}
	s := newTestSync(bridge)

	switched, err := s.Sync(context.Background(), 8453, models.ModeSmartAccount, false)
	require.NoError(t, err)
	assert.True(t, switched)
	assert.Zero(t, bridge.walletCalls, "smart accounts are chain-agnostic at the signer level")
}

func TestSyncUISwitchFailureIsFatal(t *testing.T) {
	bridge := &fakeBridge{active: 1, setErr: errors.New("store update rejected")}
	s := newTestSync(bridge)

	switched, err := s.Sync(context.Background(), 8453, models.ModeEOA, false)
	require.Error(t, err)
	assert.False(t, switched)
	assert.Equal(t, pipeerr.CodeChainSwitchFailed, pipeerr.CodeOf(err))
}

func TestSyncWalletSwitchFailureIsBestEffort(t *testing.T) {
	bridge := &fakeBridge{active: 1, walletErr: errors.New("user rejected")}
	s := newTestSync(bridge)

	switched, err := s.Sync(context.Background(), 8453, models.ModeEOA, false)
	require.NoError(t, err, "a wallet-level refusal is logged, not fatal")
	assert.True(t, switched)
}

func TestSyncAlreadySwitchedDoesNotRepeat(t *testing.T) {
	// The wallet still reports the old chain, but this run already switched
	// once: the sequence must not loop. The execute-time re-check decides.
	bridge := &fakeBridge{active: 1}
	s := newTestSync(bridge)

	switched, err := s.Sync(context.Background(), 8453, models.ModeEOA, true)
	require.NoError(t, err)
	assert.False(t, switched)
	assert.Zero(t, bridge.setCalls)
}

func TestSyncCancelledDuringSettle(t *testing.T) {
	bridge := &fakeBridge{active: 1}
	s := New(bridge, registry.Default(), time.Millisecond, nil)
	s.SetSleep(func(ctx context.Context, _ time.Duration) error { return context.Canceled })

	_, err := s.Sync(context.Background(), 8453, models.ModeEOA, false)
	require.Error(t, err)
	assert.Equal(t, pipeerr.CodeChainSwitchFailed, pipeerr.CodeOf(err))
}

func TestSyncBridgeReadFailure(t *testing.T) {
	bridge := &fakeBridge{activeErr: errors.New("session gone")}
	s := newTestSync(bridge)

	_, err := s.Sync(context.Background(), 1, models.ModeEOA, false)
	require.Error(t, err)
	assert.Equal(t, pipeerr.CodeChainSwitchFailed, pipeerr.CodeOf(err))
}
