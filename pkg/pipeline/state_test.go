package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hashdesk/intent-engine/pkg/models"
	"github.com/hashdesk/intent-engine/pkg/pipeerr"
)

func TestTransitionHappyPath(t *testing.T) {
	tests := []struct {
		from Phase
		want Phase
	}{
		{from: PhaseNormalize, want: PhaseSimulate},
		{from: PhaseSimulate, want: PhaseExecute},
		{from: PhaseExecute, want: PhaseMonitor},
		{from: PhaseMonitor, want: PhaseDone},
	}

	for _, tc := range tests {
		t.Run(tc.from.String(), func(t *testing.T) {
			got := Transition(tc.from, Event{Phase: tc.from, Kind: EventOK})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTransitionFailureIsTerminal(t *testing.T) {
	for _, phase := range []Phase{PhaseNormalize, PhaseSimulate, PhaseExecute, PhaseMonitor} {
		t.Run(phase.String(), func(t *testing.T) {
			ev := Event{Phase: phase, Kind: EventFail, Err: pipeerr.New(pipeerr.PhaseExecute, pipeerr.CodeExecution, "boom")}
			assert.Equal(t, PhaseHalted, Transition(phase, ev), "any phase failure halts the run")
		})
	}
}

func TestTransitionTokenSelection(t *testing.T) {
	got := Transition(PhaseNormalize, Event{Phase: PhaseNormalize, Kind: EventTokenSelection})
	assert.Equal(t, PhaseTokenSelection, got)

	// The recoverable branch only exists out of normalization.
	got = Transition(PhaseSimulate, Event{Phase: PhaseSimulate, Kind: EventTokenSelection})
	assert.Equal(t, PhaseHalted, got)
}

func TestTransitionRejectsMismatchedEvent(t *testing.T) {
	// An event from a different phase than the machine is in can only mean
	// a driver bug; the machine refuses to guess.
	got := Transition(PhaseSimulate, Event{Phase: PhaseExecute, Kind: EventOK})
	assert.Equal(t, PhaseHalted, got)
}

func TestTransitionTerminalStatesAbsorb(t *testing.T) {
	assert.Equal(t, PhaseHalted, Transition(PhaseDone, Event{Phase: PhaseDone, Kind: EventOK}))
	assert.Equal(t, PhaseHalted, Transition(PhaseHalted, Event{Phase: PhaseHalted, Kind: EventOK}))
}

func TestNewState(t *testing.T) {
	intent := &models.Intent{Action: models.ActionTransfer, Amount: "1"}
	st := NewState(intent, nil, "owner-1", 137)

	assert.NotEmpty(t, st.RunID)
	assert.Equal(t, PhaseNormalize, st.Phase)
	assert.Equal(t, 137, st.WalletChainID)
	assert.False(t, st.Terminal())

	other := NewState(intent, nil, "owner-1", 137)
	assert.NotEqual(t, st.RunID, other.RunID, "every run gets a fresh id")
}

func TestTerminal(t *testing.T) {
	st := &State{Phase: PhaseDone}
	assert.True(t, st.Terminal())
	st.Phase = PhaseHalted
	assert.True(t, st.Terminal())
	st.Phase = PhaseTokenSelection
	assert.False(t, st.Terminal(), "a parked run can still be resumed")
}
