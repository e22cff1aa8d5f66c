package pipeline

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hashdesk/intent-engine/pkg/models"
	"github.com/hashdesk/intent-engine/pkg/monitor"
	"github.com/hashdesk/intent-engine/pkg/pipeerr"
	"github.com/hashdesk/intent-engine/pkg/simulate"
)

// Phase enumerates the state machine's states.
type Phase int

const (
	PhaseNormalize Phase = iota
	PhaseSimulate
	PhaseExecute
	PhaseMonitor
	// PhaseTokenSelection is the recoverable branch: the run is parked
	// until the caller resumes it with a concrete token id.
	PhaseTokenSelection
	// PhaseDone is the terminal success state (MONITOR.OK).
	PhaseDone
	// PhaseHalted is the terminal failure state; no further phase runs.
	PhaseHalted
)

func (p Phase) String() string {
	switch p {
	case PhaseNormalize:
		return "NORMALIZE"
	case PhaseSimulate:
		return "SIMULATE"
	case PhaseExecute:
		return "EXECUTE"
	case PhaseMonitor:
		return "MONITOR"
	case PhaseTokenSelection:
		return "TOKEN_SELECTION"
	case PhaseDone:
		return "DONE"
	case PhaseHalted:
		return "HALTED"
	default:
		return fmt.Sprintf("PHASE(%d)", int(p))
	}
}

// EventKind is a phase's terminal sub-transition.
type EventKind int

const (
	EventOK EventKind = iota
	EventFail
	EventTokenSelection
)

// Event is the result a phase effect feeds back into the machine.
type Event struct {
	Phase Phase
	Kind  EventKind
	Err   *pipeerr.Error
	// DestSelection marks a token-selection event as concerning the
	// destination side of a routed intent.
	DestSelection bool
	Candidates    []models.Token
}

// Transition is the pure state transition function. Failures are terminal:
// no phase is ever silently retried.
func Transition(current Phase, ev Event) Phase {
	if ev.Phase != current {
		return PhaseHalted
	}
	switch ev.Kind {
	case EventFail:
		return PhaseHalted
	case EventTokenSelection:
		if current == PhaseNormalize {
			return PhaseTokenSelection
		}
		return PhaseHalted
	}
	switch current {
	case PhaseNormalize:
		return PhaseSimulate
	case PhaseSimulate:
		return PhaseExecute
	case PhaseExecute:
		return PhaseMonitor
	case PhaseMonitor:
		return PhaseDone
	default:
		return PhaseHalted
	}
}

// State is the context object one pipeline run accumulates. It is owned
// exclusively by that run and never shared.
type State struct {
	RunID   string
	Phase   Phase
	Intent  *models.Intent
	Account *models.AccountContext
	OwnerID string
	// WalletChainID is the wallet's active chain when the run started; it
	// doubles as the preferred chain for token resolution.
	WalletChainID int

	Norm    *models.NormalizedOperation
	Sim     *simulate.Result
	Exec    *models.ExecutionResult
	Outcome *monitor.Outcome

	// ChainSwitched prevents repeating the switch sequence when
	// normalization is re-entered after token disambiguation.
	ChainSwitched bool

	Failure    *pipeerr.Error
	Candidates []models.Token
	// SelectingDest records which side of a routed intent the pending
	// token selection applies to, so Resume fills the matching field.
	SelectingDest bool
}

// NewState starts a fresh run context at NORMALIZE.
func NewState(intent *models.Intent, acct *models.AccountContext, ownerID string, walletChainID int) *State {
	return &State{
		RunID:         uuid.NewString(),
		Phase:         PhaseNormalize,
		Intent:        intent,
		Account:       acct,
		OwnerID:       ownerID,
		WalletChainID: walletChainID,
	}
}

// Terminal reports whether the run has reached a terminal state.
func (s *State) Terminal() bool {
	return s.Phase == PhaseDone || s.Phase == PhaseHalted
}
