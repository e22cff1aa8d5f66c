// Package pipeline is the orchestrator: an explicit state machine whose
// driver loop invokes each phase's abortable effect and feeds the result
// back as an event. Every failure is terminal for the run; resumption is a
// fresh run (or a token-selection resume) initiated by the caller.
package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hashdesk/intent-engine/pkg/chainsync"
	"github.com/hashdesk/intent-engine/pkg/logger"
	"github.com/hashdesk/intent-engine/pkg/metrics"
	"github.com/hashdesk/intent-engine/pkg/models"
	"github.com/hashdesk/intent-engine/pkg/monitor"
	"github.com/hashdesk/intent-engine/pkg/normalize"
	"github.com/hashdesk/intent-engine/pkg/pipeerr"
	"github.com/hashdesk/intent-engine/pkg/router"
	"github.com/hashdesk/intent-engine/pkg/simulate"
)

// Pipeline wires the phase components together.
type Pipeline struct {
	normalizer *normalize.Normalizer
	sync       *chainsync.Synchronizer
	simulator  *simulate.Simulator
	router     *router.Router
	monitor    *monitor.Monitor
	logger     logger.Logger
}

// New creates a pipeline.
func New(n *normalize.Normalizer, cs *chainsync.Synchronizer, sim *simulate.Simulator, r *router.Router, m *monitor.Monitor, log logger.Logger) *Pipeline {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Pipeline{normalizer: n, sync: cs, simulator: sim, router: r, monitor: m, logger: log}
}

// Run drives a state from NORMALIZE to a terminal state. It returns nil for
// MONITOR.OK and for the token-selection park; a halted run returns its
// failure. If ctx is cancelled while a phase is in flight, the state is left
// unchanged: no transition is dispatched after cancellation.
func (p *Pipeline) Run(ctx context.Context, st *State) error {
	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	for {
		switch st.Phase {
		case PhaseDone:
			metrics.PipelineRuns.WithLabelValues("success").Inc()
			return nil
		case PhaseHalted:
			metrics.PipelineRuns.WithLabelValues("failed").Inc()
			if st.Failure == nil {
				// Halted without a recorded failure means a phase/event
				// mismatch; a nil *pipeerr.Error must not escape as error.
				return pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeInvalidAction,
					"run %s halted without a recorded failure", st.RunID)
			}
			return st.Failure
		case PhaseTokenSelection:
			metrics.TokenSelections.Inc()
			return nil
		}

		started := time.Now()
		ev := p.step(ctx, st)
		metrics.PhaseDuration.WithLabelValues(st.Phase.String()).Observe(time.Since(started).Seconds())

		// Cancellation safety: a partially-completed phase must not emit
		// contradictory results once the signal has fired.
		if ctx.Err() != nil {
			p.logger.Debug("run %s cancelled during %s, no transition dispatched", st.RunID, st.Phase)
			metrics.PipelineRuns.WithLabelValues("cancelled").Inc()
			return ctx.Err()
		}

		if ev.Kind == EventFail {
			st.Failure = ev.Err
			metrics.PhaseFailures.WithLabelValues(string(ev.Err.Phase), string(ev.Err.Code)).Inc()
			if ev.Err.Code == pipeerr.CodeDuplicateTx {
				metrics.DuplicateRejections.Inc()
			}
			p.logger.Error("run %s halted at %s: %v", st.RunID, st.Phase, ev.Err)
		}
		if ev.Kind == EventTokenSelection {
			st.Candidates = ev.Candidates
			st.SelectingDest = ev.DestSelection
		}

		st.Phase = Transition(st.Phase, ev)
	}
}

// Resume re-enters a run parked at TOKEN_SELECTION with the caller's chosen
// concrete token. The ChainSwitched flag survives, so the switch sequence
// does not repeat.
func (p *Pipeline) Resume(ctx context.Context, st *State, tokenID string) error {
	if st.Phase != PhaseTokenSelection {
		return pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeInvalidAction,
			"run %s is in %s, not awaiting token selection", st.RunID, st.Phase)
	}
	resolved := *st.Intent
	if st.SelectingDest {
		resolved.ToTokenID = tokenID
	} else {
		resolved.TokenID = tokenID
	}
	st.Intent = &resolved
	st.Candidates = nil
	st.SelectingDest = false
	st.Phase = PhaseNormalize
	return p.Run(ctx, st)
}

// step executes the effect for the state's current phase and converts its
// outcome into an event. No error ever escapes a phase boundary as anything
// other than a *.FAIL event, except the recoverable token-selection signal.
func (p *Pipeline) step(ctx context.Context, st *State) Event {
	switch st.Phase {
	case PhaseNormalize:
		return p.stepNormalize(ctx, st)
	case PhaseSimulate:
		return p.stepSimulate(ctx, st)
	case PhaseExecute:
		return p.stepExecute(ctx, st)
	case PhaseMonitor:
		return p.stepMonitor(ctx, st)
	default:
		return Event{Phase: st.Phase, Kind: EventFail,
			Err: pipeerr.Newf(pipeerr.PhaseNormalize, pipeerr.CodeInvalidAction, "no effect for phase %s", st.Phase)}
	}
}

// stepNormalize resolves the intent and then aligns the wallet chain with
// the operation's required chain.
func (p *Pipeline) stepNormalize(ctx context.Context, st *State) Event {
	op, err := p.normalizer.Normalize(st.Intent, st.WalletChainID)
	if err != nil {
		if tse, ok := normalize.IsTokenSelection(err); ok {
			p.logger.Info("run %s needs token disambiguation among %d candidates", st.RunID, len(tse.Candidates))
			return Event{Phase: PhaseNormalize, Kind: EventTokenSelection, DestSelection: tse.Dest, Candidates: tse.Candidates}
		}
		return Event{Phase: PhaseNormalize, Kind: EventFail,
			Err: pipeerr.Wrap(pipeerr.PhaseNormalize, pipeerr.CodeNormalize, "normalization failed", err)}
	}
	st.Norm = op

	mode := models.ModeEOA
	if st.Account != nil {
		mode = st.Account.Mode
	}
	switched, err := p.sync.Sync(ctx, op.ChainID, mode, st.ChainSwitched)
	if err != nil {
		return Event{Phase: PhaseNormalize, Kind: EventFail,
			Err: pipeerr.Wrap(pipeerr.PhaseChainSync, pipeerr.CodeChainSwitchFailed, "chain switch failed", err)}
	}
	if switched {
		st.ChainSwitched = true
		st.WalletChainID = op.ChainID
		metrics.ChainSwitches.WithLabelValues(strconv.Itoa(op.ChainID)).Inc()
	}
	return Event{Phase: PhaseNormalize, Kind: EventOK}
}

func (p *Pipeline) stepSimulate(ctx context.Context, st *State) Event {
	from := common.Address{}
	mode := models.ModeEOA
	if st.Account != nil {
		from = st.Account.Address
		mode = st.Account.Mode
	}
	sim, err := p.simulator.Simulate(ctx, st.Norm, from, mode)
	if err != nil {
		return Event{Phase: PhaseSimulate, Kind: EventFail,
			Err: pipeerr.Wrap(pipeerr.PhaseSimulate, pipeerr.CodeSimulation, "simulation failed", err)}
	}
	st.Sim = sim
	return Event{Phase: PhaseSimulate, Kind: EventOK}
}

func (p *Pipeline) stepExecute(ctx context.Context, st *State) Event {
	result, err := p.router.Execute(ctx, st.Norm, st.Account, st.OwnerID)
	if err != nil {
		return Event{Phase: PhaseExecute, Kind: EventFail,
			Err: pipeerr.Wrap(pipeerr.PhaseExecute, pipeerr.CodeExecution, "execution failed", err)}
	}
	st.Exec = result
	return Event{Phase: PhaseExecute, Kind: EventOK}
}

func (p *Pipeline) stepMonitor(ctx context.Context, st *State) Event {
	outcome, err := p.monitor.Confirm(ctx, st.Norm, st.Exec)
	if outcome != nil {
		st.Outcome = outcome
	}
	if err != nil {
		return Event{Phase: PhaseMonitor, Kind: EventFail,
			Err: pipeerr.Wrap(pipeerr.PhaseMonitor, pipeerr.CodeMonitor, "confirmation failed", err)}
	}
	return Event{Phase: PhaseMonitor, Kind: EventOK}
}
