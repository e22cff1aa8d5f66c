// Package simulate dry-runs a normalized operation before any gas is spent.
// A failure here always surfaces; nothing is silently swallowed.
package simulate

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/hashdesk/intent-engine/pkg/contracts"
	"github.com/hashdesk/intent-engine/pkg/logger"
	"github.com/hashdesk/intent-engine/pkg/models"
	"github.com/hashdesk/intent-engine/pkg/pipeerr"
)

// Backend is the subset of an RPC client the simulator needs. Satisfied by
// *ethclient.Client.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// Result records a successful dry run.
type Result struct {
	Mode        models.AccountMode
	GasEstimate uint64
	SimulatedAt time.Time
}

// Simulator resolves a backend per chain and performs non-broadcasting
// dry runs.
type Simulator struct {
	backendFor func(chainID int) (Backend, error)
	logger     logger.Logger
	now        func() time.Time
}

// New creates a simulator. backendFor supplies the RPC client for a chain.
func New(backendFor func(chainID int) (Backend, error), log logger.Logger) *Simulator {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Simulator{backendFor: backendFor, logger: log, now: time.Now}
}

// Simulate dry-runs op from the sender address appropriate to the account
// mode. For routed operations only the source-side spend is checked; the
// aggregator validates its own calldata at preparation time.
func (s *Simulator) Simulate(ctx context.Context, op *models.NormalizedOperation, from common.Address, mode models.AccountMode) (*Result, error) {
	if op == nil {
		return nil, pipeerr.New(pipeerr.PhaseSimulate, pipeerr.CodeMissingNorm, "no normalized operation")
	}

	backend, err := s.backendFor(op.ChainID)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.PhaseSimulate, pipeerr.CodeChainConfigMissing, "no backend for chain", err)
	}

	msg, err := callMessage(op, from)
	if err != nil {
		return nil, err
	}

	if _, err := backend.CallContract(ctx, msg, nil); err != nil {
		return nil, classify(err)
	}
	gas, err := backend.EstimateGas(ctx, msg)
	if err != nil {
		return nil, classify(err)
	}

	s.logger.DebugWithChain(op.ChainID, "simulation ok, gas estimate %d (%s)", gas, mode)
	return &Result{Mode: mode, GasEstimate: gas, SimulatedAt: s.now()}, nil
}

func callMessage(op *models.NormalizedOperation, from common.Address) (ethereum.CallMsg, error) {
	to := op.To
	if op.Routed() && to == (common.Address{}) {
		// Routed operations default the recipient to the sender; the real
		// submission is aggregator calldata. The source-side dry run must
		// mirror that, not target the zero address.
		to = from
	}
	switch op.Kind {
	case models.KindNativeTransfer:
		return ethereum.CallMsg{From: from, To: &to, Value: op.AmountWei}, nil
	case models.KindERC20Transfer:
		if op.Token == nil {
			return ethereum.CallMsg{}, pipeerr.New(pipeerr.PhaseSimulate, pipeerr.CodeInvalidOperation, "erc20 transfer without token")
		}
		data, err := contracts.PackTransfer(to, op.AmountWei)
		if err != nil {
			return ethereum.CallMsg{}, pipeerr.Wrap(pipeerr.PhaseSimulate, pipeerr.CodeSimulation, "pack transfer calldata", err)
		}
		token := op.Token.Address
		return ethereum.CallMsg{From: from, To: &token, Data: data}, nil
	default:
		return ethereum.CallMsg{}, pipeerr.Newf(pipeerr.PhaseSimulate, pipeerr.CodeInvalidOperation, "cannot simulate operation kind %q", op.Kind)
	}
}

// classify maps RPC failures onto the simulation error codes.
func classify(err error) *pipeerr.Error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "insufficient funds") || strings.Contains(msg, "insufficient balance"):
		return pipeerr.Wrap(pipeerr.PhaseSimulate, pipeerr.CodeSimInsufficient, "dry run reports insufficient balance", err)
	case strings.Contains(msg, "execution reverted") || strings.Contains(msg, "gas required exceeds allowance"):
		return pipeerr.Wrap(pipeerr.PhaseSimulate, pipeerr.CodeSimWouldRevert, "dry run reverted", err)
	default:
		return pipeerr.Wrap(pipeerr.PhaseSimulate, pipeerr.CodeSimulation, "dry run failed", err)
	}
}
