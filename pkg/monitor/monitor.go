// Package monitor polls the target chain for a submitted transaction's
// receipt and classifies the outcome.
package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/hashdesk/intent-engine/pkg/logger"
	"github.com/hashdesk/intent-engine/pkg/models"
	"github.com/hashdesk/intent-engine/pkg/pipeerr"
)

const (
	// DefaultTimeout bounds one confirmation attempt. Whether further
	// attempts happen is the orchestrator's decision, not this package's.
	DefaultTimeout = 2 * time.Minute
	// pollInterval is the receipt polling cadence within one attempt.
	pollInterval = 2 * time.Second
)

// ReceiptSource is the subset of an RPC client the monitor needs. Satisfied
// by *ethclient.Client.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Status classifies a monitored transaction.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Outcome is the monitor's terminal result.
type Outcome struct {
	Status  Status
	Receipt *types.Receipt
}

// Monitor performs single bounded confirmation attempts.
type Monitor struct {
	sourceFor func(chainID int) (ReceiptSource, error)
	timeout   time.Duration
	logger    logger.Logger
}

// New creates a monitor. timeout <= 0 uses DefaultTimeout.
func New(sourceFor func(chainID int) (ReceiptSource, error), timeout time.Duration, log logger.Logger) *Monitor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Monitor{sourceFor: sourceFor, timeout: timeout, logger: log}
}

// Confirm waits for op's submitted transaction to be mined and classifies
// the result. This is one bounded attempt, not a retry loop.
func (m *Monitor) Confirm(ctx context.Context, op *models.NormalizedOperation, result *models.ExecutionResult) (*Outcome, error) {
	if op == nil {
		return nil, pipeerr.New(pipeerr.PhaseMonitor, pipeerr.CodeMissingNorm, "no normalized operation")
	}
	if op.Kind != models.KindNativeTransfer && op.Kind != models.KindERC20Transfer {
		return nil, pipeerr.Newf(pipeerr.PhaseMonitor, pipeerr.CodeInvalidOperation, "unexpected operation kind %q", op.Kind)
	}
	if result == nil || result.TxHash == (common.Hash{}) {
		return nil, pipeerr.New(pipeerr.PhaseMonitor, pipeerr.CodeMissingHash, "no transaction hash to monitor")
	}

	source, err := m.sourceFor(op.ChainID)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.PhaseMonitor, pipeerr.CodeMonitor, "no chain client for receipt polling", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	receipt, err := m.waitReceipt(waitCtx, source, result.TxHash)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.PhaseMonitor, pipeerr.CodeMonitor, "confirmation attempt failed", err)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		m.logger.ErrorWithChain(op.ChainID, "transaction %s reverted in block %d", result.TxHash.Hex(), receipt.BlockNumber.Uint64())
		return &Outcome{Status: StatusFailed, Receipt: receipt},
			pipeerr.Newf(pipeerr.PhaseMonitor, pipeerr.CodeTxFailed, "transaction %s reverted", result.TxHash.Hex())
	}

	m.logger.InfoWithChain(op.ChainID, "transaction %s confirmed in block %d (gas used %d)",
		result.TxHash.Hex(), receipt.BlockNumber.Uint64(), receipt.GasUsed)
	return &Outcome{Status: StatusConfirmed, Receipt: receipt}, nil
}

func (m *Monitor) waitReceipt(ctx context.Context, source ReceiptSource, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := source.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
