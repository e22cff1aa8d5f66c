// Package router is the pipeline's decision core: it picks among direct
// on-chain calls, fee-entrypoint routing and aggregator-routed execution,
// and submits through the signer matching the account mode.
package router

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hashdesk/intent-engine/pkg/aggregator"
	"github.com/hashdesk/intent-engine/pkg/contracts"
	"github.com/hashdesk/intent-engine/pkg/dedup"
	"github.com/hashdesk/intent-engine/pkg/logger"
	"github.com/hashdesk/intent-engine/pkg/models"
	"github.com/hashdesk/intent-engine/pkg/notify"
	"github.com/hashdesk/intent-engine/pkg/pipeerr"
	"github.com/hashdesk/intent-engine/pkg/registry"
)

// Route names the execution path taken, for logging and metrics.
type Route string

const (
	RouteDirect     Route = "direct"
	RouteEntrypoint Route = "entrypoint"
	RouteAggregator Route = "aggregator"
)

// Config carries the static feature flags that drive route selection.
// Selection is evaluated at execution time, not earlier, because it also
// depends on live on-chain allowance state.
type Config struct {
	// EntrypointEnabled turns on fee-entrypoint routing for chains that
	// have an entrypoint contract configured.
	EntrypointEnabled bool
	// Entrypoints maps chain ID to the fee-collecting entrypoint contract.
	Entrypoints map[int]common.Address
	// AggregatorEnabled turns on aggregator-routed execution.
	AggregatorEnabled bool
	// SlippageBps is the default slippage for routed operations.
	SlippageBps int
	// SettleDelay is the pause after an aggregator-demanded approval lands.
	SettleDelay time.Duration
}

// ChainProbe reports the wallet's currently active chain, for the
// execute-time mismatch re-check.
type ChainProbe interface {
	ActiveChainID(ctx context.Context) (int, error)
}

// Router executes validated, chain-synchronized operations.
type Router struct {
	registry  *registry.Registry
	cfg       Config
	guard     *dedup.Store
	callerFor func(chainID int) (contracts.Caller, error)
	agg       aggregator.Preparer
	probe     ChainProbe
	sink      notify.Sink
	logger    logger.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// New creates a router.
func New(reg *registry.Registry, cfg Config, guard *dedup.Store, callerFor func(chainID int) (contracts.Caller, error), agg aggregator.Preparer, probe ChainProbe, sink notify.Sink, log logger.Logger) *Router {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = time.Second
	}
	if sink == nil {
		sink = notify.NullSink{}
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Router{
		registry:  reg,
		cfg:       cfg,
		guard:     guard,
		callerFor: callerFor,
		agg:       agg,
		probe:     probe,
		sink:      sink,
		logger:    log,
		sleep:     sleepCtx,
	}
}

// Execute drives one operation to submission and returns the transaction
// hash paired with its explorer link. Nothing in here retries
// automatically; every failure is terminal for the run.
func (r *Router) Execute(ctx context.Context, op *models.NormalizedOperation, acct *models.AccountContext, ownerID string) (*models.ExecutionResult, error) {
	if op == nil {
		return nil, pipeerr.New(pipeerr.PhaseExecute, pipeerr.CodeMissingNorm, "no normalized operation")
	}
	if op.Kind != models.KindNativeTransfer && op.Kind != models.KindERC20Transfer {
		return nil, pipeerr.Newf(pipeerr.PhaseExecute, pipeerr.CodeInvalidOperation, "unexpected operation kind %q", op.Kind)
	}
	if op.AmountWei == nil || op.AmountWei.Sign() <= 0 {
		return nil, pipeerr.New(pipeerr.PhaseExecute, pipeerr.CodeInvalidOperation, "operation amount must be positive")
	}
	// Non-routed transfers must carry a real recipient; routed operations
	// default it to the sender inside the aggregator request.
	if !op.Routed() && op.To == (common.Address{}) {
		return nil, pipeerr.New(pipeerr.PhaseExecute, pipeerr.CodeInvalidOperation, "transfer recipient is the zero address")
	}

	chain, ok := r.registry.Get(op.ChainID)
	if !ok {
		return nil, pipeerr.Newf(pipeerr.PhaseExecute, pipeerr.CodeChainConfigMissing, "chain %d is not configured", op.ChainID)
	}

	// Fail closed if the believed-successful chain switch did not stick.
	active, err := r.probe.ActiveChainID(ctx)
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.PhaseExecute, pipeerr.CodeExecution, "could not read active chain", err)
	}
	if active != op.ChainID {
		return nil, pipeerr.Newf(pipeerr.PhaseExecute, pipeerr.CodeChainMismatch,
			"wallet is on chain %d but operation requires %s (%d)", active, chain.Name, op.ChainID)
	}

	// Account-mode gate. Smart accounts need a ready signer-capable
	// client; EOAs need send capability plus a selected address.
	if !acct.Ready() {
		return nil, pipeerr.New(pipeerr.PhaseExecute, pipeerr.CodeAuthRequired, "no signer-capable account connected")
	}

	if err := r.guard.Check(ownerID, op); err != nil {
		return nil, err
	}

	var hash common.Hash
	route := r.selectRoute(op)
	r.logger.InfoWithChain(op.ChainID, "executing %s via %s route (amount %s)", op.Kind, route, op.AmountWei.String())

	switch route {
	case RouteAggregator:
		hash, err = r.executeAggregator(ctx, op, acct)
	case RouteEntrypoint:
		hash, err = r.executeEntrypoint(ctx, op, acct)
	default:
		hash, err = r.executeDirect(ctx, op, acct)
	}
	if err != nil {
		return nil, pipeerr.Wrap(pipeerr.PhaseExecute, pipeerr.CodeExecution, "transaction submission failed", err)
	}

	result := &models.ExecutionResult{
		TxHash:      hash,
		ExplorerURL: chain.ExplorerTxURL(hash),
	}
	r.sink.Post(notify.Message{
		Kind:        notify.KindSuccess,
		Text:        fmt.Sprintf("Transaction submitted on %s.", chain.Name),
		ExplorerURL: result.ExplorerURL,
	})
	return result, nil
}

// selectRoute picks exactly one of the three mutually exclusive paths.
func (r *Router) selectRoute(op *models.NormalizedOperation) Route {
	if op.Routed() {
		return RouteAggregator
	}
	if r.cfg.EntrypointEnabled {
		if _, ok := r.cfg.Entrypoints[op.ChainID]; ok {
			return RouteEntrypoint
		}
	}
	return RouteDirect
}

// executeDirect submits a plain value transfer or a standard ERC-20
// transfer call. No approval is ever needed on this path.
func (r *Router) executeDirect(ctx context.Context, op *models.NormalizedOperation, acct *models.AccountContext) (common.Hash, error) {
	switch op.Kind {
	case models.KindNativeTransfer:
		return acct.Sender.SendTransaction(ctx, models.TxRequest{
			From:  acct.Address,
			To:    op.To,
			Value: op.AmountWei,
		})
	default:
		data, err := contracts.PackTransfer(op.To, op.AmountWei)
		if err != nil {
			return common.Hash{}, fmt.Errorf("pack transfer calldata: %v", err)
		}
		return acct.Sender.SendTransaction(ctx, models.TxRequest{
			From: acct.Address,
			To:   op.Token.Address,
			Data: data,
		})
	}
}

// executeEntrypoint wraps the transfer through the fee-collecting
// entrypoint contract, managing the ERC-20 allowance first when needed.
func (r *Router) executeEntrypoint(ctx context.Context, op *models.NormalizedOperation, acct *models.AccountContext) (common.Hash, error) {
	entrypoint := r.cfg.Entrypoints[op.ChainID]

	if op.Kind == models.KindNativeTransfer {
		data, err := contracts.PackEntrypointNative(op.To)
		if err != nil {
			return common.Hash{}, fmt.Errorf("pack entrypoint call: %v", err)
		}
		return acct.Sender.SendTransaction(ctx, models.TxRequest{
			From:  acct.Address,
			To:    entrypoint,
			Value: op.AmountWei,
			Data:  data,
		})
	}

	if err := r.ensureAllowance(ctx, op, acct, entrypoint); err != nil {
		return common.Hash{}, err
	}

	data, err := contracts.PackEntrypointToken(op.Token.Address, op.To, op.AmountWei)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack entrypoint call: %v", err)
	}
	return acct.Sender.SendTransaction(ctx, models.TxRequest{
		From: acct.Address,
		To:   entrypoint,
		Data: data,
	})
}

// ensureAllowance brings the entrypoint's spending allowance up to the
// required amount. A nonzero stale allowance is reset to zero first, then a
// fresh approval for the exact amount is submitted. Each approval is a full
// submit-and-wait; the transfer's correctness depends on it having landed.
func (r *Router) ensureAllowance(ctx context.Context, op *models.NormalizedOperation, acct *models.AccountContext, spender common.Address) error {
	caller, err := r.callerFor(op.ChainID)
	if err != nil {
		return fmt.Errorf("no chain client for allowance check: %v", err)
	}

	current, err := contracts.Allowance(ctx, caller, op.Token.Address, acct.Address, spender)
	if err != nil {
		return fmt.Errorf("allowance check failed: %v", err)
	}
	if current.Cmp(op.AmountWei) >= 0 {
		r.logger.DebugWithChain(op.ChainID, "allowance %s sufficient for %s, skipping approval", current.String(), op.AmountWei.String())
		return nil
	}

	// Reset a stale nonzero allowance before re-approving. Some tokens
	// reject non-zero to non-zero changes, and the reset also closes an
	// allowance-race class.
	if current.Sign() > 0 {
		if err := r.approveAndWait(ctx, op, acct, op.Token.Address, spender, big.NewInt(0)); err != nil {
			return fmt.Errorf("allowance reset failed: %v", err)
		}
	}

	if err := r.approveAndWait(ctx, op, acct, op.Token.Address, spender, op.AmountWei); err != nil {
		return fmt.Errorf("approval failed: %v", err)
	}
	return nil
}

func (r *Router) approveAndWait(ctx context.Context, op *models.NormalizedOperation, acct *models.AccountContext, token, spender common.Address, amount *big.Int) error {
	data, err := contracts.PackApprove(spender, amount)
	if err != nil {
		return fmt.Errorf("pack approve calldata: %v", err)
	}
	hash, err := acct.Sender.SendTransaction(ctx, models.TxRequest{
		From: acct.Address,
		To:   token,
		Data: data,
	})
	if err != nil {
		return err
	}
	receipt, err := acct.Sender.WaitMined(ctx, hash)
	if err != nil {
		return fmt.Errorf("approval %s not mined: %v", hash.Hex(), err)
	}
	if receipt.Status == 0 {
		return fmt.Errorf("approval transaction %s reverted", hash.Hex())
	}
	r.logger.DebugWithChain(op.ChainID, "approval %s mined (amount %s)", hash.Hex(), amount.String())
	return nil
}

// executeAggregator hands the operation to the external preparation service
// and submits the returned transaction, satisfying any approval requirement
// first.
func (r *Router) executeAggregator(ctx context.Context, op *models.NormalizedOperation, acct *models.AccountContext) (common.Hash, error) {
	if !r.cfg.AggregatorEnabled || r.agg == nil {
		return common.Hash{}, pipeerr.New(pipeerr.PhaseExecute, pipeerr.CodeInvalidOperation, "routed operation but aggregator execution is disabled")
	}

	req := aggregator.PrepareRequest{
		FromChainID: op.ChainID,
		ToChainID:   op.DestChainID,
		AmountWei:   op.AmountWei,
		FromAddress: acct.Address,
		ToAddress:   op.To,
		SlippageBps: r.cfg.SlippageBps,
	}
	if req.ToChainID == 0 {
		req.ToChainID = op.ChainID
	}
	if op.Token != nil {
		req.FromToken = op.Token.Address
	}
	if op.DestToken != nil {
		req.ToToken = op.DestToken.Address
	}

	prep, err := r.agg.Prepare(ctx, req)
	if err != nil {
		return common.Hash{}, fmt.Errorf("aggregator preparation failed: %v", err)
	}

	if prep.Approval != nil {
		// The requirement names its own token; honor it rather than
		// assuming it matches the operation's source token.
		if err := r.approveAndWait(ctx, op, acct, prep.Approval.Token, prep.Approval.Spender, prep.Approval.Amount); err != nil {
			return common.Hash{}, err
		}
		if err := r.sleep(ctx, r.cfg.SettleDelay); err != nil {
			return common.Hash{}, err
		}
	}

	return acct.Sender.SendTransaction(ctx, models.TxRequest{
		From:  acct.Address,
		To:    prep.Tx.To,
		Value: prep.Tx.Value,
		Data:  prep.Tx.Data,
	})
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
func (r *Router) SetSleep(f func(ctx context.Context, d time.Duration) error) { r.sleep = f }
