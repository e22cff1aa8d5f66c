// Package models holds the data types exchanged between pipeline phases.
package models

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Action is the user-level action parsed from a command.
type Action string

const (
	ActionTransfer   Action = "transfer"
	ActionSwap       Action = "swap"
	ActionBridge     Action = "bridge"
	ActionBridgeSwap Action = "bridge_swap"
)

// Intent is the loosely-typed user request produced by command parsing.
// It is immutable once produced and consumed exactly once by the normalizer;
// the only fields a caller may set afterwards are TokenID and ToTokenID,
// when resubmitting after token disambiguation.
type Intent struct {
	Action      Action `json:"action"`
	ChainID     int    `json:"chain_id,omitempty"`
	ToChainID   int    `json:"to_chain_id,omitempty"`
	TokenRef    string `json:"token,omitempty"`
	ToTokenRef  string `json:"to_token,omitempty"`
	Amount      string `json:"amount"`
	Recipient   string `json:"recipient,omitempty"`
	TokenID     string `json:"token_id,omitempty"`
	ToTokenID   string `json:"to_token_id,omitempty"`
	SlippageBps int    `json:"slippage_bps,omitempty"`
}

// Token is a concrete, chain-qualified token catalog entry.
type Token struct {
	ID       string         `json:"id"`
	ChainID  int            `json:"chain_id"`
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals uint8          `json:"decimals"`
	Verified bool           `json:"verified"`
}

// OperationKind classifies a normalized operation.
type OperationKind string

const (
	KindNativeTransfer OperationKind = "native-transfer"
	KindERC20Transfer  OperationKind = "erc20-transfer"
)

// NormalizedOperation is the strongly-typed, chain-bound descriptor produced
// by the normalizer and consumed by the simulator, router and monitor.
// Invariants: AmountWei > 0; for transfers To is never the zero address.
type NormalizedOperation struct {
	Kind      OperationKind
	ChainID   int
	Token     *Token
	AmountWei *big.Int
	To        common.Address

	// DestChainID and DestToken are set only for swap/bridge shaped intents
	// and select the aggregator-routed execution path.
	DestChainID int
	DestToken   *Token
}

// Routed reports whether the operation requires aggregator routing.
func (op *NormalizedOperation) Routed() bool {
	return op.DestChainID != 0 && op.DestChainID != op.ChainID || op.DestToken != nil
}

// AccountMode distinguishes how transactions are signed and submitted.
type AccountMode string

const (
	ModeEOA          AccountMode = "EOA"
	ModeSmartAccount AccountMode = "SMART_ACCOUNT"
)

// TxRequest is the minimal description of a transaction to submit.
type TxRequest struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Data  []byte
}

// TxSender is the signer capability supplied by the wallet/auth layer.
// The pipeline validates its presence but never constructs one.
type TxSender interface {
	// SendTransaction signs and broadcasts the request, returning its hash.
	SendTransaction(ctx context.Context, req TxRequest) (common.Hash, error)
	// WaitMined blocks until the transaction is mined or ctx expires.
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// AccountContext describes the active signing account for one pipeline run.
type AccountContext struct {
	Mode    AccountMode
	Address common.Address
	Sender  TxSender
}

// Ready reports whether the context can actually sign and submit.
func (a *AccountContext) Ready() bool {
	return a != nil && a.Sender != nil && a.Address != (common.Address{})
}

// ExecutionResult is the terminal output of the execute phase.
type ExecutionResult struct {
	TxHash      common.Hash
	ExplorerURL string
}
