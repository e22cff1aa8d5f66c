// Package pipeerr defines the flat, per-phase error taxonomy used by the
// intent execution pipeline. Every failure a phase can produce is a single
// Error value carrying a stable code, the phase it occurred in, a
// human-readable message and optional technical detail.
package pipeerr

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable failure code.
type Code string

const (
	CodeMissingIntent      Code = "MISSING_INTENT"
	CodeInvalidAction      Code = "INVALID_ACTION"
	CodeNormalize          Code = "NORMALIZE_ERROR"
	CodeChainSwitchFailed  Code = "CHAIN_SWITCH_FAILED"
	CodeSimWouldRevert     Code = "SIM_WOULD_REVERT"
	CodeSimInsufficient    Code = "SIM_INSUFFICIENT_FUNDS"
	CodeSimulation         Code = "SIMULATION_ERROR"
	CodeMissingNorm        Code = "MISSING_NORM"
	CodeInvalidOperation   Code = "INVALID_OPERATION"
	CodeChainConfigMissing Code = "CHAIN_CONFIG_MISSING"
	CodeChainMismatch      Code = "CHAIN_MISMATCH"
	CodeAuthRequired       Code = "AUTH_REQUIRED"
	CodeDuplicateTx        Code = "DUPLICATE_TRANSACTION"
	CodeExecution          Code = "EXECUTION_ERROR"
	CodeMissingHash        Code = "MISSING_HASH"
	CodeTxFailed           Code = "TRANSACTION_FAILED"
	CodeMonitor            Code = "MONITOR_ERROR"
)

// Phase identifies the pipeline phase an error originated from.
type Phase string

const (
	PhaseNormalize Phase = "normalize"
	PhaseChainSync Phase = "chain_sync"
	PhaseSimulate  Phase = "simulate"
	PhaseExecute   Phase = "execute"
	PhaseMonitor   Phase = "monitor"
)

// userMessages maps every code to a stable message suitable for end users.
// Technical detail is preserved alongside, never substituted for these.
var userMessages = map[Code]string{
	CodeMissingIntent:      "No transaction request was provided.",
	CodeInvalidAction:      "This action cannot be processed as requested.",
	CodeNormalize:          "Could not understand the transaction request.",
	CodeChainSwitchFailed:  "Could not switch your wallet to the required network.",
	CodeSimWouldRevert:     "This transaction would fail on-chain, so it was not sent.",
	CodeSimInsufficient:    "Insufficient balance to cover this transaction.",
	CodeSimulation:         "Could not verify the transaction before sending.",
	CodeMissingNorm:        "The transaction was not prepared before execution.",
	CodeInvalidOperation:   "This operation type is not supported here.",
	CodeChainConfigMissing: "The target network is not configured.",
	CodeChainMismatch:      "Your wallet is on a different network than the transaction requires.",
	CodeAuthRequired:       "Please reconnect your wallet to continue.",
	CodeDuplicateTx:        "An identical transaction was just submitted. Resubmit explicitly if this is intentional.",
	CodeExecution:          "The transaction could not be submitted.",
	CodeMissingHash:        "No transaction hash is available to monitor.",
	CodeTxFailed:           "The transaction was mined but reverted.",
	CodeMonitor:            "Could not confirm the transaction status.",
}

// Error is the pipeline's failure record. A phase never lets any other error
// type escape its boundary.
type Error struct {
	Code    Code
	Phase   Phase
	Message string
	Detail  string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s [%s]: %s", e.Phase, e.Code, e.Message)
	}
	return fmt.Sprintf("%s [%s]: %s: %v", e.Phase, e.Code, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// UserMessage returns the stable, human-readable message for this error.
func (e *Error) UserMessage() string {
	if msg, ok := userMessages[e.Code]; ok {
		return msg
	}
	return "Something went wrong processing the transaction."
}

// New creates a pipeline error with a stable code.
func New(phase Phase, code Code, message string) *Error {
	return &Error{Code: code, Phase: phase, Message: message}
}

// Newf creates a pipeline error with a formatted message.
func Newf(phase Phase, code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Phase: phase, Message: fmt.Sprintf(format, args...)}
}

// Wrap converts an arbitrary cause into a pipeline error. If the cause is
// already a pipeline error it is returned unchanged so codes assigned close
// to the failure site survive outer convert-and-dispatch layers.
func Wrap(phase Phase, code Code, message string, cause error) *Error {
	if pe, ok := As(cause); ok {
		return pe
	}
	return &Error{Code: code, Phase: phase, Message: message, Cause: cause}
}

// As extracts a pipeline error from an error chain.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the code carried by err, or the empty code for nil and
// foreign errors.
func CodeOf(err error) Code {
	if pe, ok := As(err); ok {
		return pe.Code
	}
	return ""
}
