package pipeerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapPreservesInnerPipelineError(t *testing.T) {
	inner := New(PhaseSimulate, CodeSimWouldRevert, "transfer would revert")

	// An outer layer re-wrapping a pipeline failure must not repaint its code.
	outer := Wrap(PhaseSimulate, CodeSimulation, "simulation failed", inner)

	assert.Same(t, inner, outer, "wrapping an existing pipeline error should return it unchanged")
	assert.Equal(t, CodeSimWouldRevert, outer.Code)
}

func TestWrapForeignError(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(PhaseExecute, CodeExecution, "submit failed", cause)

	assert.Equal(t, CodeExecution, err.Code)
	assert.Equal(t, PhaseExecute, err.Phase)
	assert.ErrorIs(t, err, cause)
}

func TestWrapUnwrapsThroughFmtChain(t *testing.T) {
	inner := New(PhaseExecute, CodeDuplicateTx, "duplicate")
	wrapped := fmt.Errorf("router: %w", inner)

	err := Wrap(PhaseExecute, CodeExecution, "execution failed", wrapped)
	assert.Equal(t, CodeDuplicateTx, err.Code)
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		code Code
		want string
	}{
		{
			name: "known code",
			code: CodeSimInsufficient,
			want: "Insufficient balance to cover this transaction.",
		},
		{
			name: "unknown code falls back",
			code: Code("SOMETHING_NEW"),
			want: "Something went wrong processing the transaction.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := New(PhaseExecute, tc.code, "detail for operators")
			assert.Equal(t, tc.want, err.UserMessage())
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(nil))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
	assert.Equal(t, CodeAuthRequired, CodeOf(New(PhaseExecute, CodeAuthRequired, "no signer")))
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(PhaseMonitor, CodeMonitor, "receipt fetch failed", errors.New("rpc timeout"))
	assert.Contains(t, err.Error(), "MONITOR_ERROR")
	assert.Contains(t, err.Error(), "rpc timeout")
}
