package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashdesk/intent-engine/pkg/models"
	"github.com/hashdesk/intent-engine/pkg/pipeerr"
)

var (
	sender    = common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	recipient = common.HexToAddress("0x1111111111111111111111111111111111111111")
	usdcBase  = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
)

// fakeBackend records the call messages and returns scripted results.
type fakeBackend struct {
	callErr     error
	estimateErr error
	gas         uint64
	lastCall    ethereum.CallMsg
}

func (b *fakeBackend) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.lastCall = msg
	return nil, b.callErr
}

func (b *fakeBackend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	if b.estimateErr != nil {
		return 0, b.estimateErr
	}
	return b.gas, nil
}

func newTestSimulator(backend *fakeBackend) *Simulator {
	return New(func(chainID int) (Backend, error) {
		if backend == nil {
			return nil, fmt.Errorf("no client for chain %d", chainID)
		}
		return backend, nil
	}, nil)
}

func nativeOp() *models.NormalizedOperation {
	return &models.NormalizedOperation{
		Kind:      models.KindNativeTransfer,
		ChainID:   1,
		AmountWei: big.NewInt(1e15),
		To:        recipient,
	}
}

func erc20Op() *models.NormalizedOperation {
	return &models.NormalizedOperation{
		Kind:    models.KindERC20Transfer,
		ChainID: 8453,
		Token: &models.Token{
			ID: "usdc-8453", ChainID: 8453, Address: usdcBase, Symbol: "USDC", Decimals: 6,
		},
		AmountWei: big.NewInt(25_000_000),
		To:        recipient,
	}
}

func TestSimulateRoutedDefaultsRecipientToSender(t *testing.T) {
	// Routed operations commonly carry no recipient; the dry run substitutes
	// the sender instead of a zero-address transfer, which most tokens
	// reject outright.
	backend := &fakeBackend{gas: 65000}
	s := newTestSimulator(backend)

	op := erc20Op()
	op.To = common.Address{}
	op.DestChainID = 42161
	op.DestToken = &models.Token{ID: "usdc-42161", ChainID: 42161, Symbol: "USDC", Decimals: 6}

	_, err := s.Simulate(context.Background(), op, sender, models.ModeEOA)
	require.NoError(t, err)

	assert.Equal(t, usdcBase, *backend.lastCall.To)
	require.GreaterOrEqual(t, len(backend.lastCall.Data), 36)
	packed := common.BytesToAddress(backend.lastCall.Data[4:36])
	assert.Equal(t, sender, packed, "the dry-run transfer should target the sender, not the zero address")
}

func TestSimulateNativeTransfer(t *testing.T) {
	backend := &fakeBackend{gas: 21000}
	s := newTestSimulator(backend)

	result, err := s.Simulate(context.Background(), nativeOp(), sender, models.ModeEOA)
	require.NoError(t, err)

	assert.Equal(t, uint64(21000), result.GasEstimate)
	assert.Equal(t, models.ModeEOA, result.Mode)
	assert.False(t, result.SimulatedAt.IsZero())

	assert.Equal(t, sender, backend.lastCall.From)
	assert.Equal(t, recipient, *backend.lastCall.To)
	assert.Equal(t, big.NewInt(1e15), backend.lastCall.Value)
	assert.Empty(t, backend.lastCall.Data, "native transfers carry value, not calldata")
}

func TestSimulateERC20Transfer(t *testing.T) {
	backend := &fakeBackend{gas: 65000}
	s := newTestSimulator(backend)

	result, err := s.Simulate(context.Background(), erc20Op(), sender, models.ModeSmartAccount)
	require.NoError(t, err)
	assert.Equal(t, uint64(65000), result.GasEstimate)

	// The dry run targets the token contract with transfer calldata.
	assert.Equal(t, usdcBase, *backend.lastCall.To)
	assert.Nil(t, backend.lastCall.Value)
	require.GreaterOrEqual(t, len(backend.lastCall.Data), 4)
	assert.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, backend.lastCall.Data[:4], "should be the transfer selector")
}

func TestSimulateErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		rpcErr   error
		wantCode pipeerr.Code
	}{
		{
			name:     "insufficient funds",
			rpcErr:   errors.New("insufficient funds for gas * price + value"),
			wantCode: pipeerr.CodeSimInsufficient,
		},
		{
			name:     "insufficient balance phrasing",
			rpcErr:   errors.New("transfer amount exceeds balance: insufficient balance"),
			wantCode: pipeerr.CodeSimInsufficient,
		},
		{
			name:     "revert",
			rpcErr:   errors.New("execution reverted: ERC20: transfer to the zero address"),
			wantCode: pipeerr.CodeSimWouldRevert,
		},
		{
			name:     "gas allowance",
			rpcErr:   errors.New("gas required exceeds allowance (30000000)"),
			wantCode: pipeerr.CodeSimWouldRevert,
		},
		{
			name:     "transport failure",
			rpcErr:   errors.New("connection reset by peer"),
			wantCode: pipeerr.CodeSimulation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSimulator(&fakeBackend{callErr: tc.rpcErr})
			_, err := s.Simulate(context.Background(), nativeOp(), sender, models.ModeEOA)
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, pipeerr.CodeOf(err))
		})
	}
}

func TestSimulateEstimateGasFailure(t *testing.T) {
	backend := &fakeBackend{estimateErr: errors.New("execution reverted")}
	s := newTestSimulator(backend)

	_, err := s.Simulate(context.Background(), nativeOp(), sender, models.ModeEOA)
	require.Error(t, err)
	assert.Equal(t, pipeerr.CodeSimWouldRevert, pipeerr.CodeOf(err))
}

func TestSimulateMissingBackend(t *testing.T) {
	s := newTestSimulator(nil)
	_, err := s.Simulate(context.Background(), nativeOp(), sender, models.ModeEOA)
	require.Error(t, err)
	assert.Equal(t, pipeerr.CodeChainConfigMissing, pipeerr.CodeOf(err))
}

func TestSimulateNilOperation(t *testing.T) {
	s := newTestSimulator(&fakeBackend{})
	_, err := s.Simulate(context.Background(), nil, sender, models.ModeEOA)
	require.Error(t, err)
	assert.Equal(t, pipeerr.CodeMissingNorm, pipeerr.CodeOf(err))
}
