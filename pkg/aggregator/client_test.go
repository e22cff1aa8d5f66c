package aggregator

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fromAddr = common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	toAddr   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	usdcEth  = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	usdcArb  = common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	router   = "0x1231DEB6f5749EF6cE6943a275A1D3E7486F4EaE"
)

func bridgeRequest() PrepareRequest {
	return PrepareRequest{
		FromChainID: 1,
		ToChainID:   42161,
		FromToken:   usdcEth,
		ToToken:     usdcArb,
		AmountWei:   big.NewInt(25_000_000),
		FromAddress: fromAddr,
		ToAddress:   toAddr,
		SlippageBps: 50,
	}
}

func TestPrepareBridgeQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/quote", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("fromChain"))
		assert.Equal(t, "42161", q.Get("toChain"))
		assert.Equal(t, usdcEth.Hex(), q.Get("fromToken"))
		assert.Equal(t, usdcArb.Hex(), q.Get("toToken"))
		assert.Equal(t, "25000000", q.Get("fromAmount"))
		assert.Equal(t, fromAddr.Hex(), q.Get("fromAddress"))
		assert.Equal(t, toAddr.Hex(), q.Get("toAddress"))
		assert.Equal(t, "0.005", q.Get("slippage"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"tool": "across",
			"estimate": {"approvalAddress": "` + router + `", "toAmount": "24990000"},
			"transactionRequest": {
				"to": "` + router + `",
				"data": "0xdeadbeef",
				"value": "0x0",
				"chainId": 1
			}
		}`))
	}))
	defer server.Close()

	client := New(server.URL)
	prep, err := client.Prepare(context.Background(), bridgeRequest())
	require.NoError(t, err)

	assert.Equal(t, common.HexToAddress(router), prep.Tx.To)
	assert.Equal(t, int64(0), prep.Tx.Value.Int64())
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, prep.Tx.Data)
	assert.Equal(t, "across", prep.Tool)

	require.NotNil(t, prep.Approval, "token input with an approvalAddress requires an approval")
	assert.Equal(t, usdcEth, prep.Approval.Token)
	assert.Equal(t, common.HexToAddress(router), prep.Approval.Spender)
	assert.Equal(t, big.NewInt(25_000_000), prep.Approval.Amount)
}

func TestPrepareNativeInputSkipsApproval(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0x0000000000000000000000000000000000000000", r.URL.Query().Get("fromToken"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"estimate": {"approvalAddress": "` + router + `"},
			"transactionRequest": {"to": "` + router + `", "data": "0x01", "value": "0xde0b6b3a7640000", "chainId": 1}
		}`))
	}))
	defer server.Close()

	req := bridgeRequest()
	req.FromToken = common.Address{}

	client := New(server.URL)
	prep, err := client.Prepare(context.Background(), req)
	require.NoError(t, err)

	assert.Nil(t, prep.Approval, "native inputs never need an approval")
	assert.Equal(t, "1000000000000000000", prep.Tx.Value.String())
}

func TestPrepareDefaultsRecipientToSender(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fromAddr.Hex(), r.URL.Query().Get("toAddress"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transactionRequest": {"to": "` + router + `", "data": "0x01", "value": "0", "chainId": 1}}`))
	}))
	defer server.Close()

	req := bridgeRequest()
	req.ToAddress = common.Address{}

	client := New(server.URL)
	_, err := client.Prepare(context.Background(), req)
	require.NoError(t, err)
}

func TestPrepareDecimalValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"transactionRequest": {"to": "` + router + `", "data": "0x01", "value": "12345", "chainId": 1}}`))
	}))
	defer server.Close()

	client := New(server.URL)
	prep, err := client.Prepare(context.Background(), bridgeRequest())
	require.NoError(t, err)
	assert.Equal(t, int64(12345), prep.Tx.Value.Int64())
}

func TestPrepareErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{
			name:    "service error status",
			status:  http.StatusNotFound,
			body:    `{"message": "No available quotes for the requested transfer"}`,
			wantErr: "status 404",
		},
		{
			name:    "missing transaction payload",
			status:  http.StatusOK,
			body:    `{"estimate": {"toAmount": "1"}}`,
			wantErr: "missing executable transaction",
		},
		{
			name:    "chain mismatch",
			status:  http.StatusOK,
			body:    `{"transactionRequest": {"to": "` + router + `", "data": "0x01", "value": "0", "chainId": 137}}`,
			wantErr: "targets chain 137",
		},
		{
			name:    "garbage value",
			status:  http.StatusOK,
			body:    `{"transactionRequest": {"to": "` + router + `", "data": "0x01", "value": "not-a-number", "chainId": 1}}`,
			wantErr: "invalid transaction value",
		},
		{
			name:    "garbage data",
			status:  http.StatusOK,
			body:    `{"transactionRequest": {"to": "` + router + `", "data": "zzzz", "value": "0", "chainId": 1}}`,
			wantErr: "invalid transaction data",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := New(server.URL)
			_, err := client.Prepare(context.Background(), bridgeRequest())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestPrepareRequiresPositiveAmount(t *testing.T) {
	client := New("http://localhost:1")
	req := bridgeRequest()
	req.AmountWei = big.NewInt(0)

	_, err := client.Prepare(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "positive amount")
}

func TestFormatSlippage(t *testing.T) {
	assert.Equal(t, "0.005", formatSlippage(50))
	assert.Equal(t, "0.03", formatSlippage(300))
	assert.Equal(t, "0.005", formatSlippage(0), "zero falls back to the default")
}
