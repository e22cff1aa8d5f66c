// Package aggregator talks to the external route-finding service that
// returns ready-to-sign transaction data for swaps and bridges.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DefaultBaseURL points at the LI.FI public API.
const DefaultBaseURL = "https://li.quest/v1"

// nativePlaceholder is the address the aggregator API uses for native coins.
const nativePlaceholder = "0x0000000000000000000000000000000000000000"

// PrepareRequest describes the routed operation to prepare.
type PrepareRequest struct {
	FromChainID int
	ToChainID   int
	FromToken   common.Address // zero address for native
	ToToken     common.Address // zero address for native
	AmountWei   *big.Int
	FromAddress common.Address
	ToAddress   common.Address
	SlippageBps int
}

// TxData is the ready-to-sign transaction returned by the service.
type TxData struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// ApprovalRequirement describes the approval that must land before the main
// transaction is submitted.
type ApprovalRequirement struct {
	Token   common.Address
	Spender common.Address
	Amount  *big.Int
}

// Preparation is the service's answer for one routed operation.
type Preparation struct {
	Tx       TxData
	Approval *ApprovalRequirement
	Tool     string
}

// Preparer is the pipeline's view of the aggregator.
type Preparer interface {
	Prepare(ctx context.Context, req PrepareRequest) (*Preparation, error)
}

// Client is an HTTP Preparer. Failures are not retried here; retry policy is
// a caller decision.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Preparer = (*Client)(nil)

// New creates a client. An empty baseURL uses the public endpoint.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

type quoteResponse struct {
	Tool     string `json:"tool"`
	Estimate struct {
		ApprovalAddress string `json:"approvalAddress"`
		ToAmount        string `json:"toAmount"`
	} `json:"estimate"`
	TransactionRequest struct {
		To      string `json:"to"`
		Data    string `json:"data"`
		Value   string `json:"value"`
		ChainID int64  `json:"chainId"`
	} `json:"transactionRequest"`
}

// Prepare fetches a quoted route with executable transaction data.
func (c *Client) Prepare(ctx context.Context, req PrepareRequest) (*Preparation, error) {
	if req.AmountWei == nil || req.AmountWei.Sign() <= 0 {
		return nil, fmt.Errorf("prepare requires a positive amount")
	}
	toAddress := req.ToAddress
	if toAddress == (common.Address{}) {
		toAddress = req.FromAddress
	}

	vals := url.Values{}
	vals.Set("fromChain", strconv.Itoa(req.FromChainID))
	vals.Set("toChain", strconv.Itoa(req.ToChainID))
	vals.Set("fromToken", tokenParam(req.FromToken))
	vals.Set("toToken", tokenParam(req.ToToken))
	vals.Set("fromAmount", req.AmountWei.String())
	vals.Set("fromAddress", req.FromAddress.Hex())
	vals.Set("toAddress", toAddress.Hex())
	vals.Set("slippage", formatSlippage(req.SlippageBps))

	hReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+vals.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build quote request: %v", err)
	}
	hReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(hReq)
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read quote response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aggregator returned status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var quote quoteResponse
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, fmt.Errorf("decode quote response: %v", err)
	}
	return c.toPreparation(req, &quote)
}

func (c *Client) toPreparation(req PrepareRequest, quote *quoteResponse) (*Preparation, error) {
	txReq := quote.TransactionRequest
	if strings.TrimSpace(txReq.To) == "" || strings.TrimSpace(txReq.Data) == "" {
		return nil, fmt.Errorf("quote missing executable transaction payload")
	}
	if txReq.ChainID != 0 && txReq.ChainID != int64(req.FromChainID) {
		return nil, fmt.Errorf("quoted transaction targets chain %d, expected %d", txReq.ChainID, req.FromChainID)
	}

	value := big.NewInt(0)
	if raw := strings.TrimSpace(txReq.Value); raw != "" && raw != "0x" {
		v, err := hexutil.DecodeBig(raw)
		if err != nil {
			// Some responses carry decimal values.
			var ok bool
			v, ok = new(big.Int).SetString(raw, 10)
			if !ok {
				return nil, fmt.Errorf("invalid transaction value %q", raw)
			}
		}
		value = v
	}

	data, err := hexutil.Decode(txReq.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction data: %v", err)
	}

	prep := &Preparation{
		Tx: TxData{
			To:    common.HexToAddress(txReq.To),
			Value: value,
			Data:  data,
		},
		Tool: quote.Tool,
	}

	// Native inputs never need an approval; token inputs do when the
	// service names a spender.
	if req.FromToken != (common.Address{}) && quote.Estimate.ApprovalAddress != "" {
		prep.Approval = &ApprovalRequirement{
			Token:   req.FromToken,
			Spender: common.HexToAddress(quote.Estimate.ApprovalAddress),
			Amount:  new(big.Int).Set(req.AmountWei),
		}
	}
	return prep, nil
}

func tokenParam(addr common.Address) string {
	if addr == (common.Address{}) {
		return nativePlaceholder
	}
	return addr.Hex()
}

func formatSlippage(bps int) string {
	if bps <= 0 {
		bps = 50
	}
	return strconv.FormatFloat(float64(bps)/10_000, 'f', -1, 64)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
