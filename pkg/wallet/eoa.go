// Package wallet provides the signer implementations the surrounding
// wallet/auth layer hands to the pipeline as part of an AccountContext.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/hashdesk/intent-engine/pkg/logger"
	"github.com/hashdesk/intent-engine/pkg/metrics"
	"github.com/hashdesk/intent-engine/pkg/models"
)

const (
	// DefaultGasMultiplier pads the suggested gas price by 10%.
	DefaultGasMultiplier = 1.1
	// receiptPollInterval is how often WaitMined polls for a receipt.
	receiptPollInterval = 2 * time.Second
)

// EOASigner signs and submits transactions for an externally-owned account
// on a single chain.
type EOASigner struct {
	chainID       int
	client        *ethclient.Client
	key           *ecdsa.PrivateKey
	signer        types.Signer
	from          common.Address
	nonces        *NonceTracker
	gasMultiplier float64
	maxGasPrice   *big.Int
	logger        logger.Logger
}

var _ models.TxSender = (*EOASigner)(nil)

// NewEOASigner creates a signer for one chain from a hex private key.
// maxGasPrice of nil disables the cap.
func NewEOASigner(client *ethclient.Client, chainID int, privateKeyHex string, gasMultiplier float64, maxGasPrice *big.Int, log logger.Logger) (*EOASigner, error) {
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %v", err)
	}
	if gasMultiplier <= 0 {
		gasMultiplier = DefaultGasMultiplier
	}
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &EOASigner{
		chainID:       chainID,
		client:        client,
		key:           key,
		signer:        types.LatestSignerForChainID(big.NewInt(int64(chainID))),
		from:          crypto.PubkeyToAddress(key.PublicKey),
		nonces:        NewNonceTracker(),
		gasMultiplier: gasMultiplier,
		maxGasPrice:   maxGasPrice,
		logger:        log,
	}, nil
}

// From returns the signing address.
func (s *EOASigner) From() common.Address { return s.from }

// SendTransaction signs and broadcasts the request and returns its hash.
func (s *EOASigner) SendTransaction(ctx context.Context, req models.TxRequest) (common.Hash, error) {
	if req.From != (common.Address{}) && req.From != s.from {
		return common.Hash{}, fmt.Errorf("request from %s does not match signer %s", req.From.Hex(), s.from.Hex())
	}

	gasPrice, err := s.suggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}
	to := req.To
	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  s.from,
		To:    &to,
		Value: value,
		Data:  req.Data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %v", err)
	}

	nonce, err := s.nonces.Next(ctx, s.client, s.from)
	if err != nil {
		return common.Hash{}, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     req.Data,
	})
	signed, err := types.SignTx(tx, s.signer, s.key)
	if err != nil {
		s.nonces.Release(nonce)
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %v", err)
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		s.nonces.Release(nonce)
		return common.Hash{}, fmt.Errorf("failed to broadcast transaction: %v", err)
	}

	s.logger.DebugWithChain(s.chainID, "submitted tx %s (nonce %d, gas %d)", signed.Hash().Hex(), nonce, gasLimit)
	return signed.Hash(), nil
}

// WaitMined blocks until the transaction is mined or ctx expires.
func (s *EOASigner) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.client.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to fetch receipt: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// recordGasPrice publishes the last suggested gas price for a chain.
func recordGasPrice(chainID int, wei *big.Int) {
	gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9)).Float64()
	metrics.GasPrice.WithLabelValues(strconv.Itoa(chainID)).Set(gwei)
}

// suggestGasPrice applies the multiplier buffer and the configured cap.
func (s *EOASigner) suggestGasPrice(ctx context.Context) (*big.Int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	gasPrice, err := s.client.SuggestGasPrice(timeoutCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %v", err)
	}
	recordGasPrice(s.chainID, gasPrice)

	buffered := new(big.Float).Mul(new(big.Float).SetInt(gasPrice), big.NewFloat(s.gasMultiplier))
	final := new(big.Int)
	buffered.Int(final)

	if s.maxGasPrice != nil && s.maxGasPrice.Sign() > 0 && final.Cmp(s.maxGasPrice) > 0 {
		return nil, fmt.Errorf("gas price %s exceeds configured maximum %s", final.String(), s.maxGasPrice.String())
	}
	return final, nil
}
