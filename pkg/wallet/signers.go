package wallet

import (
	"math/big"
	"sync"

	"github.com/hashdesk/intent-engine/pkg/logger"
	"github.com/hashdesk/intent-engine/pkg/models"
)

// SignerPool builds one EOA signer per chain over a client pool, all driven
// by the same engine-held key.
type SignerPool struct {
	clients       *ClientPool
	privateKeyHex string
	gasMultiplier float64
	maxGasPrice   *big.Int
	log           logger.Logger

	mu      sync.Mutex
	signers map[int]*EOASigner
}

// NewSignerPool creates a signer pool.
func NewSignerPool(clients *ClientPool, privateKeyHex string, gasMultiplier float64, maxGasPrice *big.Int, log logger.Logger) *SignerPool {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &SignerPool{
		clients:       clients,
		privateKeyHex: privateKeyHex,
		gasMultiplier: gasMultiplier,
		maxGasPrice:   maxGasPrice,
		log:           log,
		signers:       make(map[int]*EOASigner),
	}
}

// Signer returns the signer for a chain, creating it on first use.
func (p *SignerPool) Signer(chainID int) (*EOASigner, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if signer, ok := p.signers[chainID]; ok {
		return signer, nil
	}

	client, err := p.clients.Client(chainID)
	if err != nil {
		return nil, err
	}
	signer, err := NewEOASigner(client, chainID, p.privateKeyHex, p.gasMultiplier, p.maxGasPrice, p.log)
	if err != nil {
		return nil, err
	}
	p.signers[chainID] = signer
	return signer, nil
}

// Account builds the signing account context for a chain.
func (p *SignerPool) Account(chainID int) (*models.AccountContext, error) {
	signer, err := p.Signer(chainID)
	if err != nil {
		return nil, err
	}
	return &models.AccountContext{
		Mode:    models.ModeEOA,
		Address: signer.From(),
		Sender:  signer,
	}, nil
}
