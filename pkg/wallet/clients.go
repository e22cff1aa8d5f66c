package wallet

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/hashdesk/intent-engine/pkg/logger"
	"github.com/hashdesk/intent-engine/pkg/registry"
)

// ClientPool dials and caches one RPC client per configured chain. Dialing is
// lazy so unused chains never open a connection.
type ClientPool struct {
	registry *registry.Registry
	mu       sync.Mutex
	clients  map[int]*ethclient.Client
	log      logger.Logger
}

// NewClientPool creates a pool over the chain registry.
func NewClientPool(reg *registry.Registry, log logger.Logger) *ClientPool {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &ClientPool{
		registry: reg,
		clients:  make(map[int]*ethclient.Client),
		log:      log,
	}
}

// Client returns the RPC client for a chain, dialing it on first use.
func (p *ClientPool) Client(chainID int) (*ethclient.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[chainID]; ok {
		return client, nil
	}

	info, ok := p.registry.Get(chainID)
	if !ok {
		return nil, fmt.Errorf("chain %d is not configured", chainID)
	}
	client, err := ethclient.Dial(info.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain %d at %s: %w", chainID, info.RPCURL, err)
	}
	p.log.DebugWithChain(chainID, "connected to %s", info.RPCURL)
	p.clients[chainID] = client
	return client, nil
}

// Connected reports whether a client for the chain has been dialed.
func (p *ClientPool) Connected(chainID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.clients[chainID]
	return ok
}

// Close closes every dialed client.
func (p *ClientPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for chainID, client := range p.clients {
		client.Close()
		delete(p.clients, chainID)
	}
}
