// Package circuitbreaker provides a per-chain breaker that stops new
// pipeline runs against a chain after repeated failures. The pipeline itself
// never retries; the breaker only rejects fresh submissions up front.
package circuitbreaker

import (
	"sync"
	"time"

	"github.com/hashdesk/intent-engine/pkg/logger"
)

// Breaker is a single-chain circuit breaker.
type Breaker struct {
	mu        sync.Mutex
	enabled   bool
	threshold int
	window    time.Duration
	cooldown  time.Duration

	failures    int
	lastFailure time.Time
	open        bool
	openedAt    time.Time

	log logger.Logger
}

// New creates a breaker. A disabled breaker is always closed.
func New(enabled bool, threshold int, window, cooldown time.Duration, log logger.Logger) *Breaker {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Breaker{
		enabled:   enabled,
		threshold: threshold,
		window:    window,
		cooldown:  cooldown,
		log:       log,
	}
}

// RecordFailure counts a run failure. It reports whether the breaker is open
// after recording.
func (b *Breaker) RecordFailure() bool {
	if !b.enabled {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if b.open {
		if now.Sub(b.openedAt) <= b.cooldown {
			return true
		}
		b.log.Debug("circuit cooldown elapsed, closing for a fresh attempt")
		b.open = false
		b.failures = 0
	}

	if now.Sub(b.lastFailure) > b.window {
		b.failures = 0
	}
	b.failures++
	b.lastFailure = now

	if b.failures >= b.threshold {
		b.open = true
		b.openedAt = now
		b.log.Notice("circuit opened after %d failures within %v", b.failures, b.window)
		return true
	}
	return false
}

// RecordSuccess closes the breaker and clears the failure count.
func (b *Breaker) RecordSuccess() {
	if !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.open = false
}

// IsOpen reports whether new runs should be rejected. A breaker past its
// cooldown closes on the way out.
func (b *Breaker) IsOpen() bool {
	if !b.enabled {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open && time.Since(b.openedAt) > b.cooldown {
		b.open = false
		b.failures = 0
	}
	return b.open
}

// Reset closes the breaker unconditionally.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.failures = 0
}

// State reports the breaker's failure count and last failure time.
func (b *Breaker) State() (failures int, lastFailure time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures, b.lastFailure
}

// Set is a collection of breakers keyed by chain ID.
type Set struct {
	mu       sync.Mutex
	breakers map[int]*Breaker

	enabled   bool
	threshold int
	window    time.Duration
	cooldown  time.Duration
	log       logger.Logger
}

// NewSet creates a breaker set sharing one configuration.
func NewSet(enabled bool, threshold int, window, cooldown time.Duration, log logger.Logger) *Set {
	return &Set{
		breakers:  make(map[int]*Breaker),
		enabled:   enabled,
		threshold: threshold,
		window:    window,
		cooldown:  cooldown,
		log:       log,
	}
}

// For returns the breaker for a chain, creating it on first use.
func (s *Set) For(chainID int) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[chainID]
	if !ok {
		b = New(s.enabled, s.threshold, s.window, s.cooldown, s.log)
		s.breakers[chainID] = b
	}
	return b
}

// ChainIDs lists the chains a breaker exists for.
func (s *Set) ChainIDs() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.breakers))
	for id := range s.breakers {
		ids = append(ids, id)
	}
	return ids
}
