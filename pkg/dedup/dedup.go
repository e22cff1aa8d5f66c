// Package dedup prevents the same logical operation from being submitted
// twice within a short window. Records are keyed by owner identity plus an
// operation fingerprint derived from the operation's semantic fields, so
// concurrent runs for genuinely different operations never collide.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/hashdesk/intent-engine/pkg/models"
	"github.com/hashdesk/intent-engine/pkg/pipeerr"
)

const (
	// DefaultWindow is how long a duplicate submission is rejected.
	DefaultWindow = 2 * time.Minute
	// DefaultRetention is how long records are kept before pruning.
	DefaultRetention = 24 * time.Hour
)

// Record tracks one observed submission attempt.
type Record struct {
	OwnerID     string
	Fingerprint string
	FirstSeenAt time.Time
}

// Store is a process-wide keyed idempotency store. Entries are immutable
// once written and uniquely keyed, so a single mutex suffices.
type Store struct {
	mu        sync.Mutex
	entries   map[string]Record
	window    time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewStore creates a store. Non-positive durations fall back to defaults.
func NewStore(window, retention time.Duration) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		entries:   make(map[string]Record),
		window:    window,
		retention: retention,
		now:       time.Now,
	}
}

// Fingerprint derives the deterministic identifier for an operation. It is a
// function of the operation's semantics only, never of process timing.
func Fingerprint(ownerID string, op *models.NormalizedOperation) string {
	token := ""
	if op.Token != nil {
		token = op.Token.Address.Hex()
	}
	destToken := ""
	if op.DestToken != nil {
		destToken = op.DestToken.Address.Hex()
	}
	payload := fmt.Sprintf("%s|%s|%d|%s|%s|%s|%d|%s",
		ownerID, op.Kind, op.ChainID, token, op.AmountWei.String(), op.To.Hex(), op.DestChainID, destToken)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// Check validates that no duplicate of this operation was recorded within
// the active window. On pass it records the new attempt. On duplicate it
// returns DUPLICATE_TRANSACTION, which is non-retryable: the user must
// explicitly resubmit. Stale records are pruned lazily here.
func (s *Store) Check(ownerID string, op *models.NormalizedOperation) error {
	fp := Fingerprint(ownerID, op)
	key := ownerID + ":" + fp

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)

	if rec, ok := s.entries[key]; ok && now.Sub(rec.FirstSeenAt) < s.window {
		return pipeerr.Newf(pipeerr.PhaseExecute, pipeerr.CodeDuplicateTx,
			"duplicate operation for owner %s first seen %s ago", ownerID, now.Sub(rec.FirstSeenAt).Round(time.Second))
	}

	s.entries[key] = Record{OwnerID: ownerID, Fingerprint: fp, FirstSeenAt: now}
	return nil
}

// Prune removes records older than the retention period.
func (s *Store) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.now())
}

func (s *Store) pruneLocked(now time.Time) {
	for key, rec := range s.entries {
		if now.Sub(rec.FirstSeenAt) > s.retention {
			delete(s.entries, key)
		}
	}
}

// Len returns the number of live records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
