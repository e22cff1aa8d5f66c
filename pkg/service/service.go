// Package service runs pipeline executions on a bounded worker pool. Each
// submitted intent becomes exactly one pipeline run; the per-chain circuit
// breaker rejects submissions against chains that keep failing.
package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/hashdesk/intent-engine/pkg/circuitbreaker"
	"github.com/hashdesk/intent-engine/pkg/logger"
	"github.com/hashdesk/intent-engine/pkg/metrics"
	"github.com/hashdesk/intent-engine/pkg/models"
	"github.com/hashdesk/intent-engine/pkg/pipeline"
)

// Job is one intent execution request.
type Job struct {
	Intent        *models.Intent
	Account       *models.AccountContext
	OwnerID       string
	WalletChainID int

	// OnResult, if set, is invoked with the run's final state. A run parked
	// at TOKEN_SELECTION is delivered here too; the caller resumes it
	// through Resume once a token is chosen.
	OnResult func(st *pipeline.State, err error)
}

// AccountSource builds a signing account for a chain. Used for jobs
// submitted without an account, i.e. runs signed with engine-held keys.
type AccountSource interface {
	Account(chainID int) (*models.AccountContext, error)
}

// Service owns the worker pool.
type Service struct {
	pipeline *pipeline.Pipeline
	breakers *circuitbreaker.Set
	accounts AccountSource
	workers  int
	jobs     chan Job
	wg       sync.WaitGroup
	log      logger.Logger

	mu      sync.Mutex
	started bool
}

// New creates a service with the given worker count and queue capacity.
// accounts may be nil when every job carries its own account.
func New(p *pipeline.Pipeline, breakers *circuitbreaker.Set, accounts AccountSource, workers, queueSize int, log logger.Logger) *Service {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Service{
		pipeline: p,
		breakers: breakers,
		accounts: accounts,
		workers:  workers,
		jobs:     make(chan Job, queueSize),
		log:      log,
	}
}

// Start launches the workers. It returns immediately; workers drain until
// ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}
	s.log.Info("started %d pipeline workers", s.workers)
}

// Submit queues a job. It fails fast when the target chain's circuit is open
// or the queue is full; it never blocks the caller.
func (s *Service) Submit(job Job) error {
	if job.Intent == nil {
		return fmt.Errorf("job has no intent")
	}
	if s.breakers != nil && job.Intent.ChainID != 0 && s.breakers.For(job.Intent.ChainID).IsOpen() {
		return fmt.Errorf("circuit open for chain %d, not accepting new runs", job.Intent.ChainID)
	}
	select {
	case s.jobs <- job:
		return nil
	default:
		return fmt.Errorf("pipeline queue full")
	}
}

// Resume re-enters a run parked for token selection, on the caller's
// goroutine.
func (s *Service) Resume(ctx context.Context, st *pipeline.State, tokenID string) error {
	return s.pipeline.Resume(ctx, st, tokenID)
}

// Wait blocks until all workers have exited.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) worker(ctx context.Context, id int) {
	defer s.wg.Done()
	s.log.Debug("worker %d started", id)
	for {
		select {
		case <-ctx.Done():
			s.log.Debug("worker %d shutting down", id)
			return
		case job, ok := <-s.jobs:
			if !ok {
				s.log.Debug("worker %d shutting down: queue closed", id)
				return
			}
			s.process(ctx, id, job)
		}
	}
}

func (s *Service) process(ctx context.Context, id int, job Job) {
	if job.Account == nil && s.accounts != nil && job.Intent.ChainID != 0 {
		acct, err := s.accounts.Account(job.Intent.ChainID)
		if err != nil {
			s.log.ErrorWithChain(job.Intent.ChainID, "worker %d cannot build signing account: %v", id, err)
			if job.OnResult != nil {
				job.OnResult(nil, err)
			}
			return
		}
		job.Account = acct
	}

	st := pipeline.NewState(job.Intent, job.Account, job.OwnerID, job.WalletChainID)
	s.log.InfoWithChain(job.Intent.ChainID, "worker %d running %s (%s)", id, st.RunID, job.Intent.Action)

	err := s.pipeline.Run(ctx, st)

	chainID := job.Intent.ChainID
	if st.Norm != nil {
		chainID = st.Norm.ChainID
	}

	switch {
	case err != nil && ctx.Err() != nil:
		// Shutdown mid-run; not a chain failure.
	case err != nil:
		if s.breakers != nil && chainID != 0 {
			if s.breakers.For(chainID).RecordFailure() {
				s.log.NoticeWithChain(chainID, "circuit open after run %s failed", st.RunID)
				metrics.CircuitOpens.WithLabelValues(strconv.Itoa(chainID)).Inc()
			}
		}
		s.log.ErrorWithChain(chainID, "worker %d run %s failed: %v", id, st.RunID, err)
	case st.Phase == pipeline.PhaseTokenSelection:
		s.log.Info("worker %d run %s awaiting token selection", id, st.RunID)
	default:
		if s.breakers != nil && chainID != 0 {
			s.breakers.For(chainID).RecordSuccess()
		}
		s.log.InfoWithChain(chainID, "worker %d run %s confirmed", id, st.RunID)
	}

	if job.OnResult != nil {
		job.OnResult(st, err)
	}
}
