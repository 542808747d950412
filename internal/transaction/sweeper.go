package transaction

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"profitbliss-backend/internal/domain"
)

// expiryLockKey guards the expiry sweep across server instances
const expiryLockKey = "sweep:expiry"

// Locker serializes a sweep across server instances. A nil Locker means
// single-instance deployment and every sweep proceeds.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string)
}

// SweeperConfig holds configuration for the expiry sweeper
type SweeperConfig struct {
	// Interval is how often to scan for stale pending transactions
	Interval time.Duration

	// PendingTTL is how long a transaction may stay pending before it
	// expires
	PendingTTL time.Duration

	// SweepTimeout bounds a single sweep
	SweepTimeout time.Duration
}

// DefaultSweeperConfig returns default sweeper configuration
func DefaultSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		Interval:     10 * time.Minute,
		PendingTTL:   time.Hour,
		SweepTimeout: 2 * time.Minute,
	}
}

// Sweeper periodically expires pending transactions older than PendingTTL.
// Expired withdrawals get their escrowed funds back.
type Sweeper struct {
	service *Service
	store   Store
	locks   Locker
	config  *SweeperConfig
	logger  zerolog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewSweeper creates an expiry sweeper
func NewSweeper(service *Service, store Store, locks Locker, config *SweeperConfig, logger zerolog.Logger) *Sweeper {
	if config == nil {
		config = DefaultSweeperConfig()
	}
	return &Sweeper{
		service:  service,
		store:    store,
		locks:    locks,
		config:   config,
		logger:   logger.With().Str("component", "expiry-sweeper").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start starts the sweeper loop
func (s *Sweeper) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("expiry sweeper already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info().Dur("interval", s.config.Interval).Dur("pending_ttl", s.config.PendingTTL).Msg("starting expiry sweeper")

	s.wg.Add(1)
	go s.runLoop()

	return nil
}

// Stop stops the sweeper and waits for an in-flight sweep to finish
func (s *Sweeper) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("expiry sweeper not running")
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()

	s.logger.Info().Msg("expiry sweeper stopped")
	return nil
}

// IsRunning returns whether the sweeper is running
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sweeper) runLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run immediately on start
	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopChan:
			return
		}
	}
}

// Sweep expires every stale pending transaction once. Failures are
// isolated per transaction.
func (s *Sweeper) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	if s.locks != nil {
		ok, err := s.locks.Acquire(ctx, expiryLockKey, s.config.SweepTimeout)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to acquire sweep lock")
			return
		}
		if !ok {
			s.logger.Debug().Msg("sweep already running on another instance")
			return
		}
		defer s.locks.Release(ctx, expiryLockKey)
	}

	cutoff := time.Now().UTC().Add(-s.config.PendingTTL)
	stale, err := s.store.StalePendingTransactions(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch stale transactions")
		return
	}
	if len(stale) == 0 {
		return
	}

	s.logger.Info().Int("count", len(stale)).Msg("found stale pending transactions")

	expired, failed := 0, 0
	for _, tx := range stale {
		_, err := s.service.Expire(ctx, tx.ID)
		switch {
		case err == nil:
			expired++
		case errors.Is(err, domain.ErrAlreadyProcessed):
			// An admin or another instance processed it between the scan
			// and the flip.
		default:
			failed++
			s.logger.Error().Err(err).Str("transaction_id", tx.ID).Msg("expiry failed")
		}
	}

	s.logger.Info().Int("expired", expired).Int("failed", failed).Msg("expiry sweep complete")
}
