package investment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"profitbliss-backend/internal/domain"
	"profitbliss-backend/internal/events"
)

// sweepLockKey guards the maturity sweep across server instances. The
// settlement itself is idempotent either way; the lock only keeps
// instances from duplicating the scan work.
const sweepLockKey = "sweep:maturity"

// Locker serializes a sweep across server instances. A nil Locker means
// single-instance deployment and every sweep proceeds.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string)
}

// SchedulerConfig holds configuration for the maturity scheduler
type SchedulerConfig struct {
	// Interval is how often to scan for matured investments
	Interval time.Duration

	// MaxConcurrent is the maximum number of concurrent settlements
	MaxConcurrent int

	// SweepTimeout bounds a single sweep
	SweepTimeout time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Interval:      time.Hour,
		MaxConcurrent: 5,
		SweepTimeout:  5 * time.Minute,
	}
}

// Scheduler periodically finds matured active investments and settles them
type Scheduler struct {
	service *Service
	store   Store
	bus     *events.Bus
	locks   Locker
	config  *SchedulerConfig
	logger  zerolog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScheduler creates a maturity scheduler
func NewScheduler(service *Service, store Store, bus *events.Bus, locks Locker, config *SchedulerConfig, logger zerolog.Logger) *Scheduler {
	if config == nil {
		config = DefaultSchedulerConfig()
	}
	return &Scheduler{
		service:  service,
		store:    store,
		bus:      bus,
		locks:    locks,
		config:   config,
		logger:   logger.With().Str("component", "maturity-scheduler").Logger(),
		stopChan: make(chan struct{}),
	}
}

// Start starts the scheduler loop
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("maturity scheduler already running")
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info().Dur("interval", s.config.Interval).Msg("starting maturity scheduler")

	s.wg.Add(1)
	go s.runLoop()

	return nil
}

// Stop stops the scheduler and waits for an in-flight sweep to finish
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return fmt.Errorf("maturity scheduler not running")
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	s.wg.Wait()

	s.logger.Info().Msg("maturity scheduler stopped")
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runLoop() {
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

// Sweep settles every matured active investment once. Failures are
// isolated per investment; one failing settlement never aborts the rest of
// the batch.
func (s *Scheduler) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.config.SweepTimeout)
	defer cancel()

	if s.locks != nil {
		ok, err := s.locks.Acquire(ctx, sweepLockKey, s.config.SweepTimeout)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to acquire sweep lock")
			return
		}
		if !ok {
			s.logger.Debug().Msg("sweep already running on another instance")
			return
		}
		defer s.locks.Release(ctx, sweepLockKey)
	}

	matured, err := s.store.MaturedInvestments(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch matured investments")
		return
	}
	if len(matured) == 0 {
		return
	}

	s.logger.Info().Int("count", len(matured)).Msg("found matured investments")

	semaphore := make(chan struct{}, s.config.MaxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	settled, failed := 0, 0

	for _, inv := range matured {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(inv domain.Investment) {
			defer wg.Done()
			defer func() { <-semaphore }()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error().Str("investment_id", inv.ID).Interface("panic", r).Msg("panic recovered during settlement")
				}
			}()

			payout, err := s.service.Settle(ctx, inv.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				settled++
				if s.bus != nil {
					s.bus.PublishInvestmentSettled(inv.ID, inv.UserID, inv.Amount, payout)
				}
			case errors.Is(err, domain.ErrAlreadyProcessed):
				// Another instance or tick got here first; nothing to do.
			default:
				failed++
				s.logger.Error().Err(err).Str("investment_id", inv.ID).Msg("settlement failed")
			}
		}(inv)
	}

	wg.Wait()

	s.logger.Info().Int("settled", settled).Int("failed", failed).Msg("maturity sweep complete")
}
