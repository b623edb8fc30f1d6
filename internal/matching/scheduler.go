// internal/matching/scheduler.go

package matching

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	taskSweep  = "agent-sweep"
	taskExpiry = "match-expiry"
)

type Sweeper interface {
	SweepAll(ctx context.Context) (int, error)
}

type Expirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// Scheduler drives the agent sweep and the match expiry on their own
// tickers
type Scheduler struct {
	sweeper        Sweeper
	expirer        Expirer
	locker         Locker
	sweepInterval  time.Duration
	expiryInterval time.Duration
	lockTTL        time.Duration
	logger         *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler. locker may be nil, in which case every
// tick runs. lockTTL is kept below sweepInterval.
func NewScheduler(sweeper Sweeper, expirer Expirer, locker Locker, sweepInterval, expiryInterval, lockTTL time.Duration, logger *zap.Logger) *Scheduler {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}
	if expiryInterval <= 0 {
		expiryInterval = 24 * time.Hour
	}
	// the lease must lapse before the next sweep tick of the same replica
	if lockTTL <= 0 || lockTTL >= sweepInterval {
		lockTTL = sweepInterval / 2
	}

	return &Scheduler{
		sweeper:        sweeper,
		expirer:        expirer,
		locker:         locker,
		sweepInterval:  sweepInterval,
		expiryInterval: expiryInterval,
		lockTTL:        lockTTL,
		logger:         logger.With(zap.String("component", "scheduler")),
		stopCh:         make(chan struct{}),
	}
}

// Start launches both loops and returns. Each task runs once immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("starting match scheduler",
		zap.Duration("sweep_interval", s.sweepInterval),
		zap.Duration("expiry_interval", s.expiryInterval))

	s.wg.Add(2)
	go s.loop(ctx, taskSweep, s.sweepInterval, s.runSweep)
	go s.loop(ctx, taskExpiry, s.expiryInterval, s.runExpiry)
}

// Stop ends both loops and waits for a running task to return
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, task string, interval time.Duration, run func(context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.tick(ctx, task, run)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx, task, run)
		case <-s.stopCh:
			s.logger.Info("stopping scheduled task", zap.String("task", task))
			return
		case <-ctx.Done():
			s.logger.Info("context cancelled, stopping scheduled task", zap.String("task", task))
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, task string, run func(context.Context)) {
	if s.locker != nil {
		ok, err := s.locker.TryLock(ctx, task, s.lockTTL)
		if err != nil {
			// both tasks are idempotent
			s.logger.Warn("failed to take task lock, running anyway", zap.String("task", task), zap.Error(err))
		} else if !ok {
			s.logger.Debug("task locked by another replica", zap.String("task", task))
			return
		}
	}

	run(ctx)
}

func (s *Scheduler) runSweep(ctx context.Context) {
	if _, err := s.sweeper.SweepAll(ctx); err != nil {
		s.logger.Error("agent sweep failed", zap.Error(err))
	}
}

func (s *Scheduler) runExpiry(ctx context.Context) {
	n, err := s.expirer.ExpireDue(ctx, time.Now())
	if err != nil {
		s.logger.Error("match expiry failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("expired pending matches", zap.Int("count", n))
	}
}
