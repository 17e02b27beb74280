package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// sweepTimeout bounds a single sweep so a stuck store cannot pile up runs.
const sweepTimeout = 30 * time.Second

// Expirer deletes polls older than maxAge. PollService implements it.
type Expirer interface {
	SweepExpired(ctx context.Context, maxAge time.Duration) (int64, error)
}

// SweeperConfig controls the background retention sweep.
type SweeperConfig struct {
	MaxAge time.Duration
	// Interval between sweeps. 0 runs the startup sweep only.
	Interval time.Duration
	// RunOnStart sweeps immediately when Start is called.
	RunOnStart bool
}

// Sweeper runs Expirer.SweepExpired in a background goroutine. Failures are
// logged and the next tick tries again; they never reach request handlers.
type Sweeper struct {
	expirer Expirer
	config  SweeperConfig
	logger  *slog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

func NewSweeper(expirer Expirer, cfg SweeperConfig, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		expirer: expirer,
		config:  cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the sweep loop. Calling it more than once is a no-op, as is
// calling it after Stop.
func (s *Sweeper) Start() {
	s.startOnce.Do(func() {
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Info("starting retention sweeper",
			slog.Duration("maxAge", s.config.MaxAge),
			slog.Duration("interval", s.config.Interval),
		)
		s.wg.Add(1)
		go s.loop()
	})
}

// Stop cancels any in-flight sweep and waits for the loop to exit. Safe to
// call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("stopping retention sweeper")
		s.cancel()
	})
	s.wg.Wait()
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.RunOnce()
	}
	if s.config.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce performs one sweep and reports how many polls were deleted. Errors
// are logged, not returned.
func (s *Sweeper) RunOnce() int64 {
	ctx, cancel := context.WithTimeout(s.ctx, sweepTimeout)
	defer cancel()

	n, err := s.expirer.SweepExpired(ctx, s.config.MaxAge)
	if err != nil {
		if s.ctx.Err() == nil {
			s.logger.Error("retention sweep failed", slog.String("error", err.Error()))
		}
		return 0
	}
	return n
}
