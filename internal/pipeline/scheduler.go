package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/newsdesk/internal/model"
)

// Runner executes one ingestion run.
type Runner interface {
	Run(ctx context.Context) (*model.RunStats, error)
}

// Scheduler triggers a run immediately and then on every tick. A tick
// that finds a run still active is dropped, not queued.
type Scheduler struct {
	runner   Runner
	interval time.Duration

	// OnRun, if set, is called after every completed run.
	OnRun func(*model.RunStats)
}

// NewScheduler creates a Scheduler.
func NewScheduler(r Runner, interval time.Duration) *Scheduler {
	return &Scheduler{runner: r, interval: interval}
}

// Start blocks until ctx is done, then waits for an in-flight run.
func (s *Scheduler) Start(ctx context.Context) {
	interval := s.interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	zap.L().Info("scheduler: starting", zap.Duration("interval", interval))

	var wg sync.WaitGroup
	defer wg.Wait()

	trigger := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runOnce(ctx)
		}()
	}

	trigger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			zap.L().Info("scheduler: stopping")
			return
		case <-ticker.C:
			trigger()
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	stats, err := s.runner.Run(ctx)
	if errors.Is(err, ErrRunInProgress) {
		zap.L().Info("scheduler: previous run still active, skipping tick")
		return
	}
	if err != nil {
		zap.L().Error("scheduler: run failed", zap.Error(err))
		return
	}
	if s.OnRun != nil {
		s.OnRun(stats)
	}
}
