// Package scheduler runs named jobs on fixed intervals for the lifetime of
// the process.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"collab-service/internal/clock"
)

// Job is a unit of periodic work.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	Run      func(ctx context.Context) error
}

// Runner owns the goroutines running its jobs.
type Runner struct {
	log    *zap.Logger
	clock  clock.Clock
	jobs   []Job
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewRunner returns a Runner for jobs. Nothing runs until Start.
func NewRunner(logger *zap.Logger, clk clock.Clock, jobs ...Job) *Runner {
	return &Runner{
		log:    logger,
		clock:  clk,
		jobs:   jobs,
		stopCh: make(chan struct{}),
	}
}

// Start launches one loop per job. Tickers exist by the time Start returns.
func (r *Runner) Start() {
	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(job, r.clock.NewTicker(job.Interval))
		r.log.Info("scheduled job started",
			zap.String("job", job.Name),
			zap.Duration("interval", job.Interval))
	}
}

// Stop signals every loop and waits for in-flight runs to finish.
func (r *Runner) Stop() {
	r.once.Do(func() { close(r.stopCh) })
	r.wg.Wait()
	r.log.Info("scheduler stopped")
}

func (r *Runner) loop(job Job, ticker clock.Ticker) {
	defer r.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C():
			r.RunOnce(job)
		}
	}
}

// RunOnce executes job a single time with its timeout applied.
func (r *Runner) RunOnce(job Job) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := r.clock.Now()
	if err := job.Run(ctx); err != nil {
		r.log.Error("scheduled job failed", zap.String("job", job.Name), zap.Error(err))
		return
	}
	r.log.Debug("scheduled job finished", zap.String("job", job.Name), zap.Duration("took", r.clock.Now().Sub(start)))
}
