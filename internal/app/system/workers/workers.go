// internal/app/system/workers/workers.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is a unit of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration // per run; zero means 30s
	Run      func(ctx context.Context) error
}

// Runner ticks each registered job on its own goroutine until Stop.
type Runner struct {
	log    *zap.Logger
	jobs   []Job
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

func NewRunner(logger *zap.Logger, jobs ...Job) *Runner {
	return &Runner{log: logger, jobs: jobs, stopCh: make(chan struct{})}
}

// Start launches every job. Each job first runs after one interval.
func (r *Runner) Start() {
	for _, j := range r.jobs {
		r.wg.Add(1)
		go r.loop(j)
		r.log.Info("background job started",
			zap.String("job", j.Name),
			zap.Duration("interval", j.Interval))
	}
}

// Stop signals every job to stop and waits for in-flight runs to finish.
func (r *Runner) Stop() {
	r.once.Do(func() { close(r.stopCh) })
	r.wg.Wait()
	r.log.Info("background jobs stopped")
}

func (r *Runner) loop(j Job) {
	defer r.wg.Done()

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.runOnce(j)
		}
	}
}

func (r *Runner) runOnce(j Job) {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := j.Run(ctx); err != nil {
		r.log.Error("background job failed", zap.String("job", j.Name), zap.Error(err))
	}
}
