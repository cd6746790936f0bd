// Package worker bounds the number of transcription tasks running at once.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Job is one queued transcription request.
type Job struct {
	TaskID      string
	AudioPath   string
	CallbackURL string
}

// Processor runs one job to a terminal state.
type Processor interface {
	Process(ctx context.Context, taskID, audioPath, callbackURL string) error
}

// ErrQueueFull is returned by Submit when the queue has no room.
var ErrQueueFull = errors.New("worker queue full")

// Config sizes the pool.
type Config struct {
	// PoolSize is the maximum number of concurrently running jobs.
	PoolSize int

	// QueueSize is the number of jobs waiting behind the running ones.
	QueueSize int

	// SoftTimeout logs a warning when a job runs longer than this.
	SoftTimeout time.Duration

	// HardTimeout cancels the job context.
	HardTimeout time.Duration
}

// Pool dispatches jobs to the processor with bounded concurrency. A weighted
// semaphore caps running jobs; the channel buffers the backlog.
type Pool struct {
	cfg       Config
	processor Processor
	jobs      chan Job
	sem       *semaphore.Weighted
	wg        sync.WaitGroup
	log       *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewPool builds a stopped pool; call Start to begin dispatching.
func NewPool(cfg Config, processor Processor, log *slog.Logger) *Pool {
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = cfg.PoolSize * 4
	}
	return &Pool{
		cfg:       cfg,
		processor: processor,
		jobs:      make(chan Job, cfg.QueueSize),
		sem:       semaphore.NewWeighted(int64(cfg.PoolSize)),
		log:       log,
	}
}

// Start launches the dispatcher. ctx cancellation stops intake; jobs already
// running finish under their own timeouts.
func (p *Pool) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case job, ok := <-p.jobs:
				if !ok {
					return
				}
				if err := p.sem.Acquire(ctx, 1); err != nil {
					return
				}
				p.wg.Add(1)
				go func(job Job) {
					defer p.wg.Done()
					defer p.sem.Release(1)
					p.run(job)
				}(job)
			}
		}
	}()
	p.log.Info("worker pool started",
		slog.Int("pool_size", p.cfg.PoolSize),
		slog.Int("queue_size", p.cfg.QueueSize))
}

// Submit queues a job without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("worker pool stopped")
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes intake and waits for queued and running jobs to drain.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) run(job Job) {
	ctx := context.Background()
	if p.cfg.HardTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.HardTimeout)
		defer cancel()
	}

	if p.cfg.SoftTimeout > 0 {
		timer := time.AfterFunc(p.cfg.SoftTimeout, func() {
			p.log.Warn("job exceeded soft timeout",
				slog.String("task_id", job.TaskID),
				slog.Duration("soft_timeout", p.cfg.SoftTimeout))
		})
		defer timer.Stop()
	}

	start := time.Now()
	if err := p.processor.Process(ctx, job.TaskID, job.AudioPath, job.CallbackURL); err != nil {
		p.log.Error("job processing error",
			slog.String("task_id", job.TaskID),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("error", err.Error()))
		return
	}
	p.log.Info("job finished",
		slog.String("task_id", job.TaskID),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
}
