package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProcessor struct {
	mu         sync.Mutex
	running    int
	maxRunning int
	done       int32
	block      time.Duration
	sawTimeout int32
}

func (c *countingProcessor) Process(ctx context.Context, taskID, audioPath, callbackURL string) error {
	c.mu.Lock()
	c.running++
	if c.running > c.maxRunning {
		c.maxRunning = c.running
	}
	c.mu.Unlock()

	select {
	case <-time.After(c.block):
	case <-ctx.Done():
		atomic.AddInt32(&c.sawTimeout, 1)
	}

	c.mu.Lock()
	c.running--
	c.mu.Unlock()
	atomic.AddInt32(&c.done, 1)
	return nil
}

func poolLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPoolBoundsConcurrency(t *testing.T) {
	proc := &countingProcessor{block: 50 * time.Millisecond}
	pool := NewPool(Config{PoolSize: 2, QueueSize: 16}, proc, poolLogger())
	pool.Start(context.Background())

	for i := 0; i < 8; i++ {
		require.NoError(t, pool.Submit(Job{TaskID: "t"}))
	}
	pool.Stop()

	assert.Equal(t, int32(8), atomic.LoadInt32(&proc.done))
	assert.LessOrEqual(t, proc.maxRunning, 2)
}

func TestPoolQueueFull(t *testing.T) {
	proc := &countingProcessor{block: 200 * time.Millisecond}
	pool := NewPool(Config{PoolSize: 1, QueueSize: 1}, proc, poolLogger())
	// not started: nothing drains the queue

	require.NoError(t, pool.Submit(Job{TaskID: "t1"}))
	err := pool.Submit(Job{TaskID: "t2"})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestPoolRejectsAfterStop(t *testing.T) {
	proc := &countingProcessor{}
	pool := NewPool(Config{PoolSize: 1, QueueSize: 1}, proc, poolLogger())
	pool.Start(context.Background())
	pool.Stop()

	assert.Error(t, pool.Submit(Job{TaskID: "t"}))
}

func TestPoolHardTimeoutCancelsJob(t *testing.T) {
	proc := &countingProcessor{block: 5 * time.Second}
	pool := NewPool(Config{
		PoolSize:    1,
		QueueSize:   1,
		HardTimeout: 50 * time.Millisecond,
	}, proc, poolLogger())
	pool.Start(context.Background())

	require.NoError(t, pool.Submit(Job{TaskID: "t"}))
	pool.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&proc.sawTimeout))
}
