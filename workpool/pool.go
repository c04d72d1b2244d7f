package workpool

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrPoolClosed is returned by Submit after Close.
	ErrPoolClosed = errors.New("worker pool closed")

	// ErrNilTask is returned by Submit for a nil task.
	ErrNilTask = errors.New("task cannot be nil")
)

// DefaultIdleTimeout is how long an idle worker waits before exiting.
const DefaultIdleTimeout = 60 * time.Second

// Pool is a cached pool of worker goroutines.
type Pool struct {
	name        string
	idleTimeout time.Duration

	handoff chan func()
	quit    chan struct{}

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	workers atomic.Int64
	peak    atomic.Int64
	spawned atomic.Uint64
	panics  atomic.Uint64
}

// New creates an empty pool. A non-positive idleTimeout selects
// DefaultIdleTimeout.
func New(name string, idleTimeout time.Duration) *Pool {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}

	logrus.WithFields(logrus.Fields{
		"function":     "workpool.New",
		"pool":         name,
		"idle_timeout": idleTimeout,
	}).Debug("Creating worker pool")

	return &Pool{
		name:        name,
		idleTimeout: idleTimeout,
		handoff:     make(chan func()),
		quit:        make(chan struct{}),
	}
}

// Submit runs task on an idle worker, or on a new worker when none is idle.
// It never blocks on task execution.
func (p *Pool) Submit(task func()) error {
	if task == nil {
		return ErrNilTask
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.handoff <- task:
		return nil
	default:
	}

	p.wg.Add(1)
	n := p.workers.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	p.spawned.Add(1)

	go p.worker(task)
	return nil
}

func (p *Pool) worker(task func()) {
	defer p.wg.Done()
	defer p.workers.Add(-1)

	timer := time.NewTimer(p.idleTimeout)
	defer timer.Stop()

	for {
		p.run(task)

		timer.Reset(p.idleTimeout)
		select {
		case task = <-p.handoff:
		case <-timer.C:
			logrus.WithFields(logrus.Fields{
				"function": "Pool.worker",
				"pool":     p.name,
			}).Trace("Reaping idle worker")
			return
		case <-p.quit:
			return
		}
	}
}

// run executes one task. A panicking task is logged and counted; the worker
// survives it.
func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			logrus.WithFields(logrus.Fields{
				"function": "Pool.run",
				"pool":     p.name,
				"panic":    r,
				"stack":    string(debug.Stack()),
			}).Error("Task panicked")
		}
	}()
	task()
}

// Close refuses further tasks and releases idle workers. Busy workers exit
// after their current task. Close is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.quit)

	logrus.WithFields(logrus.Fields{
		"function": "Pool.Close",
		"pool":     p.name,
		"workers":  p.workers.Load(),
	}).Debug("Worker pool closed")
}

// Wait blocks until every worker has exited or ctx is done. Call Close first,
// otherwise idle workers linger until their timeout.
func (p *Pool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Closed reports whether Close has been called.
func (p *Pool) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Workers returns the number of live worker goroutines.
func (p *Pool) Workers() int {
	return int(p.workers.Load())
}

// PeakWorkers returns the highest number of simultaneously live workers.
func (p *Pool) PeakWorkers() int {
	return int(p.peak.Load())
}

// Spawned returns how many worker goroutines have been started.
func (p *Pool) Spawned() uint64 {
	return p.spawned.Load()
}

// Panics returns how many tasks panicked.
func (p *Pool) Panics() uint64 {
	return p.panics.Load()
}
