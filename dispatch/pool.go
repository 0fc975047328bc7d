package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/pgp-bridge/envelope"
	"github.com/wippyai/pgp-bridge/errors"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 64
)

// Job is the body of one call. Argument-tier errors go in the error result,
// engine outcomes in the envelope.
type Job func() (envelope.Result, error)

const (
	taskPending int32 = iota
	taskRunning
	taskCancelled
)

type task struct {
	fn    Job
	done  chan outcome
	id    uuid.UUID
	op    string
	state atomic.Int32
}

type outcome struct {
	err error
	res envelope.Result
}

// Stats is a snapshot of pool activity.
type Stats struct {
	Workers   int
	Queued    int
	Running   int
	Peak      int
	Completed uint64
}

// Pool runs blocking jobs on a fixed set of goroutines, each locked to its own
// OS thread, fed by a bounded queue.
type Pool struct {
	queue     chan *task
	group     *errgroup.Group
	workers   int
	mu        sync.RWMutex
	closed    bool
	running   atomic.Int32
	peak      atomic.Int32
	completed atomic.Uint64
}

// NewPool starts workers goroutines over a queue of queueSize pending jobs.
// Non-positive values select the defaults.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	p := &Pool{
		queue:   make(chan *task, queueSize),
		group:   &errgroup.Group{},
		workers: workers,
	}
	for i := range workers {
		p.group.Go(func() error {
			p.work(i)
			return nil
		})
	}
	Logger().Debug("pool started", zap.Int("workers", workers), zap.Int("queue", queueSize))
	return p
}

// Submit queues fn and waits for its result. A ctx cancelled before a worker
// picks the job up aborts it; once picked up the job runs to completion and
// Submit waits for it.
func (p *Pool) Submit(ctx context.Context, op string, fn Job) (envelope.Result, error) {
	t := &task{
		fn:   fn,
		done: make(chan outcome, 1),
		id:   uuid.New(),
		op:   op,
	}

	if err := p.enqueue(ctx, t); err != nil {
		return envelope.Result{}, err
	}

	select {
	case o := <-t.done:
		return o.res, o.err
	case <-ctx.Done():
		if t.state.CompareAndSwap(taskPending, taskCancelled) {
			Logger().Debug("call cancelled in queue", zap.String("op", op), zap.Stringer("call_id", t.id))
			return envelope.Result{}, errors.Cancelled(op, ctx.Err())
		}
		o := <-t.done
		return o.res, o.err
	}
}

func (p *Pool) enqueue(ctx context.Context, t *task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return errors.Closed("dispatcher")
	}
	if err := ctx.Err(); err != nil {
		return errors.Cancelled(t.op, err)
	}
	select {
	case p.queue <- t:
		return nil
	case <-ctx.Done():
		return errors.Cancelled(t.op, ctx.Err())
	}
}

func (p *Pool) work(id int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for t := range p.queue {
		if !t.state.CompareAndSwap(taskPending, taskRunning) {
			continue
		}
		n := p.running.Add(1)
		for {
			peak := p.peak.Load()
			if n <= peak || p.peak.CompareAndSwap(peak, n) {
				break
			}
		}

		start := time.Now()
		res, err := run(t.op, t.fn)
		p.running.Add(-1)
		p.completed.Add(1)

		Logger().Debug("call done",
			zap.String("op", t.op),
			zap.Stringer("call_id", t.id),
			zap.Int("worker", id),
			zap.Duration("elapsed", time.Since(start)),
			zap.Bool("ok", err == nil && res.IsOK()))
		t.done <- outcome{res: res, err: err}
	}
}

// run executes fn, turning a panic into a native failure.
func run(op string, fn Job) (res envelope.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("call panicked", zap.String("op", op), zap.Any("panic", r))
			res = envelope.Native(fmt.Errorf("panic: %v", r))
			err = nil
		}
	}()
	return fn()
}

// Stats returns a snapshot of pool activity.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.workers,
		Queued:    len(p.queue),
		Running:   int(p.running.Load()),
		Peak:      int(p.peak.Load()),
		Completed: p.completed.Load(),
	}
}

// Close stops accepting jobs, lets queued jobs finish and waits for the
// workers to exit.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	err := p.group.Wait()
	Logger().Debug("pool stopped", zap.Uint64("completed", p.completed.Load()))
	return err
}
