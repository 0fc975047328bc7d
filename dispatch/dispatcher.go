// Package dispatch decides where an operation runs and runs it there:
// cheap queries inline on the caller, engine work on a bounded pool of
// OS-thread-pinned workers.
package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/pgp-bridge/envelope"
	"github.com/wippyai/pgp-bridge/errors"
)

// Dispatcher routes each operation by its fixed class.
type Dispatcher struct {
	pool *Pool
}

// New creates a dispatcher with its own worker pool.
func New(workers, queueSize int) *Dispatcher {
	return &Dispatcher{pool: NewPool(workers, queueSize)}
}

// Do runs fn inline or on the pool according to op's class. Unknown operations
// are rejected without running fn.
func (d *Dispatcher) Do(ctx context.Context, op string, fn Job) (envelope.Result, error) {
	class, ok := Classify(op)
	if !ok {
		return envelope.Result{}, errors.NotFound(errors.PhaseDispatch, "operation", op)
	}
	if class == Inline {
		Logger().Debug("inline call", zap.String("op", op))
		return run(op, fn)
	}
	return d.pool.Submit(ctx, op, fn)
}

// Stats returns the pool's activity snapshot.
func (d *Dispatcher) Stats() Stats {
	return d.pool.Stats()
}

// Close shuts the pool down.
func (d *Dispatcher) Close() error {
	return d.pool.Close()
}
