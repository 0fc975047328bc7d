package runtime

import (
	"context"
	stderrors "errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/pgp-bridge/dispatch"
	"github.com/wippyai/pgp-bridge/envelope"
	"github.com/wippyai/pgp-bridge/errors"
	"github.com/wippyai/pgp-bridge/native"
	"github.com/wippyai/pgp-bridge/resource"
)

// Options configures a Runtime. Zero values select defaults.
type Options struct {
	Workers   int
	QueueSize int
}

// Runtime exposes the bridge operations over one engine factory.
type Runtime struct {
	factory    native.Factory
	handles    *resource.Table
	dispatcher *dispatch.Dispatcher
	ops        *Registry
	closed     atomic.Bool
}

// New creates a runtime that opens contexts through factory.
func New(factory native.Factory, opts Options) *Runtime {
	if opts.Workers <= 0 {
		opts.Workers = dispatch.DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = dispatch.DefaultQueueSize
	}

	r := &Runtime{
		factory:    factory,
		handles:    resource.NewTable(),
		dispatcher: dispatch.New(opts.Workers, opts.QueueSize),
		ops:        NewRegistry(),
	}
	r.handles.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		if e.Type == resource.EventInvalidated {
			err, _ := e.Value.(error)
			Logger().Warn("context lost its engine",
				zap.Uint32("handle", uint32(e.Handle)),
				zap.Error(err))
			return
		}
		Logger().Debug("resource event",
			zap.Stringer("event", e.Type),
			zap.Stringer("type", e.TypeID),
			zap.Uint32("handle", uint32(e.Handle)))
	}))
	r.registerBuiltins()
	return r
}

// Call runs the named operation. Argument errors are returned as err;
// everything the engine reports is in the result.
func (r *Runtime) Call(ctx context.Context, name string, args ...any) (envelope.Result, error) {
	if r.closed.Load() {
		return envelope.Result{}, errors.Closed("runtime")
	}
	op, ok := r.ops.Lookup(name)
	if !ok {
		return envelope.Result{}, errors.NotFound(errors.PhaseDispatch, "operation", name)
	}
	if len(args) != op.Arity {
		return envelope.Result{}, errors.Arity(name, len(args), op.Arity)
	}

	b := &Binding{rt: r, op: name}
	defer b.done()

	job, err := op.Handler(b, args)
	if err != nil {
		return envelope.Result{}, err
	}
	return r.dispatcher.Do(ctx, name, job)
}

// Operations returns the names Call accepts.
func (r *Runtime) Operations() []string {
	return r.ops.Names()
}

// Handles returns the handle table, for observers and inspection.
func (r *Runtime) Handles() *resource.Table {
	return r.handles
}

// Stats returns the worker pool's activity.
func (r *Runtime) Stats() dispatch.Stats {
	return r.dispatcher.Stats()
}

// Close waits for queued calls and releases every handle.
func (r *Runtime) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return stderrors.Join(r.dispatcher.Close(), r.handles.Close())
}

// create opens a native context and stores it under a new handle.
func (r *Runtime) create(protocol native.Protocol) (envelope.Result, error) {
	nc, err := r.factory.New(protocol)
	if err != nil {
		Logger().Warn("context init failed", zap.Uint32("protocol", uint32(protocol)), zap.Error(err))
		return envelope.InitFailed(err), nil
	}
	h, _, err := r.handles.NewContext(nc)
	if err != nil {
		_ = nc.Close()
		return envelope.Result{}, errors.Closed("runtime")
	}
	return envelope.OK(h), nil
}
