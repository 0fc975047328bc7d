package resource

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/wippyai/pgp-bridge/errors"
	"github.com/wippyai/pgp-bridge/native"
)

// ContextHandle owns one native context and serializes every call into it.
//
// Shared and exclusive acquisition take the same lock. The distinction tells
// readers which calls only query state; it does not let them overlap.
type ContextHandle struct {
	ctx       native.Context
	cause     error
	onInvalid func(cause error)
	mu        sync.Mutex
	invalid   bool
	closed    bool
}

// NewContextHandle takes ownership of ctx.
func NewContextHandle(ctx native.Context) *ContextHandle {
	return &ContextHandle{ctx: ctx}
}

// AcquireShared locks the handle for a read-only query.
func (h *ContextHandle) AcquireShared() (*Guard, error) {
	return h.acquire()
}

// AcquireExclusive locks the handle for a configuration change or an
// engine operation.
func (h *ContextHandle) AcquireExclusive() (*Guard, error) {
	return h.acquire()
}

func (h *ContextHandle) acquire() (*Guard, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, errors.Closed("context handle")
	}
	if h.invalid {
		cause := h.cause
		h.mu.Unlock()
		return nil, errors.EngineUnavailable(cause)
	}
	return &Guard{h: h}, nil
}

// Valid reports whether the handle can still reach its engine.
func (h *ContextHandle) Valid() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.invalid && !h.closed
}

// Invalidate marks the handle unusable. Later acquisitions fail with an
// engine-unavailable error carrying cause.
func (h *ContextHandle) Invalidate(cause error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invalidateLocked(cause)
}

// invalidateLocked records the first cause and reports it once. The hook runs
// with the handle locked and must not call back into it.
func (h *ContextHandle) invalidateLocked(cause error) {
	if h.invalid {
		return
	}
	h.invalid = true
	h.cause = cause
	if h.onInvalid != nil {
		h.onInvalid(cause)
	}
}

// Drop closes the native context. It waits for an in-flight call to finish.
func (h *ContextHandle) Drop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if err := h.ctx.Close(); err != nil {
		return fmt.Errorf("close native context: %w", err)
	}
	return nil
}

// Guard is scoped access to a locked context.
type Guard struct {
	h        *ContextHandle
	released bool
}

// Context returns the native context. It must not be used after Release.
func (g *Guard) Context() native.Context {
	return g.h.ctx
}

// Check invalidates the handle when err reports a lost engine and returns
// err unchanged.
func (g *Guard) Check(err error) error {
	if err != nil && stderrors.Is(err, native.ErrEngineUnavailable) {
		g.h.invalidateLocked(err)
	}
	return err
}

// Release unlocks the handle. Calling it again is a no-op.
func (g *Guard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.h.mu.Unlock()
}

// WithShared runs fn under a shared guard and releases it on every exit path.
func WithShared(h *ContextHandle, fn func(native.Context) error) error {
	g, err := h.AcquireShared()
	if err != nil {
		return err
	}
	defer g.Release()
	return g.Check(fn(g.Context()))
}

// WithExclusive runs fn under an exclusive guard and releases it on every exit
// path.
func WithExclusive(h *ContextHandle, fn func(native.Context) error) error {
	g, err := h.AcquireExclusive()
	if err != nil {
		return err
	}
	defer g.Release()
	return g.Check(fn(g.Context()))
}
