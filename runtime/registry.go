package runtime

import (
	"sort"
	"sync"

	"github.com/wippyai/pgp-bridge/dispatch"
	"github.com/wippyai/pgp-bridge/errors"
)

// Handler decodes the arguments of one call and returns the work to run.
// Argument errors are returned here, before anything is scheduled.
type Handler func(b *Binding, args []any) (dispatch.Job, error)

// Operation is one named entry point.
type Operation struct {
	Handler Handler
	Name    string
	Arity   int
}

// Registry holds the operations a runtime exposes.
type Registry struct {
	ops map[string]*Operation
	mu  sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]*Operation)}
}

// Register adds an operation. The name must have a dispatch class.
func (r *Registry) Register(name string, arity int, h Handler) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseDispatch, "operation name cannot be empty")
	}
	if h == nil {
		return errors.InvalidInput(errors.PhaseDispatch, "handler cannot be nil")
	}
	if arity < 0 {
		return errors.InvalidInput(errors.PhaseDispatch, "arity cannot be negative")
	}
	if _, ok := dispatch.Classify(name); !ok {
		return errors.New(errors.PhaseDispatch, errors.KindNotFound).
			Value(name).
			Detail("operation %q has no dispatch class", name).
			Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[name] = &Operation{Name: name, Arity: arity, Handler: h}
	return nil
}

// Lookup returns the operation registered under name.
func (r *Registry) Lookup(name string) (*Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Names returns the registered operation names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.ops))
	for name := range r.ops {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
