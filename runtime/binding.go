package runtime

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/wippyai/pgp-bridge/codec"
	"github.com/wippyai/pgp-bridge/dispatch"
	"github.com/wippyai/pgp-bridge/envelope"
	"github.com/wippyai/pgp-bridge/errors"
	"github.com/wippyai/pgp-bridge/native"
	"github.com/wippyai/pgp-bridge/resource"
)

// Binding carries the state of one call from argument decoding to
// completion. Context handles borrowed while decoding stay pinned until the
// call returns.
type Binding struct {
	rt       *Runtime
	op       string
	releases []func() error
}

// Op returns the operation name.
func (b *Binding) Op() string { return b.op }

// Context resolves and pins a context handle argument.
func (b *Binding) Context(path []string, v any) (*resource.ContextHandle, error) {
	h, err := Handle(path, v)
	if err != nil {
		return nil, err
	}
	ch, release, err := b.rt.handles.BorrowContext(path, h)
	if err != nil {
		return nil, err
	}
	b.releases = append(b.releases, release)
	return ch, nil
}

// Key resolves a key handle argument.
func (b *Binding) Key(path []string, v any) (*resource.KeyHandle, error) {
	h, err := Handle(path, v)
	if err != nil {
		return nil, err
	}
	return b.rt.handles.Key(path, h)
}

// Recipients resolves a recipient list into key snapshots.
func (b *Binding) Recipients(path []string, v any) ([]native.Key, error) {
	items, err := codec.List(path, v)
	if err != nil {
		return nil, err
	}
	handles := make([]resource.Handle, len(items))
	for i, item := range items {
		if handles[i], err = Handle(errors.PathIndex(path, i), item); err != nil {
			return nil, err
		}
	}
	return b.rt.handles.Keys(path, handles)
}

// ContextFunc is work that runs with a locked native context.
type ContextFunc func(native.Context) (envelope.Result, error)

// Shared returns a job running fn under a shared guard on ch.
func (b *Binding) Shared(ch *resource.ContextHandle, fn ContextFunc) dispatch.Job {
	return b.guarded(ch, fn, resource.WithShared)
}

// Exclusive returns a job running fn under an exclusive guard on ch.
func (b *Binding) Exclusive(ch *resource.ContextHandle, fn ContextFunc) dispatch.Job {
	return b.guarded(ch, fn, resource.WithExclusive)
}

func (b *Binding) guarded(ch *resource.ContextHandle, fn ContextFunc, with func(*resource.ContextHandle, func(native.Context) error) error) dispatch.Job {
	return func() (envelope.Result, error) {
		var res envelope.Result
		err := with(ch, func(nc native.Context) error {
			var err error
			res, err = fn(nc)
			return err
		})
		return b.outcome(res, err)
	}
}

// outcome sorts a call's error into the envelope or the argument channel.
func (b *Binding) outcome(res envelope.Result, err error) (envelope.Result, error) {
	if err == nil {
		return res, nil
	}
	var be *errors.Error
	if stderrors.As(err, &be) {
		switch be.Kind {
		case errors.KindInvalidUTF8:
			return envelope.Decode(), nil
		case errors.KindEngineUnavailable:
			return envelope.Unavailable(), nil
		}
		return envelope.Result{}, be
	}
	if stderrors.Is(err, native.ErrEngineUnavailable) {
		Logger().Warn("context invalidated", zap.String("op", b.op), zap.Error(err))
	}
	return envelope.Native(err), nil
}

func (b *Binding) done() {
	for _, release := range b.releases {
		if err := release(); err != nil {
			Logger().Warn("deferred context close failed", zap.String("op", b.op), zap.Error(err))
		}
	}
	b.releases = nil
}

// Handle decodes a resource handle. Plain integers are accepted for hosts
// that carry handles as numbers.
func Handle(path []string, v any) (resource.Handle, error) {
	if h, ok := v.(resource.Handle); ok {
		return h, nil
	}
	n, err := codec.Uint32(path, v)
	if err != nil {
		return 0, errors.TypeMismatch(errors.PhaseDecode, path, v, "handle")
	}
	return resource.Handle(n), nil
}

// Bytes decodes a string or byte slice argument.
func Bytes(path []string, v any) ([]byte, error) {
	switch x := v.(type) {
	case string:
		return []byte(x), nil
	case []byte:
		return x, nil
	default:
		return nil, errors.TypeMismatch(errors.PhaseDecode, path, v, "string")
	}
}
