package resource

import (
	"github.com/wippyai/pgp-bridge/errors"
	"github.com/wippyai/pgp-bridge/native"
)

// NewContext stores a fresh context handle for ctx. Observers see an
// EventInvalidated when the handle loses its engine.
func (t *Table) NewContext(ctx native.Context) (Handle, *ContextHandle, error) {
	ch := NewContextHandle(ctx)
	h, err := t.Insert(TypeContext, ch)
	if err != nil {
		return 0, nil, err
	}
	ch.onInvalid = func(cause error) {
		t.notify(Event{Type: EventInvalidated, Handle: h, TypeID: TypeContext, Value: cause})
	}
	return h, ch, nil
}

// NewKey stores a key snapshot.
func (t *Table) NewKey(k native.Key) (Handle, error) {
	return t.Insert(TypeKey, NewKeyHandle(k))
}

// BorrowContext resolves a context handle and pins it for one call. A handle
// removed while pinned is closed when the returned release runs.
func (t *Table) BorrowContext(path []string, handle Handle) (*ContextHandle, func() error, error) {
	v, release, ok := t.Borrow(handle, TypeContext)
	if !ok {
		return nil, nil, errors.InvalidHandle(path, handle, TypeContext.String())
	}
	return v.(*ContextHandle), release, nil
}

// Key resolves a key handle.
func (t *Table) Key(path []string, handle Handle) (*KeyHandle, error) {
	v, ok := t.GetTyped(handle, TypeKey)
	if !ok {
		return nil, errors.InvalidHandle(path, handle, TypeKey.String())
	}
	return v.(*KeyHandle), nil
}

// Keys resolves every element of a recipient list. The list must be
// non-empty and every element must be a live key handle.
func (t *Table) Keys(path []string, handles []Handle) ([]native.Key, error) {
	if len(handles) == 0 {
		return nil, errors.EmptyRecipients(path)
	}
	keys := make([]native.Key, len(handles))
	for i, h := range handles {
		kh, err := t.Key(errors.PathIndex(path, i), h)
		if err != nil {
			return nil, err
		}
		keys[i] = kh.Key()
	}
	return keys, nil
}
