package resource

import (
	"errors"
	"sync"
)

var (
	ErrClosed        = errors.New("resource backend closed")
	ErrInvalidHandle = errors.New("invalid resource handle")
)

// LocalBackend is an in-memory resource backend with borrow tracking.
type LocalBackend struct {
	entries  []entry
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value       any
	typeID      TypeID
	borrowCount uint32
	valid       bool
	dropped     bool
}

// live reports whether the entry still resolves for new lookups.
func (e *entry) live() bool {
	return e.valid && !e.dropped
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(typeID TypeID, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	e := entry{
		typeID: typeID,
		value:  value,
		valid:  true,
	}

	if len(b.freeList) > 0 {
		handle := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = e
		return handle, nil
	}

	b.entries = append(b.entries, e)
	return Handle(len(b.entries)), nil
}

// lookup returns the entry for handle. Callers hold b.mu.
func (b *LocalBackend) lookup(handle Handle) *entry {
	if handle == 0 {
		return nil
	}
	idx := int(handle - 1)
	if idx >= len(b.entries) {
		return nil
	}
	return &b.entries[idx]
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil || !e.live() {
		return nil, false
	}
	return e.value, true
}

// TypeID returns the type ID for a handle.
func (b *LocalBackend) TypeID(handle Handle) (TypeID, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e := b.lookup(handle)
	if e == nil || !e.live() {
		return 0, false
	}
	return e.typeID, true
}

// Borrow increments the borrow count of a live handle of the given type.
func (b *LocalBackend) Borrow(handle Handle, typeID TypeID) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || !e.live() || e.typeID != typeID {
		return nil, false
	}

	e.borrowCount++
	return e.value, true
}

// ReturnBorrow decrements the borrow count for a handle. When the handle was
// dropped while borrowed, the last return frees it and hands the value back.
func (b *LocalBackend) ReturnBorrow(handle Handle) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || !e.valid || e.borrowCount == 0 {
		return nil, false
	}

	e.borrowCount--
	if e.borrowCount > 0 || !e.dropped {
		return nil, false
	}
	return b.free(handle, e), true
}

// Drop removes a resource. With outstanding borrows the handle stops
// resolving immediately and the value is released by the last ReturnBorrow.
func (b *LocalBackend) Drop(handle Handle) (any, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.lookup(handle)
	if e == nil || !e.live() {
		return nil, false, ErrInvalidHandle
	}

	if e.borrowCount > 0 {
		e.dropped = true
		return nil, false, nil
	}
	return b.free(handle, e), true, nil
}

func (b *LocalBackend) free(handle Handle, e *entry) any {
	value := e.value
	*e = entry{}
	b.freeList = append(b.freeList, handle)
	return value
}

// Close releases all resources, borrowed or not.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for i := range b.entries {
		if b.entries[i].valid {
			if d, ok := b.entries[i].value.(Dropper); ok {
				if err := d.Drop(); err != nil {
					errs = append(errs, err)
				}
			}
			b.entries[i] = entry{}
		}
	}

	b.entries = nil
	b.freeList = nil
	return errors.Join(errs...)
}

// Len returns the number of live resources.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for i := range b.entries {
		if b.entries[i].live() {
			count++
		}
	}
	return count
}

// Each iterates over all live resources.
func (b *LocalBackend) Each(fn func(Handle, TypeID, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i := range b.entries {
		e := &b.entries[i]
		if e.live() {
			if !fn(Handle(i+1), e.typeID, e.value) {
				break
			}
		}
	}
}
