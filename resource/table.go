package resource

import "sync"

// Table maps handles to bridge values with type checks, deferred release and
// observer support.
type Table struct {
	backend   Backend
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// NewTable creates a table backed by a LocalBackend.
func NewTable() *Table {
	return NewTableWithBackend(NewLocalBackend())
}

// NewTableWithBackend creates a table over a custom backend.
func NewTableWithBackend(b Backend) *Table {
	return &Table{backend: b}
}

// Insert adds a value and returns its handle.
func (t *Table) Insert(typeID TypeID, value any) (Handle, error) {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0, ErrClosed
	}
	t.closeMu.RUnlock()

	handle, err := t.backend.Create(typeID, value)
	if err != nil {
		return 0, err
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return handle, nil
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTyped retrieves a value only if it matches the expected type.
func (t *Table) GetTyped(handle Handle, typeID TypeID) (any, bool) {
	actual, ok := t.backend.TypeID(handle)
	if !ok || actual != typeID {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Borrow pins a handle for the duration of a call. The returned function
// returns the borrow and must be called exactly once.
func (t *Table) Borrow(handle Handle, typeID TypeID) (any, func() error, bool) {
	value, ok := t.backend.Borrow(handle, typeID)
	if !ok {
		return nil, nil, false
	}
	t.notify(Event{Type: EventBorrowed, Handle: handle, TypeID: typeID, Value: value})

	var once sync.Once
	var err error
	release := func() error {
		once.Do(func() {
			t.notify(Event{Type: EventBorrowReturned, Handle: handle, TypeID: typeID, Value: value})
			if v, last := t.backend.ReturnBorrow(handle); last {
				err = t.release(handle, typeID, v)
			}
		})
		return err
	}
	return value, release, true
}

// Remove drops a handle. The value's Drop runs now, or after the last
// outstanding borrow is returned.
func (t *Table) Remove(handle Handle) error {
	typeID, _ := t.backend.TypeID(handle)
	value, now, err := t.backend.Drop(handle)
	if err != nil {
		return err
	}
	if !now {
		return nil
	}
	return t.release(handle, typeID, value)
}

func (t *Table) release(handle Handle, typeID TypeID, value any) error {
	var err error
	if d, ok := value.(Dropper); ok {
		err = d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		TypeID: typeID,
		Value:  value,
	})

	return err
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer. Observers are matched by identity, so
// function observers must be pointers to be removable.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live resources.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Close releases all resources and stops accepting new ones.
func (t *Table) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	return t.backend.Close()
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
