package resource

// Handle is an opaque reference to a resource in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// TypeID tags the kind of value a handle refers to.
type TypeID uint32

const (
	TypeContext TypeID = iota + 1
	TypeKey
)

func (t TypeID) String() string {
	switch t {
	case TypeContext:
		return "context"
	case TypeKey:
		return "key"
	default:
		return "unknown"
	}
}

// Event types for resource lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventBorrowed
	EventBorrowReturned
	EventInvalidated
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventBorrowed:
		return "borrowed"
	case EventBorrowReturned:
		return "borrow_returned"
	case EventInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// Event represents a resource lifecycle event. For EventInvalidated, Value is
// the error that invalidated the handle.
type Event struct {
	Value  any
	Handle Handle
	TypeID TypeID
	Type   EventType
}

// Observer receives notifications about resource lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnResourceEvent calls f(e).
func (f ObserverFunc) OnResourceEvent(e Event) {
	f(e)
}

// Backend provides the underlying storage mechanism for resources.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(typeID TypeID, value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// TypeID returns the type tag of a live handle.
	TypeID(handle Handle) (TypeID, bool)

	// Borrow pins a live handle of the given type and returns its value.
	Borrow(handle Handle, typeID TypeID) (any, bool)

	// ReturnBorrow unpins a handle. It returns (value, true) when this was the
	// last borrow of a handle dropped in the meantime.
	ReturnBorrow(handle Handle) (any, bool)

	// Drop detaches a handle. It returns (value, true) when the value can be
	// released now, and (nil, false) when release waits for outstanding
	// borrows. Unknown handles return ErrInvalidHandle.
	Drop(handle Handle) (any, bool, error)

	// Each visits every live handle.
	Each(fn func(Handle, TypeID, any) bool)

	// Len returns the number of live handles.
	Len() int

	// Close releases all resources held by the backend.
	Close() error
}

// Dropper is optionally implemented by resource values that need cleanup.
type Dropper interface {
	Drop() error
}
