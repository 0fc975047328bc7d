// Package resource manages the opaque handles a host holds on engine objects.
//
// # Handle Table
//
// The Table maps integer handles to bridge values:
//
//	table := resource.NewTable()
//
//	// Store a context, get a handle
//	h, ch, err := table.NewContext(nativeCtx)
//
//	// Pin it for one call
//	ch, release, err := table.BorrowContext(path, h)
//	defer release()
//
//	// Detach it; the native context closes once the last borrow returns
//	err = table.Remove(h)
//
// Handle 0 is never issued. Freed handles are reused.
//
// # Type Safety
//
// Every handle carries a TypeID. Resolving a key handle where a context is
// expected fails with an invalid_handle error:
//
//	_, err := table.BorrowContext(path, keyHandle) // err != nil
//
// # Context Locking
//
// A ContextHandle serializes all access to its native context. Guards from
// AcquireShared and AcquireExclusive take the same mutex:
//
//	err := resource.WithExclusive(ch, func(c native.Context) error {
//	    _, err := c.Encrypt(keys, data, flags)
//	    return err
//	})
//
// An error matching native.ErrEngineUnavailable invalidates the handle; later
// acquisitions fail with an engine_unavailable error.
//
// # Key Handles
//
// A KeyHandle is an immutable snapshot and needs no lock. It stays valid
// after the context that produced it is dropped.
//
// # Observers
//
// Register observers to track resource lifecycle events:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s %d %s", e.TypeID, e.Handle, e.Type)
//	}))
package resource
