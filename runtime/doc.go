// Package runtime is the operation surface of the bridge.
//
// A Runtime owns a handle table, a dispatcher and a native engine factory.
// Hosts drive it with dynamic values:
//
//	rt := runtime.New(engine.New(engine.Options{}), runtime.Options{})
//	defer rt.Close()
//
//	res, err := rt.Call(ctx, "from_protocol", codec.Atom("open_pgp"))
//	if err != nil {
//	    // bad argument: wrong type, unknown symbol, dead handle
//	}
//	if !res.IsOK() {
//	    // engine failure: res.Kind and res.Message()
//	}
//	h := res.Value.(resource.Handle)
//
// # Two error tiers
//
// Structural problems with the arguments come back as the error return, an
// *errors.Error, and never reach the engine. Everything the engine reports
// is an envelope.Result failure:
//
//	native              engine diagnostic text
//	decode              engine output that is not UTF-8
//	not_set             get_flag on an unset flag
//	engine_unavailable  the context lost its engine
//	init_failed         from_protocol could not create a context
//
// # Scheduling
//
// Getters and setters run on the caller's goroutine. Key and crypto
// operations run on the dispatcher's worker pool. Either way the context
// handle's lock orders calls on one context; calls on different contexts run
// concurrently.
//
// # Handles
//
// from_protocol returns a context handle and find_key a key handle. Both
// live until release or Close. Releasing a context that is in use closes it
// once the running calls finish.
package runtime
