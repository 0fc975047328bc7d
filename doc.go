// Package pgpbridge exposes an OpenPGP engine to a host runtime through
// opaque handles and uniform result envelopes.
//
// Hosts never touch engine objects directly. They open a context, receive a
// handle, and pass that handle to every later operation. Results come back as
// {ok, value} or {error, reason} envelopes; malformed arguments are reported
// separately as Go errors before anything reaches the engine.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	pgpbridge/           Root package (documentation only)
//	├── runtime/         Operation registry and the host-facing Call API
//	├── dispatch/        Worker pool that runs engine calls off the caller
//	├── resource/        Handle table for contexts and keys
//	├── codec/           Host value decoding, symbol tables, report encoding
//	├── envelope/        {ok, value} / {error, reason} results
//	├── errors/          Structured argument errors with paths
//	├── native/          Engine interfaces, types and error codes
//	├── engine/          OpenPGP engine backed by a bbolt keyring
//	├── pinentry/        Passphrase sources (terminal, OS keyring)
//	├── config/          YAML settings
//	└── cmd/pgpbridge/   Command line and interactive console
//
// # Quick Start
//
//	rt := runtime.New(engine.New(engine.Options{}), runtime.Options{})
//	defer rt.Close()
//
//	res, err := rt.FromProtocol(ctx, "open_pgp")
//	if err != nil {
//	    log.Fatal(err) // bad arguments
//	}
//	if !res.IsOK() {
//	    log.Fatal(res.Message()) // engine refused
//	}
//	h := res.Value.(resource.Handle)
//
//	res, _ = rt.Import(ctx, h, armoredKey)
//	key, _ := rt.FindKey(ctx, h, fingerprint)
//	res, _ = rt.EncryptWithFlags(ctx, h, []resource.Handle{key.Value.(resource.Handle)},
//	    "hello", []string{"always_trust"})
//
// # Thread Safety
//
// Runtime is safe for concurrent use. Calls on the same context handle are
// serialized; calls on different contexts run in parallel on the worker pool.
// Releasing a handle that is still in use defers the engine close until the
// last call returns.
package pgpbridge
