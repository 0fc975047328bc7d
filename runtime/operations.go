package runtime

import (
	stderrors "errors"
	"fmt"

	"github.com/wippyai/pgp-bridge/codec"
	"github.com/wippyai/pgp-bridge/dispatch"
	"github.com/wippyai/pgp-bridge/envelope"
	"github.com/wippyai/pgp-bridge/errors"
	"github.com/wippyai/pgp-bridge/native"
	"github.com/wippyai/pgp-bridge/resource"
)

// Argument paths used in error reports.
var (
	pathContext    = []string{"context"}
	pathKey        = []string{"key"}
	pathHandle     = []string{"handle"}
	pathProtocol   = []string{"protocol"}
	pathValue      = []string{"value"}
	pathName       = []string{"name"}
	pathMode       = []string{"mode"}
	pathPath       = []string{"path"}
	pathData       = []string{"data"}
	pathSignature  = []string{"signature"}
	pathRecipients = []string{"recipients"}
	pathFlags      = []string{"flags"}
	pathResult     = []string{"result"}
)

// binder decodes the arguments after the context handle.
type binder func(b *Binding, args []any) (ContextFunc, error)

// onContext resolves args[0] as a context handle and runs the bound work
// under its lock.
func onContext(shared bool, bind binder) Handler {
	return func(b *Binding, args []any) (dispatch.Job, error) {
		ch, err := b.Context(pathContext, args[0])
		if err != nil {
			return nil, err
		}
		fn, err := bind(b, args[1:])
		if err != nil {
			return nil, err
		}
		if shared {
			return b.Shared(ch, fn), nil
		}
		return b.Exclusive(ch, fn), nil
	}
}

// query is a read-only context operation without further arguments.
func query(fn ContextFunc) Handler {
	return onContext(true, func(*Binding, []any) (ContextFunc, error) {
		return fn, nil
	})
}

func getBool(get func(native.Context) bool) Handler {
	return query(func(nc native.Context) (envelope.Result, error) {
		return envelope.OK(get(nc)), nil
	})
}

func setBool(set func(native.Context, bool)) Handler {
	return onContext(false, func(_ *Binding, args []any) (ContextFunc, error) {
		yes, err := codec.Bool(pathValue, args[0])
		if err != nil {
			return nil, err
		}
		return func(nc native.Context) (envelope.Result, error) {
			set(nc, yes)
			return envelope.Done(), nil
		}, nil
	})
}

func setString(set func(native.Context, string) error) Handler {
	return onContext(false, func(_ *Binding, args []any) (ContextFunc, error) {
		s, err := codec.String(pathPath, args[0])
		if err != nil {
			return nil, err
		}
		return func(nc native.Context) (envelope.Result, error) {
			if err := set(nc, s); err != nil {
				return envelope.Result{}, err
			}
			return envelope.Done(), nil
		}, nil
	})
}

// text renders engine output for the host.
func text(b []byte, err error) (envelope.Result, error) {
	if err != nil {
		return envelope.Result{}, err
	}
	s, err := codec.Text(pathResult, b)
	if err != nil {
		return envelope.Result{}, err
	}
	return envelope.OK(s), nil
}

func (r *Runtime) registerBuiltins() {
	builtins := []struct {
		handler Handler
		name    string
		arity   int
	}{
		{name: "from_protocol", arity: 1, handler: fromProtocol},
		{name: "protocol", arity: 1, handler: query(func(nc native.Context) (envelope.Result, error) {
			return envelope.OK(codec.Protocols.Encode(nc.Protocol())), nil
		})},
		{name: "armor", arity: 1, handler: getBool(native.Context.Armor)},
		{name: "set_armor", arity: 2, handler: setBool(native.Context.SetArmor)},
		{name: "text_mode", arity: 1, handler: getBool(native.Context.TextMode)},
		{name: "set_text_mode", arity: 2, handler: setBool(native.Context.SetTextMode)},
		{name: "offline", arity: 1, handler: getBool(native.Context.Offline)},
		{name: "set_offline", arity: 2, handler: setBool(native.Context.SetOffline)},
		{name: "get_flag", arity: 2, handler: getFlag},
		{name: "set_flag", arity: 3, handler: setFlag},
		{name: "engine_info", arity: 1, handler: query(func(nc native.Context) (envelope.Result, error) {
			rep, err := codec.EncodeEngineInfo(nc.EngineInfo())
			return envelope.OK(rep), err
		})},
		{name: "set_engine_path", arity: 2, handler: setString(native.Context.SetEnginePath)},
		{name: "set_engine_home_dir", arity: 2, handler: setString(native.Context.SetEngineHomeDir)},
		{name: "pinentry_mode", arity: 1, handler: query(func(nc native.Context) (envelope.Result, error) {
			return envelope.OK(codec.PinentryModes.Encode(nc.PinentryMode())), nil
		})},
		{name: "set_pinentry_mode", arity: 2, handler: setPinentryMode},
		{name: "import", arity: 2, handler: importKeys},
		{name: "find_key", arity: 2, handler: findKey(false)},
		{name: "find_secret_key", arity: 2, handler: findKey(true)},
		{name: "key_info", arity: 1, handler: keyInfo},
		{name: "delete_key", arity: 2, handler: deleteKey(false)},
		{name: "delete_secret_key", arity: 2, handler: deleteKey(true)},
		{name: "encrypt_with_flags", arity: 4, handler: encrypt(native.Context.Encrypt)},
		{name: "sign_and_encrypt_with_flags", arity: 4, handler: encrypt(native.Context.SignAndEncrypt)},
		{name: "decrypt", arity: 2, handler: decrypt(false)},
		{name: "decrypt_with_flags", arity: 3, handler: decrypt(true)},
		{name: "sign_with_mode", arity: 3, handler: sign},
		{name: "verify_opaque", arity: 3, handler: verify},
		{name: "release", arity: 1, handler: release},
	}
	for _, op := range builtins {
		if err := r.ops.Register(op.name, op.arity, op.handler); err != nil {
			panic(fmt.Sprintf("register %s: %v", op.name, err))
		}
	}
}

func fromProtocol(b *Binding, args []any) (dispatch.Job, error) {
	p, err := codec.Protocols.Decode(pathProtocol, args[0])
	if err != nil {
		return nil, err
	}
	return func() (envelope.Result, error) {
		return b.rt.create(p)
	}, nil
}

var getFlag = onContext(true, func(_ *Binding, args []any) (ContextFunc, error) {
	name, err := codec.String(pathName, args[0])
	if err != nil {
		return nil, err
	}
	return func(nc native.Context) (envelope.Result, error) {
		v, ok := nc.Flag(name)
		if !ok {
			return envelope.NotSet(), nil
		}
		return envelope.OK(v), nil
	}, nil
})

var setFlag = onContext(false, func(_ *Binding, args []any) (ContextFunc, error) {
	name, err := codec.String(pathName, args[0])
	if err != nil {
		return nil, err
	}
	value, err := codec.String(pathValue, args[1])
	if err != nil {
		return nil, err
	}
	return func(nc native.Context) (envelope.Result, error) {
		if err := nc.SetFlag(name, value); err != nil {
			return envelope.Result{}, err
		}
		return envelope.Done(), nil
	}, nil
})

var setPinentryMode = onContext(false, func(_ *Binding, args []any) (ContextFunc, error) {
	mode, err := codec.PinentryModes.Decode(pathMode, args[0])
	if err != nil {
		return nil, err
	}
	return func(nc native.Context) (envelope.Result, error) {
		if err := nc.SetPinentryMode(mode); err != nil {
			return envelope.Result{}, err
		}
		return envelope.Done(), nil
	}, nil
})

var importKeys = onContext(false, func(_ *Binding, args []any) (ContextFunc, error) {
	data, err := Bytes(pathData, args[0])
	if err != nil {
		return nil, err
	}
	return func(nc native.Context) (envelope.Result, error) {
		res, err := nc.Import(data)
		if err != nil {
			return envelope.Result{}, err
		}
		rep, err := codec.EncodeImport(res)
		return envelope.OK(rep), err
	}, nil
})

func findKey(secret bool) Handler {
	return onContext(false, func(b *Binding, args []any) (ContextFunc, error) {
		fpr, err := codec.String(pathKey, args[0])
		if err != nil {
			return nil, err
		}
		return func(nc native.Context) (envelope.Result, error) {
			key, err := nc.GetKey(fpr, secret)
			if err != nil {
				return envelope.Result{}, err
			}
			h, err := b.rt.handles.NewKey(key)
			if err != nil {
				return envelope.Result{}, errors.Closed("runtime")
			}
			return envelope.OK(h), nil
		}, nil
	})
}

func keyInfo(b *Binding, args []any) (dispatch.Job, error) {
	kh, err := b.Key(pathKey, args[0])
	if err != nil {
		return nil, err
	}
	return func() (envelope.Result, error) {
		rep, err := codec.EncodeKey(kh.Key())
		return b.outcome(envelope.OK(rep), err)
	}, nil
}

func deleteKey(secret bool) Handler {
	return onContext(false, func(b *Binding, args []any) (ContextFunc, error) {
		kh, err := b.Key(pathKey, args[0])
		if err != nil {
			return nil, err
		}
		return func(nc native.Context) (envelope.Result, error) {
			if err := nc.DeleteKey(kh.Key(), secret); err != nil {
				return envelope.Result{}, err
			}
			return envelope.Done(), nil
		}, nil
	})
}

type encryptFunc func(nc native.Context, recipients []native.Key, plaintext []byte, flags native.EncryptFlags) ([]byte, error)

func encrypt(fn encryptFunc) Handler {
	return onContext(false, func(b *Binding, args []any) (ContextFunc, error) {
		keys, err := b.Recipients(pathRecipients, args[0])
		if err != nil {
			return nil, err
		}
		plaintext, err := Bytes(pathData, args[1])
		if err != nil {
			return nil, err
		}
		flags, err := codec.EncryptFlags.Decode(pathFlags, args[2])
		if err != nil {
			return nil, err
		}
		return func(nc native.Context) (envelope.Result, error) {
			return text(fn(nc, keys, plaintext, flags))
		}, nil
	})
}

func decrypt(withFlags bool) Handler {
	return onContext(false, func(_ *Binding, args []any) (ContextFunc, error) {
		ciphertext, err := Bytes(pathData, args[0])
		if err != nil {
			return nil, err
		}
		var flags native.DecryptFlags
		if withFlags {
			if flags, err = codec.DecryptFlags.Decode(pathFlags, args[1]); err != nil {
				return nil, err
			}
		}
		return func(nc native.Context) (envelope.Result, error) {
			return text(nc.Decrypt(ciphertext, flags))
		}, nil
	})
}

var sign = onContext(false, func(_ *Binding, args []any) (ContextFunc, error) {
	mode, err := codec.SignModes.Decode(pathMode, args[0])
	if err != nil {
		return nil, err
	}
	data, err := Bytes(pathData, args[1])
	if err != nil {
		return nil, err
	}
	return func(nc native.Context) (envelope.Result, error) {
		return text(nc.Sign(mode, data))
	}, nil
})

var verify = onContext(false, func(_ *Binding, args []any) (ContextFunc, error) {
	sig, err := Bytes(pathSignature, args[0])
	if err != nil {
		return nil, err
	}
	data, err := Bytes(pathData, args[1])
	if err != nil {
		return nil, err
	}
	return func(nc native.Context) (envelope.Result, error) {
		res, err := nc.VerifyOpaque(sig, data)
		if err != nil {
			return envelope.Result{}, err
		}
		rep, err := codec.EncodeVerification(res)
		return envelope.OK(rep), err
	}, nil
})

func release(b *Binding, args []any) (dispatch.Job, error) {
	h, err := Handle(pathHandle, args[0])
	if err != nil {
		return nil, err
	}
	if _, ok := b.rt.handles.Get(h); !ok {
		return nil, errors.InvalidHandle(pathHandle, h, "resource")
	}
	return func() (envelope.Result, error) {
		err := b.rt.handles.Remove(h)
		if stderrors.Is(err, resource.ErrInvalidHandle) {
			return envelope.Result{}, errors.InvalidHandle(pathHandle, h, "resource")
		}
		if err != nil {
			return envelope.Native(err), nil
		}
		return envelope.Done(), nil
	}, nil
}
