package runtime

import (
	"context"

	"github.com/wippyai/pgp-bridge/envelope"
	"github.com/wippyai/pgp-bridge/resource"
)

// Typed entry points. Enum and flag arguments take codec values: an Atom,
// a plain string, or an {other, code} tuple.

func (r *Runtime) FromProtocol(ctx context.Context, protocol any) (envelope.Result, error) {
	return r.Call(ctx, "from_protocol", protocol)
}

func (r *Runtime) Protocol(ctx context.Context, h resource.Handle) (envelope.Result, error) {
	return r.Call(ctx, "protocol", h)
}

func (r *Runtime) Armor(ctx context.Context, h resource.Handle) (envelope.Result, error) {
	return r.Call(ctx, "armor", h)
}

func (r *Runtime) SetArmor(ctx context.Context, h resource.Handle, yes bool) (envelope.Result, error) {
	return r.Call(ctx, "set_armor", h, yes)
}

func (r *Runtime) TextMode(ctx context.Context, h resource.Handle) (envelope.Result, error) {
	return r.Call(ctx, "text_mode", h)
}

func (r *Runtime) SetTextMode(ctx context.Context, h resource.Handle, yes bool) (envelope.Result, error) {
	return r.Call(ctx, "set_text_mode", h, yes)
}

func (r *Runtime) Offline(ctx context.Context, h resource.Handle) (envelope.Result, error) {
	return r.Call(ctx, "offline", h)
}

func (r *Runtime) SetOffline(ctx context.Context, h resource.Handle, yes bool) (envelope.Result, error) {
	return r.Call(ctx, "set_offline", h, yes)
}

// GetFlag returns the flag value, or a not_set failure.
func (r *Runtime) GetFlag(ctx context.Context, h resource.Handle, name string) (envelope.Result, error) {
	return r.Call(ctx, "get_flag", h, name)
}

func (r *Runtime) SetFlag(ctx context.Context, h resource.Handle, name, value string) (envelope.Result, error) {
	return r.Call(ctx, "set_flag", h, name, value)
}

// EngineInfo returns a codec.EngineInfoReport.
func (r *Runtime) EngineInfo(ctx context.Context, h resource.Handle) (envelope.Result, error) {
	return r.Call(ctx, "engine_info", h)
}

func (r *Runtime) SetEnginePath(ctx context.Context, h resource.Handle, path string) (envelope.Result, error) {
	return r.Call(ctx, "set_engine_path", h, path)
}

func (r *Runtime) SetEngineHomeDir(ctx context.Context, h resource.Handle, dir string) (envelope.Result, error) {
	return r.Call(ctx, "set_engine_home_dir", h, dir)
}

func (r *Runtime) PinentryMode(ctx context.Context, h resource.Handle) (envelope.Result, error) {
	return r.Call(ctx, "pinentry_mode", h)
}

func (r *Runtime) SetPinentryMode(ctx context.Context, h resource.Handle, mode any) (envelope.Result, error) {
	return r.Call(ctx, "set_pinentry_mode", h, mode)
}

// Import returns a codec.ImportReport.
func (r *Runtime) Import(ctx context.Context, h resource.Handle, keys string) (envelope.Result, error) {
	return r.Call(ctx, "import", h, keys)
}

// FindKey returns a key handle.
func (r *Runtime) FindKey(ctx context.Context, h resource.Handle, fingerprint string) (envelope.Result, error) {
	return r.Call(ctx, "find_key", h, fingerprint)
}

// FindSecretKey returns a handle to a key with secret material.
func (r *Runtime) FindSecretKey(ctx context.Context, h resource.Handle, fingerprint string) (envelope.Result, error) {
	return r.Call(ctx, "find_secret_key", h, fingerprint)
}

// KeyInfo returns a codec.KeyReport.
func (r *Runtime) KeyInfo(ctx context.Context, key resource.Handle) (envelope.Result, error) {
	return r.Call(ctx, "key_info", key)
}

func (r *Runtime) DeleteKey(ctx context.Context, h, key resource.Handle) (envelope.Result, error) {
	return r.Call(ctx, "delete_key", h, key)
}

func (r *Runtime) DeleteSecretKey(ctx context.Context, h, key resource.Handle) (envelope.Result, error) {
	return r.Call(ctx, "delete_secret_key", h, key)
}

func (r *Runtime) EncryptWithFlags(ctx context.Context, h resource.Handle, recipients []resource.Handle, plaintext string, flags any) (envelope.Result, error) {
	return r.Call(ctx, "encrypt_with_flags", h, handleList(recipients), plaintext, flags)
}

func (r *Runtime) SignAndEncryptWithFlags(ctx context.Context, h resource.Handle, recipients []resource.Handle, plaintext string, flags any) (envelope.Result, error) {
	return r.Call(ctx, "sign_and_encrypt_with_flags", h, handleList(recipients), plaintext, flags)
}

func (r *Runtime) Decrypt(ctx context.Context, h resource.Handle, ciphertext string) (envelope.Result, error) {
	return r.Call(ctx, "decrypt", h, ciphertext)
}

func (r *Runtime) DecryptWithFlags(ctx context.Context, h resource.Handle, ciphertext string, flags any) (envelope.Result, error) {
	return r.Call(ctx, "decrypt_with_flags", h, ciphertext, flags)
}

func (r *Runtime) SignWithMode(ctx context.Context, h resource.Handle, mode any, data string) (envelope.Result, error) {
	return r.Call(ctx, "sign_with_mode", h, mode, data)
}

// VerifyOpaque returns a codec.VerificationReport. An empty data verifies an
// inline signature.
func (r *Runtime) VerifyOpaque(ctx context.Context, h resource.Handle, signature, data string) (envelope.Result, error) {
	return r.Call(ctx, "verify_opaque", h, signature, data)
}

// Release drops a context or key handle.
func (r *Runtime) Release(ctx context.Context, h resource.Handle) (envelope.Result, error) {
	return r.Call(ctx, "release", h)
}

func handleList(hs []resource.Handle) []any {
	out := make([]any, len(hs))
	for i, h := range hs {
		out[i] = h
	}
	return out
}
