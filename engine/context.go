package engine

import (
	"os"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp/packet"

	"github.com/wippyai/pgp-bridge/engine/internal/keystore"
	"github.com/wippyai/pgp-bridge/native"
	"github.com/wippyai/pgp-bridge/pinentry"
)

// knownFlags are the context flag names the engine accepts.
var knownFlags = map[string]bool{
	"redraw":                true,
	"full-status":           true,
	"raw-description":       true,
	"export-session-key":    true,
	"override-session-key":  true,
	"auto-key-retrieve":     true,
	"auto-key-import":       true,
	"include-key-block":     true,
	"request-origin":        true,
	"no-symkey-cache":       true,
	"ignore-mdc-error":      true,
	"auto-key-locate":       true,
	"trust-model":           true,
	"extended-edit":         true,
	"cert-expire":           true,
	"key-origin":            true,
	"import-filter":         true,
	"no-auto-check-trustdb": true,
	"proc-all-sigs":         true,
}

// Context is one engine session. It is not safe for concurrent use.
type Context struct {
	engine     *Engine
	flags      map[string]string
	homeDir    string
	enginePath string
	protocol   native.Protocol
	pinentry   native.PinentryMode
	armor      bool
	textMode   bool
	offline    bool
	closed     bool
}

var _ native.Context = (*Context)(nil)

func (c *Context) Protocol() native.Protocol { return c.protocol }

func (c *Context) Armor() bool          { return c.armor }
func (c *Context) SetArmor(yes bool)    { c.armor = yes }
func (c *Context) TextMode() bool       { return c.textMode }
func (c *Context) SetTextMode(yes bool) { c.textMode = yes }
func (c *Context) Offline() bool        { return c.offline }
func (c *Context) SetOffline(yes bool)  { c.offline = yes }

// Flag returns a named flag.
func (c *Context) Flag(name string) (string, bool) {
	v, ok := c.flags[name]
	return v, ok
}

// SetFlag sets a named flag. Unknown names are rejected.
func (c *Context) SetFlag(name, value string) error {
	if !knownFlags[name] {
		return native.NewError(native.CodeUnknownName)
	}
	c.flags[name] = value
	return nil
}

// EngineInfo describes the backend of this context.
func (c *Context) EngineInfo() native.EngineInfo {
	path := c.enginePath
	if path == "" {
		path = BuiltinPath
	}
	return native.EngineInfo{
		Protocol:        c.protocol,
		Path:            []byte(path),
		HomeDir:         []byte(c.homeDir),
		Version:         []byte(Version),
		RequiredVersion: []byte(RequiredVersion),
	}
}

// SetEnginePath records the engine binary. The path must exist; an empty
// path restores the built-in engine.
func (c *Context) SetEnginePath(path string) error {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return native.Errorf(native.CodeInvEngine, "%s", path)
		}
	}
	c.enginePath = path
	return nil
}

// SetEngineHomeDir moves the context to another keyring directory, creating
// it when needed. An empty dir restores the engine default.
func (c *Context) SetEngineHomeDir(dir string) error {
	if dir == "" {
		dir = c.engine.opts.HomeDir
	}
	if err := initHome(dir, c.engine.opts.LockTimeout); err != nil {
		return native.Errorf(native.CodeInvEngine, "%v", err)
	}
	c.homeDir = dir
	return nil
}

func (c *Context) PinentryMode() native.PinentryMode { return c.pinentry }

// SetPinentryMode selects how passphrases are obtained.
func (c *Context) SetPinentryMode(mode native.PinentryMode) error {
	if !pinentry.Valid(mode) {
		return native.NewError(native.CodeInvValue)
	}
	c.pinentry = mode
	return nil
}

// Close releases the context. Further operations fail.
func (c *Context) Close() error {
	c.closed = true
	return nil
}

// ready rejects operations the bound protocol cannot serve.
func (c *Context) ready() error {
	if c.closed {
		return native.Errorf(native.CodeNotOperational, "context closed")
	}
	switch c.protocol {
	case native.ProtocolOpenPGP, native.ProtocolDefault:
		return nil
	default:
		return native.NewError(native.CodeUnsupportedProtocol)
	}
}

func (c *Context) withStore(fn func(*keystore.Store) error) error {
	if err := c.ready(); err != nil {
		return err
	}
	return withStore(c.homeDir, c.engine.opts.LockTimeout, fn)
}

func (c *Context) now() time.Time {
	return c.engine.opts.Now()
}

func (c *Context) config() *packet.Config {
	return &packet.Config{
		Time:                   c.now,
		DefaultCipher:          packet.CipherAES256,
		DefaultCompressionAlgo: packet.CompressionZLIB,
	}
}

func (c *Context) passphrases() (pinentry.Source, error) {
	return pinentry.For(c.pinentry, pinentry.Options{
		Service:  c.engine.opts.KeyringService,
		Terminal: c.engine.opts.Terminal,
	})
}

// alwaysTrust reports whether the trust-model flag disables validity checks.
func (c *Context) alwaysTrust() bool {
	return c.flags["trust-model"] == "always"
}
