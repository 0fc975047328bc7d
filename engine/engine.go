package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/pgp-bridge/engine/internal/keystore"
	"github.com/wippyai/pgp-bridge/native"
	"github.com/wippyai/pgp-bridge/pinentry"
)

const (
	// Version is reported as the engine version in EngineInfo.
	Version = "1.0.0"
	// RequiredVersion is the oldest engine version the bridge accepts.
	RequiredVersion = "1.0.0"
	// BuiltinPath is the engine path reported when none was configured.
	BuiltinPath = "builtin:openpgp"

	DefaultLockTimeout = 5 * time.Second
)

// Options configures an Engine. Zero values select defaults.
type Options struct {
	// Terminal overrides the passphrase prompt for ask and default modes.
	Terminal pinentry.Source
	// Now overrides the clock used for signatures and expiry checks.
	Now func() time.Time

	// HomeDir holds the keyring. Empty means ~/.pgpbridge/gnupg.
	HomeDir        string
	EnginePath     string
	KeyringService string
	LockTimeout    time.Duration
	PinentryMode   native.PinentryMode
	Armor          bool
	TextMode       bool
	Offline        bool
}

// Engine creates OpenPGP contexts.
type Engine struct {
	opts Options
}

var _ native.Factory = (*Engine)(nil)

// New returns an engine with opts.
func New(opts Options) *Engine {
	if opts.HomeDir == "" {
		opts.HomeDir = DefaultHomeDir()
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = DefaultLockTimeout
	}
	if opts.KeyringService == "" {
		opts.KeyringService = pinentry.DefaultService
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{opts: opts}
}

// DefaultHomeDir returns ~/.pgpbridge/gnupg, or a relative path when the home
// directory is unknown.
func DefaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".pgpbridge", "gnupg")
	}
	return filepath.Join(home, ".pgpbridge", "gnupg")
}

// New creates a context bound to protocol. It fails when the home directory
// or its keyring cannot be initialized.
func (e *Engine) New(protocol native.Protocol) (native.Context, error) {
	home := e.opts.HomeDir
	if err := initHome(home, e.opts.LockTimeout); err != nil {
		Logger().Warn("context init failed", zap.String("home", home), zap.Error(err))
		return nil, native.Errorf(native.CodeInvEngine, "%v", err)
	}

	c := &Context{
		engine:     e,
		protocol:   protocol,
		homeDir:    home,
		enginePath: e.opts.EnginePath,
		pinentry:   e.opts.PinentryMode,
		armor:      e.opts.Armor,
		textMode:   e.opts.TextMode,
		offline:    e.opts.Offline,
		flags:      make(map[string]string),
	}
	Logger().Debug("context created",
		zap.Uint32("protocol", uint32(protocol)),
		zap.String("home", home))
	return c, nil
}

// SetTrust sets the validity of a stored key in the default home directory.
func (e *Engine) SetTrust(fingerprint string, v native.Validity) error {
	return withStore(e.opts.HomeDir, e.opts.LockTimeout, func(s *keystore.Store) error {
		err := s.SetTrust(normalizeQuery(fingerprint), uint8(v))
		if errors.Is(err, keystore.ErrNotFound) {
			return native.NewError(native.CodeNotFound)
		}
		return err
	})
}

func initHome(dir string, timeout time.Duration) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("home directory %s: %w", dir, err)
	}
	s, err := keystore.Open(dir, timeout)
	if err != nil {
		return fmt.Errorf("keyring in %s: %w", dir, err)
	}
	return s.Close()
}

// withStore opens the keyring in dir for the duration of fn.
func withStore(dir string, timeout time.Duration, fn func(*keystore.Store) error) error {
	if _, err := os.Stat(dir); err != nil {
		// A vanished home directory invalidates the context.
		return native.Errorf(native.CodeNotOperational, "home directory %s: %v", dir, err)
	}
	s, err := keystore.Open(dir, timeout)
	if err != nil {
		if errors.Is(err, keystore.ErrLocked) {
			return native.NewError(native.CodeTimeout)
		}
		return native.Errorf(native.CodeNotOperational, "%v", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			Logger().Warn("keyring close failed", zap.String("home", dir), zap.Error(cerr))
		}
	}()
	return fn(s)
}
