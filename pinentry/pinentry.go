// Package pinentry supplies passphrases for secret keys according to a
// context's pinentry mode.
//
// ask and default prompt on the controlling terminal. loopback reads the
// passphrase from the OS keyring, stored under the key's fingerprint. cancel
// and error never produce a passphrase.
package pinentry

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/wippyai/pgp-bridge/native"
)

// DefaultService is the OS keyring service used for loopback passphrases.
const DefaultService = "pgpbridge"

// SymmetricAccount is the keyring account holding the passphrase for
// symmetric encryption.
const SymmetricAccount = "symmetric"

// Request describes what a passphrase is needed for.
type Request struct {
	Fingerprint string
	UserID      string
	Attempt     int // 1 for the first prompt of a key
	Symmetric   bool
}

// Source supplies passphrases. Errors are engine errors.
type Source interface {
	Passphrase(req Request) ([]byte, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(Request) ([]byte, error)

// Passphrase calls f(req).
func (f SourceFunc) Passphrase(req Request) ([]byte, error) {
	return f(req)
}

// Options configures the sources returned by For.
type Options struct {
	// Service is the keyring service for loopback. Empty means DefaultService.
	Service string
	// Terminal overrides the prompt used by ask and default.
	Terminal Source
}

// For returns the passphrase source for mode. Unnamed modes are rejected.
func For(mode native.PinentryMode, opts Options) (Source, error) {
	switch mode {
	case native.PinentryDefault, native.PinentryAsk:
		if opts.Terminal != nil {
			return opts.Terminal, nil
		}
		return &TerminalSource{In: os.Stdin, Out: os.Stderr}, nil
	case native.PinentryLoopback:
		return &KeyringSource{Service: opts.Service}, nil
	case native.PinentryCancel:
		return refuse(native.CodeCanceled), nil
	case native.PinentryError:
		return refuse(native.CodeNoPassphrase), nil
	default:
		return nil, native.Errorf(native.CodeInvValue, "pinentry mode %d", uint32(mode))
	}
}

// Valid reports whether mode is one For accepts.
func Valid(mode native.PinentryMode) bool {
	return mode <= native.PinentryLoopback
}

func refuse(code native.ErrorCode) Source {
	return SourceFunc(func(Request) ([]byte, error) {
		return nil, native.NewError(code)
	})
}

// TerminalSource prompts on a terminal.
type TerminalSource struct {
	In  *os.File
	Out io.Writer
}

// Passphrase reads a passphrase without echo. Without a terminal there is
// nobody to ask.
func (s *TerminalSource) Passphrase(req Request) ([]byte, error) {
	fd := int(s.In.Fd())
	if !term.IsTerminal(fd) {
		return nil, native.NewError(native.CodeNoPinentry)
	}

	if req.Attempt > 1 {
		fmt.Fprintf(s.Out, "Bad passphrase (try %d)\n", req.Attempt)
	}
	switch {
	case req.Symmetric:
		fmt.Fprint(s.Out, "Passphrase: ")
	case req.UserID != "":
		fmt.Fprintf(s.Out, "Passphrase for %s (%s): ", req.UserID, req.Fingerprint)
	default:
		fmt.Fprintf(s.Out, "Passphrase for %s: ", req.Fingerprint)
	}
	pass, err := term.ReadPassword(fd)
	fmt.Fprintln(s.Out)
	if err != nil {
		return nil, native.WrapError(native.CodeGeneral, err)
	}
	if len(pass) == 0 {
		return nil, native.NewError(native.CodeNoPassphrase)
	}
	return pass, nil
}

// KeyringSource reads passphrases from the OS keyring.
type KeyringSource struct {
	Service string
}

func (s *KeyringSource) service() string {
	if s.Service == "" {
		return DefaultService
	}
	return s.Service
}

// Passphrase looks up the passphrase stored for the request's key.
func (s *KeyringSource) Passphrase(req Request) ([]byte, error) {
	// A stored passphrase that failed once fails every time.
	if req.Attempt > 1 {
		return nil, native.NewError(native.CodeBadPassphrase)
	}
	pass, err := keyring.Get(s.service(), Account(req))
	if err != nil {
		if stderrors.Is(err, keyring.ErrNotFound) {
			return nil, native.NewError(native.CodeNoPassphrase)
		}
		return nil, native.WrapError(native.CodeGeneral, err)
	}
	return []byte(pass), nil
}

// Account returns the keyring account for a request.
func Account(req Request) string {
	if req.Symmetric || req.Fingerprint == "" {
		return SymmetricAccount
	}
	return req.Fingerprint
}

// Store saves a loopback passphrase for fingerprint, or for symmetric
// encryption when fingerprint is empty.
func Store(service, fingerprint, passphrase string) error {
	if service == "" {
		service = DefaultService
	}
	return keyring.Set(service, Account(Request{Fingerprint: fingerprint}), passphrase)
}

// Forget removes a stored loopback passphrase.
func Forget(service, fingerprint string) error {
	if service == "" {
		service = DefaultService
	}
	return keyring.Delete(service, Account(Request{Fingerprint: fingerprint}))
}
