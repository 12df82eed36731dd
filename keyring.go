// Package keyring stores passwords in the platform's secret store.
//
// A Keyring is bound to one backend for its whole life: the macOS Keychain
// on darwin, the Secret Service on Linux and the BSDs, the Credential
// Manager on Windows. Passwords are addressed by a service and an account.
//
//	kr, err := keyring.New()
//	if err != nil {
//		return err
//	}
//	if err := kr.SetPassword("net.example.app", "alice", "S3cr3t!"); err != nil {
//		return err
//	}
//
// Failures are typed; match them with errors.Is against backend.ErrNotFound,
// backend.ErrAccessDenied, backend.ErrCorrupt and backend.ErrBackendUnavailable.
package keyring

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/benaskins/keyring/backend"
	"github.com/benaskins/keyring/internal/filestore"
	"github.com/benaskins/keyring/internal/keychain"
	"github.com/benaskins/keyring/internal/memory"
	"github.com/benaskins/keyring/internal/oskeyring"
)

// Keyring is a password store bound to a single backend.
type Keyring struct {
	b      backend.Backend
	logger *slog.Logger
}

// New selects the first supported backend for the running platform and
// prepares it. If that backend fails to set up, New reports the failure
// rather than trying the next one, unless file fallback is enabled.
func New(opts ...Option) (*Keyring, error) {
	o := buildOptions(opts)

	b, err := backend.Select(candidates(runtime.GOOS, o)...)
	if err != nil && o.fileFallback && !errors.Is(err, backend.ErrNoSupportedBackend) {
		o.logger.Warn("native keyring unavailable, using file store", "error", err, "path", o.storePath)
		b, err = backend.Open(newBackend(backend.NameFile, o))
	}
	if err != nil {
		return nil, err
	}
	return newKeyring(b, o), nil
}

// NewNamed prepares the backend registered under name. Unknown names and
// backends unsupported on this platform fail with an UnavailableError.
func NewNamed(name string, opts ...Option) (*Keyring, error) {
	o := buildOptions(opts)

	b := newBackend(name, o)
	if b == nil {
		return nil, &backend.UnavailableError{Backend: name, Err: backend.ErrUnknownBackend}
	}
	b, err := backend.Open(b)
	if err != nil {
		return nil, err
	}
	return newKeyring(b, o), nil
}

func newKeyring(b backend.Backend, o *options) *Keyring {
	o.logger.Debug("keyring backend selected", "backend", b.Name())
	return &Keyring{b: b, logger: o.logger}
}

// Names lists every backend name NewNamed accepts, in priority order.
func Names() []string {
	return []string{
		backend.NameKeychain,
		backend.NameSecItem,
		backend.NameSecretService,
		backend.NameWinCred,
		backend.NameDPAPI,
		backend.NameFile,
		backend.NameMemory,
	}
}

// Supported reports whether the named backend can run on this platform.
// It does not set the backend up.
func Supported(name string) bool {
	b := newBackend(name, buildOptions(nil))
	return b != nil && b.IsSupported()
}

// candidates returns the automatic selection order for goos.
func candidates(goos string, o *options) []backend.Backend {
	var names []string
	switch goos {
	case "darwin":
		names = []string{backend.NameKeychain, backend.NameSecItem}
	case "windows":
		names = []string{backend.NameWinCred, backend.NameDPAPI}
	default:
		names = []string{backend.NameSecretService}
	}
	if o.fileFallback {
		names = append(names, backend.NameFile)
	}

	bs := make([]backend.Backend, 0, len(names))
	for _, n := range names {
		bs = append(bs, newBackend(n, o))
	}
	return bs
}

func newBackend(name string, o *options) backend.Backend {
	fo := filestore.Options{
		Path:        o.storePath,
		LockTimeout: o.lockTimeout,
		Logger:      o.logger,
	}
	switch name {
	case backend.NameKeychain:
		return keychain.New()
	case backend.NameSecItem:
		return keychain.NewSecItem()
	case backend.NameSecretService:
		return oskeyring.NewSecretService()
	case backend.NameWinCred:
		return oskeyring.NewWinCred()
	case backend.NameDPAPI:
		return filestore.NewDPAPI(fo)
	case backend.NameFile:
		return filestore.NewFile(o.passphrase, o.workFactor, fo)
	case backend.NameMemory:
		return memory.New()
	}
	return nil
}

// Backend returns the name of the active backend.
func (k *Keyring) Backend() string { return k.b.Name() }

// RequiresStorePath reports whether the backend needs SetStorePath before
// use.
func (k *Keyring) RequiresStorePath() bool { return k.b.RequiresStorePath() }

// StorePath returns the store file of a file-backed backend, or "".
func (k *Keyring) StorePath() string {
	if pc, ok := k.b.(backend.PathConfigurable); ok {
		return pc.StorePath()
	}
	return ""
}

// SetStorePath points a file-backed backend at path. It has no effect on
// other backends.
func (k *Keyring) SetStorePath(path string) {
	if pc, ok := k.b.(backend.PathConfigurable); ok {
		pc.SetStorePath(path)
	}
}

// GetPassword returns the password stored for service and account.
func (k *Keyring) GetPassword(service, account string) (string, error) {
	pw, err := k.b.GetPassword(service, account)
	if err != nil {
		return "", opError("get password", service, account, err)
	}
	return pw, nil
}

// SetPassword stores password for service and account, replacing any
// existing one.
func (k *Keyring) SetPassword(service, account, password string) error {
	if err := k.b.SetPassword(service, account, password); err != nil {
		return opError("set password", service, account, err)
	}
	k.logger.Debug("password stored", "backend", k.b.Name(), "service", service, "account", account)
	return nil
}

// DeletePassword removes the password for service and account.
func (k *Keyring) DeletePassword(service, account string) error {
	if err := k.b.DeletePassword(service, account); err != nil {
		return opError("delete password", service, account, err)
	}
	k.logger.Debug("password deleted", "backend", k.b.Name(), "service", service, "account", account)
	return nil
}

func opError(op, service, account string, err error) error {
	return fmt.Errorf("%s %s/%s: %w", op, service, account, err)
}
