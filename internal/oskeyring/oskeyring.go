// Package oskeyring provides backends for the freedesktop Secret Service
// (GNOME Keyring, KWallet via libsecret-compatible daemons) and the Windows
// Credential Manager, both reached through github.com/zalando/go-keyring.
package oskeyring

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/benaskins/keyring/backend"
)

// Backend adapts the go-keyring provider for the running platform. The
// provider talks to an external daemon or system service that does its own
// locking; Backend adds none and is safe for concurrent use.
type Backend struct {
	name      string
	platforms []string
	setup     func() error
	clean     func(string) string
	logger    *slog.Logger
}

var _ backend.Backend = (*Backend)(nil)

// NewSecretService creates the Secret Service backend used on Linux and
// the BSDs.
func NewSecretService() *Backend {
	b := &Backend{
		name:      backend.NameSecretService,
		platforms: []string{"linux", "freebsd", "openbsd", "netbsd", "dragonfly"},
		logger:    slog.With("component", "secret-service"),
	}
	b.setup = func() error { return checkSessionBus(os.Getenv, fileExists) }
	return b
}

// NewWinCred creates the Windows Credential Manager backend.
func NewWinCred() *Backend {
	return &Backend{
		name:      backend.NameWinCred,
		platforms: []string{"windows"},
		// Credentials written by cmdkey and other UTF-16 tools come back
		// with NUL bytes between characters.
		clean:  func(s string) string { return strings.ReplaceAll(s, "\x00", "") },
		logger: slog.With("component", "wincred"),
	}
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) IsSupported() bool {
	for _, p := range b.platforms {
		if runtime.GOOS == p {
			return true
		}
	}
	return false
}

func (b *Backend) Setup() error {
	if b.setup == nil {
		return nil
	}
	if err := b.setup(); err != nil {
		return &backend.UnavailableError{Backend: b.name, Err: err}
	}
	return nil
}

func (b *Backend) RequiresStorePath() bool { return false }

func (b *Backend) GetPassword(service, account string) (string, error) {
	val, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", &backend.RetrievalError{Kind: backend.KindNotFound, Err: err}
		}
		return "", &backend.RetrievalError{Kind: backend.KindNativeFailure, Message: err.Error(), Err: err}
	}
	if b.clean != nil {
		val = b.clean(val)
	}
	return val, nil
}

func (b *Backend) SetPassword(service, account, password string) error {
	if err := keyring.Set(service, account, password); err != nil {
		b.logger.Debug("set failed", "service", service, "account", account, "error", err)
		return &backend.SaveError{Kind: backend.KindNativeFailure, Message: err.Error(), Err: err}
	}
	return nil
}

func (b *Backend) DeletePassword(service, account string) error {
	if err := keyring.Delete(service, account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return &backend.SaveError{Kind: backend.KindNotFound, Err: err}
		}
		return &backend.SaveError{Kind: backend.KindNativeFailure, Message: err.Error(), Err: err}
	}
	return nil
}

// checkSessionBus reports whether a D-Bus session bus can be located, the
// same way godbus resolves it.
func checkSessionBus(getenv func(string) string, exists func(string) bool) error {
	if getenv("DBUS_SESSION_BUS_ADDRESS") != "" {
		return nil
	}
	if dir := getenv("XDG_RUNTIME_DIR"); dir != "" && exists(filepath.Join(dir, "bus")) {
		return nil
	}
	return fmt.Errorf("no D-Bus session bus: DBUS_SESSION_BUS_ADDRESS is unset and XDG_RUNTIME_DIR has no bus socket")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
