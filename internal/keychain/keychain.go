// Package keychain provides backends backed by the macOS Keychain.
//
// Backend drives the SecKeychain generic-password calls through
// internal/native and stores items in the default keychain with:
//   - Service: the caller's service name
//   - Account: the caller's account name
//   - Data: the password as UTF-8
//
// SecItemBackend uses the SecItem API instead and is only built on darwin.
package keychain

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"unicode/utf8"

	"github.com/benaskins/keyring/backend"
	"github.com/benaskins/keyring/internal/native"
)

// Backend is the SecKeychain generic-password backend.
//
// Setup binds the framework once; a failed Setup is permanent. After Setup
// the backend holds no mutable state and may be shared between goroutines;
// the keychain daemon serialises requests. Set and Delete look the item up
// and then act on it in a second call, so concurrent writers of the same
// key race exactly as the framework does.
type Backend struct {
	load   func() (native.Security, error)
	logger *slog.Logger

	once sync.Once
	sec  native.Security
	err  error
}

var _ backend.Backend = (*Backend)(nil)

// New creates a Keychain backend bound to Security.framework.
func New() *Backend {
	return newWithLoader(native.Load)
}

func newWithLoader(load func() (native.Security, error)) *Backend {
	return &Backend{
		load:   load,
		logger: slog.With("component", "keychain"),
	}
}

func (b *Backend) Name() string { return backend.NameKeychain }

func (b *Backend) IsSupported() bool { return runtime.GOOS == "darwin" }

func (b *Backend) RequiresStorePath() bool { return false }

// Setup loads the native binding.
func (b *Backend) Setup() error {
	b.once.Do(func() {
		sec, err := b.load()
		if err != nil {
			b.err = &backend.UnavailableError{Backend: b.Name(), Err: err}
			return
		}
		b.sec = sec
		b.logger.Debug("security framework bound")
	})
	return b.err
}

// GetPassword reads the password for service and account.
func (b *Backend) GetPassword(service, account string) (string, error) {
	if err := b.Setup(); err != nil {
		return "", err
	}

	st, length, data, _ := b.sec.FindGenericPassword([]byte(service), []byte(account), true, false)
	if st != native.StatusSuccess {
		return "", b.retrievalError(st)
	}

	// The content buffer belongs to the framework until freed, including
	// after its bytes have been copied out.
	defer func() {
		if data == 0 {
			return
		}
		if fst := b.sec.ItemFreeContent(data); fst != native.StatusSuccess {
			b.logger.Warn("freeing keychain content failed", "status", int(fst))
		}
	}()

	raw := b.sec.CopyBytes(data, length)
	if !utf8.Valid(raw) {
		return "", &backend.RetrievalError{
			Kind: backend.KindCorrupt,
			Err:  fmt.Errorf("password data for %s/%s is not valid UTF-8", service, account),
		}
	}
	return string(raw), nil
}

// SetPassword updates the existing item in place, keeping its access
// control, or adds a new one.
func (b *Backend) SetPassword(service, account, password string) error {
	if err := b.Setup(); err != nil {
		return err
	}

	svc, acct, pw := []byte(service), []byte(account), []byte(password)

	st, _, _, ref := b.sec.FindGenericPassword(svc, acct, false, true)
	item := native.Hold(b.sec, ref)
	defer item.Close()

	if st != native.StatusSuccess && st != native.StatusItemNotFound {
		return b.saveError(st, false)
	}

	if item.Valid() {
		st = b.sec.ItemModifyContent(item.Ref(), pw)
	} else {
		st = b.sec.AddGenericPassword(svc, acct, pw)
	}
	if st != native.StatusSuccess {
		return b.saveError(st, false)
	}
	return nil
}

// DeletePassword removes the item. A missing item is reported as a
// NotFound SaveError.
func (b *Backend) DeletePassword(service, account string) error {
	if err := b.Setup(); err != nil {
		return err
	}

	st, _, _, ref := b.sec.FindGenericPassword([]byte(service), []byte(account), false, true)
	item := native.Hold(b.sec, ref)
	defer item.Close()

	if st != native.StatusSuccess {
		return b.saveError(st, true)
	}
	if !item.Valid() {
		return &backend.SaveError{Kind: backend.KindNotFound}
	}

	if st := b.sec.ItemDelete(item.Ref()); st != native.StatusSuccess {
		return b.saveError(st, true)
	}
	return nil
}

func (b *Backend) retrievalError(st native.Status) error {
	msg := native.ErrorMessage(b.sec, st)
	if isLockStatus(st) {
		return &backend.LockError{Code: int(st), Message: msg}
	}
	return &backend.RetrievalError{Kind: classify(st), Code: int(st), Message: msg}
}

func (b *Backend) saveError(st native.Status, deleting bool) error {
	msg := native.ErrorMessage(b.sec, st)
	if isLockStatus(st) {
		return &backend.LockError{Code: int(st), Message: msg}
	}
	kind := classify(st)
	switch {
	case kind == backend.KindCorrupt:
		kind = backend.KindNativeFailure
	case kind == backend.KindNotFound && !deleting:
		kind = backend.KindNativeFailure
	}
	return &backend.SaveError{Kind: kind, Code: int(st), Message: msg}
}

// classify maps a keychain status to the nearest failure kind.
func classify(st native.Status) backend.Kind {
	switch st {
	case native.StatusItemNotFound:
		return backend.KindNotFound
	case native.StatusAuthFailed,
		native.StatusInteractionNotAllowed,
		native.StatusUserCanceled,
		native.StatusNoAccessForItem,
		native.StatusWritePermission,
		native.StatusReadOnly:
		return backend.KindAccessDenied
	case native.StatusDecode, native.StatusInvalidItemRef:
		return backend.KindCorrupt
	default:
		return backend.KindNativeFailure
	}
}

// isLockStatus reports statuses meaning the keychain itself could not be
// opened.
func isLockStatus(st native.Status) bool {
	switch st {
	case native.StatusNoSuchKeychain, native.StatusInvalidKeychain, native.StatusNotAvailable:
		return true
	}
	return false
}
