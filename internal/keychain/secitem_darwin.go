//go:build darwin && cgo

package keychain

import (
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	gokeychain "github.com/keybase/go-keychain"

	"github.com/benaskins/keyring/backend"
	"github.com/benaskins/keyring/internal/native"
)

// SecItemBackend stores generic passwords through the SecItem API.
//
// Items are scoped with kSecAttrAccessibleWhenUnlockedThisDeviceOnly and
// never synced to iCloud. Safe for concurrent use.
type SecItemBackend struct {
	logger *slog.Logger
}

var _ backend.Backend = (*SecItemBackend)(nil)

// NewSecItem creates a SecItem-backed keychain backend.
func NewSecItem() *SecItemBackend {
	return &SecItemBackend{logger: slog.With("component", "secitem")}
}

func (s *SecItemBackend) Name() string { return backend.NameSecItem }

func (s *SecItemBackend) IsSupported() bool { return true }

func (s *SecItemBackend) Setup() error { return nil }

func (s *SecItemBackend) RequiresStorePath() bool { return false }

func query(service, account string) gokeychain.Item {
	q := gokeychain.NewItem()
	q.SetSecClass(gokeychain.SecClassGenericPassword)
	q.SetService(service)
	q.SetAccount(account)
	return q
}

// GetPassword retrieves a password from the Keychain.
func (s *SecItemBackend) GetPassword(service, account string) (string, error) {
	q := query(service, account)
	q.SetMatchLimit(gokeychain.MatchLimitOne)
	q.SetReturnData(true)

	results, err := gokeychain.QueryItem(q)
	if err != nil {
		code, msg := secItemStatus(err)
		if isLockStatus(code) {
			return "", &backend.LockError{Code: int(code), Message: msg}
		}
		return "", &backend.RetrievalError{Kind: classify(code), Code: int(code), Message: msg}
	}
	if len(results) == 0 {
		return "", &backend.RetrievalError{Kind: backend.KindNotFound, Code: int(native.StatusItemNotFound)}
	}
	if !utf8.Valid(results[0].Data) {
		return "", &backend.RetrievalError{
			Kind: backend.KindCorrupt,
			Err:  fmt.Errorf("password data for %s/%s is not valid UTF-8", service, account),
		}
	}
	return string(results[0].Data), nil
}

// SetPassword updates the item in place, or adds it when absent.
func (s *SecItemBackend) SetPassword(service, account, password string) error {
	update := gokeychain.NewItem()
	update.SetData([]byte(password))

	err := gokeychain.UpdateItem(query(service, account), update)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gokeychain.ErrorItemNotFound) {
		return secItemSaveError(err, false)
	}

	item := gokeychain.NewGenericPassword(
		service,
		account,
		fmt.Sprintf("%s: %s", service, account),
		[]byte(password),
		"",
	)
	item.SetSynchronizable(gokeychain.SynchronizableNo)
	item.SetAccessible(gokeychain.AccessibleWhenUnlockedThisDeviceOnly)

	if err := gokeychain.AddItem(item); err != nil {
		return secItemSaveError(err, false)
	}
	s.logger.Debug("keychain item added", "service", service, "account", account)
	return nil
}

// DeletePassword removes the item from the Keychain.
func (s *SecItemBackend) DeletePassword(service, account string) error {
	if err := gokeychain.DeleteGenericPasswordItem(service, account); err != nil {
		return secItemSaveError(err, true)
	}
	return nil
}

func secItemStatus(err error) (native.Status, string) {
	var kerr gokeychain.Error
	if errors.As(err, &kerr) {
		return native.Status(kerr), kerr.Error()
	}
	return native.Status(-1), err.Error()
}

func secItemSaveError(err error, deleting bool) error {
	code, msg := secItemStatus(err)
	if isLockStatus(code) {
		return &backend.LockError{Code: int(code), Message: msg}
	}
	kind := classify(code)
	if kind == backend.KindCorrupt || (kind == backend.KindNotFound && !deleting) {
		kind = backend.KindNativeFailure
	}
	return &backend.SaveError{Kind: kind, Code: int(code), Message: msg}
}
