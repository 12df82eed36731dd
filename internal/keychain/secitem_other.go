//go:build !darwin || !cgo

package keychain

import "github.com/benaskins/keyring/backend"

// SecItemBackend is unsupported outside macOS cgo builds. Every password
// operation fails with an UnavailableError.
type SecItemBackend struct{}

var _ backend.Backend = (*SecItemBackend)(nil)

// NewSecItem returns a SecItem backend that reports itself unsupported.
func NewSecItem() *SecItemBackend {
	return &SecItemBackend{}
}

func (s *SecItemBackend) Name() string { return backend.NameSecItem }

func (s *SecItemBackend) IsSupported() bool { return false }

func (s *SecItemBackend) Setup() error { return s.unavailable() }

func (s *SecItemBackend) RequiresStorePath() bool { return false }

func (s *SecItemBackend) GetPassword(service, account string) (string, error) {
	return "", s.unavailable()
}

func (s *SecItemBackend) SetPassword(service, account, password string) error {
	return s.unavailable()
}

func (s *SecItemBackend) DeletePassword(service, account string) error {
	return s.unavailable()
}

func (s *SecItemBackend) unavailable() error {
	return &backend.UnavailableError{Backend: backend.NameSecItem, Err: backend.ErrNotSupported}
}
