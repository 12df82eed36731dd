// Package memory provides an in-process backend. Secrets do not persist
// across restarts; it is never selected automatically.
package memory

import (
	"sync"

	"github.com/benaskins/keyring/backend"
)

type key struct {
	service string
	account string
}

// Backend is an in-memory implementation of backend.Backend, safe for
// concurrent use.
type Backend struct {
	mu      sync.RWMutex
	secrets map[key]string
}

var _ backend.Backend = (*Backend)(nil)

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{secrets: make(map[key]string)}
}

func (b *Backend) Name() string { return backend.NameMemory }

func (b *Backend) IsSupported() bool { return true }

func (b *Backend) Setup() error { return nil }

func (b *Backend) RequiresStorePath() bool { return false }

func (b *Backend) GetPassword(service, account string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	val, ok := b.secrets[key{service, account}]
	if !ok {
		return "", &backend.RetrievalError{Kind: backend.KindNotFound}
	}
	return val, nil
}

func (b *Backend) SetPassword(service, account, password string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.secrets[key{service, account}] = password
	return nil
}

func (b *Backend) DeletePassword(service, account string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key{service, account}
	if _, ok := b.secrets[k]; !ok {
		return &backend.SaveError{Kind: backend.KindNotFound}
	}
	delete(b.secrets, k)
	return nil
}
