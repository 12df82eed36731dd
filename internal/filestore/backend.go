package filestore

import (
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/benaskins/keyring/backend"
	"github.com/benaskins/keyring/internal/seal"
)

// Backend exposes a Store through backend.Backend. The sealer is built in
// Setup; the store path may be changed at any time.
type Backend struct {
	name      string
	platforms []string
	newSealer func() (seal.Sealer, error)
	opts      Options
	logger    *slog.Logger

	once     sync.Once
	setupErr error

	mu     sync.RWMutex
	sealer seal.Sealer
	store  *Store
}

var (
	_ backend.Backend          = (*Backend)(nil)
	_ backend.PathConfigurable = (*Backend)(nil)
)

// NewFile returns the passphrase-sealed file backend, available on every
// platform. Setup fails when passphrase is empty.
func NewFile(passphrase string, workFactor int, opts Options) *Backend {
	return newBackend(backend.NameFile, nil, func() (seal.Sealer, error) {
		return seal.NewPassphrase(passphrase, workFactor)
	}, opts)
}

// NewDPAPI returns the Windows backend whose records are sealed to the
// current user with DPAPI.
func NewDPAPI(opts Options) *Backend {
	return newBackend(backend.NameDPAPI, []string{"windows"}, func() (seal.Sealer, error) {
		return seal.NewDPAPI()
	}, opts)
}

func newBackend(name string, platforms []string, newSealer func() (seal.Sealer, error), opts Options) *Backend {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", name)
	opts.Logger = logger
	return &Backend{
		name:      name,
		platforms: platforms,
		newSealer: newSealer,
		opts:      opts,
		logger:    logger,
	}
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) IsSupported() bool {
	return b.platforms == nil || slices.Contains(b.platforms, runtime.GOOS)
}

func (b *Backend) Setup() error {
	b.once.Do(func() {
		sealer, err := b.newSealer()
		if err != nil {
			b.setupErr = &backend.UnavailableError{Backend: b.name, Err: err}
			return
		}
		b.mu.Lock()
		b.sealer = sealer
		b.store = NewStore(sealer, b.opts)
		path := b.opts.Path
		b.mu.Unlock()
		b.logger.Debug("file store ready", "path", path)
	})
	return b.setupErr
}

func (b *Backend) RequiresStorePath() bool { return true }

func (b *Backend) StorePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.opts.Path
}

func (b *Backend) SetStorePath(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opts.Path = path
	if b.sealer != nil {
		b.store = NewStore(b.sealer, b.opts)
	}
}

func (b *Backend) GetPassword(service, account string) (string, error) {
	s, err := b.current()
	if err != nil {
		return "", err
	}
	return s.Get(service, account)
}

func (b *Backend) SetPassword(service, account, password string) error {
	s, err := b.current()
	if err != nil {
		return err
	}
	return s.Set(service, account, password)
}

func (b *Backend) DeletePassword(service, account string) error {
	s, err := b.current()
	if err != nil {
		return err
	}
	return s.Delete(service, account)
}

func (b *Backend) current() (*Store, error) {
	if err := b.Setup(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.store, nil
}
