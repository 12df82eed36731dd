// Package filestore keeps sealed passwords in a single JSON file.
//
// The file is re-read on every operation while holding a cross-process
// lock, so several processes can share one store. Writes go to a temporary
// file that is renamed over the original.
package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/juju/clock"
	"github.com/juju/mutex/v2"

	"github.com/benaskins/keyring/backend"
	"github.com/benaskins/keyring/internal/seal"
)

const (
	formatVersion = 1

	// DefaultLockTimeout bounds how long an operation waits for another
	// process to release the store.
	DefaultLockTimeout = 5 * time.Second

	lockDelay = 20 * time.Millisecond
)

// Record is one stored password. Secret holds the sealed value and is
// base64 encoded in the file.
type Record struct {
	Service string    `json:"service"`
	Account string    `json:"account"`
	Secret  []byte    `json:"secret"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

type document struct {
	Version int      `json:"version"`
	Records []Record `json:"records"`
}

// Options configures a Store.
type Options struct {
	Path        string
	LockTimeout time.Duration
	// Clock drives lock retries and record timestamps. Defaults to the
	// wall clock.
	Clock  clock.Clock
	Logger *slog.Logger
}

// Store reads and writes one store file.
type Store struct {
	path        string
	sealer      seal.Sealer
	lockTimeout time.Duration
	clock       clock.Clock
	logger      *slog.Logger

	// held is shared by every Store on the same path in this process.
	held chan struct{}
}

// pathLocks maps lock names to one-slot semaphores. juju/mutex is
// re-entrant within a process on some platforms, so in-process exclusion
// cannot rely on it.
var pathLocks sync.Map

func processLock(name string) chan struct{} {
	l, _ := pathLocks.LoadOrStore(name, make(chan struct{}, 1))
	return l.(chan struct{})
}

// NewStore creates a store for opts.Path whose secrets are sealed with
// sealer. The file is not touched until the first operation.
func NewStore(sealer seal.Sealer, opts Options) *Store {
	s := &Store{
		path:        opts.Path,
		sealer:      sealer,
		lockTimeout: opts.LockTimeout,
		clock:       opts.Clock,
		logger:      opts.Logger,
	}
	if s.lockTimeout <= 0 {
		s.lockTimeout = DefaultLockTimeout
	}
	if s.clock == nil {
		s.clock = clock.WallClock
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.held = processLock(lockName(s.path))
	return s
}

// Path returns the store file path.
func (s *Store) Path() string { return s.path }

// Get opens and returns the password for (service, account).
func (s *Store) Get(service, account string) (string, error) {
	if s.path == "" {
		return "", backend.NewRetrievalError(backend.KindNativeFailure, backend.ErrStorePathRequired)
	}
	unlock, err := s.lock()
	if err != nil {
		return "", err
	}
	defer unlock()

	doc, err := s.read()
	if err != nil {
		if errors.Is(err, errUndecodable) {
			return "", backend.NewRetrievalError(backend.KindCorrupt, err)
		}
		return "", err
	}

	i := doc.find(service, account)
	if i < 0 {
		return "", backend.NewRetrievalError(backend.KindNotFound, nil)
	}
	plaintext, err := s.sealer.Open(doc.Records[i].Secret)
	if err != nil {
		s.logger.Debug("unseal failed", "service", service, "account", account, "error", err)
		return "", backend.NewRetrievalError(backend.KindCorrupt, err)
	}
	if !utf8.Valid(plaintext) {
		return "", backend.NewRetrievalError(backend.KindCorrupt, errors.New("password is not valid UTF-8"))
	}
	return string(plaintext), nil
}

// Set seals password and stores it, replacing any existing record for
// (service, account) while keeping its creation time.
func (s *Store) Set(service, account, password string) error {
	if s.path == "" {
		return backend.NewSaveError(backend.KindNativeFailure, backend.ErrStorePathRequired)
	}
	sealed, err := s.sealer.Seal([]byte(password))
	if err != nil {
		return backend.NewSaveError(backend.KindNativeFailure, fmt.Errorf("sealing password: %w", err))
	}

	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := s.read()
	if err != nil {
		return s.saveFailure(err)
	}

	now := s.clock.Now().UTC()
	if i := doc.find(service, account); i >= 0 {
		doc.Records[i].Secret = sealed
		doc.Records[i].Updated = now
	} else {
		doc.Records = append(doc.Records, Record{
			Service: service,
			Account: account,
			Secret:  sealed,
			Created: now,
			Updated: now,
		})
	}
	if err := s.write(doc); err != nil {
		return backend.NewSaveError(backend.KindNativeFailure, err)
	}
	return nil
}

// Delete removes the record for (service, account).
func (s *Store) Delete(service, account string) error {
	if s.path == "" {
		return backend.NewSaveError(backend.KindNativeFailure, backend.ErrStorePathRequired)
	}
	unlock, err := s.lock()
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := s.read()
	if err != nil {
		return s.saveFailure(err)
	}
	i := doc.find(service, account)
	if i < 0 {
		return backend.NewSaveError(backend.KindNotFound, nil)
	}
	doc.Records = append(doc.Records[:i], doc.Records[i+1:]...)
	if err := s.write(doc); err != nil {
		return backend.NewSaveError(backend.KindNativeFailure, err)
	}
	return nil
}

// lock serialises goroutines in this process and then takes the
// machine-wide mutex for the store path. Both waits share one deadline.
func (s *Store) lock() (func(), error) {
	deadline := s.clock.Now().Add(s.lockTimeout)

	select {
	case s.held <- struct{}{}:
	case <-s.clock.After(s.lockTimeout):
		return nil, &backend.LockError{
			Path:    s.path,
			Message: fmt.Sprintf("store still locked after %s", s.lockTimeout),
			Err:     mutex.ErrTimeout,
		}
	}

	remaining := deadline.Sub(s.clock.Now())
	if remaining <= 0 {
		remaining = time.Millisecond
	}
	r, err := mutex.Acquire(mutex.Spec{
		Name:    lockName(s.path),
		Clock:   s.clock,
		Delay:   lockDelay,
		Timeout: remaining,
	})
	if err != nil {
		<-s.held
		msg := "acquire store lock"
		if errors.Is(err, mutex.ErrTimeout) {
			msg = fmt.Sprintf("store still locked after %s", s.lockTimeout)
		}
		return nil, &backend.LockError{Path: s.path, Message: msg, Err: err}
	}
	return func() {
		r.Release()
		<-s.held
	}, nil
}

// lockName derives a mutex name from the absolute store path. Mutex names
// must start with a letter and stay within 40 characters.
func lockName(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := sha256.Sum256([]byte(path))
	return "keyring-" + hex.EncodeToString(sum[:12])
}

var errUndecodable = errors.New("store file is not a keyring store")

// read loads the document; caller must hold the lock. A missing file is an
// empty store.
func (s *Store) read() (*document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &document{Version: formatVersion}, nil
		}
		return nil, &backend.LockError{Path: s.path, Message: "open store", Err: err}
	}
	if len(data) == 0 {
		return &document{Version: formatVersion}, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errUndecodable, err)
	}
	if doc.Version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", errUndecodable, doc.Version)
	}
	return &doc, nil
}

// write replaces the store file; caller must hold the lock.
func (s *Store) write(doc *document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing store: %w", err)
	}
	s.logger.Debug("store written", "path", s.path, "records", len(doc.Records))
	return nil
}

// saveFailure maps a read failure on the mutation path. A store that cannot
// be decoded is left untouched.
func (s *Store) saveFailure(err error) error {
	var le *backend.LockError
	if errors.As(err, &le) {
		return err
	}
	return backend.NewSaveError(backend.KindNativeFailure, err)
}

func (d *document) find(service, account string) int {
	for i, r := range d.Records {
		if r.Service == service && r.Account == account {
			return i
		}
	}
	return -1
}
