package keyring

import (
	"log/slog"
	"time"
)

type options struct {
	storePath    string
	passphrase   string
	fileFallback bool
	lockTimeout  time.Duration
	workFactor   int
	logger       *slog.Logger
}

// Option configures New and NewNamed.
type Option func(*options)

// WithStorePath sets the store file for backends that keep one.
func WithStorePath(path string) Option {
	return func(o *options) { o.storePath = path }
}

// WithPassphrase sets the passphrase sealing the file backend.
func WithPassphrase(passphrase string) Option {
	return func(o *options) { o.passphrase = passphrase }
}

// WithFileFallback opens the passphrase-sealed file backend when the
// platform's native backend is missing or fails to set up. It requires
// WithPassphrase and WithStorePath.
func WithFileFallback(enabled bool) Option {
	return func(o *options) { o.fileFallback = enabled }
}

// WithLockTimeout bounds how long file-backed operations wait for the
// store lock.
func WithLockTimeout(d time.Duration) Option {
	return func(o *options) { o.lockTimeout = d }
}

// WithScryptWorkFactor sets the scrypt log2(N) used when sealing with a
// passphrase.
func WithScryptWorkFactor(logN int) Option {
	return func(o *options) { o.workFactor = logN }
}

// WithLogger sets the logger for the keyring and its file store.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}
