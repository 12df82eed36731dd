package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/benaskins/keyring"
	"github.com/benaskins/keyring/internal/config"
)

// passphraseEnv names the variable holding the file backend passphrase.
const passphraseEnv = "KEYRING_PASSPHRASE"

var (
	configPath   string
	backendName  string
	storePath    string
	fileFallback bool
	verbose      bool

	current settings
)

var rootCmd = &cobra.Command{
	Use:           "keyring",
	Short:         "Store and retrieve passwords in the platform keyring",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		current = resolveSettings(cfg, cmd.Flags().Changed)
		if current.storePath == "" {
			if home, err := keyringHome(); err == nil {
				current.storePath = defaultStorePath(home)
			}
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: current.level})))
		return nil
	},
}

// settings is the merged view of the config file and command-line flags.
type settings struct {
	backend      string
	storePath    string
	fileFallback bool
	lockTimeout  time.Duration
	workFactor   int
	level        slog.Level
}

// resolveSettings lets flags that were set explicitly override the config
// file.
func resolveSettings(cfg *config.Config, changed func(string) bool) settings {
	s := settings{
		backend:      cfg.Backend,
		storePath:    cfg.StorePath,
		fileFallback: cfg.FileFallback,
		lockTimeout:  cfg.LockTimeout,
		workFactor:   cfg.ScryptWorkFactor,
		level:        cfg.Level(),
	}
	if changed("backend") {
		s.backend = backendName
	}
	if changed("store-path") {
		s.storePath = storePath
	}
	if changed("file-fallback") {
		s.fileFallback = fileFallback
	}
	if verbose {
		s.level = slog.LevelDebug
	}
	return s
}

func (s settings) options() []keyring.Option {
	return []keyring.Option{
		keyring.WithStorePath(s.storePath),
		keyring.WithPassphrase(os.Getenv(passphraseEnv)),
		keyring.WithFileFallback(s.fileFallback),
		keyring.WithLockTimeout(s.lockTimeout),
		keyring.WithScryptWorkFactor(s.workFactor),
		keyring.WithLogger(slog.Default()),
	}
}

// openKeyring opens the configured backend, or the platform default when
// none is configured.
func openKeyring() (*keyring.Keyring, error) {
	if current.backend != "" {
		return keyring.NewNamed(current.backend, current.options()...)
	}
	return keyring.New(current.options()...)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultPath(), "config file")
	pf.StringVar(&backendName, "backend", "", "backend to use instead of the platform default")
	pf.StringVar(&storePath, "store-path", "", "store file for file-backed backends")
	pf.BoolVar(&fileFallback, "file-fallback", false, "fall back to the passphrase file store ($"+passphraseEnv+")")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
