package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `backend: file
store_path: /var/lib/keyring/store.json
file_fallback: true
lock_timeout: 250ms
scrypt_work_factor: 15
log_level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &Config{
		Backend:          "file",
		StorePath:        "/var/lib/keyring/store.json",
		FileFallback:     true,
		LockTimeout:      250 * time.Millisecond,
		ScryptWorkFactor: 15,
		LogLevel:         "debug",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("Level = %v, want debug", cfg.Level())
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if diff := cmp.Diff(&Config{}, cfg); diff != "" {
		t.Errorf("expected empty config (-want +got):\n%s", diff)
	}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("Level = %v, want info", cfg.Level())
	}
}

func TestLoadEmptyFile(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(&Config{}, cfg); diff != "" {
		t.Errorf("expected empty config (-want +got):\n%s", diff)
	}
}

func TestLoadCommentsOnly(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, `# backend: file
# store_path: ~/.keyring/store.json
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(&Config{}, cfg); diff != "" {
		t.Errorf("expected empty config (-want +got):\n%s", diff)
	}
}

func TestLoadExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg, err := Load(writeConfig(t, "store_path: ~/.keyring/store.json\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(home, ".keyring", "store.json"); cfg.StorePath != want {
		t.Errorf("StorePath = %q, want %q", cfg.StorePath, want)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
	}{
		{"negative timeout", "lock_timeout: -1s\n"},
		{"work factor too high", "scrypt_work_factor: 31\n"},
		{"unknown log level", "log_level: chatty\n"},
		{"bad duration", "lock_timeout: soon\n"},
		{"not yaml", "backend: [file\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
