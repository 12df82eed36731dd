package memory

import (
	"errors"
	"testing"

	"github.com/benaskins/keyring/backend"
)

func TestSetAndGet(t *testing.T) {
	b := New()

	if err := b.SetPassword("svc", "test/set-get", "hello-world"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}

	val, err := b.GetPassword("svc", "test/set-get")
	if err != nil {
		t.Fatalf("GetPassword: %v", err)
	}
	if val != "hello-world" {
		t.Errorf("expected 'hello-world', got %q", val)
	}
}

func TestGetNotFound(t *testing.T) {
	b := New()

	_, err := b.GetPassword("svc", "test/nonexistent")
	if !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetOverwrites(t *testing.T) {
	b := New()

	b.SetPassword("svc", "test/overwrite", "first")
	b.SetPassword("svc", "test/overwrite", "second")

	val, err := b.GetPassword("svc", "test/overwrite")
	if err != nil {
		t.Fatalf("GetPassword: %v", err)
	}
	if val != "second" {
		t.Errorf("expected 'second', got %q", val)
	}
	if n := len(b.secrets); n != 1 {
		t.Errorf("expected 1 stored secret after overwrite, got %d", n)
	}
}

func TestDelete(t *testing.T) {
	b := New()

	b.SetPassword("svc", "test/delete", "to-delete")

	if err := b.DeletePassword("svc", "test/delete"); err != nil {
		t.Fatalf("DeletePassword: %v", err)
	}

	_, err := b.GetPassword("svc", "test/delete")
	if !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDeleteNonexistent(t *testing.T) {
	b := New()

	err := b.DeletePassword("svc", "test/never-existed")
	if !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestServicesAreSeparate(t *testing.T) {
	b := New()
	b.SetPassword("svc1", "acct", "one")
	b.SetPassword("svc2", "acct", "two")

	for svc, want := range map[string]string{"svc1": "one", "svc2": "two"} {
		got, err := b.GetPassword(svc, "acct")
		if err != nil {
			t.Fatalf("GetPassword(%s): %v", svc, err)
		}
		if got != want {
			t.Errorf("GetPassword(%s) = %q, want %q", svc, got, want)
		}
	}
}
