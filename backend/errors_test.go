package backend

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestRetrievalErrorIsByKind(t *testing.T) {
	tests := []struct {
		kind Kind
		want error
	}{
		{KindNotFound, ErrNotFound},
		{KindAccessDenied, ErrAccessDenied},
		{KindCorrupt, ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &RetrievalError{Kind: tt.kind})
			if !errors.Is(err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.want)
			}
		})
	}
}

func TestNativeFailureMatchesNoSentinel(t *testing.T) {
	err := &RetrievalError{Kind: KindNativeFailure, Code: -25291, Message: "No keychain is available."}
	for _, s := range []error{ErrNotFound, ErrAccessDenied, ErrCorrupt} {
		if errors.Is(err, s) {
			t.Errorf("native failure unexpectedly matched %v", s)
		}
	}
}

func TestErrorKeepsRawCode(t *testing.T) {
	err := &SaveError{Kind: KindNativeFailure, Code: -25299, Message: "The specified item already exists in the keychain."}
	msg := err.Error()
	if !strings.Contains(msg, "-25299") {
		t.Errorf("expected code in %q", msg)
	}
	if !strings.Contains(msg, "already exists") {
		t.Errorf("expected message in %q", msg)
	}
}

func TestErrorWithoutMessage(t *testing.T) {
	err := &RetrievalError{Kind: KindNativeFailure, Code: 42}
	if got, want := err.Error(), "retrieve password: native failure (code 42)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestSaveErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewSaveError(KindNativeFailure, cause)
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
}

func TestLockErrorIsDistinct(t *testing.T) {
	err := &LockError{Path: "/tmp/store.json", Err: errors.New("timeout")}
	if errors.Is(err, ErrAccessDenied) {
		t.Error("lock error must not match access denied")
	}
	var se *SaveError
	if errors.As(err, &se) {
		t.Error("lock error must not be a SaveError")
	}
	if !strings.Contains(err.Error(), "/tmp/store.json") {
		t.Errorf("expected path in %q", err.Error())
	}
}

func TestUnavailableError(t *testing.T) {
	err := &UnavailableError{Backend: "dpapi", Err: ErrNotSupported}
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Error("expected ErrBackendUnavailable")
	}
	if !errors.Is(err, ErrNotSupported) {
		t.Error("expected ErrNotSupported")
	}
	if !strings.Contains(err.Error(), `"dpapi"`) {
		t.Errorf("expected backend name in %q", err.Error())
	}
}
