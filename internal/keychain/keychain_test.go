package keychain

import (
	"errors"
	"strings"
	"testing"

	"github.com/benaskins/keyring/backend"
	"github.com/benaskins/keyring/internal/native"
	"github.com/benaskins/keyring/internal/native/nativetest"
)

// Unit tests drive the backend against nativetest — no macOS Keychain
// interaction needed.

func testBackend(t *testing.T) (*Backend, *nativetest.Keychain) {
	t.Helper()
	kc := nativetest.New()
	b := newWithLoader(func() (native.Security, error) { return kc, nil })
	if err := b.Setup(); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	t.Cleanup(func() {
		if n := kc.Outstanding(); n != 0 {
			t.Errorf("%d native references leaked", n)
		}
		if m := kc.Misuse(); len(m) != 0 {
			t.Errorf("native misuse: %v", m)
		}
	})
	return b, kc
}

func TestScenario(t *testing.T) {
	b, _ := testBackend(t)

	if err := b.SetPassword("net.example.app", "alice", "S3cr3t!"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	got, err := b.GetPassword("net.example.app", "alice")
	if err != nil {
		t.Fatalf("GetPassword: %v", err)
	}
	if got != "S3cr3t!" {
		t.Errorf("expected 'S3cr3t!', got %q", got)
	}
	if err := b.DeletePassword("net.example.app", "alice"); err != nil {
		t.Fatalf("DeletePassword: %v", err)
	}
	_, err = b.GetPassword("net.example.app", "alice")
	if !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRoundTripPreservesBytes(t *testing.T) {
	b, kc := testBackend(t)

	secrets := []string{
		"p@ssw0rd!",
		"密码123",
		"пароль",
		"with\x00nul",
		"emoji 🔐",
		strings.Repeat("a", 4096),
	}
	for i, s := range secrets {
		account := string(rune('a' + i))
		if err := b.SetPassword("svc", account, s); err != nil {
			t.Fatalf("SetPassword(%q): %v", s, err)
		}
		raw, _ := kc.Lookup("svc", account)
		if string(raw) != s {
			t.Errorf("stored bytes %q, want %q", raw, s)
		}
		got, err := b.GetPassword("svc", account)
		if err != nil {
			t.Fatalf("GetPassword: %v", err)
		}
		if got != s {
			t.Errorf("round trip: got %q, want %q", got, s)
		}
	}
}

func TestGetFreesContent(t *testing.T) {
	b, kc := testBackend(t)
	kc.Put("svc", "acct", []byte("value"))

	if _, err := b.GetPassword("svc", "acct"); err != nil {
		t.Fatalf("GetPassword: %v", err)
	}

	calls := kc.Calls()
	if calls[len(calls)-1] != "ItemFreeContent" {
		t.Errorf("expected content to be freed last, calls %v", calls)
	}
}

func TestGetEmptyPassword(t *testing.T) {
	b, kc := testBackend(t)
	kc.Put("svc", "empty", nil)

	got, err := b.GetPassword("svc", "empty")
	if err != nil {
		t.Fatalf("GetPassword: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty password, got %q", got)
	}
}

func TestGetInvalidUTF8IsCorrupt(t *testing.T) {
	b, kc := testBackend(t)
	kc.Put("svc", "acct", []byte{0xff, 0xfe, 0xfd})

	_, err := b.GetPassword("svc", "acct")
	if !errors.Is(err, backend.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestGetNotFoundCarriesCodeAndMessage(t *testing.T) {
	b, _ := testBackend(t)

	_, err := b.GetPassword("svc", "missing")
	var re *backend.RetrievalError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetrievalError, got %v", err)
	}
	if re.Kind != backend.KindNotFound {
		t.Errorf("Kind = %v, want not found", re.Kind)
	}
	if re.Code != int(native.StatusItemNotFound) {
		t.Errorf("Code = %d, want %d", re.Code, native.StatusItemNotFound)
	}
	if !strings.Contains(re.Message, "could not be found") {
		t.Errorf("unexpected message %q", re.Message)
	}
}

func TestGetNativeFailureWithoutMessage(t *testing.T) {
	b, kc := testBackend(t)
	kc.FailNext("FindGenericPassword", native.Status(-67808))

	_, err := b.GetPassword("svc", "acct")
	var re *backend.RetrievalError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetrievalError, got %v", err)
	}
	if re.Kind != backend.KindNativeFailure || re.Code != -67808 {
		t.Errorf("got kind %v code %d", re.Kind, re.Code)
	}
	if re.Message != "" {
		t.Errorf("expected empty message, got %q", re.Message)
	}
}

func TestGetAccessDenied(t *testing.T) {
	b, kc := testBackend(t)
	kc.FailNext("FindGenericPassword", native.StatusAuthFailed)

	_, err := b.GetPassword("svc", "acct")
	if !errors.Is(err, backend.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestMissingKeychainIsLockError(t *testing.T) {
	b, kc := testBackend(t)
	kc.FailNext("FindGenericPassword", native.StatusNoSuchKeychain)

	_, err := b.GetPassword("svc", "acct")
	var le *backend.LockError
	if !errors.As(err, &le) {
		t.Fatalf("expected LockError, got %v", err)
	}
	if le.Code != int(native.StatusNoSuchKeychain) {
		t.Errorf("Code = %d", le.Code)
	}
}

func TestSetTwiceUpdatesInPlace(t *testing.T) {
	b, kc := testBackend(t)

	for i := 0; i < 3; i++ {
		if err := b.SetPassword("svc", "acct", "same"); err != nil {
			t.Fatalf("SetPassword #%d: %v", i+1, err)
		}
	}
	if n := kc.Records(); n != 1 {
		t.Errorf("expected 1 record, got %d", n)
	}

	adds, modifies := 0, 0
	for _, c := range kc.Calls() {
		switch c {
		case "AddGenericPassword":
			adds++
		case "ItemModifyContent":
			modifies++
		}
	}
	if adds != 1 || modifies != 2 {
		t.Errorf("expected 1 add and 2 modifies, got %d and %d", adds, modifies)
	}
}

func TestSetOverwrites(t *testing.T) {
	b, kc := testBackend(t)

	b.SetPassword("svc", "acct", "first")
	if err := b.SetPassword("svc", "acct", "second"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}

	got, err := b.GetPassword("svc", "acct")
	if err != nil {
		t.Fatalf("GetPassword: %v", err)
	}
	if got != "second" {
		t.Errorf("expected 'second', got %q", got)
	}
	if kc.Records() != 1 {
		t.Errorf("expected exactly one record, got %d", kc.Records())
	}
}

func TestSetFindFailure(t *testing.T) {
	b, kc := testBackend(t)
	kc.FailNext("FindGenericPassword", native.StatusInteractionNotAllowed)

	err := b.SetPassword("svc", "acct", "pw")
	var se *backend.SaveError
	if !errors.As(err, &se) {
		t.Fatalf("expected SaveError, got %v", err)
	}
	if se.Kind != backend.KindAccessDenied {
		t.Errorf("Kind = %v, want access denied", se.Kind)
	}
	for _, c := range kc.Calls() {
		if c == "AddGenericPassword" || c == "ItemModifyContent" {
			t.Errorf("no mutation expected after a failed lookup, got %s", c)
		}
	}
}

func TestSetModifyFailureReleasesItem(t *testing.T) {
	b, kc := testBackend(t)
	kc.Put("svc", "acct", []byte("old"))
	kc.FailNext("ItemModifyContent", native.Status(-25240))

	err := b.SetPassword("svc", "acct", "new")
	var se *backend.SaveError
	if !errors.As(err, &se) {
		t.Fatalf("expected SaveError, got %v", err)
	}
	if se.Kind != backend.KindNativeFailure || se.Code != -25240 {
		t.Errorf("got kind %v code %d", se.Kind, se.Code)
	}
	// leak check runs in cleanup
}

func TestSetDuplicateIsNativeFailure(t *testing.T) {
	b, kc := testBackend(t)
	kc.FailNext("AddGenericPassword", native.StatusDuplicateItem)

	err := b.SetPassword("svc", "acct", "pw")
	var se *backend.SaveError
	if !errors.As(err, &se) {
		t.Fatalf("expected SaveError, got %v", err)
	}
	if se.Kind != backend.KindNativeFailure {
		t.Errorf("Kind = %v", se.Kind)
	}
	if !strings.Contains(se.Error(), "already exists") {
		t.Errorf("expected native message in %q", se.Error())
	}
}

func TestDeleteNonexistent(t *testing.T) {
	b, _ := testBackend(t)

	err := b.DeletePassword("svc", "never-existed")
	var se *backend.SaveError
	if !errors.As(err, &se) {
		t.Fatalf("expected SaveError, got %v", err)
	}
	if se.Kind != backend.KindNotFound {
		t.Errorf("Kind = %v, want not found", se.Kind)
	}
}

func TestDeleteFailureReleasesItem(t *testing.T) {
	b, kc := testBackend(t)
	kc.Put("svc", "acct", []byte("pw"))
	kc.FailNext("ItemDelete", native.StatusWritePermission)

	err := b.DeletePassword("svc", "acct")
	if !errors.Is(err, backend.ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if kc.Records() != 1 {
		t.Error("record should survive a failed delete")
	}
}

func TestSetupFailureIsPermanent(t *testing.T) {
	loads := 0
	b := newWithLoader(func() (native.Security, error) {
		loads++
		return nil, native.ErrUnavailable
	})

	for i := 0; i < 2; i++ {
		err := b.Setup()
		if !errors.Is(err, backend.ErrBackendUnavailable) {
			t.Fatalf("expected ErrBackendUnavailable, got %v", err)
		}
	}
	if _, err := b.GetPassword("svc", "acct"); !errors.Is(err, native.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable from GetPassword, got %v", err)
	}
	if loads != 1 {
		t.Errorf("expected a single load attempt, got %d", loads)
	}
}

func TestNoStorePath(t *testing.T) {
	b := New()
	if b.RequiresStorePath() {
		t.Error("keychain manages its own storage")
	}
	if b.Name() != backend.NameKeychain {
		t.Errorf("Name = %q", b.Name())
	}
}
