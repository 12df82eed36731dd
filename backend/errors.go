package backend

import (
	"errors"
	"fmt"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrNotFound     = errors.New("password not found")
	ErrAccessDenied = errors.New("access denied")
	ErrCorrupt      = errors.New("stored password is unreadable")

	// ErrBackendUnavailable matches every *UnavailableError.
	ErrBackendUnavailable = errors.New("keyring backend unavailable")
	ErrNoSupportedBackend = errors.New("no supported keyring backend")
	ErrUnknownBackend     = errors.New("unknown keyring backend")
	ErrNotSupported       = errors.New("backend not supported on this platform")

	ErrStorePathRequired = errors.New("store path required")
)

// Kind classifies a retrieval or save failure.
type Kind int

const (
	// KindNativeFailure is an opaque platform error; Code and Message carry
	// the details.
	KindNativeFailure Kind = iota
	KindNotFound
	KindAccessDenied
	KindCorrupt
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindAccessDenied:
		return "access denied"
	case KindCorrupt:
		return "corrupt"
	default:
		return "native failure"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindAccessDenied:
		return ErrAccessDenied
	case KindCorrupt:
		return ErrCorrupt
	}
	return nil
}

// RetrievalError is returned by GetPassword.
type RetrievalError struct {
	Kind Kind
	// Code is the raw native result code, 0 when the failure did not come
	// from a native call.
	Code    int
	Message string
	Err     error
}

func (e *RetrievalError) Error() string {
	return formatFailure("retrieve password", e.Kind, e.Code, e.Message, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func (e *RetrievalError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// SaveError is returned by SetPassword and DeletePassword. KindNotFound is
// only produced by DeletePassword; KindCorrupt is never produced.
type SaveError struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *SaveError) Error() string {
	return formatFailure("save password", e.Kind, e.Code, e.Message, e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

func (e *SaveError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// LockError reports that the underlying store could not be opened or
// locked. It is distinct from an access-denied failure.
type LockError struct {
	Path    string
	Code    int
	Message string
	Err     error
}

func (e *LockError) Error() string {
	msg := "cannot lock store"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Code != 0 {
		msg += fmt.Sprintf(" (code %d)", e.Code)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LockError) Unwrap() error { return e.Err }

// UnavailableError is raised once, at construction, when no backend can be
// used: none is supported, the named one is unknown or unsupported, or its
// Setup failed.
type UnavailableError struct {
	Backend string
	Err     error
}

func (e *UnavailableError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("keyring backend unavailable: %v", e.Err)
	}
	return fmt.Sprintf("keyring backend %q unavailable: %v", e.Backend, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool {
	return target == ErrBackendUnavailable
}

// NewRetrievalError builds a RetrievalError of the given kind without a
// native code.
func NewRetrievalError(kind Kind, err error) *RetrievalError {
	return &RetrievalError{Kind: kind, Err: err}
}

// NewSaveError builds a SaveError of the given kind without a native code.
func NewSaveError(kind Kind, err error) *SaveError {
	return &SaveError{Kind: kind, Err: err}
}

func formatFailure(op string, kind Kind, code int, message string, err error) string {
	msg := fmt.Sprintf("%s: %s", op, kind)
	if code != 0 {
		msg += fmt.Sprintf(" (code %d)", code)
	}
	if message != "" {
		msg += ": " + message
	}
	if err != nil {
		msg += ": " + err.Error()
	}
	return msg
}
