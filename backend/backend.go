// Package backend defines the contract every platform secret store adapter
// implements, the error taxonomy they report, and the selector that picks
// the active one.
//
// A backend is bound to exactly one native facility (macOS Keychain, the
// freedesktop Secret Service, Windows Credential Manager, a DPAPI-sealed
// file, an encrypted file). Passwords are addressed by a (service, account)
// pair; both are opaque to the backend.
package backend

// Backend is the uniform operation set of a platform secret store.
//
// IsSupported must not perform I/O beyond OS identification. Setup is
// called once by the selector before first use; a backend whose Setup
// fails stays unusable for the life of the process.
type Backend interface {
	// Name is the stable identifier used to request the backend explicitly.
	Name() string
	IsSupported() bool
	Setup() error
	// RequiresStorePath reports whether SetStorePath must be called before
	// the first password operation.
	RequiresStorePath() bool

	GetPassword(service, account string) (string, error)
	// SetPassword creates the record if absent and updates it in place
	// otherwise.
	SetPassword(service, account, password string) error
	// DeletePassword fails with a NotFound SaveError when the record does
	// not exist.
	DeletePassword(service, account string) error
}

// PathConfigurable is implemented by file-backed backends.
type PathConfigurable interface {
	StorePath() string
	SetStorePath(path string)
}

// Known backend names.
const (
	NameKeychain      = "osx-keychain"
	NameSecItem       = "osx-secitem"
	NameSecretService = "secret-service"
	NameWinCred       = "wincred"
	NameDPAPI         = "dpapi"
	NameFile          = "file"
	NameMemory        = "memory"
)
