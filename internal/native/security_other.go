//go:build !darwin || !cgo

package native

// Load fails outside macOS, and on macOS builds without cgo, because the
// framework can only be reached through cgo.
func Load() (Security, error) {
	return nil, ErrUnavailable
}
