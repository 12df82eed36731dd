//go:build windows

package seal

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// DPAPI seals values with CryptProtectData under the current user's
// credentials. Blobs can only be opened by the same user on the same machine.
type DPAPI struct {
	description *uint16
}

var _ Sealer = (*DPAPI)(nil)

// NewDPAPI returns a DPAPI sealer.
func NewDPAPI() (*DPAPI, error) {
	desc, err := windows.UTF16PtrFromString("keyring")
	if err != nil {
		return nil, err
	}
	return &DPAPI{description: desc}, nil
}

func (d *DPAPI) Seal(plaintext []byte) ([]byte, error) {
	var out windows.DataBlob
	err := windows.CryptProtectData(blob(plaintext), d.description, nil, 0, nil, windows.CRYPTPROTECT_UI_FORBIDDEN, &out)
	if err != nil {
		return nil, fmt.Errorf("CryptProtectData: %w", err)
	}
	return takeBlob(&out), nil
}

func (d *DPAPI) Open(sealed []byte) ([]byte, error) {
	var out windows.DataBlob
	err := windows.CryptUnprotectData(blob(sealed), nil, nil, 0, nil, windows.CRYPTPROTECT_UI_FORBIDDEN, &out)
	if err != nil {
		return nil, fmt.Errorf("CryptUnprotectData: %w", err)
	}
	return takeBlob(&out), nil
}

func blob(b []byte) *windows.DataBlob {
	if len(b) == 0 {
		return &windows.DataBlob{}
	}
	return &windows.DataBlob{Size: uint32(len(b)), Data: &b[0]}
}

// takeBlob copies a system-allocated output blob into Go memory and frees it.
func takeBlob(out *windows.DataBlob) []byte {
	if out.Data == nil {
		return []byte{}
	}
	defer windows.LocalFree(windows.Handle(unsafe.Pointer(out.Data))) //nolint:errcheck
	return append([]byte(nil), unsafe.Slice(out.Data, out.Size)...)
}
