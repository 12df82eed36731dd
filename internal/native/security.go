// Package native declares the Security.framework entry points used by the
// Keychain backend and the byte-level conventions for calling them.
//
// Buffers passed across the boundary are UTF-8 with an explicit length;
// nothing relies on NUL termination. Every reference or buffer handed out
// by the framework is owned by it and must be returned to the matching
// release call exactly once.
package native

import (
	"errors"
	"unicode/utf16"
)

// Status is an OSStatus result code. Zero is success.
type Status int32

// Result codes from SecBase.h that the backends interpret.
const (
	StatusSuccess               Status = 0
	StatusUserCanceled          Status = -128
	StatusWritePermission       Status = -61
	StatusNotAvailable          Status = -25291
	StatusReadOnly              Status = -25292
	StatusAuthFailed            Status = -25293
	StatusNoSuchKeychain        Status = -25294
	StatusInvalidKeychain       Status = -25295
	StatusDuplicateItem         Status = -25299
	StatusItemNotFound          Status = -25300
	StatusInvalidItemRef        Status = -25304
	StatusInteractionNotAllowed Status = -25308
	StatusNoAccessForItem       Status = -25243
	StatusDecode                Status = -26275
)

// Ref is an opaque native reference: a SecKeychainItemRef, a CFStringRef,
// or a content buffer returned by the framework. The zero Ref is NULL.
type Ref uintptr

// ErrUnavailable is returned by Load when the framework cannot be bound.
var ErrUnavailable = errors.New("Security.framework is not available")

// Security is the subset of Security.framework and CoreFoundation the
// Keychain backend drives.
type Security interface {
	// FindGenericPassword wraps SecKeychainFindGenericPassword on the
	// default keychain search list. Only the requested outputs are filled:
	// length and data when wantData is set, item when wantItem is set.
	// Outputs are meaningful only when the status is StatusSuccess.
	FindGenericPassword(service, account []byte, wantData, wantItem bool) (st Status, length uint32, data Ref, item Ref)

	// AddGenericPassword wraps SecKeychainAddGenericPassword without
	// returning the new item.
	AddGenericPassword(service, account, password []byte) Status

	// ItemModifyContent replaces the data of an existing item, keeping its
	// attributes and access control.
	ItemModifyContent(item Ref, password []byte) Status

	// ItemDelete removes the item from its keychain. The reference itself
	// must still be released.
	ItemDelete(item Ref) Status

	// ItemFreeContent releases a data buffer returned by a find call.
	ItemFreeContent(data Ref) Status

	// CopyBytes copies length bytes out of a framework-owned buffer into
	// Go memory. It does not release the buffer.
	CopyBytes(data Ref, length uint32) []byte

	// CopyErrorMessageString wraps SecCopyErrorMessageString. The result
	// may be zero; a non-zero result must be released.
	CopyErrorMessageString(st Status) Ref

	StringLength(s Ref) int
	StringCharacterAtIndex(s Ref, i int) uint16

	// Release wraps CFRelease.
	Release(ref Ref)
}

// ErrorMessage recovers the human-readable text for a status. It never
// fails: when the framework has no message the result is empty.
func ErrorMessage(sec Security, st Status) string {
	s := sec.CopyErrorMessageString(st)
	if s == 0 {
		return ""
	}
	defer sec.Release(s)

	n := sec.StringLength(s)
	if n <= 0 {
		return ""
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = sec.StringCharacterAtIndex(s, i)
	}
	return string(utf16.Decode(units))
}

// Item is a scoped item reference obtained from a find call. Close releases
// it; further calls are no-ops.
type Item struct {
	sec Security
	ref Ref
}

// Hold takes ownership of ref. A zero ref yields an Item whose Valid
// reports false.
func Hold(sec Security, ref Ref) *Item {
	return &Item{sec: sec, ref: ref}
}

func (it *Item) Valid() bool { return it.ref != 0 }

func (it *Item) Ref() Ref { return it.ref }

func (it *Item) Close() {
	if it.ref == 0 {
		return
	}
	it.sec.Release(it.ref)
	it.ref = 0
}
