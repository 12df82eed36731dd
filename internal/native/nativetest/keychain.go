// Package nativetest provides an in-memory stand-in for Security.framework
// that accounts for every reference and buffer it hands out, so backends
// can be checked for leaks and double releases without a real keychain.
package nativetest

import (
	"fmt"
	"sync"
	"unicode/utf16"

	"github.com/benaskins/keyring/internal/native"
)

type refKind int

const (
	kindItem refKind = iota + 1
	kindData
	kindString
)

type recordKey struct {
	service string
	account string
}

type allocation struct {
	kind  refKind
	key   recordKey
	data  []byte
	units []uint16
}

// Keychain implements native.Security over a map of generic passwords.
type Keychain struct {
	mu       sync.Mutex
	records  map[recordKey][]byte
	live     map[native.Ref]*allocation
	next     native.Ref
	fail     map[string]native.Status
	messages map[native.Status]string

	calls  []string
	misuse []string
}

var _ native.Security = (*Keychain)(nil)

// New returns an empty keychain that knows the messages for the common
// status codes.
func New() *Keychain {
	return &Keychain{
		records: make(map[recordKey][]byte),
		live:    make(map[native.Ref]*allocation),
		fail:    make(map[string]native.Status),
		messages: map[native.Status]string{
			native.StatusItemNotFound:   "The specified item could not be found in the keychain.",
			native.StatusDuplicateItem:  "The specified item already exists in the keychain.",
			native.StatusAuthFailed:     "The user name or passphrase you entered is not correct.",
			native.StatusNoSuchKeychain: "The specified keychain could not be found.",
		},
	}
}

// Put stores a record directly, bypassing the entry points.
func (k *Keychain) Put(service, account string, data []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.records[recordKey{service, account}] = append([]byte(nil), data...)
}

// Lookup returns the stored bytes for a record.
func (k *Keychain) Lookup(service, account string) ([]byte, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	d, ok := k.records[recordKey{service, account}]
	return d, ok
}

// Records is the number of stored records.
func (k *Keychain) Records() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.records)
}

// FailNext makes the next call to the named entry point return st.
// Names match the Security method names, e.g. "FindGenericPassword".
func (k *Keychain) FailNext(op string, st native.Status) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.fail[op] = st
}

// SetMessage overrides the message for a status. An empty message makes
// CopyErrorMessageString return NULL for it.
func (k *Keychain) SetMessage(st native.Status, msg string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if msg == "" {
		delete(k.messages, st)
		return
	}
	k.messages[st] = msg
}

// Outstanding is the number of references and buffers not yet returned.
func (k *Keychain) Outstanding() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.live)
}

// Calls lists the entry points invoked, in order.
func (k *Keychain) Calls() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.calls...)
}

// Misuse lists protocol violations: double releases, releasing with the
// wrong entry point, reading past a buffer.
func (k *Keychain) Misuse() []string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return append([]string(nil), k.misuse...)
}

func (k *Keychain) enter(op string) (native.Status, bool) {
	k.calls = append(k.calls, op)
	if st, ok := k.fail[op]; ok {
		delete(k.fail, op)
		return st, true
	}
	return native.StatusSuccess, false
}

func (k *Keychain) alloc(a *allocation) native.Ref {
	k.next++
	k.live[k.next] = a
	return k.next
}

func (k *Keychain) take(ref native.Ref, want refKind, op string) (*allocation, bool) {
	a, ok := k.live[ref]
	if !ok {
		k.misuse = append(k.misuse, fmt.Sprintf("%s: reference %d is not live", op, ref))
		return nil, false
	}
	if a.kind != want {
		k.misuse = append(k.misuse, fmt.Sprintf("%s: reference %d has the wrong kind", op, ref))
		return nil, false
	}
	return a, true
}

func (k *Keychain) FindGenericPassword(service, account []byte, wantData, wantItem bool) (native.Status, uint32, native.Ref, native.Ref) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if st, failed := k.enter("FindGenericPassword"); failed {
		return st, 0, 0, 0
	}

	key := recordKey{string(service), string(account)}
	data, ok := k.records[key]
	if !ok {
		return native.StatusItemNotFound, 0, 0, 0
	}

	var (
		length  uint32
		dataRef native.Ref
		itemRef native.Ref
	)
	if wantData {
		length = uint32(len(data))
		dataRef = k.alloc(&allocation{kind: kindData, data: append([]byte(nil), data...)})
	}
	if wantItem {
		itemRef = k.alloc(&allocation{kind: kindItem, key: key})
	}
	return native.StatusSuccess, length, dataRef, itemRef
}

func (k *Keychain) AddGenericPassword(service, account, password []byte) native.Status {
	k.mu.Lock()
	defer k.mu.Unlock()
	if st, failed := k.enter("AddGenericPassword"); failed {
		return st
	}

	key := recordKey{string(service), string(account)}
	if _, ok := k.records[key]; ok {
		return native.StatusDuplicateItem
	}
	k.records[key] = append([]byte(nil), password...)
	return native.StatusSuccess
}

func (k *Keychain) ItemModifyContent(item native.Ref, password []byte) native.Status {
	k.mu.Lock()
	defer k.mu.Unlock()
	if st, failed := k.enter("ItemModifyContent"); failed {
		return st
	}

	a, ok := k.take(item, kindItem, "ItemModifyContent")
	if !ok {
		return native.StatusInvalidItemRef
	}
	if _, exists := k.records[a.key]; !exists {
		return native.StatusInvalidItemRef
	}
	k.records[a.key] = append([]byte(nil), password...)
	return native.StatusSuccess
}

func (k *Keychain) ItemDelete(item native.Ref) native.Status {
	k.mu.Lock()
	defer k.mu.Unlock()
	if st, failed := k.enter("ItemDelete"); failed {
		return st
	}

	a, ok := k.take(item, kindItem, "ItemDelete")
	if !ok {
		return native.StatusInvalidItemRef
	}
	if _, exists := k.records[a.key]; !exists {
		return native.StatusInvalidItemRef
	}
	delete(k.records, a.key)
	return native.StatusSuccess
}

func (k *Keychain) ItemFreeContent(data native.Ref) native.Status {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls = append(k.calls, "ItemFreeContent")

	if _, ok := k.take(data, kindData, "ItemFreeContent"); !ok {
		return native.StatusInvalidItemRef
	}
	delete(k.live, data)
	return native.StatusSuccess
}

func (k *Keychain) CopyBytes(data native.Ref, length uint32) []byte {
	k.mu.Lock()
	defer k.mu.Unlock()

	a, ok := k.take(data, kindData, "CopyBytes")
	if !ok {
		return nil
	}
	if int(length) > len(a.data) {
		k.misuse = append(k.misuse, fmt.Sprintf("CopyBytes: read of %d bytes from a %d byte buffer", length, len(a.data)))
		length = uint32(len(a.data))
	}
	return append([]byte{}, a.data[:length]...)
}

func (k *Keychain) CopyErrorMessageString(st native.Status) native.Ref {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls = append(k.calls, "CopyErrorMessageString")

	msg, ok := k.messages[st]
	if !ok {
		return 0
	}
	return k.alloc(&allocation{kind: kindString, units: utf16.Encode([]rune(msg))})
}

func (k *Keychain) StringLength(s native.Ref) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	a, ok := k.take(s, kindString, "StringLength")
	if !ok {
		return 0
	}
	return len(a.units)
}

func (k *Keychain) StringCharacterAtIndex(s native.Ref, i int) uint16 {
	k.mu.Lock()
	defer k.mu.Unlock()
	a, ok := k.take(s, kindString, "StringCharacterAtIndex")
	if !ok {
		return 0
	}
	if i < 0 || i >= len(a.units) {
		k.misuse = append(k.misuse, fmt.Sprintf("StringCharacterAtIndex: index %d out of range", i))
		return 0
	}
	return a.units[i]
}

func (k *Keychain) Release(ref native.Ref) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.calls = append(k.calls, "Release")

	a, ok := k.live[ref]
	if !ok {
		k.misuse = append(k.misuse, fmt.Sprintf("Release: reference %d is not live", ref))
		return
	}
	if a.kind == kindData {
		k.misuse = append(k.misuse, fmt.Sprintf("Release: content buffer %d must go through ItemFreeContent", ref))
		return
	}
	delete(k.live, ref)
}
