//go:build darwin && cgo

package native

/*
#cgo CFLAGS: -Wno-deprecated-declarations
#cgo LDFLAGS: -framework CoreFoundation -framework Security

#include <CoreFoundation/CoreFoundation.h>
#include <Security/Security.h>
*/
import "C"
import "unsafe"

// framework calls straight into Security.framework. It holds no state;
// every reference it returns belongs to the caller until released.
type framework struct{}

// Load binds the Security.framework entry points.
func Load() (Security, error) {
	return framework{}, nil
}

// ptr turns a Ref back into the C pointer it was made from.
func ptr(r Ref) unsafe.Pointer {
	return unsafe.Pointer(uintptr(r)) //nolint:govet // C memory, never Go memory
}

// bytesPtr passes a Go buffer to C for the duration of one call. The
// length always travels separately.
func bytesPtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

func (framework) FindGenericPassword(service, account []byte, wantData, wantItem bool) (Status, uint32, Ref, Ref) {
	var (
		length    C.UInt32
		data      unsafe.Pointer
		item      C.SecKeychainItemRef
		lengthOut *C.UInt32
		dataOut   *unsafe.Pointer
		itemOut   *C.SecKeychainItemRef
	)
	if wantData {
		lengthOut = &length
		dataOut = &data
	}
	if wantItem {
		itemOut = &item
	}

	st := C.SecKeychainFindGenericPassword(
		nil,
		C.UInt32(len(service)), (*C.char)(bytesPtr(service)),
		C.UInt32(len(account)), (*C.char)(bytesPtr(account)),
		lengthOut, dataOut,
		itemOut,
	)
	if st != C.errSecSuccess {
		return Status(st), 0, 0, 0
	}
	return Status(st), uint32(length), Ref(uintptr(data)), Ref(uintptr(unsafe.Pointer(item)))
}

func (framework) AddGenericPassword(service, account, password []byte) Status {
	st := C.SecKeychainAddGenericPassword(
		nil,
		C.UInt32(len(service)), (*C.char)(bytesPtr(service)),
		C.UInt32(len(account)), (*C.char)(bytesPtr(account)),
		C.UInt32(len(password)), bytesPtr(password),
		nil,
	)
	return Status(st)
}

func (framework) ItemModifyContent(item Ref, password []byte) Status {
	st := C.SecKeychainItemModifyContent(
		C.SecKeychainItemRef(ptr(item)),
		nil,
		C.UInt32(len(password)), bytesPtr(password),
	)
	return Status(st)
}

func (framework) ItemDelete(item Ref) Status {
	return Status(C.SecKeychainItemDelete(C.SecKeychainItemRef(ptr(item))))
}

func (framework) ItemFreeContent(data Ref) Status {
	return Status(C.SecKeychainItemFreeContent(nil, ptr(data)))
}

func (framework) CopyBytes(data Ref, length uint32) []byte {
	if length == 0 || data == 0 {
		return []byte{}
	}
	return C.GoBytes(ptr(data), C.int(length))
}

func (framework) CopyErrorMessageString(st Status) Ref {
	s := C.SecCopyErrorMessageString(C.OSStatus(st), nil)
	return Ref(uintptr(unsafe.Pointer(s)))
}

func (framework) StringLength(s Ref) int {
	return int(C.CFStringGetLength(C.CFStringRef(ptr(s))))
}

func (framework) StringCharacterAtIndex(s Ref, i int) uint16 {
	return uint16(C.CFStringGetCharacterAtIndex(C.CFStringRef(ptr(s)), C.CFIndex(i)))
}

func (framework) Release(ref Ref) {
	if ref == 0 {
		return
	}
	C.CFRelease(C.CFTypeRef(ptr(ref)))
}
