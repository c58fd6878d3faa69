package persistence

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrUnalignedAccess is returned when attempting unaligned memory access.
var ErrUnalignedAccess = errors.New("unaligned memory access detected")

// nativeLittleEndian selects the zero-copy slice paths.
var nativeLittleEndian = isLittleEndian()

func isLittleEndian() bool {
	var test uint16 = 0x0001
	firstByte := *(*byte)(unsafe.Pointer(&test))
	return firstByte == 1
}

func validateAlignment(p unsafe.Pointer, align uintptr) error {
	ptr := uintptr(p)
	if ptr%align != 0 {
		return fmt.Errorf("%w: address 0x%x not %d-byte aligned", ErrUnalignedAccess, ptr, align)
	}
	return nil
}
