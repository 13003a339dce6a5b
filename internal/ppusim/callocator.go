//go:build cgo
// +build cgo

package ppusim

/*
#include <stdlib.h>
*/
import "C"

import (
	"fmt"
	"unsafe"

	"ppusim/internal/ppu"
)

// CAllocator places cores in C heap memory. Core holds no Go pointers, so
// the storage may be handed to C callers and kept there.
type CAllocator struct{}

// Alloc implements Allocator. calloc returns zeroed storage.
func (CAllocator) Alloc() (*ppu.Core, error) {
	p := C.calloc(1, C.size_t(unsafe.Sizeof(ppu.Core{})))
	if p == nil {
		return nil, fmt.Errorf("%w: calloc of %d bytes failed", ErrResourceExhausted, unsafe.Sizeof(ppu.Core{}))
	}
	return (*ppu.Core)(p), nil
}

// Free implements Allocator.
func (CAllocator) Free(core *ppu.Core) {
	C.free(unsafe.Pointer(core))
}
