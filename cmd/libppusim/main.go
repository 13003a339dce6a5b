// Command libppusim builds the simulator as a C shared library:
//
//	go build -buildmode=c-shared -o libppusim.so ./cmd/libppusim
//
// Hosts obtain an opaque core with ppu_sim_new and give it back with
// ppu_sim_drop. Cores live in C heap memory and are never moved by Go.
package main

/*
#include <stdbool.h>
*/
import "C"

import (
	"unsafe"

	"ppusim/internal/ppu"
	"ppusim/internal/ppusim"
)

var lifecycle = ppusim.New(ppusim.CAllocator{})

//export ppu_sim_new
func ppu_sim_new(revision C.int, hle C.bool, videoGen C.bool) unsafe.Pointer {
	core, err := lifecycle.Construct(ppu.Revision(revision), bool(hle), bool(videoGen))
	if err != nil {
		return nil
	}
	return unsafe.Pointer(core)
}

//export ppu_sim_drop
func ppu_sim_drop(handle unsafe.Pointer) {
	lifecycle.Release((*ppu.Core)(handle))
}

func main() {}
