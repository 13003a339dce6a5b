//go:build !cgo

package main

import (
	"fmt"

	"ppusim/internal/ppusim"
)

func newBaseAllocator(name string) (ppusim.Allocator, error) {
	switch name {
	case "heap", "":
		return ppusim.HeapAllocator{}, nil
	case "c":
		return nil, fmt.Errorf("allocator %q needs a cgo build", name)
	default:
		return nil, fmt.Errorf("unknown allocator %q (valid: heap, c)", name)
	}
}
