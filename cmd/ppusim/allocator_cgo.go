//go:build cgo

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
		return ppusim.CAllocator{}, nil
	default:
		return nil, fmt.Errorf("unknown allocator %q (valid: heap, c)", name)
	}
}
