package ppusim

import (
	"fmt"
	"sync/atomic"

	"ppusim/internal/ppu"
)

// errNilCore reports a base allocator that returned neither storage nor an
// error.
var errNilCore = fmt.Errorf("%w: allocator returned no storage", ErrResourceExhausted)

// Allocator provides the storage for simulator cores. Alloc returns zeroed
// storage; Free gives it back. Implementations used from several goroutines
// must be safe for concurrent use.
type Allocator interface {
	Alloc() (*ppu.Core, error)
	Free(core *ppu.Core)
}

// HeapAllocator places cores on the Go heap.
type HeapAllocator struct{}

// Alloc implements Allocator.
func (HeapAllocator) Alloc() (*ppu.Core, error) {
	return &ppu.Core{}, nil
}

// Free implements Allocator. The storage is left to the collector.
func (HeapAllocator) Free(*ppu.Core) {}

// CountingAllocator wraps another allocator and counts what passes through
// it. The zero value wraps HeapAllocator.
type CountingAllocator struct {
	Base Allocator

	allocated atomic.Int64
	freed     atomic.Int64
}

// NewCountingAllocator wraps base. A nil base selects HeapAllocator.
func NewCountingAllocator(base Allocator) *CountingAllocator {
	return &CountingAllocator{Base: base}
}

func (a *CountingAllocator) base() Allocator {
	if a.Base == nil {
		return HeapAllocator{}
	}
	return a.Base
}

// Alloc implements Allocator.
func (a *CountingAllocator) Alloc() (*ppu.Core, error) {
	core, err := a.base().Alloc()
	if err != nil {
		return nil, err
	}
	if core == nil {
		return nil, errNilCore
	}
	a.allocated.Add(1)
	return core, nil
}

// Free implements Allocator.
func (a *CountingAllocator) Free(core *ppu.Core) {
	a.freed.Add(1)
	a.base().Free(core)
}

// Allocated returns the number of successful allocations.
func (a *CountingAllocator) Allocated() int64 {
	return a.allocated.Load()
}

// Freed returns the number of frees.
func (a *CountingAllocator) Freed() int64 {
	return a.freed.Load()
}

// Live returns allocations not yet freed.
func (a *CountingAllocator) Live() int64 {
	return a.allocated.Load() - a.freed.Load()
}

// LimitedAllocator refuses to hold more than Limit cores at a time. It is
// how allocation failure is simulated.
type LimitedAllocator struct {
	Base  Allocator
	Limit int64

	live atomic.Int64
}

// NewLimitedAllocator caps base at limit live cores. A nil base selects
// HeapAllocator.
func NewLimitedAllocator(base Allocator, limit int64) *LimitedAllocator {
	return &LimitedAllocator{Base: base, Limit: limit}
}

// Alloc implements Allocator.
func (a *LimitedAllocator) Alloc() (*ppu.Core, error) {
	if n := a.live.Add(1); n > a.Limit {
		a.live.Add(-1)
		return nil, fmt.Errorf("%w: %d cores live, limit %d", ErrResourceExhausted, n-1, a.Limit)
	}

	base := a.Base
	if base == nil {
		base = HeapAllocator{}
	}
	core, err := base.Alloc()
	if err == nil && core == nil {
		err = errNilCore
	}
	if err != nil {
		a.live.Add(-1)
		return nil, err
	}
	return core, nil
}

// Free implements Allocator.
func (a *LimitedAllocator) Free(core *ppu.Core) {
	base := a.Base
	if base == nil {
		base = HeapAllocator{}
	}
	base.Free(core)
	a.live.Add(-1)
}
