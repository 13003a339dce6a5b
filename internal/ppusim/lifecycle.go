// Package ppusim constructs and releases simulator cores.
//
// A Lifecycle keeps no record of the cores it hands out. Each Construct must
// be paired with exactly one Release; releasing twice, releasing a core that
// came from elsewhere or constructing with an unknown revision are
// programming errors. Builds with the ppusimdebug tag check for them.
package ppusim

import (
	"errors"
	"fmt"

	"ppusim/internal/ppu"
)

// ErrResourceExhausted is returned when storage for a core cannot be
// obtained.
var ErrResourceExhausted = errors.New("ppusim: resource exhausted")

// Lifecycle pairs core construction with release through one allocator.
type Lifecycle struct {
	alloc Allocator
}

// New returns a Lifecycle drawing storage from alloc. A nil alloc selects
// HeapAllocator.
func New(alloc Allocator) *Lifecycle {
	if alloc == nil {
		alloc = HeapAllocator{}
	}
	return &Lifecycle{alloc: alloc}
}

// Allocator returns the allocator the lifecycle draws from.
func (l *Lifecycle) Allocator() Allocator {
	return l.alloc
}

// Construct allocates one core and powers it on. It panics if rev is not a
// valid revision; nothing is allocated in that case. On failure the returned
// core is nil and the error wraps ErrResourceExhausted or the allocator's own
// error.
func (l *Lifecycle) Construct(rev ppu.Revision, highLevelEmulation, videoGeneration bool) (*ppu.Core, error) {
	if !rev.Valid() {
		panic(fmt.Sprintf("ppusim: construct with invalid revision %d", int(rev)))
	}

	core, err := l.alloc.Alloc()
	if err != nil {
		return nil, fmt.Errorf("allocate %s core: %w", rev, err)
	}
	if core == nil {
		return nil, fmt.Errorf("allocate %s core: %w", rev, ErrResourceExhausted)
	}
	if debugAssertions && core.Live() {
		panic("ppusim: allocator returned a live core")
	}

	core.PowerOn(rev, highLevelEmulation, videoGeneration)
	return core, nil
}

// Release finalizes core and returns its storage. core must have come from
// Construct on this lifecycle and must not be used afterwards. Releasing nil
// does nothing.
func (l *Lifecycle) Release(core *ppu.Core) {
	if core == nil {
		return
	}
	if debugAssertions && !core.Live() {
		panic("ppusim: release of a core that is not live")
	}
	core.Finalize()
	l.alloc.Free(core)
}

// With constructs a core, passes it to fn and releases it when fn returns,
// including when fn panics.
func (l *Lifecycle) With(rev ppu.Revision, highLevelEmulation, videoGeneration bool, fn func(*ppu.Core) error) error {
	core, err := l.Construct(rev, highLevelEmulation, videoGeneration)
	if err != nil {
		return err
	}
	defer l.Release(core)
	return fn(core)
}

var heap = &Lifecycle{alloc: HeapAllocator{}}

// Construct constructs a core on the Go heap.
func Construct(rev ppu.Revision, highLevelEmulation, videoGeneration bool) (*ppu.Core, error) {
	return heap.Construct(rev, highLevelEmulation, videoGeneration)
}

// Release releases a core obtained from Construct.
func Release(core *ppu.Core) {
	heap.Release(core)
}

// With runs fn on a heap core that is released afterwards.
func With(rev ppu.Revision, highLevelEmulation, videoGeneration bool, fn func(*ppu.Core) error) error {
	return heap.With(rev, highLevelEmulation, videoGeneration, fn)
}
