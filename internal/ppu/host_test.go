package ppu

import "testing"

// testHost drives a Core the way a board would: it toggles CLK, holds the
// CPU interface pads and serves the VRAM bus from a flat 16 KiB array.
type testHost struct {
	t      *testing.T
	core   *Core
	pins   Pins
	vout   VideoOut
	last   VideoOut
	clk    TriState
	latch  uint8
	vram   [0x4000]uint8
	pixels int
	reads  int
	writes int

	// writeCycles counts /WR pulses rather than the half clocks it is held low
	writeCycles int
	wrLow       bool
}

func newTestHost(t *testing.T, rev Revision, videoGeneration bool) *testHost {
	t.Helper()
	h := &testHost{t: t, core: &Core{}}
	h.core.PowerOn(rev, false, videoGeneration)
	for i := range h.pins.In {
		h.pins.In[i] = One
	}
	h.pins.In[CLK] = Zero
	return h
}

func (h *testHost) half() {
	h.pins.In[CLK] = h.clk
	h.core.Sim(&h.pins, &h.vout)
	if h.vout.Valid {
		h.pixels++
		h.last = h.vout
	}

	switch {
	case h.pins.Out[ALE] == One:
		h.latch = h.pins.AD
	case h.pins.Out[NRD] == Zero:
		h.pins.AD = h.vram[h.pins.VRAMAddress(h.latch)]
		h.reads++
	case h.pins.Out[NWR] == Zero:
		h.vram[h.pins.VRAMAddress(h.latch)] = h.pins.AD
		h.writes++
	}
	if h.pins.Out[NWR] == Zero && !h.wrLow {
		h.writeCycles++
	}
	h.wrLow = h.pins.Out[NWR] == Zero

	if h.clk == Zero {
		h.clk = One
	} else {
		h.clk = Zero
	}
}

func (h *testHost) dots(n int) {
	for i := 0; i < n*2*h.core.ClkPerPclk(); i++ {
		h.half()
	}
}

// runUntil steps dots until cond holds, failing after limit dots.
func (h *testHost) runUntil(limit int, cond func() bool) int {
	h.t.Helper()
	for n := 0; n < limit; n++ {
		if cond() {
			return n
		}
		h.dots(1)
	}
	h.t.Fatalf("condition not reached within %d dots", limit)
	return limit
}

func (h *testHost) selectRegister(reg int) {
	h.pins.In[RS0] = Level(reg&1 != 0)
	h.pins.In[RS1] = Level(reg&2 != 0)
	h.pins.In[RS2] = Level(reg&4 != 0)
}

// write performs one CPU write cycle and leaves the bus idle for a few dots.
func (h *testHost) write(reg int, value uint8) {
	h.selectRegister(reg)
	h.pins.In[RnW] = Zero
	h.pins.D = value
	h.pins.In[NDBE] = Zero
	h.dots(1)
	h.pins.In[NDBE] = One
	h.pins.In[RnW] = One
	h.dots(3)
}

// read performs one CPU read cycle.
func (h *testHost) read(reg int) uint8 {
	h.selectRegister(reg)
	h.pins.In[RnW] = One
	h.pins.In[NDBE] = Zero
	h.half()
	value := h.pins.D
	h.dots(1)
	h.pins.In[NDBE] = One
	h.dots(3)
	return value
}

func (h *testHost) setAddr(addr uint16) {
	h.write(6, uint8(addr>>8))
	h.write(6, uint8(addr))
}

func (h *testHost) frameDots() int {
	p := h.core.Profile()
	return p.Scanlines * 341
}
