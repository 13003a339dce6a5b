// Package bus drives a simulated PPU the way a console board does: it
// generates the master clock, holds reset, performs CPU register cycles on
// the /DBE interface and serves the multiplexed VRAM bus from memory.
package bus

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"ppusim/internal/memory"
	"ppusim/internal/ppu"
	"ppusim/internal/ppusim"
)

// PPU register addresses as seen by the CPU.
const (
	PPUCTRL   uint16 = 0x2000
	PPUMASK   uint16 = 0x2001
	PPUSTATUS uint16 = 0x2002
	OAMADDR   uint16 = 0x2003
	OAMDATA   uint16 = 0x2004
	PPUSCROLL uint16 = 0x2005
	PPUADDR   uint16 = 0x2006
	PPUDATA   uint16 = 0x2007
)

var registerNames = [8]string{"PPUCTRL", "PPUMASK", "PPUSTATUS", "OAMADDR", "OAMDATA", "PPUSCROLL", "PPUADDR", "PPUDATA"}

// RegisterName returns the conventional name of the register address selects.
func RegisterName(address uint16) string {
	return registerNames[address&7]
}

// ParseRegister accepts a register name such as "PPUCTRL" or a CPU address
// in $2000-$3FFF written as "$2000", "0x2000" or decimal.
func ParseRegister(s string) (uint16, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range registerNames {
		if n == name {
			return 0x2000 + uint16(i), nil
		}
	}

	digits := strings.TrimPrefix(name, "$")
	base := 0
	if digits != name {
		base = 16
	}
	v, err := strconv.ParseUint(digits, base, 16)
	if err != nil {
		return 0, fmt.Errorf("unknown PPU register %q", s)
	}
	if v < 0x2000 || v > 0x3FFF {
		return 0, fmt.Errorf("address %#04x is not a PPU register", v)
	}
	return uint16(v), nil
}

// cpuCycleDots is how long the board leaves the CPU interface idle after a
// register cycle, counted together with the /DBE dot.
const cpuCycleDots = 3

// resetHalfClocks is how long Reset holds /RES low.
const resetHalfClocks = 4

// ErrClosed is returned by operations on a bus whose core was released.
var ErrClosed = errors.New("bus: closed")

// Options selects the core a Bus drives.
type Options struct {
	Revision            ppu.Revision
	HighLevelEmulation  bool
	VideoGeneration     bool
	RawOutput           bool
	RenderAlwaysEnabled bool
}

// VideoSink receives every pixel the core emits.
type VideoSink func(ppu.VideoOut)

// Stats counts VRAM bus traffic.
type Stats struct {
	HalfClocks uint64
	VRAMReads  uint64
	VRAMWrites uint64
	Frames     uint64
}

// Bus owns one core and everything wired to its pads.
type Bus struct {
	lc   *ppusim.Lifecycle
	core *ppu.Core
	vram *memory.VRAM
	log  *logrus.Entry

	pins ppu.Pins
	vout ppu.VideoOut
	clk  ppu.TriState

	resetCount int

	// CPU interface
	dbeCount int
	dbeAddr  uint16
	dbeWrite bool
	dbeValue uint8

	// External octal latch holding AD0-AD7 while ALE is high
	latchLo uint8

	// Last VRAM bus state acted on, so each access touches memory once
	ioAddr  uint16
	ioRead  ppu.TriState
	ioWrite ppu.TriState
	ioData  uint8

	lastFramePCLK uint64
	frameReady    bool
	nmi           bool

	onVideo VideoSink
	stats   Stats
	closed  bool
}

// New constructs a core through lc and wires it to vram. A nil vram selects
// CHR RAM with vertical mirroring; a nil log selects the standard logger.
func New(lc *ppusim.Lifecycle, opts Options, vram *memory.VRAM, log *logrus.Entry) (*Bus, error) {
	if lc == nil {
		lc = ppusim.New(nil)
	}
	if vram == nil {
		vram = memory.NewVRAM(nil, memory.MirrorVertical)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	if !opts.Revision.Valid() {
		return nil, fmt.Errorf("bus: invalid revision %d", int(opts.Revision))
	}

	core, err := lc.Construct(opts.Revision, opts.HighLevelEmulation, opts.VideoGeneration)
	if err != nil {
		return nil, fmt.Errorf("bus: %w", err)
	}
	core.SetRAWOutput(opts.RawOutput)
	core.DebugRenderAlwaysEnabled(opts.RenderAlwaysEnabled)

	b := &Bus{
		lc:      lc,
		core:    core,
		vram:    vram,
		log:     log.WithField("revision", opts.Revision.String()),
		clk:     ppu.Zero,
		ioRead:  ppu.X,
		ioWrite: ppu.X,
	}
	for i := range b.pins.In {
		b.pins.In[i] = ppu.One
	}
	b.pins.In[ppu.CLK] = ppu.Zero

	b.log.WithFields(logrus.Fields{
		"region":     opts.Revision.Profile().Region.String(),
		"hle":        opts.HighLevelEmulation,
		"video":      opts.VideoGeneration,
		"mirroring":  vram.Mirroring().String(),
		"clkPerPclk": core.ClkPerPclk(),
	}).Info("PPU core constructed")

	return b, nil
}

// Close releases the core. Calling Close more than once is harmless.
func (b *Bus) Close() {
	if b.closed {
		return
	}
	b.closed = true
	b.lc.Release(b.core)
	b.core = nil
	b.log.WithField("frames", b.stats.Frames).Info("PPU core released")
}

// Closed reports whether Close has been called.
func (b *Bus) Closed() bool {
	return b.closed
}

func (b *Bus) mustBeOpen() {
	if b.closed {
		panic(ErrClosed)
	}
}

// Core returns the driven core for inspection. It is nil after Close.
func (b *Bus) Core() *ppu.Core {
	return b.core
}

// VRAM returns the memory on the video bus.
func (b *Bus) VRAM() *memory.VRAM {
	return b.vram
}

// SetVideoSink installs fn to receive every emitted pixel.
func (b *Bus) SetVideoSink(fn VideoSink) {
	b.onVideo = fn
}

// Reset holds /RES low for the next four half clocks.
func (b *Bus) Reset() {
	b.resetCount = resetHalfClocks
	b.log.Debug("reset asserted")
}

// StepHalf advances the board by one half clock.
func (b *Bus) StepHalf() {
	b.mustBeOpen()

	b.pins.In[ppu.CLK] = b.clk
	b.pins.In[ppu.NRES] = ppu.Level(b.resetCount == 0)
	b.pins.In[ppu.RnW] = ppu.Level(!b.dbeWrite)
	b.pins.In[ppu.RS0] = ppu.Level(b.dbeAddr&1 != 0)
	b.pins.In[ppu.RS1] = ppu.Level(b.dbeAddr&2 != 0)
	b.pins.In[ppu.RS2] = ppu.Level(b.dbeAddr&4 != 0)
	b.pins.In[ppu.NDBE] = ppu.Level(b.dbeCount == 0)
	if b.dbeCount > 0 {
		if b.dbeWrite {
			b.pins.D = b.dbeValue
		}
		b.dbeCount--
	}

	b.core.Sim(&b.pins, &b.vout)
	b.stats.HalfClocks++

	if b.vout.Valid && b.onVideo != nil {
		b.onVideo(b.vout)
	}

	if b.resetCount > 0 {
		b.resetCount--
	}

	b.nmi = b.pins.Out[ppu.NINT] == ppu.Zero

	if b.pins.Out[ppu.ALE] == ppu.One {
		b.latchLo = b.pins.AD
	} else {
		b.busIO(b.pins.VRAMAddress(b.latchLo), b.pins.Out[ppu.NRD], b.pins.Out[ppu.NWR])
	}

	if b.clk == ppu.Zero {
		b.clk = ppu.One
	} else {
		b.clk = ppu.Zero
	}

	pclk := b.core.PCLKCounter()
	if b.core.HCounter() == 0 && b.core.VCounter() == b.core.Profile().VBlankLine &&
		b.lastFramePCLK != pclk && b.clk == ppu.Zero {
		b.lastFramePCLK = pclk
		b.frameReady = true
		b.stats.Frames++
		b.log.WithField("frame", b.stats.Frames).Debug("frame finished")
	}
}

// busIO serves one VRAM bus state. /WR takes priority over /RD and an
// unchanged state is not served again.
func (b *Bus) busIO(address uint16, readNeg, writeNeg ppu.TriState) {
	if b.ioAddr == address && b.ioRead == readNeg && b.ioWrite == writeNeg && b.ioData == b.pins.AD {
		return
	}

	switch {
	case writeNeg == ppu.Zero:
		b.vram.Write(address, b.pins.AD)
		b.stats.VRAMWrites++
		if b.tracing() {
			b.log.WithFields(logrus.Fields{
				"addr": fmt.Sprintf("%04X", address),
				"data": fmt.Sprintf("%02X", b.pins.AD),
			}).Trace("VRAM write")
		}
	case readNeg == ppu.Zero:
		b.pins.AD = b.vram.Read(address)
		b.stats.VRAMReads++
	}

	b.ioAddr = address
	b.ioRead = readNeg
	b.ioWrite = writeNeg
	b.ioData = b.pins.AD
}

// StepDot advances the board by one pixel clock.
func (b *Bus) StepDot() {
	b.mustBeOpen()
	for i := 0; i < 2*b.core.ClkPerPclk(); i++ {
		b.StepHalf()
	}
}

// StepDots advances the board by n pixel clocks.
func (b *Bus) StepDots(n int) {
	for i := 0; i < n; i++ {
		b.StepDot()
	}
}

// StepFrame runs until the next frame is finished.
func (b *Bus) StepFrame() error {
	if b.closed {
		return ErrClosed
	}

	p := b.core.Profile()
	limit := 2 * 2 * p.ClkPerPclk * p.Scanlines * 341
	for i := 0; i < limit; i++ {
		b.StepHalf()
		if b.frameReady {
			b.frameReady = false
			return nil
		}
	}
	return fmt.Errorf("bus: no frame finished in %d half clocks", limit)
}

// FrameReady reports and clears the frame-finished flag.
func (b *Bus) FrameReady() bool {
	ready := b.frameReady
	b.frameReady = false
	return ready
}

// NMI reports whether /INT is asserted.
func (b *Bus) NMI() bool {
	return b.nmi
}

// WriteRegister performs one CPU write cycle to a PPU register. Only the low
// three address bits are decoded.
func (b *Bus) WriteRegister(address uint16, value uint8) {
	b.mustBeOpen()
	if b.tracing() {
		b.log.WithFields(logrus.Fields{
			"reg":  RegisterName(address),
			"data": fmt.Sprintf("%02X", value),
		}).Trace("register write")
	}

	b.startCycle(address, true, value)
	b.finishCycle()
}

// ReadRegister performs one CPU read cycle from a PPU register.
func (b *Bus) ReadRegister(address uint16) uint8 {
	b.mustBeOpen()

	b.startCycle(address, false, 0)
	for b.dbeCount > 0 {
		b.StepHalf()
	}
	value := b.pins.D
	b.idle()

	if b.tracing() {
		b.log.WithFields(logrus.Fields{
			"reg":  RegisterName(address),
			"data": fmt.Sprintf("%02X", value),
		}).Trace("register read")
	}
	return value
}

func (b *Bus) tracing() bool {
	return b.log.Logger.IsLevelEnabled(logrus.TraceLevel)
}

func (b *Bus) startCycle(address uint16, write bool, value uint8) {
	b.dbeCount = 2 * b.core.ClkPerPclk()
	b.dbeAddr = address & 7
	b.dbeWrite = write
	b.dbeValue = value
}

func (b *Bus) finishCycle() {
	for b.dbeCount > 0 {
		b.StepHalf()
	}
	b.idle()
}

func (b *Bus) idle() {
	b.dbeWrite = false
	b.StepDots(cpuCycleDots - 1)
}

// SetVRAMAddress writes PPUADDR twice.
func (b *Bus) SetVRAMAddress(address uint16) {
	b.WriteRegister(PPUADDR, uint8(address>>8))
	b.WriteRegister(PPUADDR, uint8(address))
}

// FrameBuffer returns the last generated picture as 0x00RRGGBB pixels.
func (b *Bus) FrameBuffer() []uint32 {
	b.mustBeOpen()
	fb := b.core.FrameBuffer()
	return fb[:]
}

// Stats returns bus traffic counters.
func (b *Bus) Stats() Stats {
	return b.stats
}
