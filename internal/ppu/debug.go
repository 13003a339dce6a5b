package ppu

// Registers is a snapshot of the chip's internal registers.
type Registers struct {
	CTRL0      uint8 // PPUCTRL
	CTRL1      uint8 // PPUMASK
	Status     uint8
	OAMAddr    uint8
	V          uint16
	T          uint16
	FineX      uint8
	W          bool
	ReadBuffer uint8
	IOLatch    uint8
	HCounter   int
	VCounter   int
}

// Wires is a snapshot of selected internal signals.
type Wires struct {
	CLK   TriState
	NCLK  TriState
	PCLK  TriState
	NPCLK TriState
	RES   TriState // reset in progress
	DBE   TriState // CPU interface selected
	INT   TriState // interrupt output, Z when released
	BLNK  TriState // rendering disabled
	ALE   TriState
	VBL   TriState // vblank flag
}

// DebugRegisters returns the internal registers.
func (c *Core) DebugRegisters() Registers {
	return Registers{
		CTRL0:      c.ctrl,
		CTRL1:      c.mask,
		Status:     c.status,
		OAMAddr:    c.oamAddr,
		V:          c.v,
		T:          c.t,
		FineX:      c.fineX,
		W:          c.w,
		ReadBuffer: c.readBuffer,
		IOLatch:    c.ioLatch,
		HCounter:   c.h,
		VCounter:   c.vcnt,
	}
}

// DebugWires returns the current level of the internal signals.
func (c *Core) DebugWires() Wires {
	pclk := Level(c.clkDiv < (c.profile.ClkPerPclk+1)/2)
	wires := Wires{
		CLK:   c.prevCLK,
		NCLK:  invert(c.prevCLK),
		PCLK:  pclk,
		NPCLK: invert(pclk),
		RES:   Level(c.resetActive),
		DBE:   invert(c.prevDBE),
		INT:   Z,
		BLNK:  Level(!c.renderingEnabled()),
		ALE:   Level(c.phase == busAddress),
		VBL:   Level(c.status&0x80 != 0),
	}
	if c.status&0x80 != 0 && c.ctrl&0x80 != 0 {
		wires.INT = Zero
	}
	return wires
}

func invert(t TriState) TriState {
	switch t {
	case Zero:
		return One
	case One:
		return Zero
	default:
		return t
	}
}

// DebugSetCTRL0 overwrites PPUCTRL, bypassing warm-up.
func (c *Core) DebugSetCTRL0(value uint8) {
	c.ctrl = value
}

// DebugSetCTRL1 overwrites PPUMASK, bypassing warm-up.
func (c *Core) DebugSetCTRL1(value uint8) {
	c.mask = value
}

// DebugRenderAlwaysEnabled keeps the fetch pipeline running regardless of
// PPUMASK.
func (c *Core) DebugRenderAlwaysEnabled(enabled bool) {
	c.forceRender = enabled
}

// PCLKCounter returns the number of pixel clocks since power-on or the last
// ResetPCLKCounter.
func (c *Core) PCLKCounter() uint64 {
	return c.pclk
}

// ResetPCLKCounter zeroes the pixel clock counter.
func (c *Core) ResetPCLKCounter() {
	c.pclk = 0
}

// HCounter returns the current dot (0-340).
func (c *Core) HCounter() int {
	return c.h
}

// VCounter returns the current line; the last line of a frame is pre-render.
func (c *Core) VCounter() int {
	return c.vcnt
}

// FrameCount returns the number of completed frames.
func (c *Core) FrameCount() uint64 {
	return c.frame
}

// FrameBuffer returns a copy of the generated picture as 0x00RRGGBB pixels.
// It stays black when video generation is off.
func (c *Core) FrameBuffer() [FrameWidth * FrameHeight]uint32 {
	return c.frameBuffer
}

// OAM returns a copy of object attribute memory.
func (c *Core) OAM() [256]uint8 {
	return c.oam
}

// WriteOAM stores one OAM byte, as sprite DMA does.
func (c *Core) WriteOAM(address uint8, value uint8) {
	c.oam[address] = value
}

// Palette returns a copy of palette RAM.
func (c *Core) Palette() [32]uint8 {
	return c.palette
}

// SpritesOnLine returns how many sprites the last evaluation found and
// whether sprite 0 was among them.
func (c *Core) SpritesOnLine() (count int, sprite0 bool) {
	return int(c.spriteCount), c.sprite0OnLine
}
