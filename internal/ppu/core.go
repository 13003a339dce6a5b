// Package ppu implements a pad-level simulation of the NES Picture
// Processing Unit family (2C02 and its arcade, PAL and clone variants).
//
// A Core is advanced one half clock at a time through Sim, exchanging pad
// levels with its host through Pins. Core holds no Go pointers so instances
// may be placed in memory the Go collector does not manage.
package ppu

type lifeState uint8

const (
	stateUnconstructed lifeState = iota
	stateLive
	stateReleased
)

type busPhase uint8

const (
	busIdle busPhase = iota
	busAddress
	busRead
	busWrite
)

type busKind uint8

const (
	kindCPU busKind = iota
	kindNametable
	kindAttribute
	kindPatternLow
	kindPatternHigh
	kindDummy
	kindSpriteLow
	kindSpriteHigh
)

// cpuQueueDepth bounds the PPUDATA accesses that can wait for the VRAM bus.
const cpuQueueDepth = 32

// pendingOp is a PPUDATA access waiting for the VRAM bus.
type pendingOp struct {
	active bool
	write  bool
	addr   uint16
	data   uint8
}

// Core is one simulated chip.
type Core struct {
	state lifeState

	// Fixed at construction
	revision Revision
	profile  Profile
	hle      bool
	videoGen bool

	// Host-selected output options
	rawOutput   bool
	forceRender bool

	// CPU-visible registers
	ctrl       uint8 // $2000
	mask       uint8 // $2001
	status     uint8 // $2002, bits 5-7
	oamAddr    uint8 // $2003
	ioLatch    uint8 // open bus
	readBuffer uint8 // $2007 read buffer

	// CPU interface state
	prevDBE   TriState
	dbeRead   bool
	readLatch uint8

	// Scroll / address registers
	v     uint16 // current VRAM address (15 bits)
	t     uint16 // temporary VRAM address (15 bits)
	fineX uint8  // fine X scroll (3 bits)
	w     bool   // first/second write toggle

	// Clocking
	prevCLK     TriState
	clkDiv      int
	pclk        uint64
	h           int
	vcnt        int
	frame       uint64
	oddFrame    bool
	resetActive bool
	warmup      bool

	// External VRAM bus
	phase   busPhase
	kind    busKind
	busAdr  uint16
	busDat  uint8
	busWr   bool
	busSlot uint8

	// PPUDATA accesses waiting for a free bus cycle, oldest at cpuHead
	cpuOps  [cpuQueueDepth]pendingOp
	cpuHead uint8
	cpuLen  uint8

	// Background pipeline
	ntByte    uint8
	atBits    uint8
	ptLow     uint8
	ptHigh    uint8
	bgShiftLo uint16
	bgShiftHi uint16
	atShiftLo uint16
	atShiftHi uint16

	// Sprites
	oam           [256]uint8
	secondaryOAM  [32]uint8
	spriteCount   uint8
	sprite0OnLine bool
	spriteLo      [8]uint8
	spriteHi      [8]uint8

	palette [32]uint8

	frameBuffer [FrameWidth * FrameHeight]uint32
}

// PowerOn records the revision and mode flags and puts every register in its
// power-on state. It panics if rev is not a valid revision.
func (c *Core) PowerOn(rev Revision, highLevelEmulation, videoGeneration bool) {
	profile := rev.Profile()

	*c = Core{
		state:    stateLive,
		revision: rev,
		profile:  profile,
		hle:      highLevelEmulation,
		videoGen: videoGeneration,

		status:  0xA0,
		prevDBE: One,
		prevCLK: Zero,
		warmup:  profile.RegWarmup,
	}

	for i := 0; i < len(c.palette); i += 4 {
		c.palette[i] = 0x0F
	}
}

// Finalize ends the life of the core. Stepping a finalized core is a
// contract violation.
func (c *Core) Finalize() {
	c.state = stateReleased
}

// Live reports whether the core has been powered on and not finalized.
func (c *Core) Live() bool {
	return c.state == stateLive
}

// Revision returns the revision fixed at construction.
func (c *Core) Revision() Revision {
	return c.revision
}

// Profile returns the behavior table of the core's revision.
func (c *Core) Profile() Profile {
	return c.profile
}

// HighLevelEmulation reports the high-level emulation flag fixed at
// construction. The flag is recorded for hosts; the core steps identically
// either way.
func (c *Core) HighLevelEmulation() bool {
	return c.hle
}

// VideoGeneration reports whether the core emits pixels.
func (c *Core) VideoGeneration() bool {
	return c.videoGen
}

// ClkPerPclk returns how many master clock cycles make one pixel clock.
func (c *Core) ClkPerPclk() int {
	return c.profile.ClkPerPclk
}

// SetRAWOutput selects raw color indices (true) or converted RGB (false) in
// the VideoOut produced by Sim.
func (c *Core) SetRAWOutput(raw bool) {
	c.rawOutput = raw
}

// Sim advances the chip by one half clock. Inputs are read from p.In, p.D and
// p.AD; outputs are written to p.Out, p.PA, p.AD and p.D. vout receives the
// pixel emitted during this half clock, if any.
func (c *Core) Sim(p *Pins, vout *VideoOut) {
	*vout = VideoOut{}

	if p.In[NRES] == Zero {
		if !c.resetActive {
			c.reset()
		}
		c.resetActive = true
	} else {
		c.resetActive = false
	}

	c.cpuInterface(p)

	clk := p.In[CLK]
	if clk == One && c.prevCLK != One {
		c.clkDiv++
		if c.clkDiv >= c.profile.ClkPerPclk {
			c.clkDiv = 0
			c.dot(p, vout)
		}
	}
	c.prevCLK = clk

	c.drive(p)
}

// reset applies the effect of /RES going low.
func (c *Core) reset() {
	c.ctrl = 0
	c.mask = 0
	c.w = false
	c.t = 0
	c.fineX = 0
	c.readBuffer = 0
	c.h = 0
	c.vcnt = 0
	c.oddFrame = false
	c.phase = busIdle
	c.cpuHead = 0
	c.cpuLen = 0
	c.warmup = c.profile.RegWarmup
}

func (c *Core) cpuInterface(p *Pins) {
	dbe := p.In[NDBE]

	if dbe == Zero && c.prevDBE != Zero {
		reg := 0
		if p.In[RS0] == One {
			reg |= 1
		}
		if p.In[RS1] == One {
			reg |= 2
		}
		if p.In[RS2] == One {
			reg |= 4
		}
		if c.profile.SwapCtrlMask && reg < 2 {
			reg ^= 1
		}

		if p.In[RnW] == Zero {
			c.writeRegister(reg, p.D)
			c.dbeRead = false
		} else {
			c.readLatch = c.readRegister(reg)
			c.dbeRead = true
		}
	}

	if dbe == Zero && c.dbeRead {
		p.D = c.readLatch
	}
	if dbe != Zero {
		c.dbeRead = false
	}
	c.prevDBE = dbe
}

func (c *Core) readRegister(reg int) uint8 {
	switch reg {
	case 2:
		low := c.ioLatch & 0x1F
		if c.profile.StatusID != 0 {
			low = c.profile.StatusID & 0x1F
		}
		value := c.status&0xE0 | low
		c.status &^= 0x80
		c.w = false
		c.ioLatch = value
		return value
	case 4:
		value := c.oam[c.oamAddr]
		if c.oamAddr&0x03 == 0x02 {
			value &= 0xE3
		}
		c.ioLatch = value
		return value
	case 7:
		return c.readData()
	default:
		return c.ioLatch
	}
}

func (c *Core) writeRegister(reg int, value uint8) {
	c.ioLatch = value

	switch reg {
	case 0:
		if c.warmup {
			return
		}
		c.ctrl = value
		c.t = c.t&0xF3FF | uint16(value&0x03)<<10
	case 1:
		if c.warmup {
			return
		}
		c.mask = value
	case 3:
		c.oamAddr = value
	case 4:
		c.oam[c.oamAddr] = value
		c.oamAddr++
	case 5:
		if c.warmup {
			return
		}
		if !c.w {
			c.t = c.t&^0x001F | uint16(value>>3)
			c.fineX = value & 0x07
		} else {
			c.t = c.t&^0x73E0 | uint16(value&0x07)<<12 | uint16(value&0xF8)<<2
		}
		c.w = !c.w
	case 6:
		if c.warmup {
			return
		}
		if !c.w {
			c.t = c.t&0x00FF | uint16(value&0x3F)<<8
		} else {
			c.t = c.t&0xFF00 | uint16(value)
			c.v = c.t
		}
		c.w = !c.w
	case 7:
		c.writeData(value)
	}
}

func (c *Core) readData() uint8 {
	addr := c.v & 0x3FFF
	var value uint8

	if addr >= 0x3F00 {
		// Palette reads bypass the buffer; the buffer is refilled from the
		// nametable underneath.
		value = c.readPalette(addr) | c.ioLatch&0xC0
		c.queueCPU(pendingOp{active: true, addr: addr - 0x1000})
	} else {
		value = c.readBuffer
		c.queueCPU(pendingOp{active: true, addr: addr})
	}

	c.incrementAddr()
	c.ioLatch = value
	return value
}

func (c *Core) writeData(value uint8) {
	addr := c.v & 0x3FFF
	if addr >= 0x3F00 {
		c.palette[paletteIndex(addr)] = value & 0x3F
	} else {
		c.queueCPU(pendingOp{active: true, write: true, addr: addr, data: value})
	}
	c.incrementAddr()
}

// queueCPU appends op to the PPUDATA queue. An access arriving at a full
// queue is dropped.
func (c *Core) queueCPU(op pendingOp) {
	if c.cpuLen == cpuQueueDepth {
		return
	}
	c.cpuOps[(int(c.cpuHead)+int(c.cpuLen))%cpuQueueDepth] = op
	c.cpuLen++
}

// issueCPU starts the oldest queued PPUDATA access on the VRAM bus.
func (c *Core) issueCPU() {
	op := c.cpuOps[c.cpuHead]
	c.cpuHead = uint8((int(c.cpuHead) + 1) % cpuQueueDepth)
	c.cpuLen--
	c.startBus(kindCPU, op.addr, op.write, op.data)
}

func (c *Core) incrementAddr() {
	if c.ctrl&0x04 != 0 {
		c.v += 32
	} else {
		c.v++
	}
	c.v &= 0x7FFF
}

func paletteIndex(addr uint16) uint16 {
	index := addr & 0x1F
	if index&0x13 == 0x10 {
		index &^= 0x10
	}
	return index
}

func (c *Core) readPalette(addr uint16) uint8 {
	value := c.palette[paletteIndex(addr)]
	if c.mask&0x01 != 0 {
		value &= 0x30
	}
	return value
}

func (c *Core) renderingEnabled() bool {
	return c.mask&0x18 != 0 || c.forceRender
}

// dot runs one pixel clock.
func (c *Core) dot(p *Pins, vout *VideoOut) {
	c.pclk++
	c.advanceBus(p)

	if c.resetActive {
		return
	}

	line, h := c.vcnt, c.h
	pre := line == c.profile.Scanlines-1
	visible := line < FrameHeight
	rendering := c.renderingEnabled()

	if h == 1 {
		if line == c.profile.VBlankLine {
			c.status |= 0x80
		}
		if pre {
			c.status &^= 0xE0
			c.warmup = false
		}
	}

	fetching := rendering && (visible || pre)
	if fetching {
		c.renderDot(line, h, pre, visible)
	}

	if visible && h >= 1 && h <= FrameWidth {
		c.checkSprite0Hit(h - 1)
		c.emitPixel(h-1, line, vout)
	}

	// A PPUDATA cycle takes this dot and the next, so it must not run into a
	// fetch that starts on the next dot.
	if c.phase == busIdle && c.cpuLen > 0 && !(fetching && c.fetchStartsAt(h+1)) {
		c.issueCPU()
	}

	c.advanceCounters(rendering, pre)
}

// advanceBus moves the current VRAM bus cycle to its next phase. A read
// samples AD one dot after /RD was asserted.
func (c *Core) advanceBus(p *Pins) {
	switch c.phase {
	case busAddress:
		if c.busWr {
			c.phase = busWrite
		} else {
			c.phase = busRead
		}
	case busRead:
		c.completeRead(p.AD)
		c.phase = busIdle
	case busWrite:
		c.phase = busIdle
	}
}

func (c *Core) startBus(kind busKind, addr uint16, write bool, data uint8) {
	c.kind = kind
	c.busAdr = addr & 0x3FFF
	c.busDat = data
	c.busWr = write
	c.phase = busAddress
}

func (c *Core) completeRead(data uint8) {
	switch c.kind {
	case kindCPU:
		c.readBuffer = data
	case kindNametable:
		c.ntByte = data
	case kindAttribute:
		shift := (c.v>>4)&0x04 | c.v&0x02
		c.atBits = (data >> shift) & 0x03
	case kindPatternLow:
		c.ptLow = data
	case kindPatternHigh:
		c.ptHigh = data
	case kindSpriteLow:
		c.spriteLo[c.busSlot] = data
	case kindSpriteHigh:
		c.spriteHi[c.busSlot] = data
	}
}

// fetchStartsAt reports whether the render pipeline starts a bus cycle on
// dot h of the current line.
func (c *Core) fetchStartsAt(h int) bool {
	switch {
	case h >= 1 && h <= 256, h >= 321 && h <= 336:
		return (h-1)%2 == 0
	case h >= 257 && h <= 320:
		slot, step := (h-257)/8, (h-257)%8
		return slot < int(c.spriteCount) && (step == 4 || step == 6)
	case h == 337, h == 339:
		return true
	}
	return false
}

// renderDot runs the background fetch pipeline. Each tile takes eight dots:
// nametable, attribute, pattern low and pattern high, two dots per bus cycle.
func (c *Core) renderDot(line, h int, pre, visible bool) {
	if (h >= 2 && h <= 257) || (h >= 322 && h <= 337) {
		c.shiftBackground()
	}

	if (h-1)%8 == 0 && ((h >= 9 && h <= 257) || h == 329 || h == 337) {
		c.loadBackground()
	}

	if (h >= 1 && h <= 256) || (h >= 321 && h <= 336) {
		switch (h - 1) % 8 {
		case 0:
			c.startBus(kindNametable, 0x2000|c.v&0x0FFF, false, 0)
		case 2:
			c.startBus(kindAttribute, 0x23C0|c.v&0x0C00|(c.v>>4)&0x38|(c.v>>2)&0x07, false, 0)
		case 4:
			c.startBus(kindPatternLow, c.patternAddr(), false, 0)
		case 6:
			c.startBus(kindPatternHigh, c.patternAddr()+8, false, 0)
		case 7:
			c.incrementX()
		}
	}

	if h >= 257 && h <= 320 {
		slot, step := (h-257)/8, (h-257)%8
		if slot < int(c.spriteCount) {
			switch step {
			case 4:
				c.busSlot = uint8(slot)
				c.startBus(kindSpriteLow, c.spritePatternAddr(slot, line), false, 0)
			case 6:
				c.busSlot = uint8(slot)
				c.startBus(kindSpriteHigh, c.spritePatternAddr(slot, line)+8, false, 0)
			}
		}
	}

	switch h {
	case 256:
		c.incrementY()
	case 257:
		c.copyX()
		if visible {
			c.evaluateSprites(line)
		} else {
			// nothing is shown on the first visible line
			c.spriteCount = 0
			c.sprite0OnLine = false
		}
	case 337, 339:
		c.startBus(kindDummy, 0x2000|c.v&0x0FFF, false, 0)
	}

	if pre && h >= 280 && h <= 304 {
		c.copyY()
	}
}

func (c *Core) patternAddr() uint16 {
	base := uint16(0)
	if c.ctrl&0x10 != 0 {
		base = 0x1000
	}
	return base + uint16(c.ntByte)*16 + (c.v>>12)&0x07
}

func (c *Core) shiftBackground() {
	c.bgShiftLo <<= 1
	c.bgShiftHi <<= 1
	c.atShiftLo <<= 1
	c.atShiftHi <<= 1
}

func (c *Core) loadBackground() {
	c.bgShiftLo = c.bgShiftLo&0xFF00 | uint16(c.ptLow)
	c.bgShiftHi = c.bgShiftHi&0xFF00 | uint16(c.ptHigh)

	var lo, hi uint16
	if c.atBits&0x01 != 0 {
		lo = 0xFF
	}
	if c.atBits&0x02 != 0 {
		hi = 0xFF
	}
	c.atShiftLo = c.atShiftLo&0xFF00 | lo
	c.atShiftHi = c.atShiftHi&0xFF00 | hi
}

// incrementX increments coarse X and wraps into the next horizontal nametable.
func (c *Core) incrementX() {
	if c.v&0x001F == 31 {
		c.v &^= 0x001F
		c.v ^= 0x0400
	} else {
		c.v++
	}
}

// incrementY increments fine Y, carrying into coarse Y.
func (c *Core) incrementY() {
	if c.v&0x7000 != 0x7000 {
		c.v += 0x1000
		return
	}
	c.v &^= 0x7000
	y := (c.v & 0x03E0) >> 5
	switch y {
	case 29:
		y = 0
		c.v ^= 0x0800
	case 31:
		y = 0
	default:
		y++
	}
	c.v = c.v&^0x03E0 | y<<5
}

// copyX copies the horizontal bits of t into v.
func (c *Core) copyX() {
	c.v = c.v&0xFBE0 | c.t&0x041F
}

// copyY copies the vertical bits of t into v.
func (c *Core) copyY() {
	c.v = c.v&0x841F | c.t&0x7BE0
}

// evaluateSprites fills secondary OAM with the sprites of the next line.
func (c *Core) evaluateSprites(line int) {
	for i := range c.secondaryOAM {
		c.secondaryOAM[i] = 0xFF
	}
	c.spriteCount = 0
	c.sprite0OnLine = false

	height := 8
	if c.ctrl&0x20 != 0 {
		height = 16
	}

	for n := 0; n < 64; n++ {
		y := int(c.oam[n*4])
		row := line - y
		if row < 0 || row >= height {
			continue
		}
		if c.spriteCount == 8 {
			c.status |= 0x20
			break
		}
		copy(c.secondaryOAM[c.spriteCount*4:], c.oam[n*4:n*4+4])
		if n == 0 {
			c.sprite0OnLine = true
		}
		c.spriteCount++
	}
}

// spritePatternAddr returns the low plane address of the row of the sprite in
// secondary OAM slot that line+1 shows.
func (c *Core) spritePatternAddr(slot, line int) uint16 {
	y := int(c.secondaryOAM[slot*4])
	tile := uint16(c.secondaryOAM[slot*4+1])
	attr := c.secondaryOAM[slot*4+2]
	row := line - y

	if c.ctrl&0x20 == 0 {
		row &= 7
		if attr&0x80 != 0 {
			row = 7 - row
		}
		base := uint16(0)
		if c.ctrl&0x08 != 0 {
			base = 0x1000
		}
		return base + tile*16 + uint16(row)
	}

	row &= 15
	if attr&0x80 != 0 {
		row = 15 - row
	}
	base := (tile & 1) * 0x1000
	tile &^= 1
	if row >= 8 {
		tile++
		row -= 8
	}
	return base + tile*16 + uint16(row)
}

// spritePixel returns the 2-bit pattern value of column col of the sprite in
// secondary OAM slot.
func (c *Core) spritePixel(slot, col int) uint8 {
	shift := 7 - col
	if c.secondaryOAM[slot*4+2]&0x40 != 0 {
		shift = col
	}
	return (c.spriteLo[slot]>>shift)&1 | (c.spriteHi[slot]>>shift)&1<<1
}

// checkSprite0Hit raises PPUSTATUS bit 6 on the first opaque pixel of sprite 0
// drawn over an opaque background pixel. Sprites are not composed into the
// picture; only the hit is reported.
func (c *Core) checkSprite0Hit(x int) {
	if !c.sprite0OnLine || c.status&0x40 != 0 || x == 255 {
		return
	}
	if c.mask&0x18 != 0x18 || (x < 8 && c.mask&0x06 != 0x06) {
		return
	}
	col := x - int(c.secondaryOAM[3])
	if col < 0 || col > 7 || c.spritePixel(0, col) == 0 {
		return
	}
	if px, _ := c.backgroundPixel(x); px != 0 {
		c.status |= 0x40
	}
}

func (c *Core) emitPixel(x, y int, vout *VideoOut) {
	if !c.videoGen {
		return
	}

	color := c.pixelColor(x)
	out := VideoOut{
		Valid: true,
		X:     x,
		Y:     y,
		Raw:   uint16(color&0x3F) | uint16(c.emphasis())<<6,
	}
	converted := c.ConvertRAWToRGB(out)
	c.frameBuffer[y*FrameWidth+x] = converted.RGB.Pack()

	if c.rawOutput {
		*vout = out
	} else {
		*vout = converted
	}
}

func (c *Core) pixelColor(x int) uint8 {
	if !c.renderingEnabled() {
		// With rendering off the backdrop is replaced by the palette entry v
		// points at, if any.
		if c.v&0x3FFF >= 0x3F00 {
			return c.readPalette(c.v)
		}
		return c.readPalette(0x3F00)
	}

	px, pal := c.backgroundPixel(x)
	if px == 0 {
		return c.readPalette(0x3F00)
	}
	return c.readPalette(0x3F00 | uint16(pal)<<2 | uint16(px))
}

// backgroundPixel returns the pattern value and palette number the shift
// registers hold for column x. px is 0 where the background is hidden.
func (c *Core) backgroundPixel(x int) (px, pal uint8) {
	if c.mask&0x08 == 0 || (x < 8 && c.mask&0x02 == 0) {
		return 0, 0
	}
	bit := uint16(0x8000) >> c.fineX
	if c.bgShiftLo&bit != 0 {
		px |= 1
	}
	if c.bgShiftHi&bit != 0 {
		px |= 2
	}
	if c.atShiftLo&bit != 0 {
		pal |= 1
	}
	if c.atShiftHi&bit != 0 {
		pal |= 2
	}
	return px, pal
}

// emphasis returns the PPUMASK emphasis bits as red, green, blue.
func (c *Core) emphasis() uint8 {
	e := c.mask >> 5
	if c.profile.Region != RegionNTSC {
		e = e&0x04 | (e&0x01)<<1 | (e&0x02)>>1
	}
	return e
}

func (c *Core) advanceCounters(rendering, pre bool) {
	c.h++
	if pre && c.h == 340 && rendering && c.oddFrame && c.profile.OddFrameSkip {
		c.h = 341
	}
	if c.h > 340 {
		c.h = 0
		c.vcnt++
		if c.vcnt >= c.profile.Scanlines {
			c.vcnt = 0
			c.frame++
			c.oddFrame = !c.oddFrame
		}
	}
}

// drive puts the held output state on the pins.
func (c *Core) drive(p *Pins) {
	if c.status&0x80 != 0 && c.ctrl&0x80 != 0 {
		p.Out[NINT] = Zero
	} else {
		p.Out[NINT] = Z
	}

	p.Out[ALE] = Zero
	p.Out[NRD] = One
	p.Out[NWR] = One

	switch c.phase {
	case busAddress:
		p.Out[ALE] = One
		p.AD = uint8(c.busAdr)
		p.PA = uint8(c.busAdr>>8) & 0x3F
	case busRead:
		p.Out[NRD] = Zero
		p.PA = uint8(c.busAdr>>8) & 0x3F
	case busWrite:
		p.Out[NWR] = Zero
		p.AD = c.busDat
		p.PA = uint8(c.busAdr>>8) & 0x3F
	}
}
