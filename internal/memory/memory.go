// Package memory implements the external video memory a PPU board wires to
// the AD/PA bus: pattern tables on the cartridge and 2KB of nametable RAM.
package memory

// MirrorMode represents nametable mirroring mode
type MirrorMode uint8

const (
	MirrorHorizontal MirrorMode = iota
	MirrorVertical
	MirrorSingleScreen0
	MirrorSingleScreen1
	MirrorFourScreen
)

// String returns the name used in logs and configuration.
func (m MirrorMode) String() string {
	switch m {
	case MirrorHorizontal:
		return "horizontal"
	case MirrorVertical:
		return "vertical"
	case MirrorSingleScreen0:
		return "single-screen-0"
	case MirrorSingleScreen1:
		return "single-screen-1"
	case MirrorFourScreen:
		return "four-screen"
	default:
		return "unknown"
	}
}

// CHRSource is the pattern table storage at $0000-$1FFF.
type CHRSource interface {
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)
}

// CHRRAM is 8KB of writable pattern memory.
type CHRRAM struct {
	data [0x2000]uint8
}

// NewCHRRAM returns cleared CHR RAM.
func NewCHRRAM() *CHRRAM {
	return &CHRRAM{}
}

// ReadCHR implements CHRSource.
func (r *CHRRAM) ReadCHR(address uint16) uint8 {
	return r.data[address&0x1FFF]
}

// WriteCHR implements CHRSource.
func (r *CHRRAM) WriteCHR(address uint16, value uint8) {
	r.data[address&0x1FFF] = value
}

// VRAM is the PPU's address space as seen from the AD/PA pins
// ($0000-$3FFF). Palette RAM lives inside the chip, so $3F00-$3FFF reaches
// the nametables underneath.
type VRAM struct {
	ciram     [0x1000]uint8 // 2KB on the board, 4KB with four-screen carts
	chr       CHRSource
	mirroring MirrorMode
}

// NewVRAM wires chr at $0000-$1FFF. A nil chr selects CHR RAM.
func NewVRAM(chr CHRSource, mirroring MirrorMode) *VRAM {
	if chr == nil {
		chr = NewCHRRAM()
	}
	return &VRAM{
		chr:       chr,
		mirroring: mirroring,
	}
}

// Mirroring returns the current nametable arrangement.
func (m *VRAM) Mirroring() MirrorMode {
	return m.mirroring
}

// SetMirroring changes the nametable arrangement.
func (m *VRAM) SetMirroring(mode MirrorMode) {
	m.mirroring = mode
}

// Read reads from PPU memory space ($0000-$3FFF)
func (m *VRAM) Read(address uint16) uint8 {
	address &= 0x3FFF

	if address < 0x2000 {
		return m.chr.ReadCHR(address)
	}
	return m.ciram[m.nametableIndex(address)]
}

// Write writes to PPU memory space ($0000-$3FFF)
func (m *VRAM) Write(address uint16, value uint8) {
	address &= 0x3FFF

	if address < 0x2000 {
		m.chr.WriteCHR(address, value)
		return
	}
	m.ciram[m.nametableIndex(address)] = value
}

// nametableIndex maps $2000-$3FFF onto CIRAM. $3000-$3FFF mirrors
// $2000-$2FFF.
func (m *VRAM) nametableIndex(address uint16) uint16 {
	address &= 0x0FFF
	nametable := (address >> 10) & 3
	offset := address & 0x3FF

	switch m.mirroring {
	case MirrorHorizontal:
		// $2000/$2400 share the first 1KB, $2800/$2C00 the second
		if nametable >= 2 {
			return 0x400 + offset
		}
		return offset

	case MirrorVertical:
		// $2000/$2800 share the first 1KB, $2400/$2C00 the second
		if nametable == 1 || nametable == 3 {
			return 0x400 + offset
		}
		return offset

	case MirrorSingleScreen0:
		return offset

	case MirrorSingleScreen1:
		return 0x400 + offset

	case MirrorFourScreen:
		return nametable*0x400 + offset

	default:
		return offset
	}
}
