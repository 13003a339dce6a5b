package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// MockCHR records pattern table traffic.
type MockCHR struct {
	data      [0x2000]uint8
	readOnly  bool
	chrReads  []uint16
	chrWrites []uint16
}

func (m *MockCHR) ReadCHR(address uint16) uint8 {
	m.chrReads = append(m.chrReads, address)
	return m.data[address&0x1FFF]
}

func (m *MockCHR) WriteCHR(address uint16, value uint8) {
	m.chrWrites = append(m.chrWrites, address)
	if !m.readOnly {
		m.data[address&0x1FFF] = value
	}
}

func TestVRAM_PatternTablesGoToCHR(t *testing.T) {
	chr := &MockCHR{}
	chr.data[0x0010] = 0xFF
	chr.data[0x1FFF] = 0x81
	vram := NewVRAM(chr, MirrorHorizontal)

	assert.Equal(t, uint8(0xFF), vram.Read(0x0010))
	assert.Equal(t, uint8(0x81), vram.Read(0x1FFF))
	assert.Equal(t, []uint16{0x0010, 0x1FFF}, chr.chrReads)

	vram.Write(0x0800, 0x3C)
	assert.Equal(t, []uint16{0x0800}, chr.chrWrites)
	assert.Equal(t, uint8(0x3C), chr.data[0x0800])

	vram.Read(0x2000)
	assert.Len(t, chr.chrReads, 2, "nametable reads stay off the cartridge")
}

func TestVRAM_ReadOnlyCHR(t *testing.T) {
	chr := &MockCHR{readOnly: true}
	chr.data[0x0100] = 0x11
	vram := NewVRAM(chr, MirrorVertical)

	vram.Write(0x0100, 0x99)
	assert.Equal(t, uint8(0x11), vram.Read(0x0100))
}

func TestVRAM_DefaultsToCHRRAM(t *testing.T) {
	vram := NewVRAM(nil, MirrorVertical)
	vram.Write(0x1234, 0x5A)
	assert.Equal(t, uint8(0x5A), vram.Read(0x1234))
}

func TestCHRRAM_Wraps(t *testing.T) {
	ram := NewCHRRAM()
	ram.WriteCHR(0x2001, 0x77)
	assert.Equal(t, uint8(0x77), ram.ReadCHR(0x0001))
}

func TestMirrorMode_String(t *testing.T) {
	tests := map[MirrorMode]string{
		MirrorHorizontal:    "horizontal",
		MirrorVertical:      "vertical",
		MirrorSingleScreen0: "single-screen-0",
		MirrorSingleScreen1: "single-screen-1",
		MirrorFourScreen:    "four-screen",
		MirrorMode(9):       "unknown",
	}
	for mode, want := range tests {
		assert.Equal(t, want, mode.String())
	}
}
