package cartridge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ppusim/internal/memory"
	"ppusim/internal/ppu"
)

// testROMBuilder assembles iNES images for tests.
type testROMBuilder struct {
	prgSize  uint8
	chrSize  uint8
	mapperID uint8
	flags6   uint8
	tv       uint8
	trainer  bool
	chrData  []uint8
	truncate int
	magic    string
}

func newTestROMBuilder() *testROMBuilder {
	return &testROMBuilder{prgSize: 1, chrSize: 1, magic: "NES\x1A"}
}

func (b *testROMBuilder) withCHRRAM() *testROMBuilder { b.chrSize = 0; return b }
func (b *testROMBuilder) withMapper(id uint8) *testROMBuilder { b.mapperID = id; return b }
func (b *testROMBuilder) withPRGSize(n uint8) *testROMBuilder { b.prgSize = n; return b }
func (b *testROMBuilder) withVertical() *testROMBuilder { b.flags6 |= 0x01; return b }
func (b *testROMBuilder) withFourScreen() *testROMBuilder { b.flags6 |= 0x08; return b }
func (b *testROMBuilder) withTrainer() *testROMBuilder { b.trainer = true; return b }
func (b *testROMBuilder) withPAL() *testROMBuilder { b.tv = 1; return b }
func (b *testROMBuilder) withCHR(data []uint8) *testROMBuilder {
	b.chrData = data
	return b
}
func (b *testROMBuilder) truncatedBy(n int) *testROMBuilder { b.truncate = n; return b }
func (b *testROMBuilder) withMagic(m string) *testROMBuilder { b.magic = m; return b }

func (b *testROMBuilder) build() []byte {
	flags6 := b.flags6 | b.mapperID<<4
	if b.trainer {
		flags6 |= 0x04
	}
	header := []byte{0, 0, 0, 0, b.prgSize, b.chrSize, flags6, b.mapperID & 0xF0, 0, b.tv, 0, 0, 0, 0, 0, 0}
	copy(header, b.magic)

	data := append([]byte{}, header...)
	if b.trainer {
		data = append(data, make([]byte, 512)...)
	}
	data = append(data, make([]byte, int(b.prgSize)*16384)...)
	chr := make([]byte, int(b.chrSize)*8192)
	copy(chr, b.chrData)
	data = append(data, chr...)

	return data[:len(data)-b.truncate]
}

func TestLoadNROM(t *testing.T) {
	chr := []uint8{0xFF, 0x81, 0x81, 0xFF}
	cart, err := LoadFromBytes(newTestROMBuilder().withCHR(chr).build())
	require.NoError(t, err)

	assert.Equal(t, uint8(0), cart.MapperID())
	assert.Equal(t, 16384, cart.PRGSize())
	assert.False(t, cart.HasCHRRAM())
	assert.Equal(t, memory.MirrorHorizontal, cart.MirrorMode())
	assert.Equal(t, ppu.RP2C02G, cart.SuggestedRevision())

	assert.Equal(t, uint8(0xFF), cart.ReadCHR(0))
	assert.Equal(t, uint8(0x81), cart.ReadCHR(1))

	cart.WriteCHR(0, 0x00)
	assert.Equal(t, uint8(0xFF), cart.ReadCHR(0), "CHR ROM is read-only")
}

func TestLoadCHRRAM(t *testing.T) {
	cart, err := LoadFromBytes(newTestROMBuilder().withCHRRAM().build())
	require.NoError(t, err)

	assert.True(t, cart.HasCHRRAM())
	cart.WriteCHR(0x1FFF, 0x42)
	assert.Equal(t, uint8(0x42), cart.ReadCHR(0x1FFF))
	assert.Zero(t, cart.ReadCHR(0x2000))
}

func TestLoadHeaderFlags(t *testing.T) {
	tests := []struct {
		name    string
		builder *testROMBuilder
		mirror  memory.MirrorMode
		rev     ppu.Revision
	}{
		{"horizontal", newTestROMBuilder(), memory.MirrorHorizontal, ppu.RP2C02G},
		{"vertical", newTestROMBuilder().withVertical(), memory.MirrorVertical, ppu.RP2C02G},
		{"four screen", newTestROMBuilder().withVertical().withFourScreen(), memory.MirrorFourScreen, ppu.RP2C02G},
		{"PAL", newTestROMBuilder().withPAL(), memory.MirrorHorizontal, ppu.RP2C07_0},
		{"trainer", newTestROMBuilder().withTrainer().withPRGSize(2), memory.MirrorHorizontal, ppu.RP2C02G},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart, err := LoadFromBytes(tt.builder.build())
			require.NoError(t, err)
			assert.Equal(t, tt.mirror, cart.MirrorMode())
			assert.Equal(t, tt.rev, cart.SuggestedRevision())
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrInvalidROM},
		{"bad magic", newTestROMBuilder().withMagic("NEZ\x1A").build(), ErrInvalidROM},
		{"no PRG", newTestROMBuilder().withPRGSize(0).build(), ErrInvalidROM},
		{"truncated CHR", newTestROMBuilder().truncatedBy(100).build(), ErrInvalidROM},
		{"mapper 1", newTestROMBuilder().withMapper(1).build(), ErrUnsupportedMapper},
		{"mapper 4", newTestROMBuilder().withMapper(4).build(), ErrUnsupportedMapper},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart, err := LoadFromBytes(tt.data)
			assert.Nil(t, cart)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.nes")
	require.NoError(t, os.WriteFile(path, newTestROMBuilder().withVertical().build(), 0o644))

	cart, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, memory.MirrorVertical, cart.MirrorMode())

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.nes"))
	assert.Error(t, err)
}

func TestCartridgeVRAM(t *testing.T) {
	chr := make([]uint8, 0x20)
	chr[0x10] = 0xAA
	cart, err := LoadFromBytes(newTestROMBuilder().withVertical().withCHR(chr).build())
	require.NoError(t, err)

	vram := cart.NewVRAM()
	assert.Equal(t, memory.MirrorVertical, vram.Mirroring())
	assert.Equal(t, uint8(0xAA), vram.Read(0x0010))

	vram.Write(0x2000, 0x11)
	assert.Equal(t, uint8(0x11), vram.Read(0x2800))
}
