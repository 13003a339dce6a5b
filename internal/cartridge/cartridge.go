// Package cartridge loads iNES images and exposes their pattern memory to
// the PPU's video bus.
package cartridge

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"ppusim/internal/memory"
	"ppusim/internal/ppu"
)

var (
	// ErrInvalidROM is returned for images that are not well-formed iNES.
	ErrInvalidROM = errors.New("invalid iNES image")
	// ErrUnsupportedMapper is returned for mappers other than NROM.
	ErrUnsupportedMapper = errors.New("unsupported mapper")
)

// Cartridge represents a NES cartridge
type Cartridge struct {
	// ROM data
	prgROM []uint8
	chrROM []uint8

	// Mapper information
	mapperID uint8
	mapper   Mapper

	mirror memory.MirrorMode

	// CHR memory type
	hasCHRRAM bool

	pal bool
}

// Mapper is the video side of a cartridge board.
type Mapper interface {
	ReadCHR(address uint16) uint8
	WriteCHR(address uint16, value uint8)
}

// iNES header structure
type iNESHeader struct {
	Magic      [4]uint8
	PRGROMSize uint8 // in 16KB units
	CHRROMSize uint8 // in 8KB units
	Flags6     uint8
	Flags7     uint8
	PRGRAMSize uint8
	TVSystem1  uint8
	TVSystem2  uint8
	Padding    [5]uint8
}

// LoadFromFile loads a cartridge from an iNES file
func LoadFromFile(filename string) (*Cartridge, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cart, err := LoadFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filename, err)
	}
	return cart, nil
}

// LoadFromBytes loads a cartridge from an in-memory image.
func LoadFromBytes(data []byte) (*Cartridge, error) {
	return LoadFromReader(bytes.NewReader(data))
}

// LoadFromReader loads a cartridge from an io.Reader
func LoadFromReader(r io.Reader) (*Cartridge, error) {
	var header iNESHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInvalidROM, err)
	}

	if string(header.Magic[:]) != "NES\x1A" {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidROM, header.Magic[:])
	}

	if header.PRGROMSize == 0 {
		return nil, fmt.Errorf("%w: PRG ROM size cannot be zero", ErrInvalidROM)
	}

	cart := &Cartridge{
		mapperID: (header.Flags6 >> 4) | (header.Flags7 & 0xF0),
		pal:      header.TVSystem1&0x01 != 0,
	}
	if cart.mapperID != 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMapper, cart.mapperID)
	}

	if (header.Flags6 & 0x08) != 0 {
		cart.mirror = memory.MirrorFourScreen
	} else if (header.Flags6 & 0x01) != 0 {
		cart.mirror = memory.MirrorVertical
	} else {
		cart.mirror = memory.MirrorHorizontal
	}

	// Skip trainer if present
	if (header.Flags6 & 0x04) != 0 {
		if _, err := io.CopyN(io.Discard, r, 512); err != nil {
			return nil, fmt.Errorf("%w: trainer: %v", ErrInvalidROM, err)
		}
	}

	prgSize := int(header.PRGROMSize) * 16384
	cart.prgROM = make([]uint8, prgSize)
	if _, err := io.ReadFull(r, cart.prgROM); err != nil {
		return nil, fmt.Errorf("%w: PRG ROM: %v", ErrInvalidROM, err)
	}

	chrSize := int(header.CHRROMSize) * 8192
	if chrSize > 0 {
		cart.chrROM = make([]uint8, chrSize)
		if _, err := io.ReadFull(r, cart.chrROM); err != nil {
			return nil, fmt.Errorf("%w: CHR ROM: %v", ErrInvalidROM, err)
		}
	} else {
		cart.chrROM = make([]uint8, 8192)
		cart.hasCHRRAM = true
	}

	cart.mapper = NewMapper000(cart)
	return cart, nil
}

// ReadCHR reads from CHR ROM/RAM
func (c *Cartridge) ReadCHR(address uint16) uint8 {
	return c.mapper.ReadCHR(address)
}

// WriteCHR writes to CHR ROM/RAM
func (c *Cartridge) WriteCHR(address uint16, value uint8) {
	c.mapper.WriteCHR(address, value)
}

// MirrorMode returns the nametable arrangement wired on the board.
func (c *Cartridge) MirrorMode() memory.MirrorMode {
	return c.mirror
}

// MapperID returns the iNES mapper number.
func (c *Cartridge) MapperID() uint8 {
	return c.mapperID
}

// PRGSize returns the PRG ROM size in bytes.
func (c *Cartridge) PRGSize() int {
	return len(c.prgROM)
}

// HasCHRRAM reports whether pattern memory is writable.
func (c *Cartridge) HasCHRRAM() bool {
	return c.hasCHRRAM
}

// SuggestedRevision returns the PPU the image was built for according to
// its TV system flag.
func (c *Cartridge) SuggestedRevision() ppu.Revision {
	if c.pal {
		return ppu.RP2C07_0
	}
	return ppu.RP2C02G
}

// NewVRAM returns the video memory a board with this cartridge presents to
// the PPU.
func (c *Cartridge) NewVRAM() *memory.VRAM {
	return memory.NewVRAM(c, c.mirror)
}
