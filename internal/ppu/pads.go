package ppu

import "fmt"

// TriState is the level of a pad or wire. The byte values match the ones
// exchanged with hosts over the pad arrays.
type TriState uint8

const (
	Zero TriState = 0
	One  TriState = 1
	Z    TriState = 0xFF // high impedance
	X    TriState = 0xFE // undefined
)

// Level converts a boolean into One or Zero.
func Level(high bool) TriState {
	if high {
		return One
	}
	return Zero
}

// ParseTriState validates a raw pad byte.
func ParseTriState(b uint8) (TriState, error) {
	switch t := TriState(b); t {
	case Zero, One, Z, X:
		return t, nil
	default:
		return X, fmt.Errorf("spurious tri-state value %d", b)
	}
}

// String returns 0, 1, Z or X.
func (t TriState) String() string {
	switch t {
	case Zero:
		return "0"
	case One:
		return "1"
	case Z:
		return "Z"
	case X:
		return "X"
	default:
		return fmt.Sprintf("TriState(%d)", uint8(t))
	}
}

// InputPad indexes Pins.In.
type InputPad int

const (
	RnW  InputPad = iota // CPU read (1) / write (0)
	RS0                  // register select bit 0
	RS1                  // register select bit 1
	RS2                  // register select bit 2
	NDBE                 // data bus enable, active low
	CLK                  // master clock
	NRES                 // reset, active low

	InputPadMax
)

// OutputPad indexes Pins.Out.
type OutputPad int

const (
	NINT OutputPad = iota // interrupt request, open drain, active low
	ALE                   // address latch enable for AD0-AD7
	NRD                   // VRAM read strobe, active low
	NWR                   // VRAM write strobe, active low

	OutputPadMax
)

// Pins is everything that crosses the chip boundary during one half clock.
// The host fills In, D (on CPU writes) and AD (on VRAM reads); the core fills
// Out, PA, AD (address and write data) and D (on CPU reads).
type Pins struct {
	In  [InputPadMax]TriState
	Out [OutputPadMax]TriState

	D   uint8 // CPU data bus
	AD  uint8 // multiplexed VRAM address low / data
	PA  uint8 // VRAM address bits 8-13
	EXT uint8 // EXT0-EXT3, unused by NES boards
}

// VRAMAddress joins a latched low byte with the current PA pins.
func (p *Pins) VRAMAddress(latchedLow uint8) uint16 {
	return uint16(latchedLow) | uint16(p.PA&0x3F)<<8
}
