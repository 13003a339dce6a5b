package ppu

import (
	"fmt"
	"strings"
)

// Revision identifies one silicon variant of the picture processing unit.
// The integer codes are part of the foreign-call contract and must stay in
// this order.
type Revision int

const (
	RP2C02G Revision = iota
	RP2C02H
	RP2C03B
	RP2C03C
	RC2C03B
	RC2C03C
	RP2C04_0001
	RP2C04_0002
	RP2C04_0003
	RP2C04_0004
	RC2C05_01
	RC2C05_02
	RC2C05_03
	RC2C05_04
	RC2C05_99
	RP2C07_0
	UMC_UA6538

	// RevisionMax is the number of revisions, not a revision itself.
	RevisionMax
)

var revisionNames = [RevisionMax]string{
	RP2C02G:     "RP2C02G",
	RP2C02H:     "RP2C02H",
	RP2C03B:     "RP2C03B",
	RP2C03C:     "RP2C03C",
	RC2C03B:     "RC2C03B",
	RC2C03C:     "RC2C03C",
	RP2C04_0001: "RP2C04-0001",
	RP2C04_0002: "RP2C04-0002",
	RP2C04_0003: "RP2C04-0003",
	RP2C04_0004: "RP2C04-0004",
	RC2C05_01:   "RC2C05-01",
	RC2C05_02:   "RC2C05-02",
	RC2C05_03:   "RC2C05-03",
	RC2C05_04:   "RC2C05-04",
	RC2C05_99:   "RC2C05-99",
	RP2C07_0:    "RP2C07-0",
	UMC_UA6538:  "UMC-UA6538",
}

// Valid reports whether r is one of the enumerated revisions.
func (r Revision) Valid() bool {
	return r >= 0 && r < RevisionMax
}

// String returns the part number of the revision.
func (r Revision) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Revision(%d)", int(r))
	}
	return revisionNames[r]
}

// Revisions returns every valid revision in code order.
func Revisions() []Revision {
	revs := make([]Revision, 0, RevisionMax)
	for r := Revision(0); r < RevisionMax; r++ {
		revs = append(revs, r)
	}
	return revs
}

// ParseRevision looks up a revision by part number. Matching ignores case and
// treats '-' and '_' as equivalent.
func ParseRevision(name string) (Revision, error) {
	want := normalizeRevisionName(name)
	for r := Revision(0); r < RevisionMax; r++ {
		if normalizeRevisionName(revisionNames[r]) == want {
			return r, nil
		}
	}
	return RevisionMax, fmt.Errorf("unknown PPU revision %q", name)
}

func normalizeRevisionName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-"))
}

// Region is the video standard a revision is built for.
type Region int

const (
	RegionNTSC Region = iota
	RegionPAL
	RegionDendy
)

// String returns the display name of the region.
func (r Region) String() string {
	switch r {
	case RegionNTSC:
		return "NTSC"
	case RegionPAL:
		return "PAL"
	case RegionDendy:
		return "Dendy"
	default:
		return "Unknown"
	}
}

// Profile is the fixed timing and quirk table a revision selects.
type Profile struct {
	Region       Region
	ClkPerPclk   int   // master CLK cycles per pixel clock
	Scanlines    int   // lines per frame, the last one is pre-render
	VBlankLine   int   // line on which the vblank flag is raised
	OddFrameSkip bool  // pre-render line is one dot short on odd frames
	RGBOutput    bool  // RGB PPU (arcade / PlayChoice / Titler parts)
	SwapCtrlMask bool  // PPUCTRL and PPUMASK trade addresses
	StatusID     uint8 // identification bits returned in PPUSTATUS[4:0], 0 if none
	RegWarmup    bool  // CTRL/MASK/SCROLL/ADDR writes ignored until the first vblank ends
}

// Profile returns the behavior table for r. It panics for invalid revisions.
func (r Revision) Profile() Profile {
	ntsc := Profile{
		Region:     RegionNTSC,
		ClkPerPclk: 4,
		Scanlines:  262,
		VBlankLine: 241,
	}

	switch r {
	case RP2C02G, RP2C02H:
		p := ntsc
		p.OddFrameSkip = true
		p.RegWarmup = true
		return p
	case RP2C03B, RP2C03C, RC2C03B, RC2C03C,
		RP2C04_0001, RP2C04_0002, RP2C04_0003, RP2C04_0004:
		p := ntsc
		p.RGBOutput = true
		return p
	case RC2C05_01, RC2C05_02, RC2C05_03, RC2C05_04, RC2C05_99:
		p := ntsc
		p.RGBOutput = true
		p.SwapCtrlMask = true
		switch r {
		case RC2C05_01, RC2C05_04:
			p.StatusID = 0x1B
		case RC2C05_02:
			p.StatusID = 0x3D
		case RC2C05_03:
			p.StatusID = 0x1C
		}
		return p
	case RP2C07_0:
		return Profile{
			Region:     RegionPAL,
			ClkPerPclk: 5,
			Scanlines:  312,
			VBlankLine: 241,
			RegWarmup:  true,
		}
	case UMC_UA6538:
		return Profile{
			Region:     RegionDendy,
			ClkPerPclk: 5,
			Scanlines:  312,
			VBlankLine: 291,
		}
	default:
		panic(fmt.Sprintf("ppu: no profile for %s", r))
	}
}
