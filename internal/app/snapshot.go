package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ppusim/internal/ppu"
	"ppusim/internal/version"
)

// Snapshot is a JSON record of the core's visible state at one instant.
type Snapshot struct {
	// Metadata
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	ROMPath   string    `json:"rom_path,omitempty"`
	Revision  string    `json:"revision"`

	// Timing
	Frames      uint64 `json:"frames"`
	PCLKCounter uint64 `json:"pclk_counter"`
	HalfClocks  uint64 `json:"half_clocks"`

	// arrays, not slices: []uint8 would encode as base64
	PPU     PPUStateData `json:"ppu"`
	Palette [32]uint8    `json:"palette"`
	OAM     [256]uint8   `json:"oam"`
}

// PPUStateData represents the core's registers
type PPUStateData struct {
	Scanline   int    `json:"scanline"`
	Cycle      int    `json:"cycle"`
	Ctrl       uint8  `json:"ctrl"`
	Mask       uint8  `json:"mask"`
	Status     uint8  `json:"status"`
	OAMAddr    uint8  `json:"oam_addr"`
	V          uint16 `json:"v"`
	T          uint16 `json:"t"`
	FineX      uint8  `json:"fine_x"`
	W          bool   `json:"w"`
	ReadBuffer uint8  `json:"read_buffer"`
	VBlankFlag bool   `json:"vblank_flag"`
	NMIEnabled bool   `json:"nmi_enabled"`
}

func takeSnapshot(core *ppu.Core, romPath string, halfClocks uint64) *Snapshot {
	regs := core.DebugRegisters()

	return &Snapshot{
		Version:     version.Get().Line(),
		Timestamp:   time.Now(),
		ROMPath:     romPath,
		Revision:    core.Revision().String(),
		Frames:      core.FrameCount(),
		PCLKCounter: core.PCLKCounter(),
		HalfClocks:  halfClocks,
		PPU: PPUStateData{
			Scanline:   regs.VCounter,
			Cycle:      regs.HCounter,
			Ctrl:       regs.CTRL0,
			Mask:       regs.CTRL1,
			Status:     regs.Status,
			OAMAddr:    regs.OAMAddr,
			V:          regs.V,
			T:          regs.T,
			FineX:      regs.FineX,
			W:          regs.W,
			ReadBuffer: regs.ReadBuffer,
			VBlankFlag: regs.Status&0x80 != 0,
			NMIEnabled: regs.CTRL0&0x80 != 0,
		},
		Palette: core.Palette(),
		OAM:     core.OAM(),
	}
}

// Save writes the snapshot to filePath
func (s *Snapshot) Save(filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot written by Save
func LoadSnapshot(filePath string) (*Snapshot, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if _, err := ppu.ParseRevision(s.Revision); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return &s, nil
}
