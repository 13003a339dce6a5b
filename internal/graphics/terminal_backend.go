package graphics

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"ppusim/internal/ppu"
)

// Each character covers a cell of this many pixels.
const (
	terminalCellWidth  = 4
	terminalCellHeight = 8
)

// Brightness ramp, darkest first.
const terminalRamp = " .:-=+*#%@"

// TerminalBackend implements the Backend interface for terminal-based rendering
type TerminalBackend struct {
	initialized bool
	config      Config
	out         io.Writer
}

// TerminalWindow draws frames as ASCII art
type TerminalWindow struct {
	title   string
	width   int
	height  int
	running bool
	out     io.Writer
}

// NewTerminalBackend creates a terminal backend writing to out, or to
// standard output when out is nil.
func NewTerminalBackend(out io.Writer) Backend {
	if out == nil {
		out = os.Stdout
	}
	return &TerminalBackend{out: out}
}

// Initialize initializes the terminal backend
func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}

	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow creates a terminal "window"
func (b *TerminalBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	return &TerminalWindow{
		title:   title,
		width:   width,
		height:  height,
		running: true,
		out:     b.out,
	}, nil
}

// Cleanup releases all terminal resources
func (b *TerminalBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns false (terminal has basic output)
func (b *TerminalBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

// SetTitle sets the terminal title
func (w *TerminalWindow) SetTitle(title string) {
	w.title = title
	fmt.Fprintf(w.out, "\033]0;%s\007", title)
}

// GetSize returns window dimensions
func (w *TerminalWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *TerminalWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns empty events list (no input handling)
func (w *TerminalWindow) PollEvents() []InputEvent {
	return nil
}

// RenderFrame clears the screen and draws the frame one character per cell
func (w *TerminalWindow) RenderFrame(frame []uint32) error {
	if err := checkFrame(frame); err != nil {
		return err
	}

	out := bufio.NewWriter(w.out)
	out.WriteString("\033[2J\033[H")
	for y := 0; y < ppu.FrameHeight; y += terminalCellHeight {
		for x := 0; x < ppu.FrameWidth; x += terminalCellWidth {
			out.WriteByte(rampChar(cellLuma(frame, x, y)))
		}
		out.WriteByte('\n')
	}
	return out.Flush()
}

// cellLuma averages the luma of one cell, 0-255.
func cellLuma(frame []uint32, x0, y0 int) int {
	sum := 0
	for y := y0; y < y0+terminalCellHeight; y++ {
		for x := x0; x < x0+terminalCellWidth; x++ {
			p := frame[y*ppu.FrameWidth+x]
			r, g, b := int(p>>16&0xFF), int(p>>8&0xFF), int(p&0xFF)
			sum += (299*r + 587*g + 114*b) / 1000
		}
	}
	return sum / (terminalCellWidth * terminalCellHeight)
}

func rampChar(luma int) byte {
	return terminalRamp[luma*len(terminalRamp)/256]
}

// Cleanup releases window resources
func (w *TerminalWindow) Cleanup() error {
	w.running = false
	return nil
}
