package graphics

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"ppusim/internal/ppu"
)

// HeadlessBackend implements the Backend interface for headless operation
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessWindow counts frames and saves every DumpEvery-th one as a PPM
// image in OutputDir.
type HeadlessWindow struct {
	title      string
	width      int
	height     int
	running    bool
	frameCount int
	outputDir  string
	dumpEvery  int
	dumped     []string
	log        *logrus.Entry
}

// NewHeadlessBackend creates a new headless graphics backend
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

// Initialize initializes the headless backend
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}
	if config.DumpEvery < 0 {
		return fmt.Errorf("dump interval %d is negative", config.DumpEvery)
	}

	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow creates a headless "window" (no actual window)
func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	outputDir := b.config.OutputDir
	if outputDir == "" {
		outputDir = "frame_output"
	}

	return &HeadlessWindow{
		title:     title,
		width:     width,
		height:    height,
		running:   true,
		outputDir: outputDir,
		dumpEvery: b.config.DumpEvery,
		log:       b.config.logger().WithField("component", "headless"),
	}, nil
}

// Cleanup releases all headless resources
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true (this is a headless backend)
func (b *HeadlessBackend) IsHeadless() bool {
	return true
}

// GetName returns the backend name
func (b *HeadlessBackend) GetName() string {
	return "Headless"
}

// SetTitle sets the window title (for logging purposes)
func (w *HeadlessWindow) SetTitle(title string) {
	w.title = title
}

// GetSize returns window dimensions
func (w *HeadlessWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true once the window was cleaned up
func (w *HeadlessWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns no events; there is no input in headless mode
func (w *HeadlessWindow) PollEvents() []InputEvent {
	return nil
}

// RenderFrame counts the frame and saves it when it is due
func (w *HeadlessWindow) RenderFrame(frame []uint32) error {
	if err := checkFrame(frame); err != nil {
		return err
	}
	w.frameCount++

	if w.dumpEvery == 0 || w.frameCount%w.dumpEvery != 0 {
		return nil
	}
	return w.Dump(frame)
}

// Dump saves frame as the next numbered PPM file regardless of the interval.
func (w *HeadlessWindow) Dump(frame []uint32) error {
	if err := checkFrame(frame); err != nil {
		return err
	}
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	filename := filepath.Join(w.outputDir, fmt.Sprintf("frame_%05d.ppm", w.frameCount))
	if err := SavePPM(frame, filename); err != nil {
		return err
	}
	w.dumped = append(w.dumped, filename)
	w.log.WithFields(logrus.Fields{"frame": w.frameCount, "file": filename}).Debug("frame saved")
	return nil
}

// SavePPM writes frame as a binary PPM image.
func SavePPM(frame []uint32, filename string) error {
	if err := checkFrame(frame); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filename, err)
	}
	defer file.Close()

	out := bufio.NewWriter(file)
	fmt.Fprintf(out, "P6\n%d %d\n255\n", ppu.FrameWidth, ppu.FrameHeight)
	for _, pixel := range frame {
		out.WriteByte(uint8(pixel >> 16))
		out.WriteByte(uint8(pixel >> 8))
		out.WriteByte(uint8(pixel))
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return file.Close()
}

// Cleanup releases window resources
func (w *HeadlessWindow) Cleanup() error {
	w.running = false
	return nil
}

// GetFrameCount returns the number of frames rendered so far
func (w *HeadlessWindow) GetFrameCount() int {
	return w.frameCount
}

// Dumped returns the files written so far.
func (w *HeadlessWindow) Dumped() []string {
	return append([]string(nil), w.dumped...)
}
