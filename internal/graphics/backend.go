// Package graphics provides an abstraction layer for the ways a simulated
// picture can be presented: a desktop window, a terminal preview or image
// files on disk.
package graphics

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"ppusim/internal/ppu"
)

// Backend represents a presentation backend (Ebitengine, headless, terminal)
type Backend interface {
	// Initialize initializes the graphics backend
	Initialize(config Config) error

	// CreateWindow creates a window for rendering
	CreateWindow(title string, width, height int) (Window, error)

	// Cleanup releases all resources
	Cleanup() error

	// IsHeadless returns true if nothing is shown on screen
	IsHeadless() bool

	// GetName returns the backend name for identification
	GetName() string
}

// Window represents a rendering surface
type Window interface {
	SetTitle(title string)
	GetSize() (width, height int)

	// ShouldClose returns true if window should close
	ShouldClose() bool

	// PollEvents returns the input events seen since the last call
	PollEvents() []InputEvent

	// RenderFrame presents one 256x240 frame of 0x00RRGGBB pixels
	RenderFrame(frame []uint32) error

	// Cleanup releases window resources
	Cleanup() error
}

// Runner is implemented by windows that own the main loop. The update
// function is called once per display refresh.
type Runner interface {
	Run() error
	SetUpdateFunc(update func() error)
}

// Config contains configuration for graphics backends
type Config struct {
	// Window configuration
	WindowTitle  string
	WindowWidth  int
	WindowHeight int
	Fullscreen   bool
	VSync        bool
	Filter       string // "nearest", "linear"

	// Headless output
	OutputDir string
	DumpEvery int

	Headless bool
	Log      *logrus.Entry
}

func (c Config) logger() *logrus.Entry {
	if c.Log != nil {
		return c.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// InputEvent represents an input event from the window
type InputEvent struct {
	Type    InputEventType
	Key     Key
	Pressed bool
}

// InputEventType represents the type of input event
type InputEventType int

const (
	InputEventTypeKey InputEventType = iota
	InputEventTypeQuit
)

// Key represents the keys a viewer reacts to
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeySpace // pause
	KeyR     // reset
	KeyF12   // dump frame
)

// BackendType represents different graphics backend types
type BackendType string

const (
	BackendEbitengine BackendType = "ebitengine"
	BackendHeadless   BackendType = "headless"
	BackendTerminal   BackendType = "terminal"
)

// BackendTypes lists every backend CreateBackend accepts.
func BackendTypes() []BackendType {
	return []BackendType{BackendEbitengine, BackendHeadless, BackendTerminal}
}

// CreateBackend creates a graphics backend of the specified type
func CreateBackend(backendType BackendType) (Backend, error) {
	switch backendType {
	case BackendEbitengine:
		return NewEbitengineBackend(), nil
	case BackendHeadless:
		return NewHeadlessBackend(), nil
	case BackendTerminal:
		return NewTerminalBackend(nil), nil
	default:
		return nil, fmt.Errorf("unknown graphics backend %q", backendType)
	}
}

func checkFrame(frame []uint32) error {
	if len(frame) != ppu.FrameWidth*ppu.FrameHeight {
		return fmt.Errorf("frame has %d pixels, want %d", len(frame), ppu.FrameWidth*ppu.FrameHeight)
	}
	return nil
}
