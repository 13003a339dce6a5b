package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"ppusim/internal/bus"
	"ppusim/internal/cartridge"
	"ppusim/internal/graphics"
	"ppusim/internal/memory"
	"ppusim/internal/ppu"
	"ppusim/internal/ppusim"
)

// SessionError names the stage a session failed in.
type SessionError struct {
	Component string
	Operation string
	Err       error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// Session ties one simulated PPU to its video memory and a presentation
// backend, and runs it frame by frame.
type Session struct {
	config *Config
	log    *logrus.Entry

	bus  *bus.Bus
	cart *cartridge.Cartridge

	backend graphics.Backend
	window  graphics.Window

	running bool
	paused  bool
	closed  bool

	frames    int
	startTime time.Time
}

// NewSession builds a session from config. The core is constructed through
// lc; a nil lc uses the Go heap.
func NewSession(config *Config, lc *ppusim.Lifecycle, log *logrus.Entry) (*Session, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		config: config,
		log:    log.WithField("component", "session"),
	}

	vram, fallback, err := s.loadVideoMemory()
	if err != nil {
		return nil, err
	}

	revision, err := config.Revision(fallback)
	if err != nil {
		return nil, &SessionError{Component: "core", Operation: "select revision", Err: err}
	}

	s.bus, err = bus.New(lc, bus.Options{
		Revision:            revision,
		HighLevelEmulation:  config.Core.HighLevelEmulation,
		VideoGeneration:     config.Core.VideoGeneration,
		RawOutput:           config.Core.RawOutput,
		RenderAlwaysEnabled: config.Core.RenderAlwaysEnabled,
	}, vram, log.WithField("component", "bus"))
	if err != nil {
		return nil, &SessionError{Component: "core", Operation: "construct", Err: err}
	}

	if err := s.initializeGraphicsBackend(); err != nil {
		s.bus.Close()
		return nil, &SessionError{Component: "graphics", Operation: "backend setup", Err: err}
	}

	if err := s.prepare(); err != nil {
		s.Close()
		return nil, &SessionError{Component: "core", Operation: "prepare", Err: err}
	}

	return s, nil
}

func (s *Session) loadVideoMemory() (*memory.VRAM, ppu.Revision, error) {
	if s.config.Run.ROM == "" {
		return memory.NewVRAM(nil, memory.MirrorVertical), ppu.RP2C02G, nil
	}

	cart, err := cartridge.LoadFromFile(s.config.Run.ROM)
	if err != nil {
		return nil, 0, &SessionError{Component: "cartridge", Operation: "load ROM", Err: err}
	}
	s.cart = cart
	s.log.WithFields(logrus.Fields{
		"rom":       s.config.Run.ROM,
		"mirroring": cart.MirrorMode().String(),
		"chrRAM":    cart.HasCHRRAM(),
	}).Info("ROM loaded")
	return cart.NewVRAM(), cart.SuggestedRevision(), nil
}

// initializeGraphicsBackend creates the configured backend. A window that
// cannot be opened falls back to headless output.
func (s *Session) initializeGraphicsBackend() error {
	backendType := graphics.BackendType(s.config.Video.Backend)
	width, height := s.config.GetWindowResolution()

	graphicsConfig := graphics.Config{
		WindowTitle:  "ppusim - " + s.bus.Core().Revision().String(),
		WindowWidth:  width,
		WindowHeight: height,
		Fullscreen:   s.config.Video.Fullscreen,
		VSync:        s.config.Video.VSync,
		Filter:       s.config.Video.Filter,
		OutputDir:    s.config.Video.OutputDir,
		DumpEvery:    s.config.Video.DumpEvery,
		Headless:     backendType == graphics.BackendHeadless,
		Log:          s.log.WithField("component", "graphics"),
	}

	backend, err := graphics.CreateBackend(backendType)
	if err != nil {
		return err
	}
	if err := backend.Initialize(graphicsConfig); err != nil {
		if backendType != graphics.BackendEbitengine || s.config.Run.Frames == 0 {
			return err
		}
		s.log.WithError(err).Warn("window unavailable, falling back to headless output")
		backend = graphics.NewHeadlessBackend()
		graphicsConfig.Headless = true
		if err := backend.Initialize(graphicsConfig); err != nil {
			return err
		}
	}

	window, err := backend.CreateWindow(graphicsConfig.WindowTitle, width, height)
	if err != nil {
		backend.Cleanup()
		return fmt.Errorf("failed to create window: %w", err)
	}

	s.backend = backend
	s.window = window
	s.log.WithField("backend", backend.GetName()).Debug("graphics backend ready")
	return nil
}

// prepare resets the core, lets it warm up and applies the register script.
func (s *Session) prepare() error {
	s.bus.Reset()
	s.bus.StepDot()
	for i := 0; i < s.config.Run.WarmupFrames; i++ {
		if err := s.bus.StepFrame(); err != nil {
			return err
		}
	}

	for _, w := range s.config.Run.Script {
		addr, err := bus.ParseRegister(w.Register)
		if err != nil {
			return err
		}
		s.bus.WriteRegister(addr, w.Value)
	}
	if n := len(s.config.Run.Script); n > 0 {
		s.log.WithField("writes", n).Debug("register script applied")
	}
	return nil
}

// Run presents frames until the configured count is reached, the window
// closes or ctx is done. Windows that own the main loop drive the session
// themselves.
func (s *Session) Run(ctx context.Context) error {
	if s.closed {
		return bus.ErrClosed
	}

	s.running = true
	s.startTime = time.Now()
	s.log.WithFields(logrus.Fields{
		"backend": s.backend.GetName(),
		"frames":  s.config.Run.Frames,
	}).Info("session started")

	update := func() error {
		if ctx.Err() != nil {
			s.Stop()
			return nil
		}
		return s.update()
	}

	var err error
	if runner, ok := s.window.(graphics.Runner); ok && !s.backend.IsHeadless() {
		runner.SetUpdateFunc(update)
		err = runner.Run()
	} else {
		for s.running && err == nil {
			err = update()
		}
	}

	elapsed := time.Since(s.startTime)
	fields := logrus.Fields{"frames": s.frames, "elapsed": elapsed.Round(time.Millisecond)}
	if elapsed > 0 {
		fields["fps"] = fmt.Sprintf("%.1f", float64(s.frames)/elapsed.Seconds())
	}
	s.log.WithFields(fields).Info("session finished")
	return err
}

// update handles input and advances the session by one frame unless paused.
func (s *Session) update() error {
	for _, event := range s.window.PollEvents() {
		if err := s.handleEvent(event); err != nil {
			return err
		}
	}
	if s.window.ShouldClose() {
		s.Stop()
	}
	if !s.running || s.paused {
		return nil
	}
	return s.StepFrame()
}

func (s *Session) handleEvent(event graphics.InputEvent) error {
	if event.Type == graphics.InputEventTypeQuit {
		s.Stop()
		return nil
	}
	if event.Type != graphics.InputEventTypeKey || !event.Pressed {
		return nil
	}

	switch event.Key {
	case graphics.KeySpace:
		s.TogglePause()
	case graphics.KeyR:
		s.Reset()
	case graphics.KeyF12:
		return s.SaveFrame(filepath.Join(s.config.Video.OutputDir, fmt.Sprintf("screenshot_%05d.ppm", s.frames)))
	}
	return nil
}

// StepFrame runs the core to the end of the next frame and presents it.
func (s *Session) StepFrame() error {
	if err := s.bus.StepFrame(); err != nil {
		return err
	}
	s.frames++

	if err := s.window.RenderFrame(s.bus.FrameBuffer()); err != nil {
		return &SessionError{Component: "graphics", Operation: "render", Err: err}
	}

	if s.config.Run.Frames > 0 && s.frames >= s.config.Run.Frames {
		s.Stop()
	}
	return nil
}

// SaveFrame writes the last picture as a PPM image.
func (s *Session) SaveFrame(path string) error {
	if s.closed {
		return bus.ErrClosed
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return graphics.SavePPM(s.bus.FrameBuffer(), path)
}

// Snapshot captures the core's registers and memories.
func (s *Session) Snapshot() (*Snapshot, error) {
	if s.closed {
		return nil, bus.ErrClosed
	}
	return takeSnapshot(s.bus.Core(), s.config.Run.ROM, s.bus.Stats().HalfClocks), nil
}

// Stop ends Run after the current frame.
func (s *Session) Stop() {
	if s.running {
		s.log.Debug("stop requested")
	}
	s.running = false
	if s.window != nil {
		s.window.Cleanup()
	}
}

// TogglePause pauses or resumes frame stepping.
func (s *Session) TogglePause() {
	s.paused = !s.paused
	s.log.WithField("paused", s.paused).Info("pause toggled")
}

// Reset pulses the core's reset pad.
func (s *Session) Reset() {
	s.bus.Reset()
	s.log.Info("core reset")
}

// Frames returns the number of frames presented.
func (s *Session) Frames() int {
	return s.frames
}

// Bus returns the pad driver around the session's core.
func (s *Session) Bus() *bus.Bus {
	return s.bus
}

// Window returns the presentation surface.
func (s *Session) Window() graphics.Window {
	return s.window
}

// Cartridge returns the loaded ROM, or nil when running on CHR RAM.
func (s *Session) Cartridge() *cartridge.Cartridge {
	return s.cart
}

// IsRunning returns whether Run is presenting frames
func (s *Session) IsRunning() bool {
	return s.running
}

// IsPaused returns whether frame stepping is paused
func (s *Session) IsPaused() bool {
	return s.paused
}

// Close releases the core and the backend. Calling Close more than once is
// harmless.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.running = false

	var errs []error
	if s.window != nil {
		errs = append(errs, s.window.Cleanup())
	}
	if s.backend != nil {
		errs = append(errs, s.backend.Cleanup())
	}
	s.bus.Close()
	return errors.Join(errs...)
}
