//go:build !headless
// +build !headless

package graphics

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"

	"ppusim/internal/ppu"
)

// EbitengineBackend implements the Backend interface using Ebitengine
type EbitengineBackend struct {
	initialized bool
	config      Config
}

// EbitengineWindow implements the Window interface for Ebitengine
type EbitengineWindow struct {
	backend *EbitengineBackend
	title   string
	width   int
	height  int
	game    *EbitengineGame
	running bool
	events  []InputEvent
	update  func() error
	log     *logrus.Entry
}

// EbitengineGame implements ebiten.Game for the simulator
type EbitengineGame struct {
	window       *EbitengineWindow
	frameImage   *ebiten.Image
	pixels       []byte // RGBA staging buffer for frameImage
	windowWidth  int
	windowHeight int
	filter       ebiten.Filter
	frames       int
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("Ebitengine backend already initialized")
	}

	if !config.Headless && !displayAvailable() {
		return ErrNoDisplay
	}

	b.config = config
	b.initialized = true
	return nil
}

// CreateWindow creates an Ebitengine window
func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}
	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	game := &EbitengineGame{
		frameImage:   ebiten.NewImage(ppu.FrameWidth, ppu.FrameHeight),
		pixels:       make([]byte, 4*ppu.FrameWidth*ppu.FrameHeight),
		windowWidth:  width,
		windowHeight: height,
		filter:       ebiten.FilterNearest,
	}
	if b.config.Filter == "linear" {
		game.filter = ebiten.FilterLinear
	}

	window := &EbitengineWindow{
		backend: b,
		title:   title,
		width:   width,
		height:  height,
		game:    game,
		running: true,
		log:     b.config.logger().WithField("component", "ebitengine"),
	}
	game.window = window

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(b.config.VSync)
	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	return window, nil
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// SetTitle sets the window title
func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

// GetSize returns window dimensions
func (w *EbitengineWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *EbitengineWindow) ShouldClose() bool {
	return !w.running
}

// PollEvents returns and clears the queued input events
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame uploads a frame to the window's texture
func (w *EbitengineWindow) RenderFrame(frame []uint32) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	if err := checkFrame(frame); err != nil {
		return err
	}

	pix := w.game.pixels
	for i, pixel := range frame {
		pix[4*i] = uint8(pixel >> 16)
		pix[4*i+1] = uint8(pixel >> 8)
		pix[4*i+2] = uint8(pixel)
		pix[4*i+3] = 0xFF
	}
	w.game.frameImage.WritePixels(pix)
	w.game.frames++
	return nil
}

// Cleanup releases window resources
func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// Run starts the Ebitengine game loop and blocks until the window closes
func (w *EbitengineWindow) Run() error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}

	err := ebiten.RunGame(w.game)
	w.running = false
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

// SetUpdateFunc sets the function driving the simulation
func (w *EbitengineWindow) SetUpdateFunc(update func() error) {
	w.update = update
}

// Update implements ebiten.Game.Update
func (g *EbitengineGame) Update() error {
	if g.window == nil {
		return nil
	}

	g.processInput()
	if !g.window.running {
		return ebiten.Termination
	}

	if g.window.update != nil {
		if err := g.window.update(); err != nil {
			g.window.log.WithError(err).Error("update failed")
			return err
		}
	}
	return nil
}

// Draw implements ebiten.Game.Draw
func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)
	if g.frameImage == nil {
		return
	}

	scaleX := float64(g.windowWidth) / ppu.FrameWidth
	scaleY := float64(g.windowHeight) / ppu.FrameHeight
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	op := &ebiten.DrawImageOptions{Filter: g.filter}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(
		(float64(g.windowWidth)-ppu.FrameWidth*scale)/2,
		(float64(g.windowHeight)-ppu.FrameHeight*scale)/2,
	)
	screen.DrawImage(g.frameImage, op)
}

// Layout implements ebiten.Game.Layout
func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

var keyMappings = map[ebiten.Key]Key{
	ebiten.KeyEscape: KeyEscape,
	ebiten.KeySpace:  KeySpace,
	ebiten.KeyR:      KeyR,
	ebiten.KeyF12:    KeyF12,
}

func (g *EbitengineGame) processInput() {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.window.events = append(g.window.events, InputEvent{Type: InputEventTypeQuit, Pressed: true})
	}

	for ebitenKey, key := range keyMappings {
		switch {
		case inpututil.IsKeyJustPressed(ebitenKey):
			g.window.events = append(g.window.events, InputEvent{Type: InputEventTypeKey, Key: key, Pressed: true})
		case inpututil.IsKeyJustReleased(ebitenKey):
			g.window.events = append(g.window.events, InputEvent{Type: InputEventTypeKey, Key: key, Pressed: false})
		}
	}
}
