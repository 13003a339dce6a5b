package graphics

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ppusim/internal/ppu"
)

func solidFrame(pixel uint32) []uint32 {
	frame := make([]uint32, ppu.FrameWidth*ppu.FrameHeight)
	for i := range frame {
		frame[i] = pixel
	}
	return frame
}

func TestCreateBackend(t *testing.T) {
	tests := []struct {
		backendType BackendType
		name        string
	}{
		{BackendHeadless, "Headless"},
		{BackendTerminal, "Terminal"},
	}

	for _, tt := range tests {
		t.Run(string(tt.backendType), func(t *testing.T) {
			backend, err := CreateBackend(tt.backendType)
			require.NoError(t, err)
			assert.Equal(t, tt.name, backend.GetName())
		})
	}

	_, err := CreateBackend("sdl2")
	assert.Error(t, err)
	assert.Len(t, BackendTypes(), 3)
}

func newHeadlessWindow(t *testing.T, config Config) *HeadlessWindow {
	t.Helper()
	backend := NewHeadlessBackend()
	require.NoError(t, backend.Initialize(config))
	window, err := backend.CreateWindow("test", 256, 240)
	require.NoError(t, err)
	return window.(*HeadlessWindow)
}

func TestHeadlessBackendLifecycle(t *testing.T) {
	backend := NewHeadlessBackend()
	assert.True(t, backend.IsHeadless())

	_, err := backend.CreateWindow("test", 256, 240)
	assert.Error(t, err, "window before Initialize")

	require.NoError(t, backend.Initialize(Config{}))
	assert.Error(t, backend.Initialize(Config{}), "double Initialize")
	require.NoError(t, backend.Cleanup())

	assert.Error(t, NewHeadlessBackend().Initialize(Config{DumpEvery: -1}))
}

func TestHeadlessDumpsEveryNthFrame(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	w := newHeadlessWindow(t, Config{OutputDir: dir, DumpEvery: 2})

	frame := solidFrame(0xB53120)
	for i := 0; i < 5; i++ {
		require.NoError(t, w.RenderFrame(frame))
	}

	assert.Equal(t, 5, w.GetFrameCount())
	assert.Equal(t, []string{
		filepath.Join(dir, "frame_00002.ppm"),
		filepath.Join(dir, "frame_00004.ppm"),
	}, w.Dumped())

	data, err := os.ReadFile(filepath.Join(dir, "frame_00002.ppm"))
	require.NoError(t, err)
	header := "P6\n256 240\n255\n"
	require.True(t, strings.HasPrefix(string(data), header))
	body := data[len(header):]
	require.Len(t, body, 3*ppu.FrameWidth*ppu.FrameHeight)
	assert.Equal(t, []byte{0xB5, 0x31, 0x20}, body[:3])
	assert.Equal(t, []byte{0xB5, 0x31, 0x20}, body[len(body)-3:])
}

func TestHeadlessWithoutInterval(t *testing.T) {
	dir := t.TempDir()
	w := newHeadlessWindow(t, Config{OutputDir: dir})

	for i := 0; i < 3; i++ {
		require.NoError(t, w.RenderFrame(solidFrame(0)))
	}
	assert.Empty(t, w.Dumped())

	require.NoError(t, w.Dump(solidFrame(0)))
	assert.Equal(t, []string{filepath.Join(dir, "frame_00003.ppm")}, w.Dumped())
}

func TestHeadlessRejectsBadFrame(t *testing.T) {
	w := newHeadlessWindow(t, Config{OutputDir: t.TempDir(), DumpEvery: 1})
	assert.Error(t, w.RenderFrame(make([]uint32, 10)))
	assert.Zero(t, w.GetFrameCount())
}

func TestHeadlessWindowClose(t *testing.T) {
	w := newHeadlessWindow(t, Config{})
	assert.False(t, w.ShouldClose())
	assert.Nil(t, w.PollEvents())
	require.NoError(t, w.Cleanup())
	assert.True(t, w.ShouldClose())
}

func TestTerminalRendersRamp(t *testing.T) {
	var out bytes.Buffer
	backend := NewTerminalBackend(&out)
	require.NoError(t, backend.Initialize(Config{}))
	window, err := backend.CreateWindow("test", 64, 30)
	require.NoError(t, err)

	frame := solidFrame(0x000000)
	for y := 0; y < ppu.FrameHeight; y++ {
		for x := ppu.FrameWidth / 2; x < ppu.FrameWidth; x++ {
			frame[y*ppu.FrameWidth+x] = 0xFFFFFF
		}
	}
	require.NoError(t, window.RenderFrame(frame))

	lines := strings.Split(strings.TrimPrefix(out.String(), "\033[2J\033[H"), "\n")
	require.Len(t, lines, ppu.FrameHeight/terminalCellHeight+1)
	want := strings.Repeat(" ", 32) + strings.Repeat("@", 32)
	assert.Equal(t, want, lines[0])
	assert.Equal(t, want, lines[29])
	assert.Empty(t, lines[30])
}

func TestRampChar(t *testing.T) {
	assert.Equal(t, byte(' '), rampChar(0))
	assert.Equal(t, byte('@'), rampChar(255))
	assert.Equal(t, byte('+'), rampChar(128))
}
