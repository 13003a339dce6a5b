package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ppusim/internal/ppu"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ppusim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewConfigIsValid(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.Validate())

	rev, err := c.Revision(ppu.RP2C07_0)
	require.NoError(t, err)
	assert.Equal(t, ppu.RP2C07_0, rev, "empty revision follows the fallback")

	level, err := c.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, level)

	w, h := c.GetWindowResolution()
	assert.Equal(t, 512, w)
	assert.Equal(t, 480, h)
	assert.Equal(t, "./config/ppusim.yaml", GetDefaultConfigPath())
}

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "none.yaml")
	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.False(t, c.IsLoaded())
	assert.Equal(t, path, c.GetConfigPath())
	assert.Equal(t, NewConfig().Run, c.Run)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
core:
  revision: rp2c07-0
  high_level_emulation: true
  video_generation: true
run:
  frames: 5
  warmup_frames: 1
  script:
    - reg: PPUMASK
      value: 0x1E
    - reg: $2000
      value: 128
video:
  backend: terminal
  scale: 3
  filter: linear
  dump_every: 2
debug:
  log_level: debug
`)

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, c.IsLoaded())

	rev, err := c.Revision(ppu.RP2C02G)
	require.NoError(t, err)
	assert.Equal(t, ppu.RP2C07_0, rev)
	assert.True(t, c.Core.HighLevelEmulation)
	assert.Equal(t, 5, c.Run.Frames)
	assert.Equal(t, []RegisterWrite{{"PPUMASK", 0x1E}, {"$2000", 0x80}}, c.Run.Script)
	assert.Equal(t, "terminal", c.Video.Backend)
	assert.Equal(t, 3, c.Video.Scale)
	assert.Equal(t, "./frames", c.Video.OutputDir, "unset keys keep defaults")
	assert.Equal(t, "debug", c.Debug.LogLevel)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "core:\n  revison: RP2C02G\n")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"bad revision", func(c *Config) { c.Core.Revision = "RP2C09" }, "core.revision"},
		{"negative frames", func(c *Config) { c.Run.Frames = -1 }, "run.frames"},
		{"endless headless run", func(c *Config) { c.Run.Frames = 0 }, "run.frames"},
		{"negative warmup", func(c *Config) { c.Run.WarmupFrames = -1 }, "run.warmup_frames"},
		{"bad register", func(c *Config) { c.Run.Script = []RegisterWrite{{"PPUCTRL", 0}, {"$4014", 0}} }, "run.script[1].reg"},
		{"bad backend", func(c *Config) { c.Video.Backend = "sdl2" }, "video.backend"},
		{"zero scale", func(c *Config) { c.Video.Scale = 0 }, "video.scale"},
		{"bad filter", func(c *Config) { c.Video.Filter = "cubic" }, "video.filter"},
		{"negative dump", func(c *Config) { c.Video.DumpEvery = -2 }, "video.dump_every"},
		{"bad log level", func(c *Config) { c.Debug.LogLevel = "loud" }, "debug.log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			tt.modify(c)

			err := c.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestEndlessRunAllowedInWindow(t *testing.T) {
	c := NewConfig()
	c.Video.Backend = "ebitengine"
	c.Run.Frames = 0
	assert.NoError(t, c.Validate())
}

func TestSaveAndReload(t *testing.T) {
	c := NewConfig()
	c.Core.Revision = "RC2C05-03"
	c.Run.Script = []RegisterWrite{{"PPUCTRL", 0x80}}

	path := filepath.Join(t.TempDir(), "nested", "ppusim.yaml")
	require.NoError(t, c.Save(path))
	assert.Equal(t, path, c.GetConfigPath())

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, c.Core, loaded.Core)
	assert.Equal(t, c.Run, loaded.Run)
	assert.Equal(t, c.Video, loaded.Video)
	assert.Equal(t, c.Debug, loaded.Debug)
}
