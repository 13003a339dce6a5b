// Package app provides configuration management and the simulation session.
package app

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"ppusim/internal/bus"
	"ppusim/internal/graphics"
	"ppusim/internal/ppu"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Core  CoreConfig  `yaml:"core"`
	Run   RunConfig   `yaml:"run"`
	Video VideoConfig `yaml:"video"`
	Debug DebugConfig `yaml:"debug"`

	// Internal state
	configPath string
	loaded     bool
}

// CoreConfig selects the simulated chip.
type CoreConfig struct {
	Revision            string `yaml:"revision"` // e.g. "RP2C02G"; empty follows the ROM
	HighLevelEmulation  bool   `yaml:"high_level_emulation"`
	VideoGeneration     bool   `yaml:"video_generation"`
	RawOutput           bool   `yaml:"raw_output"`
	RenderAlwaysEnabled bool   `yaml:"render_always_enabled"`
}

// RunConfig describes what a session does.
type RunConfig struct {
	Frames       int             `yaml:"frames"` // 0 runs until the window closes
	ROM          string          `yaml:"rom"`    // iNES image; empty uses CHR RAM
	WarmupFrames int             `yaml:"warmup_frames"`
	Script       []RegisterWrite `yaml:"script"`
}

// RegisterWrite is one CPU write performed after warm-up.
type RegisterWrite struct {
	Register string `yaml:"reg"` // name ("PPUCTRL") or address ("$2000")
	Value    uint8  `yaml:"value"`
}

// VideoConfig contains presentation settings
type VideoConfig struct {
	Backend    string `yaml:"backend"` // "ebitengine", "headless", "terminal"
	Scale      int    `yaml:"scale"`
	VSync      bool   `yaml:"vsync"`
	Fullscreen bool   `yaml:"fullscreen"`
	Filter     string `yaml:"filter"` // "nearest", "linear"
	OutputDir  string `yaml:"output_dir"`
	DumpEvery  int    `yaml:"dump_every"`
}

// DebugConfig contains debugging options
type DebugConfig struct {
	LogLevel string `yaml:"log_level"` // any logrus level name
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Core: CoreConfig{
			VideoGeneration: true,
		},
		Run: RunConfig{
			Frames:       60,
			WarmupFrames: 2,
		},
		Video: VideoConfig{
			Backend:   string(graphics.BackendHeadless),
			Scale:     2,
			VSync:     true,
			Filter:    "nearest",
			OutputDir: "./frames",
			DumpEvery: 0,
		},
		Debug: DebugConfig{
			LogLevel: "info",
		},
	}
}

// LoadConfig reads a YAML configuration file. A missing file yields the
// defaults. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	c := NewConfig()
	c.configPath = path

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.loaded = true
	return c, nil
}

// Save writes the configuration as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	c.configPath = path
	return nil
}

// Validate checks every field and reports the first problem.
func (c *Config) Validate() error {
	if c.Core.Revision != "" {
		if _, err := ppu.ParseRevision(c.Core.Revision); err != nil {
			return &ConfigError{Field: "core.revision", Value: c.Core.Revision, Err: err}
		}
	}

	if c.Run.Frames < 0 {
		return &ConfigError{Field: "run.frames", Value: c.Run.Frames, Err: errors.New("must not be negative")}
	}
	if c.Run.WarmupFrames < 0 {
		return &ConfigError{Field: "run.warmup_frames", Value: c.Run.WarmupFrames, Err: errors.New("must not be negative")}
	}
	for i, w := range c.Run.Script {
		if _, err := bus.ParseRegister(w.Register); err != nil {
			return &ConfigError{Field: fmt.Sprintf("run.script[%d].reg", i), Value: w.Register, Err: err}
		}
	}

	if !validBackend(c.Video.Backend) {
		return &ConfigError{Field: "video.backend", Value: c.Video.Backend, Err: fmt.Errorf("valid: %v", graphics.BackendTypes())}
	}
	if c.Video.Scale < 1 || c.Video.Scale > 8 {
		return &ConfigError{Field: "video.scale", Value: c.Video.Scale, Err: errors.New("must be between 1 and 8")}
	}
	if c.Video.Filter != "nearest" && c.Video.Filter != "linear" {
		return &ConfigError{Field: "video.filter", Value: c.Video.Filter, Err: errors.New("valid: nearest, linear")}
	}
	if c.Video.DumpEvery < 0 {
		return &ConfigError{Field: "video.dump_every", Value: c.Video.DumpEvery, Err: errors.New("must not be negative")}
	}
	if c.Run.Frames == 0 && c.Video.Backend != string(graphics.BackendEbitengine) {
		return &ConfigError{Field: "run.frames", Value: 0, Err: errors.New("only a window can run until closed")}
	}

	if _, err := logrus.ParseLevel(c.Debug.LogLevel); err != nil {
		return &ConfigError{Field: "debug.log_level", Value: c.Debug.LogLevel, Err: err}
	}
	return nil
}

func validBackend(name string) bool {
	for _, b := range graphics.BackendTypes() {
		if string(b) == name {
			return true
		}
	}
	return false
}

// Revision returns the configured revision, or fallback when none is set.
func (c *Config) Revision(fallback ppu.Revision) (ppu.Revision, error) {
	if c.Core.Revision == "" {
		return fallback, nil
	}
	return ppu.ParseRevision(c.Core.Revision)
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() (logrus.Level, error) {
	return logrus.ParseLevel(c.Debug.LogLevel)
}

// GetWindowResolution returns the window resolution based on scale
func (c *Config) GetWindowResolution() (int, int) {
	return ppu.FrameWidth * c.Video.Scale, ppu.FrameHeight * c.Video.Scale
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return "./config/ppusim.yaml"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

// Unwrap lets errors.Is match both ErrInvalidConfig and the cause.
func (e *ConfigError) Unwrap() []error {
	return []error{ErrInvalidConfig, e.Err}
}
