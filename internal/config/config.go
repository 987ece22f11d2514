// Package config holds Charlotte's process configuration: browser launch
// options, snapshot retention, and logging, loaded from defaults, an
// optional YAML file, and CLI flags, in that precedence order (each later
// source overrides the former). An optional .env file is loaded into the
// process environment, but no Config field is read from the environment.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Viewport is the browser's initial viewport size.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DefaultViewport mirrors the renderer pipeline's own fallback so a
// misconfigured launch still matches what render() reports.
func DefaultViewport() Viewport {
	return Viewport{Width: 1280, Height: 720}
}

// Config holds Charlotte's full process configuration.
type Config struct {
	// Headless runs the browser without a visible window.
	Headless bool `yaml:"headless"`

	// Debug enables verbose (debug-level) logging.
	Debug bool `yaml:"debug"`

	// ProfileName names a persistent browser profile directory under
	// ProfileDir. Empty uses a temporary profile removed on close.
	ProfileName string `yaml:"profile_name"`

	// ProfileDir is the parent directory for named profiles.
	ProfileDir string `yaml:"profile_dir"`

	// Viewport sets the browser viewport.
	Viewport Viewport `yaml:"viewport"`

	// SnapshotDepth is the ring buffer capacity, clamped to [5, 500].
	SnapshotDepth int `yaml:"snapshot_depth"`

	// ScreenshotDir is where annotated screenshots are written.
	ScreenshotDir string `yaml:"screenshot_dir"`

	// MaxScreenshots bounds the screenshot store's retained file count
	// (FIFO eviction), independent of SnapshotDepth.
	MaxScreenshots int `yaml:"max_screenshots"`
}

// applyDefaults fills in zero-valued fields.
func (c *Config) applyDefaults() {
	if c.ProfileDir == "" {
		home, _ := os.UserHomeDir()
		c.ProfileDir = filepath.Join(home, ".charlotte", "profiles")
	}
	if c.Viewport == (Viewport{}) {
		c.Viewport = DefaultViewport()
	}
	if c.SnapshotDepth == 0 {
		c.SnapshotDepth = 50
	}
	if c.SnapshotDepth < 5 {
		c.SnapshotDepth = 5
	}
	if c.SnapshotDepth > 500 {
		c.SnapshotDepth = 500
	}
	if c.ScreenshotDir == "" {
		c.ScreenshotDir = filepath.Join(os.TempDir(), "charlotte-screenshots")
	}
	if c.MaxScreenshots == 0 {
		c.MaxScreenshots = 100
	}
}

// Load builds a Config from, in increasing precedence: built-in defaults,
// an optional YAML file at yamlPath (ignored if empty or absent), and CLI
// flags parsed from args. An optional .env file in the working directory is
// loaded into the process environment; no Config field is read from it.
func Load(yamlPath string, args []string) (*Config, error) {
	cfg := &Config{}

	if yamlPath != "" {
		if err := loadYAML(yamlPath, cfg); err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load() // optional; absence is not an error

	if err := applyFlags(cfg, args); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func applyFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("charlotte", flag.ContinueOnError)
	headless := fs.Bool("headless", cfg.Headless, "run the browser headless")
	debug := fs.Bool("debug", cfg.Debug, "enable debug logging")
	profileName := fs.String("profile", cfg.ProfileName, "named browser profile")
	profileDir := fs.String("profile-dir", cfg.ProfileDir, "profile storage directory")
	snapshotDepth := fs.Int("snapshot-depth", cfg.SnapshotDepth, "snapshot ring buffer depth (5-500)")
	screenshotDir := fs.String("screenshot-dir", cfg.ScreenshotDir, "screenshot output directory")
	viewportW := fs.Int("viewport-width", cfg.Viewport.Width, "browser viewport width")
	viewportH := fs.Int("viewport-height", cfg.Viewport.Height, "browser viewport height")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.Headless = *headless
	cfg.Debug = *debug
	cfg.ProfileName = *profileName
	cfg.ProfileDir = *profileDir
	cfg.SnapshotDepth = *snapshotDepth
	cfg.ScreenshotDir = *screenshotDir
	if *viewportW > 0 && *viewportH > 0 {
		cfg.Viewport = Viewport{Width: *viewportW, Height: *viewportH}
	}
	return nil
}
