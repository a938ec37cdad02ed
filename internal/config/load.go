package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "AvatarSentry")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "AvatarSentry")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "avatar-sentry")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "avatar-sentry")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks values the viewer cannot recover from at runtime.
func (c *Config) Validate() error {
	if c.Graphics.Width <= 0 || c.Graphics.Height <= 0 {
		return fmt.Errorf("graphics: invalid size %dx%d", c.Graphics.Width, c.Graphics.Height)
	}
	if c.Audio.MasterVolume < 0 || c.Audio.MasterVolume > 1 {
		return fmt.Errorf("audio: master_volume %.2f out of range [0,1]", c.Audio.MasterVolume)
	}
	if c.Viewer.FieldOfView <= 0 || c.Viewer.FieldOfView >= 180 {
		return fmt.Errorf("viewer: field_of_view %.1f out of range (0,180)", c.Viewer.FieldOfView)
	}
	if b := c.Viewer.BackgroundOptions.Blur; b < 0 || b > 1 {
		return fmt.Errorf("viewer: background blur %.2f out of range [0,1]", b)
	}
	return nil
}
