// Package config reads and writes the user configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

// MIDIConfig selects the MIDI output and the channel each sequencer plays
// on. Channels are 1-based as printed on synths; zero mutes a sequencer.
type MIDIConfig struct {
	Output   string `yaml:"output,omitempty"`
	Melodic  uint8  `yaml:"melodic"`
	Sample   uint8  `yaml:"sample"`
	Drum     uint8  `yaml:"drum"`
	Velocity bool   `yaml:"velocity"` // send note velocities, else full velocity
}

// Config is the main configuration structure
type Config struct {
	DataDir     string     `yaml:"data_dir,omitempty"`
	BPM         float64    `yaml:"bpm,omitempty"` // default tempo of new projects
	MIDI        MIDIConfig `yaml:"midi"`
	ExportName  string     `yaml:"export_name,omitempty"`
	SyncAddress string     `yaml:"sync_address,omitempty"`
	LogLevel    string     `yaml:"log_level,omitempty"`
}

// Default returns a config with sensible defaults
func Default() *Config {
	return &Config{
		BPM: 120,
		MIDI: MIDIConfig{
			Melodic:  1,
			Sample:   2,
			Drum:     10,
			Velocity: true,
		},
		LogLevel: "info",
	}
}

// Dir returns the config directory path
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "kmusic"), nil
}

// Path returns the full path to config.yml
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yml"), nil
}

// Load reads the config from path. A missing file gives the defaults;
// fields missing from the file keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the ranges of the fields.
func (c *Config) Validate() error {
	if c.BPM < 0 {
		return fmt.Errorf("bpm should be > 0, got %v", c.BPM)
	}
	for name, ch := range map[string]uint8{"melodic": c.MIDI.Melodic, "sample": c.MIDI.Sample, "drum": c.MIDI.Drum} {
		if ch > 16 {
			return fmt.Errorf("midi %s channel should be 0..16, got %d", name, ch)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// ResolveDataDir returns the directory projects are stored in, defaulting
// to a directory next to the config file.
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// Level parses LogLevel. An empty level means info.
func (c *Config) Level() (log.Level, error) {
	if c.LogLevel == "" {
		return log.InfoLevel, nil
	}
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}
