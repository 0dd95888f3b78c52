// Package config holds the billdiff configuration, layered from
// defaults, an optional YAML config file and command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Input modes. Paste mode serves an empty UI and waits for the user to
// submit texts or URLs through the page.
const (
	ModePaste = "paste"
	ModeFiles = "files"
	ModeURLs  = "urls"
)

// UserConfigPath is the default config file location, relative to the
// user's home directory.
const UserConfigPath = ".config/billdiff/config.yaml"

// Config is the resolved runtime configuration.
type Config struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Granularity string        `yaml:"granularity"` // "word" or "line"
	View        string        `yaml:"view"`        // "inline" or "split"
	Timeout     time.Duration `yaml:"timeout"`     // per outbound fetch
	FetchRate   float64       `yaml:"fetch_rate"`  // outbound requests per second
	NoOpen      bool          `yaml:"no_open"`
	Verbose     bool          `yaml:"verbose"`

	// Runtime state resolved from positional arguments, never from the
	// config file.
	Mode     string `yaml:"-"`
	Original string `yaml:"-"` // file path or URL
	Amended  string `yaml:"-"` // file path or URL
	Watch    bool   `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:        "localhost",
		Port:        0, // auto-select
		Granularity: "word",
		View:        "inline",
		Timeout:     30 * time.Second,
		FetchRate:   1,
		Mode:        ModePaste,
	}
}

// LoadFile reads a YAML config file into cfg, overriding any fields the
// file sets. Unknown keys are rejected so typos surface at startup.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// LoadUserFile loads the per-user config file if it exists. A missing
// file is not an error.
func LoadUserFile(cfg *Config) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil // no home dir, no user config
	}
	path := filepath.Join(home, UserConfigPath)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return LoadFile(path, cfg)
}

// Validate checks the configuration for values the rest of the program
// assumes are already sane.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 0-65535)", c.Port)
	}
	if c.Granularity != "word" && c.Granularity != "line" {
		return fmt.Errorf("invalid granularity %q: must be word or line", c.Granularity)
	}
	if c.View != "inline" && c.View != "split" {
		return fmt.Errorf("invalid view %q: must be inline or split", c.View)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s: must be positive", c.Timeout)
	}
	if c.FetchRate <= 0 {
		return fmt.Errorf("invalid fetch_rate %v: must be positive", c.FetchRate)
	}
	return nil
}
