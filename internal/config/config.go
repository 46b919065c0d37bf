// Package config loads labkit command configuration from YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/born-ml/labkit/internal/logging"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the configuration of the segment command.
//
// Example file:
//
//	workers: 8
//	cell_size: [128, 128]
//	show_progress: true
//	threshold: 100
//	log:
//	  level: debug
//	  format: json
type Config struct {
	Workers      int       `yaml:"workers"`
	CellSize     []int     `yaml:"cell_size"`
	ShowProgress bool      `yaml:"show_progress"`
	Threshold    uint8     `yaml:"threshold"`
	Log          LogConfig `yaml:"log"`
}

// LogConfig selects the logger level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Workers:   runtime.NumCPU(),
		CellSize:  []int{64, 64},
		Threshold: 128,
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}

// Load reads a YAML file on top of the defaults and validates the result.
// Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the segment command cannot use.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be > 0, got %d", c.Workers)
	}
	if len(c.CellSize) == 0 {
		return errors.New("cell_size must not be empty")
	}
	for d, s := range c.CellSize {
		if s <= 0 {
			return fmt.Errorf("cell_size[%d] must be > 0, got %d", d, s)
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("log.format must be %q or %q, got %q", logging.FormatText, logging.FormatJSON, c.Log.Format)
	}
	return nil
}
