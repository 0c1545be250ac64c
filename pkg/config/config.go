// Package config provides configuration loading and management for tsg-xr.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Load parameters
	Load struct {
		// Spectra selects which spectral subset to convert, NIR or TIR
		Spectra string `yaml:"spectra"`

		// IndexCoord selects the primary index for the spectral array,
		// "sample" or "depth"
		IndexCoord string `yaml:"indexCoord"`

		// Image controls whether the high-resolution tray imagery is loaded
		Image bool `yaml:"image"`

		// SubsampleImage is the decimation stride for the imagery; the
		// default of 10 keeps 1% of all pixels
		SubsampleImage int `yaml:"subsampleImage"`
	} `yaml:"load"`

	// Output parameters
	Output struct {
		// Dir is the directory for the written stores; empty writes each
		// store beside its dataset
		Dir string `yaml:"dir"`

		// Workers is the number of datasets converted concurrently
		Workers int `yaml:"workers"`

		// Verbose controls the level of progress output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Load.Spectra = "NIR"
	cfg.Load.IndexCoord = "sample"
	cfg.Load.Image = false
	cfg.Load.SubsampleImage = 10

	cfg.Output.Dir = ""
	cfg.Output.Workers = runtime.NumCPU()
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
