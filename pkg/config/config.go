// Package config provides configuration loading and management for
// canopycover. It handles loading configuration from YAML files and provides
// default values matching the recommendations for digital cover photography.
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
	// Processing parameters
	Processing struct {
		// ExtinctionCoefficient is the extinction coefficient k of the
		// Beer-Lambert inversion. The default of 0.5 corresponds to a
		// spherical leaf angle distribution.
		ExtinctionCoefficient float64 `yaml:"extinctionCoefficient"`

		// ExtinctionUncertainty is the standard uncertainty of the
		// extinction coefficient, propagated into the derived indices
		ExtinctionUncertainty float64 `yaml:"extinctionUncertainty"`

		// DownsampleFactor is the integer block-mean reduction factor
		// applied to each image before classification
		DownsampleFactor int `yaml:"downsampleFactor"`

		// ViewZenithDegrees is the view zenith angle of the camera.
		// Cover photography is acquired at nadir or zenith, so 0.
		ViewZenithDegrees float64 `yaml:"viewZenithDegrees"`

		// NumWorkers specifies how many images are classified concurrently
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"processing"`

	// Input parameters
	Input struct {
		// PreProcessRAW applies a gamma denormalization to 16-bit
		// camera-linear input frames before classification
		PreProcessRAW bool `yaml:"preProcessRaw"`
	} `yaml:"input"`

	// Output parameters
	Output struct {
		// SaveBinaryMasks writes each classified mask as an 8-bit PNG
		// next to its source image, for quality control
		SaveBinaryMasks bool `yaml:"saveBinaryMasks"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.ExtinctionCoefficient = 0.5
	cfg.Processing.ExtinctionUncertainty = 0.2
	cfg.Processing.DownsampleFactor = 3
	cfg.Processing.ViewZenithDegrees = 0
	cfg.Processing.NumWorkers = runtime.NumCPU()

	// Set default input parameters
	cfg.Input.PreProcessRAW = true

	// Set default output parameters
	cfg.Output.SaveBinaryMasks = false
	cfg.Output.Verbose = true

	return cfg
}

// Validate checks the configuration for values the pipeline cannot work with
func (c *Config) Validate() error {
	if c.Processing.ExtinctionCoefficient <= 0 {
		return fmt.Errorf("extinction coefficient must be positive, got %g",
			c.Processing.ExtinctionCoefficient)
	}
	if c.Processing.ExtinctionUncertainty < 0 {
		return fmt.Errorf("extinction coefficient uncertainty must be non-negative, got %g",
			c.Processing.ExtinctionUncertainty)
	}
	if c.Processing.DownsampleFactor < 1 {
		return fmt.Errorf("downsample factor must be a positive integer, got %d",
			c.Processing.DownsampleFactor)
	}
	if c.Processing.ViewZenithDegrees < 0 || c.Processing.ViewZenithDegrees >= 90 {
		return fmt.Errorf("view zenith angle must be in [0, 90) degrees, got %g",
			c.Processing.ViewZenithDegrees)
	}
	if c.Processing.NumWorkers < 1 {
		return fmt.Errorf("number of workers must be at least 1, got %d",
			c.Processing.NumWorkers)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
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
