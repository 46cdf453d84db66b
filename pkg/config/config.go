// Package config provides configuration loading for the barcode caller.
// It handles loading parameters from YAML files and provides tuned defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the pipeline configuration loaded from YAML.
type Config struct {
	// Registration parameters
	Registration struct {
		// Method selects the keypoint detector: "brisk" or "orb".
		// BRISK finds denser keypoints on fluorescence images; ORB tends
		// to starve the matcher on this image class.
		Method string `yaml:"method"`

		// BlurKernel is the Gaussian pre-blur kernel size (odd).
		BlurKernel int `yaml:"blurKernel"`

		// GradientKernel is the cross-shaped structuring element size for
		// the morphological gradient.
		GradientKernel int `yaml:"gradientKernel"`

		// GradientIterations is how many gradient passes to apply.
		GradientIterations int `yaml:"gradientIterations"`

		// RANSACIterations bounds the robust estimator sampling loop.
		RANSACIterations int `yaml:"ransacIterations"`

		// InlierThreshold is the max re-projection distance (pixels) for a
		// match to count as an inlier.
		InlierThreshold float64 `yaml:"inlierThreshold"`
	} `yaml:"registration"`

	// Consensus parameters
	Consensus struct {
		// FootprintSize is the side of the square footprint each candidate
		// coordinate stamps on the dedup canvas.
		FootprintSize int `yaml:"footprintSize"`

		// WindowLow and WindowHigh bound the adjuster search window around a
		// consensus coordinate: [r-WindowLow, r+WindowHigh) on each axis.
		WindowLow  int `yaml:"windowLow"`
		WindowHigh int `yaml:"windowHigh"`
	} `yaml:"consensus"`

	// Import parameters
	Import struct {
		// ForegroundWeight and BackgroundWeight blend the merged base
		// channels with the background channel for registration input.
		ForegroundWeight float64 `yaml:"foregroundWeight"`
		BackgroundWeight float64 `yaml:"backgroundWeight"`

		// StdForegroundWeight and StdBackgroundWeight blend the standard
		// image emitted from the first cycle.
		StdForegroundWeight float64 `yaml:"stdForegroundWeight"`
		StdBackgroundWeight float64 `yaml:"stdBackgroundWeight"`
	} `yaml:"import"`

	// Output parameters
	Output struct {
		// Verbose enables per-cycle progress logging.
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	cfg := &Config{}

	cfg.Registration.Method = "brisk"
	cfg.Registration.BlurKernel = 3
	cfg.Registration.GradientKernel = 15
	cfg.Registration.GradientIterations = 3
	cfg.Registration.RANSACIterations = 2000
	cfg.Registration.InlierThreshold = 3.0

	cfg.Consensus.FootprintSize = 2
	cfg.Consensus.WindowLow = 5
	cfg.Consensus.WindowHigh = 7

	cfg.Import.ForegroundWeight = 0.7
	cfg.Import.BackgroundWeight = 0.3
	cfg.Import.StdForegroundWeight = 0.8
	cfg.Import.StdBackgroundWeight = 0.6

	cfg.Output.Verbose = false

	return cfg
}

// Load reads a YAML configuration file, applying defaults for absent fields.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks parameter ranges that would otherwise fail deep inside the
// pipeline.
func (c *Config) Validate() error {
	if c.Registration.Method != "brisk" && c.Registration.Method != "orb" {
		return fmt.Errorf("unknown registration method %q", c.Registration.Method)
	}
	if c.Registration.BlurKernel%2 == 0 || c.Registration.BlurKernel < 1 {
		return fmt.Errorf("blurKernel must be odd and positive, got %d", c.Registration.BlurKernel)
	}
	if c.Registration.GradientKernel < 1 || c.Registration.GradientIterations < 1 {
		return fmt.Errorf("invalid gradient parameters %d/%d",
			c.Registration.GradientKernel, c.Registration.GradientIterations)
	}
	if c.Consensus.FootprintSize < 1 {
		return fmt.Errorf("footprintSize must be positive, got %d", c.Consensus.FootprintSize)
	}
	if c.Consensus.WindowLow < 0 || c.Consensus.WindowHigh <= -c.Consensus.WindowLow {
		return fmt.Errorf("empty consensus window [-%d, +%d)", c.Consensus.WindowLow, c.Consensus.WindowHigh)
	}
	return nil
}
