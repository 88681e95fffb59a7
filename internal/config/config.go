// Package config loads the demo binary's configuration. It is the host
// half of the "no environment variables read by the core" split: the core
// packages (internal/frame, internal/resolution, internal/capture,
// internal/triage) only ever see structured CaptureOptions/TriageConfig
// values built from what this package loads.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the on-disk/env shape for cmd/deskwatch.
type Config struct {
	Display DisplayConfig `mapstructure:"display"`
	Capture CaptureConfig `mapstructure:"capture"`
	Triage  TriageConfig  `mapstructure:"triage"`
}

// DisplayConfig selects which monitor to capture.
type DisplayConfig struct {
	Index int `mapstructure:"index"`
}

// CaptureConfig mirrors the fields of capture.Options that a host typically
// wants to set from a file rather than construct in code.
type CaptureConfig struct {
	MaxWidth        int    `mapstructure:"max_width"`
	MaxHeight       int    `mapstructure:"max_height"`
	KeepAspectRatio bool   `mapstructure:"keep_aspect_ratio"`
	JPEGQuality     int    `mapstructure:"jpeg_quality"`
	IntervalMillis  int    `mapstructure:"interval_millis"`
	OutputDir       string `mapstructure:"output_dir"`
}

// TriageConfig mirrors triage.Config for file-driven tuning.
type TriageConfig struct {
	FrameDiffThreshold  float64 `mapstructure:"frame_diff_threshold"`
	MorphKernelSize     int     `mapstructure:"morph_kernel_size"`
	HistogramBins       int     `mapstructure:"histogram_bins"`
	ColorThreshold      float64 `mapstructure:"color_threshold"`
	OpticalFlowPoints   int     `mapstructure:"optical_flow_points"`
	MotionThreshold     float64 `mapstructure:"motion_threshold"`
	OverallThreshold    float64 `mapstructure:"overall_threshold"`
	EnableMotion        bool    `mapstructure:"enable_motion"`
	EnableDominantColor bool    `mapstructure:"enable_dominant_color"`
	EnableAdaptive      bool    `mapstructure:"enable_adaptive_threshold"`
}

// Load reads configPath (or the conventional search locations) into a
// Config, applying defaults and DESKWATCH_-prefixed environment overrides.
// When configPath is empty and no file is found in the search locations,
// defaults apply; an explicit configPath that cannot be read is an error.
func Load(configPath string) (*Config, error) {
	viper.SetConfigType("yaml")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("deskwatch")
		viper.AddConfigPath(".")
		home, _ := os.UserHomeDir()
		viper.AddConfigPath(filepath.Join(home, ".deskwatch"))
	}

	viper.SetDefault("display.index", 0)
	viper.SetDefault("capture.max_width", 1920)
	viper.SetDefault("capture.max_height", 1080)
	viper.SetDefault("capture.keep_aspect_ratio", true)
	viper.SetDefault("capture.jpeg_quality", 85)
	viper.SetDefault("capture.interval_millis", 33)
	viper.SetDefault("capture.output_dir", "")

	viper.SetDefault("triage.frame_diff_threshold", 0.05)
	viper.SetDefault("triage.morph_kernel_size", 5)
	viper.SetDefault("triage.histogram_bins", 32)
	viper.SetDefault("triage.color_threshold", 0.3)
	viper.SetDefault("triage.optical_flow_points", 100)
	viper.SetDefault("triage.motion_threshold", 0.1)
	viper.SetDefault("triage.overall_threshold", 0.3)
	viper.SetDefault("triage.enable_motion", true)
	viper.SetDefault("triage.enable_dominant_color", false)
	viper.SetDefault("triage.enable_adaptive_threshold", true)

	viper.AutomaticEnv()
	viper.SetEnvPrefix("DESKWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
