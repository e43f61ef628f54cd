// internal/config/config.go
package config

import (
	"gopkg.in/yaml.v3"
	"os"
)

type Config struct {
	// RenderDPI is the resolution pages are displayed at.
	RenderDPI float64 `yaml:"render_dpi"`
	// ExportDPI is the default resolution for exported crops.
	ExportDPI float64 `yaml:"export_dpi"`
	// MinDragPixels separates a click from a rubber-band drag.
	MinDragPixels float64 `yaml:"min_drag_pixels"`
	// SeparatorMargin is the pixel gap between group members in merged
	// output.
	SeparatorMargin int    `yaml:"separator_margin"`
	OutputDir       string `yaml:"output_dir"`
}

func Default() *Config {
	return &Config{
		RenderDPI:       150,
		ExportDPI:       150,
		MinDragPixels:   4,
		SeparatorMargin: 12,
		OutputDir:       "exports",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.RenderDPI <= 0 {
		cfg.RenderDPI = 150
	}
	if cfg.ExportDPI <= 0 {
		cfg.ExportDPI = cfg.RenderDPI
	}
	if cfg.MinDragPixels <= 0 {
		cfg.MinDragPixels = 4
	}
	if cfg.SeparatorMargin < 0 {
		cfg.SeparatorMargin = 12
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "exports"
	}

	return &cfg, nil
}
