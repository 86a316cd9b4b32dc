// Package config defines the converter configuration and a YAML loader
// with environment variable substitution. All commands share one
// ConverterConfig; flags override the file-loaded values.
package config

import (
	"github.com/ajitpratap0/genoconv/pkg/genoerrors"
)

// Mode names for configuration; validated against the processing modes
// the converter supports.
const (
	ModeAuto     = "auto"
	ModeStandard = "standard"
	ModeChunked  = "chunked"
)

// ConverterConfig is the configuration for a conversion run.
type ConverterConfig struct {
	// InputDir is the root directory searched recursively for .bed filesets.
	InputDir string `yaml:"input_dir" json:"input_dir"`
	// OutputDir receives converted stores, mirroring the input tree.
	// Defaults to InputDir.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Mode selects processing: auto (memory-based), standard, or chunked.
	Mode string `yaml:"mode" json:"mode"`
	// MemoryUsageGB is the target memory for chunk sizing when chunking.
	MemoryUsageGB float64 `yaml:"memory_usage_gb" json:"memory_usage_gb"`
	// ChunkSize fixes the number of samples per chunk; 0 means computed
	// from the memory target.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// Compression selects the store codec: zstd, gzip, lz4, or none.
	Compression string `yaml:"compression" json:"compression"`

	// Verify runs a structural check on each produced store.
	Verify bool `yaml:"verify" json:"verify"`

	// LogLevel sets logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// NewConverterConfig returns a config with the converter defaults.
func NewConverterConfig() *ConverterConfig {
	return &ConverterConfig{
		Mode:          ModeAuto,
		MemoryUsageGB: 2.0,
		Compression:   "zstd",
		Verify:        true,
		LogLevel:      "info",
	}
}

// Validate checks the configuration for internally inconsistent or
// out-of-range values.
func (c *ConverterConfig) Validate() error {
	if c.InputDir == "" {
		return genoerrors.New(genoerrors.ErrorTypeConfig, "input_dir is required")
	}
	if c.OutputDir == "" {
		c.OutputDir = c.InputDir
	}
	switch c.Mode {
	case ModeAuto, ModeStandard, ModeChunked:
	default:
		return genoerrors.Newf(genoerrors.ErrorTypeConfig, "unknown mode %q", c.Mode).
			WithDetail("allowed", []string{ModeAuto, ModeStandard, ModeChunked})
	}
	if c.MemoryUsageGB <= 0 {
		return genoerrors.Newf(genoerrors.ErrorTypeConfig,
			"memory_usage_gb must be positive, got %.2f", c.MemoryUsageGB)
	}
	if c.ChunkSize < 0 {
		return genoerrors.Newf(genoerrors.ErrorTypeConfig,
			"chunk_size must be non-negative, got %d", c.ChunkSize)
	}
	switch c.Compression {
	case "zstd", "gzip", "lz4", "none":
	default:
		return genoerrors.Newf(genoerrors.ErrorTypeConfig,
			"unknown compression %q", c.Compression)
	}
	return nil
}
