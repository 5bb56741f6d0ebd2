// Package config provides the configuration schema and loader for the
// revoice vocoding utility.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for revoice.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader];
// CLI flags override individual fields afterwards.
type Config struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// WorkspaceRoot is the directory under which per-invocation scratch
	// workspaces are created. Empty selects the system temp directory.
	WorkspaceRoot string `yaml:"workspace_root"`

	// Band is the pitch-search band passed to the manipulation engine.
	Band BandConfig `yaml:"band"`

	// Engine configures the external manipulation engine binary.
	Engine EngineConfig `yaml:"engine"`

	// Batch configures batch processing behaviour.
	Batch BatchConfig `yaml:"batch"`
}

// BandConfig is the [fmin, fmax] pitch-search band in Hz.
type BandConfig struct {
	// Fmin is the minimum allowable frequency in Hz. Default: 40.
	Fmin float64 `yaml:"fmin"`

	// Fmax is the maximum allowable frequency in Hz. Default: 500.
	Fmax float64 `yaml:"fmax"`
}

// EngineConfig configures the Praat subprocess engine.
type EngineConfig struct {
	// PraatPath is the Praat executable. Default: "praat" resolved via PATH.
	PraatPath string `yaml:"praat_path"`

	// Timeout bounds a single resynthesis subprocess run. Zero means no
	// limit beyond the invocation context.
	Timeout time.Duration `yaml:"timeout"`
}

// BatchConfig configures the batch driver.
type BatchConfig struct {
	// Workers is the number of items processed concurrently. 0 or 1 means
	// sequential processing.
	Workers int `yaml:"workers"`
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Band:     BandConfig{Fmin: 40, Fmax: 500},
		Engine:   EngineConfig{PraatPath: "praat"},
	}
}
