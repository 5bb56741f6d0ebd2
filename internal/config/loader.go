package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied to unset fields. It is a convenience
// wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills fields a partial YAML document may have zeroed out.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.Band.Fmin == 0 && cfg.Band.Fmax == 0 {
		cfg.Band = def.Band
	}
	if cfg.Engine.PraatPath == "" {
		cfg.Engine.PraatPath = def.Engine.PraatPath
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.Band.Fmin <= 0 {
		errs = append(errs, fmt.Errorf("band.fmin %g must be positive", cfg.Band.Fmin))
	}
	if cfg.Band.Fmin >= cfg.Band.Fmax {
		errs = append(errs, fmt.Errorf("band.fmin %g must be below band.fmax %g", cfg.Band.Fmin, cfg.Band.Fmax))
	}
	if cfg.Band.Fmax > 2000 {
		slog.Warn("band.fmax is far above the speech fundamental range; pitch analysis may pick up harmonics",
			"fmax", cfg.Band.Fmax,
		)
	}

	if cfg.Engine.Timeout < 0 {
		errs = append(errs, fmt.Errorf("engine.timeout %s must not be negative", cfg.Engine.Timeout))
	}

	if cfg.Batch.Workers < 0 {
		errs = append(errs, fmt.Errorf("batch.workers %d must not be negative", cfg.Batch.Workers))
	}

	return errors.Join(errs...)
}
