// Command revoice vocodes recorded speech: it re-synthesises utterances with
// time stretching driven by a phoneme alignment pair (or a constant factor)
// and/or pitch shifting driven by a target pitch contour.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prosodylab/revoice/internal/batch"
	"github.com/prosodylab/revoice/internal/config"
	"github.com/prosodylab/revoice/internal/engine"
	"github.com/prosodylab/revoice/internal/engine/praat"
	"github.com/prosodylab/revoice/internal/observe"
	"github.com/prosodylab/revoice/internal/vocoder"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	var (
		audioFiles   listFlag
		outputFiles  listFlag
		sourceAligns listFlag
		targetAligns listFlag
		targetPitch  listFlag
	)
	flag.Var(&audioFiles, "audio", "speech file to process (repeatable)")
	flag.Var(&outputFiles, "out", "where to save the vocoded audio (repeatable, one per -audio)")
	flag.Var(&sourceAligns, "source-align", "original alignment file (repeatable, one per -audio)")
	flag.Var(&targetAligns, "target-align", "target alignment file (repeatable, one per -audio)")
	flag.Var(&targetPitch, "target-pitch", "target pitch contour file (repeatable, one per -audio)")
	stretch := flag.Float64("stretch", 0, "constant time-stretch factor (>1 slows down; mutually exclusive with alignments)")
	fmin := flag.Float64("fmin", 0, "minimum allowable frequency in Hz (overrides config)")
	fmax := flag.Float64("fmax", 0, "maximum allowable frequency in Hz (overrides config)")
	workers := flag.Int("workers", 0, "number of items processed concurrently (overrides config)")
	configPath := flag.String("config", "", "path to an optional YAML configuration file")
	logLevel := flag.String("log-level", "", "log verbosity: debug, info, warn, error (overrides config)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "revoice: %v\n", err)
			return 1
		}
	}
	if *fmin != 0 {
		cfg.Band.Fmin = *fmin
	}
	if *fmax != 0 {
		cfg.Band.Fmax = *fmax
	}
	if *workers != 0 {
		cfg.Batch.Workers = *workers
	}
	if *logLevel != "" {
		cfg.LogLevel = config.LogLevel(*logLevel)
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "revoice: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	slog.SetDefault(newLogger(cfg.LogLevel))

	// ── Batch items ───────────────────────────────────────────────────────────
	items, err := batch.BuildItems(audioFiles, outputFiles, sourceAligns, targetAligns, targetPitch)
	if err != nil {
		slog.Error("invalid inputs", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "revoice"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	slog.Info("revoice starting",
		"items", len(items),
		"fmin", cfg.Band.Fmin,
		"fmax", cfg.Band.Fmax,
		"workers", cfg.Batch.Workers,
	)

	// ── Pipeline wiring ───────────────────────────────────────────────────────
	voc := vocoder.New(
		praat.New(
			praat.WithBinary(cfg.Engine.PraatPath),
			praat.WithTimeout(cfg.Engine.Timeout),
		),
		vocoder.WithBand(engine.Band{Fmin: cfg.Band.Fmin, Fmax: cfg.Band.Fmax}),
		vocoder.WithWorkspaceRoot(cfg.WorkspaceRoot),
	)

	runnerOpts := []batch.Option{batch.WithWorkers(cfg.Batch.Workers)}
	if *stretch != 0 {
		runnerOpts = append(runnerOpts, batch.WithConstantStretch(*stretch))
	}
	runner := batch.NewRunner(voc, runnerOpts...)

	if err := runner.Run(ctx, items); err != nil {
		slog.Error("batch failed", "err", err)
		return 1
	}

	slog.Info("batch complete", "items", len(items))
	return 0
}

// newLogger builds the default text logger at the configured level.
func newLogger(level config.LogLevel) *slog.Logger {
	var l slog.Level
	switch level {
	case config.LogDebug:
		l = slog.LevelDebug
	case config.LogWarn:
		l = slog.LevelWarn
	case config.LogError:
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// listFlag collects repeatable flag values; comma-separated values within a
// single occurrence are split.
type listFlag []string

func (f *listFlag) String() string { return strings.Join(*f, ",") }

func (f *listFlag) Set(value string) error {
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			*f = append(*f, v)
		}
	}
	return nil
}
