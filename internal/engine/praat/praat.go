// Package praat implements [engine.Engine] by shelling out to the Praat
// binary. Each manipulation context is realised as a generated Praat script
// executed with `praat --run`: the script loads the persisted waveform,
// builds a Manipulation object within the pitch-search band, applies any
// recorded tier replacements, performs overlap-add resynthesis, and saves
// the result next to the input.
package praat

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/prosodylab/revoice/internal/engine"
	"github.com/prosodylab/revoice/pkg/wavio"
)

// Compile-time check that *Engine satisfies [engine.Engine].
var _ engine.Engine = (*Engine)(nil)

// defaultBinary is the Praat executable looked up on PATH when no explicit
// binary is configured.
const defaultBinary = "praat"

// Engine launches Praat as a subprocess per resynthesis request.
//
// Engine is stateless and safe for concurrent use; every [Engine.Open] call
// returns an independent context bound to one audio file.
type Engine struct {
	binary  string
	timeout time.Duration
}

// Option configures an [Engine] during construction.
type Option func(*Engine)

// WithBinary overrides the Praat executable path. The default is "praat"
// resolved via PATH.
func WithBinary(path string) Option {
	return func(e *Engine) { e.binary = path }
}

// WithTimeout bounds each resynthesis subprocess run. Zero (the default)
// applies no limit beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// New constructs a Praat-backed engine.
func New(opts ...Option) *Engine {
	e := &Engine{binary: defaultBinary}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Open validates the band and the audio file and returns a fresh
// manipulation context. The actual analysis happens when the context is
// resynthesized; file and band problems detectable up front are surfaced
// here as [engine.ErrAnalysis].
func (e *Engine) Open(_ context.Context, audioPath string, band engine.Band) (engine.Manipulation, error) {
	if err := band.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("%w: audio %q: %v", engine.ErrAnalysis, audioPath, err)
	}
	return &manipulation{
		binary:    e.binary,
		timeout:   e.timeout,
		audioPath: audioPath,
		band:      band,
	}, nil
}

// manipulation is one pending Praat round-trip. Tier replacements are
// accumulated and baked into the script at resynthesis.
type manipulation struct {
	binary    string
	timeout   time.Duration
	audioPath string
	band      engine.Band

	durationTierPath string
	pitchTierPath    string
}

func (m *manipulation) ReplaceDurationTier(path string) { m.durationTierPath = path }

func (m *manipulation) ReplacePitchTier(path string) { m.pitchTierPath = path }

// Resynthesize generates the manipulation script, runs Praat, and decodes
// the WAV it produced. Praat failures are wrapped in [engine.ErrAnalysis]
// with a stderr excerpt, since by far the most common cause is an audio/band
// combination with no usable pitch track.
func (m *manipulation) Resynthesize(ctx context.Context) ([]float64, int, error) {
	dir := filepath.Dir(m.audioPath)
	outPath := filepath.Join(dir, "resynthesis.wav")
	scriptPath := filepath.Join(dir, "manipulate.praat")

	if err := os.WriteFile(scriptPath, []byte(m.script(outPath)), 0o644); err != nil {
		return nil, 0, fmt.Errorf("praat: write script: %w", err)
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, m.binary, "--no-pref-files", "--run", scriptPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, 0, fmt.Errorf("%w: %s: %v", engine.ErrAnalysis, msg, err)
		}
		return nil, 0, fmt.Errorf("%w: %v", engine.ErrAnalysis, err)
	}

	samples, sampleRate, err := wavio.Decode(outPath)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read resynthesis output: %v", engine.ErrAnalysis, err)
	}
	return samples, sampleRate, nil
}

// script renders the Praat manipulation script for the current context
// state. The analysis time step is fixed at [engine.AnalysisTimeStep].
func (m *manipulation) script(outPath string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "sound = Read from file: %s\n", quote(m.audioPath))
	fmt.Fprintf(&b, "selectObject: sound\n")
	fmt.Fprintf(&b, "manipulation = To Manipulation: %g, %g, %g\n",
		engine.AnalysisTimeStep, m.band.Fmin, m.band.Fmax)
	if m.durationTierPath != "" {
		fmt.Fprintf(&b, "tier = Read from file: %s\n", quote(m.durationTierPath))
		fmt.Fprintf(&b, "selectObject: tier, manipulation\n")
		fmt.Fprintf(&b, "Replace duration tier\n")
	}
	if m.pitchTierPath != "" {
		fmt.Fprintf(&b, "tier = Read from file: %s\n", quote(m.pitchTierPath))
		fmt.Fprintf(&b, "selectObject: tier, manipulation\n")
		fmt.Fprintf(&b, "Replace pitch tier\n")
	}
	fmt.Fprintf(&b, "selectObject: manipulation\n")
	fmt.Fprintf(&b, "resynthesis = Get resynthesis (overlap-add)\n")
	fmt.Fprintf(&b, "selectObject: resynthesis\n")
	fmt.Fprintf(&b, "Save as WAV file: %s\n", quote(outPath))
	return b.String()
}

// quote wraps a path in Praat string literal quotes, doubling any embedded
// quote characters per Praat's escaping rules.
func quote(path string) string {
	return `"` + strings.ReplaceAll(path, `"`, `""`) + `"`
}
