// Package engine defines the acoustic manipulation engine boundary of the
// vocoding pipeline.
//
// The engine is the external collaborator that performs the actual signal
// processing: it analyses a persisted waveform into a manipulation context
// restricted to a pitch-search band, accepts duration/pitch tier
// replacements on that context, and performs overlap-add resynthesis.
//
// The interface is intentionally narrow so the orchestration layer stays
// engine-agnostic and unit-testable: tests substitute the mock subpackage,
// production uses the praat subpackage.
package engine

import (
	"context"
	"errors"
	"fmt"
)

// AnalysisTimeStep is the fixed internal analysis time step, in seconds,
// used when building a manipulation context.
const AnalysisTimeStep = 1e-3

// ErrAnalysis is returned when the engine cannot build a usable manipulation
// context for the given audio and band — for example silence with no pitch
// track in range, an unreadable file, or an inverted band.
var ErrAnalysis = errors.New("engine: analysis failed")

// Band is the [Fmin, Fmax] pitch-search band in Hz that constrains the
// engine's pitch analysis.
type Band struct {
	Fmin float64
	Fmax float64
}

// DefaultBand is the pitch-search band used when the caller does not supply
// one. The bounds cover typical adult speech.
var DefaultBand = Band{Fmin: 40, Fmax: 500}

// Validate reports whether the band can drive a pitch analysis.
func (b Band) Validate() error {
	if b.Fmin <= 0 {
		return fmt.Errorf("%w: fmin %g must be positive", ErrAnalysis, b.Fmin)
	}
	if b.Fmin >= b.Fmax {
		return fmt.Errorf("%w: fmin %g must be below fmax %g", ErrAnalysis, b.Fmin, b.Fmax)
	}
	return nil
}

// Engine builds manipulation contexts from persisted waveforms.
//
// Each Open call derives a fresh context from the audio file as it exists on
// disk at that moment; contexts are single-use and never shared between
// invocations.
type Engine interface {
	// Open analyses the WAV file at audioPath within band and returns a
	// fresh manipulation context. Returns an error wrapping [ErrAnalysis]
	// when no usable pitch track can be found.
	Open(ctx context.Context, audioPath string, band Band) (Manipulation, error)
}

// Manipulation is one opened analysis context. Tier replacements are
// recorded on the context and take effect at resynthesis.
type Manipulation interface {
	// ReplaceDurationTier replaces the context's duration automation with
	// the tier file at path.
	ReplaceDurationTier(path string)

	// ReplacePitchTier replaces the context's pitch automation with the
	// tier file at path.
	ReplacePitchTier(path string)

	// Resynthesize performs overlap-add resynthesis from the current
	// context state and returns the resulting samples. This is the costly
	// call; the pipeline invokes it at most once per transformation stage.
	Resynthesize(ctx context.Context) (samples []float64, sampleRate int, err error)
}
