// Package tier builds piecewise-constant rate curves and serialises them,
// along with pitch contours, into the text tier formats consumed by the
// acoustic manipulation engine.
//
// The two serialisers reproduce the engine's tier grammar exactly — header
// lines, fixed six-decimal formatting in the duration tier, and 1-based
// point indexing are all correctness requirements, not cosmetics.
package tier

import (
	"errors"
	"fmt"

	"github.com/prosodylab/revoice/pkg/align"
)

// RateFloor is the hard lower bound applied to every segment rate. Rates
// below it would produce degenerate or invalid automation curves downstream.
const RateFloor = 0.0625

// ErrShapeMismatch is returned when boundary and rate counts disagree, or a
// contour is empty.
var ErrShapeMismatch = errors.New("tier: shape mismatch")

// RateCurve is a piecewise-constant target-speed curve over time: one rate
// per inter-boundary segment, with rate 1.0 meaning unchanged playback.
//
// Invariant: len(Times) == len(Rates)+1, Times non-decreasing, every rate
// at least [RateFloor].
type RateCurve struct {
	// Times holds the segment boundaries in seconds, starting at the first
	// phone start and ending at the utterance end.
	Times []float64

	// Rates holds one speed multiplier per segment.
	Rates []float64
}

// End returns the final boundary time.
func (c RateCurve) End() float64 { return c.Times[len(c.Times)-1] }

// ConstantRateCurve builds the rate curve for a uniform time stretch of the
// whole utterance. A stretch factor above 1 slows playback down, so the
// engine rate is its reciprocal.
func ConstantRateCurve(stretch, duration float64) (RateCurve, error) {
	if stretch <= 0 {
		return RateCurve{}, fmt.Errorf("tier: stretch factor %g must be positive", stretch)
	}
	if duration <= 0 {
		return RateCurve{}, fmt.Errorf("tier: duration %g must be positive", duration)
	}
	return RateCurve{
		Times: []float64{0, duration},
		Rates: []float64{clampRate(1 / stretch)},
	}, nil
}

// AlignmentRateCurve builds the rate curve for per-phone time stretching:
// boundaries are the source alignment's phone start times plus its timeline
// end, and rates is the externally computed per-phone speed sequence (see
// [align.PerPhoneRates]). Rates below [RateFloor] are raised to it.
func AlignmentRateCurve(source align.Alignment, rates []float64) (RateCurve, error) {
	if len(rates) != len(source.Phones) {
		return RateCurve{}, fmt.Errorf("%w: %d phones but %d rates", ErrShapeMismatch, len(source.Phones), len(rates))
	}
	times := append(source.Starts(), source.End)
	clamped := make([]float64, len(rates))
	for i, r := range rates {
		clamped[i] = clampRate(r)
	}
	return RateCurve{Times: times, Rates: clamped}, nil
}

func clampRate(r float64) float64 {
	if r < RateFloor {
		return RateFloor
	}
	return r
}

func (c RateCurve) validate() error {
	if len(c.Times) < 2 {
		return fmt.Errorf("%w: need at least 2 boundaries, have %d", ErrShapeMismatch, len(c.Times))
	}
	if len(c.Rates) != len(c.Times)-1 {
		return fmt.Errorf("%w: %d boundaries require %d rates, have %d",
			ErrShapeMismatch, len(c.Times), len(c.Times)-1, len(c.Rates))
	}
	for i := 1; i < len(c.Times); i++ {
		if c.Times[i] < c.Times[i-1] {
			return fmt.Errorf("tier: boundary %d at %g precedes boundary %d at %g",
				i, c.Times[i], i-1, c.Times[i-1])
		}
	}
	return nil
}
