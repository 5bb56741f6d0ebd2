package tier

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/prosodylab/revoice/pkg/contour"
)

// eps is the offset in seconds between the two coincident-but-ordered points
// that bracket each flat segment of the duration tier. Small enough to read
// as an instantaneous step, large enough to keep point times strictly
// increasing in the engine's parser.
const eps = 1e-6

// EncodeDurationTier serialises c into the engine's duration tier text
// format. For N boundaries the tier has exactly 2N points: an identity
// anchor at time 0, two points per segment offset by ±[eps] to form a
// near-discontinuous step, and an identity anchor at the final boundary.
func EncodeDurationTier(w io.Writer, c RateCurve) error {
	if err := c.validate(); err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "File type = \"ooTextFile\"\nObject class = \"DurationTier\"\n\n")
	fmt.Fprintf(bw, "xmin = 0.000000\nxmax = %.6f\npoints: size = %d\n", c.End(), 2*len(c.Times))

	// Playback starts at the original rate.
	fmt.Fprintf(bw, "points [1]:\n\tnumber = 0\n\tvalue = 1.000000\n")

	for i, rate := range c.Rates {
		start, end := c.Times[i], c.Times[i+1]
		fmt.Fprintf(bw, "points [%d]:\n\tnumber = %.6f\n\tvalue = %.6f\n", 2*i+2, start+eps, rate)
		fmt.Fprintf(bw, "points [%d]:\n\tnumber = %.6f\n\tvalue = %.6f\n", 2*i+3, end-eps, rate)
	}

	// Playback ends at the original rate.
	fmt.Fprintf(bw, "points [%d]:\n\tnumber = %.6f\n\tvalue = 1.000000\n", 2*len(c.Times), c.End())

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("tier: write duration tier: %w", err)
	}
	return nil
}

// EncodePitchTier serialises p into the engine's short pitch tier text
// format for an utterance of the given duration in seconds. Frame times are
// spread uniformly over [0, duration]; only voiced frames are emitted, so
// the declared point count equals the voiced frame count. Unvoiced frames
// are omitted entirely — voicing is decided on the contour's original
// missingness, never on a zero sentinel.
func EncodePitchTier(w io.Writer, p contour.Pitch, duration float64) error {
	if p.Frames() == 0 {
		return fmt.Errorf("%w: pitch contour has no frames", ErrShapeMismatch)
	}
	if duration <= 0 {
		return fmt.Errorf("tier: duration %g must be positive", duration)
	}

	times := make([]float64, p.Frames())
	if p.Frames() == 1 {
		times[0] = 0
	} else {
		floats.Span(times, 0, duration)
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "File type = \"ooTextFile\"\nObject class = \"PitchTier\"\n\n")
	fmt.Fprintf(bw, "0\n%s\n%d\n", formatShort(duration), p.VoicedCount())

	for i, v := range p.Values {
		if math.IsNaN(v) {
			continue
		}
		fmt.Fprintf(bw, "%s\n%s\n", formatShort(times[i]), formatShort(v))
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("tier: write pitch tier: %w", err)
	}
	return nil
}

// formatShort renders a float with the shortest representation that
// round-trips, matching the engine's tolerant short-format number grammar.
func formatShort(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteDurationTier writes the duration tier for c to path atomically: the
// tier is encoded to a temporary sibling and renamed into place, so a failed
// write never leaves a file the engine would parse as valid.
func WriteDurationTier(path string, c RateCurve) error {
	return writeAtomic(path, func(w io.Writer) error {
		return EncodeDurationTier(w, c)
	})
}

// WritePitchTier writes the pitch tier for p to path atomically.
func WritePitchTier(path string, p contour.Pitch, duration float64) error {
	return writeAtomic(path, func(w io.Writer) error {
		return EncodePitchTier(w, p, duration)
	})
}

func writeAtomic(path string, encode func(io.Writer) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("tier: create %q: %w", tmp, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("tier: close %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("tier: rename %q: %w", path, err)
	}
	return nil
}
