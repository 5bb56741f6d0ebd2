// Package contour provides the frame-rate pitch contour data model: one
// fundamental frequency estimate per fixed-size analysis frame, with NaN
// marking unvoiced frames.
//
// The pipeline treats a contour as an immutable caller-owned input; use
// [Pitch.Clone] before any in-place normalisation.
package contour

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Pitch is a per-frame fundamental frequency contour in Hz.
//
// The frame period is implied: frame i of F frames over an utterance of
// duration D seconds sits at time i·D/(F−1). An unvoiced frame is stored as
// NaN; voiced values are finite and positive.
type Pitch struct {
	// Values holds one frequency per frame; NaN marks an unvoiced frame.
	Values []float64
}

// Frames returns the number of analysis frames.
func (p Pitch) Frames() int { return len(p.Values) }

// Voiced reports whether frame i carries a defined frequency estimate.
func (p Pitch) Voiced(i int) bool { return !math.IsNaN(p.Values[i]) }

// VoicedCount returns the number of voiced frames.
func (p Pitch) VoicedCount() int {
	n := 0
	for _, v := range p.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so callers' contours are never mutated in place.
func (p Pitch) Clone() Pitch {
	values := make([]float64, len(p.Values))
	copy(values, p.Values)
	return Pitch{Values: values}
}

// Load reads a pitch contour from a text file with one frame per line: a
// frequency in Hz, or an empty line / the literal "nan" for an unvoiced
// frame. Lines starting with '#' are ignored.
func Load(path string) (Pitch, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pitch{}, fmt.Errorf("contour: open %q: %w", path, err)
	}
	defer f.Close()

	var values []float64
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(text, "#") {
			continue
		}
		if text == "" || strings.EqualFold(text, "nan") {
			values = append(values, math.NaN())
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Pitch{}, fmt.Errorf("contour: %q line %d: %w", path, line, err)
		}
		if v <= 0 {
			return Pitch{}, fmt.Errorf("contour: %q line %d: voiced frequency %g must be positive", path, line, v)
		}
		values = append(values, v)
	}
	if err := sc.Err(); err != nil {
		return Pitch{}, fmt.Errorf("contour: read %q: %w", path, err)
	}
	if len(values) == 0 {
		return Pitch{}, fmt.Errorf("contour: %q contains no frames", path)
	}
	return Pitch{Values: values}, nil
}
