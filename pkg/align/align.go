// Package align provides the phoneme alignment data model consumed by the
// vocoding pipeline: an ordered sequence of labelled phone intervals covering
// one utterance, plus the per-phone rate comparison between a source and a
// target alignment.
//
// Alignments are immutable inputs — the pipeline never mutates a loaded
// alignment in place.
package align

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Phone is a single labelled interval of an utterance, in seconds.
type Phone struct {
	// Label is the phone symbol (e.g., "AA", "T", "sil").
	Label string `json:"label"`

	// Start is the interval start time in seconds.
	Start float64 `json:"start"`

	// End is the interval end time in seconds.
	End float64 `json:"end"`
}

// Duration returns the length of the phone interval in seconds.
func (p Phone) Duration() float64 { return p.End - p.Start }

// Alignment is an ordered phone timeline for one utterance.
//
// Invariants (enforced by [Load] and [New]): phone boundaries are
// non-decreasing and the timeline End is at least the last phone's end.
type Alignment struct {
	// Phones is the ordered phone sequence.
	Phones []Phone `json:"phones"`

	// End is the total timeline end in seconds. It may exceed the last
	// phone's end when the utterance has trailing silence.
	End float64 `json:"end"`
}

// New validates phones and end and returns an Alignment.
func New(phones []Phone, end float64) (Alignment, error) {
	a := Alignment{Phones: phones, End: end}
	if err := a.validate(); err != nil {
		return Alignment{}, err
	}
	return a, nil
}

// Load reads an alignment from the JSON interchange format:
//
//	{"end": 2.0, "phones": [{"label": "AA", "start": 0, "end": 1.0}, ...]}
func Load(path string) (Alignment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Alignment{}, fmt.Errorf("align: read %q: %w", path, err)
	}
	var a Alignment
	if err := json.Unmarshal(data, &a); err != nil {
		return Alignment{}, fmt.Errorf("align: parse %q: %w", path, err)
	}
	if err := a.validate(); err != nil {
		return Alignment{}, fmt.Errorf("align: %q: %w", path, err)
	}
	return a, nil
}

func (a Alignment) validate() error {
	if len(a.Phones) == 0 {
		return errors.New("alignment has no phones")
	}
	prev := 0.0
	for i, p := range a.Phones {
		if p.Start < prev {
			return fmt.Errorf("phones[%d] %q starts at %g before previous boundary %g", i, p.Label, p.Start, prev)
		}
		if p.End < p.Start {
			return fmt.Errorf("phones[%d] %q ends at %g before it starts at %g", i, p.Label, p.End, p.Start)
		}
		prev = p.End
	}
	if a.End < prev {
		return fmt.Errorf("timeline end %g precedes last phone end %g", a.End, prev)
	}
	return nil
}

// Starts returns the start time of every phone in order.
func (a Alignment) Starts() []float64 {
	starts := make([]float64, len(a.Phones))
	for i, p := range a.Phones {
		starts[i] = p.Start
	}
	return starts
}

// PerPhoneRates compares a source alignment against a target alignment and
// returns one speed multiplier per phone: rate_i = sourceDuration_i /
// targetDuration_i. A rate above 1 means the phone must play faster to land
// on the target timing.
//
// The two alignments must have the same phone count; labels are not required
// to match (re-labelled alignments with identical segmentation are valid).
func PerPhoneRates(source, target Alignment) ([]float64, error) {
	if len(source.Phones) != len(target.Phones) {
		return nil, fmt.Errorf("align: phone count mismatch: source has %d, target has %d",
			len(source.Phones), len(target.Phones))
	}
	rates := make([]float64, len(source.Phones))
	for i := range source.Phones {
		td := target.Phones[i].Duration()
		if td <= 0 {
			return nil, fmt.Errorf("align: target phones[%d] %q has non-positive duration %g",
				i, target.Phones[i].Label, td)
		}
		rates[i] = source.Phones[i].Duration() / td
	}
	return rates, nil
}
