// Package mock provides an in-memory mock implementation of [engine.Engine]
// for use in unit tests.
//
// The mock records every Open call and every tier replacement, and captures
// tier file contents at replacement time so assertions remain possible after
// the invocation's workspace has been removed. By default resynthesis echoes
// the audio file the context was opened on; tests can queue canned sample
// buffers to simulate retimed output.
package mock

import (
	"context"
	"os"
	"sync"

	"github.com/prosodylab/revoice/internal/engine"
	"github.com/prosodylab/revoice/pkg/wavio"
)

// Compile-time interface assertions.
var (
	_ engine.Engine       = (*Engine)(nil)
	_ engine.Manipulation = (*Manipulation)(nil)
)

// OpenCall records the arguments of a single [Engine.Open] call.
type OpenCall struct {
	// AudioPath is the waveform path passed to Open.
	AudioPath string
	// Band is the pitch-search band passed to Open.
	Band engine.Band
}

// Engine is a mock implementation of [engine.Engine].
// All exported *Error fields control return values; Call and context records
// accumulate in order. Safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	// OpenError is returned by [Engine.Open] when non-nil.
	OpenError error

	// ResynthesizeError is returned by every context's Resynthesize when
	// non-nil.
	ResynthesizeError error

	// SampleQueue holds canned resynthesis outputs consumed in FIFO order,
	// one entry per Resynthesize call. When exhausted (or nil), resynthesis
	// decodes and returns the audio the context was opened on.
	SampleQueue []Resynthesis

	// OpenCalls records all Open invocations.
	OpenCalls []OpenCall

	// Contexts records every manipulation context handed out, in order.
	Contexts []*Manipulation
}

// Resynthesis is one canned resynthesis output.
type Resynthesis struct {
	Samples    []float64
	SampleRate int
}

// Open implements [engine.Engine]. The band is validated the same way the
// real engine validates it, so tests can force analysis errors with an
// inverted band.
func (e *Engine) Open(_ context.Context, audioPath string, band engine.Band) (engine.Manipulation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.OpenCalls = append(e.OpenCalls, OpenCall{AudioPath: audioPath, Band: band})
	if e.OpenError != nil {
		return nil, e.OpenError
	}
	if err := band.Validate(); err != nil {
		return nil, err
	}
	m := &Manipulation{eng: e, audioPath: audioPath}
	e.Contexts = append(e.Contexts, m)
	return m, nil
}

// nextResynthesis pops the sample queue, or returns ok=false when empty.
func (e *Engine) nextResynthesis() (Resynthesis, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.SampleQueue) == 0 {
		return Resynthesis{}, false
	}
	r := e.SampleQueue[0]
	e.SampleQueue = e.SampleQueue[1:]
	return r, true
}

// Manipulation is a mock manipulation context. Its exported fields record
// the tier replacements applied to it.
type Manipulation struct {
	eng       *Engine
	audioPath string

	mu sync.Mutex

	// DurationTierPath is the last path passed to ReplaceDurationTier.
	DurationTierPath string

	// DurationTierData holds the tier file contents captured at replacement
	// time (nil if the file could not be read).
	DurationTierData []byte

	// PitchTierPath is the last path passed to ReplacePitchTier.
	PitchTierPath string

	// PitchTierData holds the tier file contents captured at replacement time.
	PitchTierData []byte

	// ResynthesizeCalls counts Resynthesize invocations on this context.
	ResynthesizeCalls int
}

// ReplaceDurationTier implements [engine.Manipulation].
func (m *Manipulation) ReplaceDurationTier(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DurationTierPath = path
	m.DurationTierData, _ = os.ReadFile(path)
}

// ReplacePitchTier implements [engine.Manipulation].
func (m *Manipulation) ReplacePitchTier(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PitchTierPath = path
	m.PitchTierData, _ = os.ReadFile(path)
}

// Resynthesize implements [engine.Manipulation].
func (m *Manipulation) Resynthesize(_ context.Context) ([]float64, int, error) {
	m.mu.Lock()
	m.ResynthesizeCalls++
	m.mu.Unlock()

	if m.eng.ResynthesizeError != nil {
		return nil, 0, m.eng.ResynthesizeError
	}
	if r, ok := m.eng.nextResynthesis(); ok {
		return r.Samples, r.SampleRate, nil
	}
	return wavio.Decode(m.audioPath)
}
