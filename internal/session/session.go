package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/prosodylab/revoice/internal/engine"
	"github.com/prosodylab/revoice/internal/tier"
	"github.com/prosodylab/revoice/pkg/contour"
	"github.com/prosodylab/revoice/pkg/wavio"
)

// Workspace file names. Each stage overwrites the audio file, so the engine
// always analyses the current samples.
const (
	audioFile    = "audio.wav"
	durationFile = "duration.txt"
	pitchFile    = "pitch.txt"
)

// Session drives engine round-trips for one vocode invocation. It persists
// the current samples into the workspace before each stage and derives a
// fresh manipulation context from the written audio every time — contexts
// are never reused across stages, which keeps resampling error from
// compounding.
type Session struct {
	eng        engine.Engine
	ws         *Workspace
	band       engine.Band
	sampleRate int
}

// New binds a session to an engine, a workspace, a pitch-search band, and
// the invocation's sample rate.
func New(eng engine.Engine, ws *Workspace, band engine.Band, sampleRate int) *Session {
	return &Session{eng: eng, ws: ws, band: band, sampleRate: sampleRate}
}

// open writes samples into the workspace and asks the engine for a fresh
// manipulation context.
func (s *Session) open(ctx context.Context, samples []float64) (engine.Manipulation, error) {
	path := s.ws.Path(audioFile)
	if err := wavio.Encode(path, samples, s.sampleRate); err != nil {
		return nil, fmt.Errorf("%w: write audio: %v", ErrWorkspace, err)
	}
	return s.eng.Open(ctx, path, s.band)
}

// Stretch applies curve as the duration automation and returns the retimed
// samples.
func (s *Session) Stretch(ctx context.Context, samples []float64, curve tier.RateCurve) ([]float64, error) {
	tierPath := s.ws.Path(durationFile)
	if err := tier.WriteDurationTier(tierPath, curve); err != nil {
		return nil, wrapTierErr(err)
	}

	m, err := s.open(ctx, samples)
	if err != nil {
		return nil, err
	}
	m.ReplaceDurationTier(tierPath)

	out, _, err := m.Resynthesize(ctx)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Shift applies pitch as the pitch automation and returns the reshaped
// samples. The tier's time axis spans the duration of the samples passed in,
// so after a stretch stage the contour is laid over the retimed waveform.
func (s *Session) Shift(ctx context.Context, samples []float64, pitch contour.Pitch) ([]float64, error) {
	duration := float64(len(samples)) / float64(s.sampleRate)

	tierPath := s.ws.Path(pitchFile)
	if err := tier.WritePitchTier(tierPath, pitch, duration); err != nil {
		return nil, wrapTierErr(err)
	}

	m, err := s.open(ctx, samples)
	if err != nil {
		return nil, err
	}
	m.ReplacePitchTier(tierPath)

	out, _, err := m.Resynthesize(ctx)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// wrapTierErr classifies a tier write failure: shape problems pass through
// untouched, anything else was an I/O failure inside the workspace.
func wrapTierErr(err error) error {
	if errors.Is(err, tier.ErrShapeMismatch) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrWorkspace, err)
}
