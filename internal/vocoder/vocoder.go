// Package vocoder orchestrates the vocoding pipeline for one utterance:
// it decides which transformations apply based on which optional inputs are
// present, sequences time-stretching before pitch-shifting, and guarantees
// per-invocation workspace cleanup on every exit path.
package vocoder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/prosodylab/revoice/internal/engine"
	"github.com/prosodylab/revoice/internal/observe"
	"github.com/prosodylab/revoice/internal/session"
	"github.com/prosodylab/revoice/internal/tier"
	"github.com/prosodylab/revoice/pkg/align"
	"github.com/prosodylab/revoice/pkg/contour"
	"github.com/prosodylab/revoice/pkg/wavio"
)

// ErrInvalidStretch is returned when the time-stretch inputs are conflicting
// or incomplete: a lone alignment, or a constant factor combined with an
// alignment pair.
var ErrInvalidStretch = errors.New("vocoder: invalid stretch specification")

// Request carries the optional transformation inputs for one invocation.
// A nil field means the corresponding input is absent and its transformation
// is skipped — absence is explicit, never inferred from zero values.
type Request struct {
	// SourceAlignment is the utterance's current phone timeline. Must be
	// paired with TargetAlignment.
	SourceAlignment *align.Alignment

	// TargetAlignment is the phone timeline to retime the utterance to.
	TargetAlignment *align.Alignment

	// ConstantStretch applies a uniform stretch factor to the whole
	// utterance (values above 1 slow it down). Mutually exclusive with the
	// alignment pair.
	ConstantStretch *float64

	// TargetPitch is the pitch contour to impose. When present, pitch
	// shifting runs after any time stretching, over the retimed waveform.
	TargetPitch *contour.Pitch
}

// wantsStretch reports whether a time-stretch stage was requested, after
// validating the stretch specification.
func (r Request) wantsStretch() (bool, error) {
	hasPair := r.SourceAlignment != nil && r.TargetAlignment != nil
	hasAny := r.SourceAlignment != nil || r.TargetAlignment != nil

	if hasAny && !hasPair {
		return false, fmt.Errorf("%w: need both source and target alignments", ErrInvalidStretch)
	}
	if r.ConstantStretch != nil && hasAny {
		return false, fmt.Errorf("%w: constant factor and alignment pair are mutually exclusive", ErrInvalidStretch)
	}
	return r.ConstantStretch != nil || hasPair, nil
}

// Vocoder applies stretch/shift transformations through an injected
// manipulation engine. Safe for concurrent use: every invocation gets its
// own collision-free workspace and engine context.
type Vocoder struct {
	eng     engine.Engine
	band    engine.Band
	tmpRoot string
	metrics *observe.Metrics
}

// Option configures a [Vocoder] during construction.
type Option func(*Vocoder)

// WithBand sets the pitch-search band. The default is [engine.DefaultBand].
func WithBand(b engine.Band) Option {
	return func(v *Vocoder) { v.band = b }
}

// WithWorkspaceRoot sets the directory under which per-invocation workspaces
// are created. The default is the system temporary directory.
func WithWorkspaceRoot(root string) Option {
	return func(v *Vocoder) { v.tmpRoot = root }
}

// WithMetrics overrides the metrics instance. The default is
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(v *Vocoder) { v.metrics = m }
}

// New constructs a Vocoder around the given engine.
func New(eng engine.Engine, opts ...Option) *Vocoder {
	v := &Vocoder{eng: eng, band: engine.DefaultBand}
	for _, o := range opts {
		o(v)
	}
	if v.metrics == nil {
		v.metrics = observe.DefaultMetrics()
	}
	return v
}

// Vocode applies the requested transformations to samples and returns the
// resulting waveform. With an empty request the input is returned unchanged
// and no workspace or engine call is made.
//
// When both stages run, the stretch result feeds the shift stage: the pitch
// tier's time axis is computed against the post-stretch duration.
func (v *Vocoder) Vocode(ctx context.Context, samples []float64, sampleRate int, req Request) (out []float64, err error) {
	ctx, span := observe.StartSpan(ctx, "vocode")
	defer span.End()

	start := time.Now()
	defer func() {
		v.metrics.VocodeDuration.Record(ctx, time.Since(start).Seconds())
	}()

	stretching, err := req.wantsStretch()
	if err != nil {
		return nil, err
	}
	shifting := req.TargetPitch != nil

	// Pass-through: nothing requested, nothing touched.
	if !stretching && !shifting {
		return samples, nil
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("vocoder: sample rate %d must be positive", sampleRate)
	}

	ws, err := session.NewWorkspace(v.tmpRoot)
	if err != nil {
		return nil, err
	}
	v.metrics.ActiveWorkspaces.Add(ctx, 1)
	defer func() {
		v.metrics.ActiveWorkspaces.Add(ctx, -1)
		if rmErr := ws.Remove(); rmErr != nil {
			// Report cleanup trouble without masking a stage failure.
			observe.Logger(ctx).Warn("workspace cleanup failed", "dir", ws.Dir(), "err", rmErr)
			if err == nil {
				err = rmErr
			}
		}
	}()

	sess := session.New(v.eng, ws, v.band, sampleRate)
	current := samples

	if stretching {
		current, err = v.stretch(ctx, sess, current, sampleRate, req)
		if err != nil {
			v.metrics.RecordError(ctx, "stretch")
			return nil, err
		}
	}

	if shifting {
		current, err = v.shift(ctx, sess, current, req)
		if err != nil {
			v.metrics.RecordError(ctx, "shift")
			return nil, err
		}
	}

	return current, nil
}

// stretch builds the rate curve for the request and runs the stretch stage.
func (v *Vocoder) stretch(ctx context.Context, sess *session.Session, samples []float64, sampleRate int, req Request) ([]float64, error) {
	ctx, span := observe.StartSpan(ctx, "vocode.stretch")
	defer span.End()
	defer recordSince(ctx, v.metrics.StretchDuration, time.Now())

	var (
		curve tier.RateCurve
		err   error
	)
	if req.ConstantStretch != nil {
		duration := float64(len(samples)) / float64(sampleRate)
		curve, err = tier.ConstantRateCurve(*req.ConstantStretch, duration)
	} else {
		var rates []float64
		rates, err = align.PerPhoneRates(*req.SourceAlignment, *req.TargetAlignment)
		if err == nil {
			curve, err = tier.AlignmentRateCurve(*req.SourceAlignment, rates)
		}
	}
	if err != nil {
		return nil, err
	}

	return sess.Stretch(ctx, samples, curve)
}

// shift runs the pitch-shift stage over the current (possibly retimed)
// samples. The contour is cloned first; caller-supplied pitch data is never
// touched.
func (v *Vocoder) shift(ctx context.Context, sess *session.Session, samples []float64, req Request) ([]float64, error) {
	ctx, span := observe.StartSpan(ctx, "vocode.shift")
	defer span.End()
	defer recordSince(ctx, v.metrics.ShiftDuration, time.Now())

	return sess.Shift(ctx, samples, req.TargetPitch.Clone())
}

func recordSince(ctx context.Context, h metric.Float64Histogram, start time.Time) {
	h.Record(ctx, time.Since(start).Seconds())
}

// FileRequest names the on-disk inputs for one file-level invocation.
// Empty paths mean the input is absent.
type FileRequest struct {
	AudioPath           string
	SourceAlignmentPath string
	TargetAlignmentPath string
	TargetPitchPath     string
	ConstantStretch     *float64
}

// FromFile loads the named inputs, vocodes, and returns the resulting
// samples with their sample rate.
func (v *Vocoder) FromFile(ctx context.Context, fr FileRequest) ([]float64, int, error) {
	samples, sampleRate, err := wavio.Decode(fr.AudioPath)
	if err != nil {
		return nil, 0, err
	}

	req := Request{ConstantStretch: fr.ConstantStretch}
	if fr.SourceAlignmentPath != "" {
		a, err := align.Load(fr.SourceAlignmentPath)
		if err != nil {
			return nil, 0, err
		}
		req.SourceAlignment = &a
	}
	if fr.TargetAlignmentPath != "" {
		a, err := align.Load(fr.TargetAlignmentPath)
		if err != nil {
			return nil, 0, err
		}
		req.TargetAlignment = &a
	}
	if fr.TargetPitchPath != "" {
		p, err := contour.Load(fr.TargetPitchPath)
		if err != nil {
			return nil, 0, err
		}
		req.TargetPitch = &p
	}

	out, err := v.Vocode(ctx, samples, sampleRate, req)
	if err != nil {
		return nil, 0, err
	}
	return out, sampleRate, nil
}

// FromFileToFile is [Vocoder.FromFile] plus persisting the result to
// outputPath as a WAV file.
func (v *Vocoder) FromFileToFile(ctx context.Context, fr FileRequest, outputPath string) error {
	out, sampleRate, err := v.FromFile(ctx, fr)
	if err != nil {
		return err
	}
	return wavio.Encode(outputPath, out, sampleRate)
}
