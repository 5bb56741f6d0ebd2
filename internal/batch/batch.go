// Package batch drives the vocoder across a list of per-file work items:
// it expands the CLI's parallel input lists into explicit items, binds the
// fixed run parameters, and processes items with per-item progress
// visibility.
//
// A failure on any item aborts the whole batch — there is no
// skip-and-continue policy. Items are fully independent, so an optional
// worker pool may process them concurrently without changing per-item
// semantics; workspace uniqueness is guaranteed downstream.
package batch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/prosodylab/revoice/internal/observe"
	"github.com/prosodylab/revoice/internal/vocoder"
)

// ErrLengthMismatch is returned when parallel input lists have unequal
// lengths where one-to-one correspondence is required.
var ErrLengthMismatch = errors.New("batch: input list length mismatch")

// Item is one unit of batch work. Optional inputs are empty strings; an
// absent alignment pair or pitch contour simply skips the corresponding
// transformation for that item.
type Item struct {
	AudioPath           string
	OutputPath          string
	SourceAlignmentPath string
	TargetAlignmentPath string
	TargetPitchPath     string
}

// BuildItems zips the parallel input lists into explicit items. outputs must
// match audio in length; each optional list must either match audio in
// length or be wholly absent (nil or empty).
func BuildItems(audio, outputs, sourceAligns, targetAligns, pitches []string) ([]Item, error) {
	if len(audio) == 0 {
		return nil, errors.New("batch: no audio inputs")
	}
	if len(outputs) != len(audio) {
		return nil, fmt.Errorf("%w: %d audio inputs but %d outputs", ErrLengthMismatch, len(audio), len(outputs))
	}
	sourceAligns, err := expand("source alignments", sourceAligns, len(audio))
	if err != nil {
		return nil, err
	}
	targetAligns, err = expand("target alignments", targetAligns, len(audio))
	if err != nil {
		return nil, err
	}
	pitches, err = expand("target pitches", pitches, len(audio))
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(audio))
	for i := range audio {
		items[i] = Item{
			AudioPath:           audio[i],
			OutputPath:          outputs[i],
			SourceAlignmentPath: sourceAligns[i],
			TargetAlignmentPath: targetAligns[i],
			TargetPitchPath:     pitches[i],
		}
	}
	return items, nil
}

// expand maps a wholly-absent optional list to n empty entries and rejects a
// present list of the wrong length.
func expand(name string, list []string, n int) ([]string, error) {
	if len(list) == 0 {
		return make([]string, n), nil
	}
	if len(list) != n {
		return nil, fmt.Errorf("%w: %d audio inputs but %d %s", ErrLengthMismatch, n, len(list), name)
	}
	return list, nil
}

// Runner processes batch items through a vocoder with bound fixed
// parameters.
type Runner struct {
	voc     *vocoder.Vocoder
	stretch *float64
	workers int
	metrics *observe.Metrics
}

// Option configures a [Runner] during construction.
type Option func(*Runner)

// WithConstantStretch binds a uniform stretch factor applied to every item
// in place of an alignment pair.
func WithConstantStretch(factor float64) Option {
	return func(r *Runner) { r.stretch = &factor }
}

// WithWorkers sets the number of items processed concurrently. Values below
// 2 keep the default sequential behaviour.
func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

// WithMetrics overrides the metrics instance. The default is
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// NewRunner constructs a Runner around voc.
func NewRunner(voc *vocoder.Vocoder, opts ...Option) *Runner {
	r := &Runner{voc: voc, workers: 1}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// Run processes items in order, logging per-item progress. The first item
// failure aborts the run and is returned with the item identified; in
// concurrent mode the shared group context cancels the remaining items.
func (r *Runner) Run(ctx context.Context, items []Item) error {
	if r.workers > 1 {
		return r.runConcurrent(ctx, items)
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.process(ctx, i, len(items), item); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runConcurrent(ctx context.Context, items []Item) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			return r.process(ctx, i, len(items), item)
		})
	}
	return g.Wait()
}

// process vocodes a single item and records its outcome.
func (r *Runner) process(ctx context.Context, index, total int, item Item) error {
	log := observe.Logger(ctx)
	log.Info("processing item",
		"index", index+1,
		"total", total,
		"audio", item.AudioPath,
	)

	fr := vocoder.FileRequest{
		AudioPath:           item.AudioPath,
		SourceAlignmentPath: item.SourceAlignmentPath,
		TargetAlignmentPath: item.TargetAlignmentPath,
		TargetPitchPath:     item.TargetPitchPath,
		ConstantStretch:     r.stretch,
	}
	if err := r.voc.FromFileToFile(ctx, fr, item.OutputPath); err != nil {
		r.metrics.RecordItem(ctx, "error")
		return fmt.Errorf("batch: item %d (%s): %w", index+1, item.AudioPath, err)
	}

	r.metrics.RecordItem(ctx, "ok")
	log.Info("item done", "index", index+1, "total", total, "output", item.OutputPath)
	return nil
}
