package batch

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	enginemock "github.com/prosodylab/revoice/internal/engine/mock"
	"github.com/prosodylab/revoice/internal/vocoder"
	"github.com/prosodylab/revoice/pkg/wavio"
)

func TestBuildItems(t *testing.T) {
	t.Parallel()

	t.Run("full item list", func(t *testing.T) {
		t.Parallel()
		items, err := BuildItems(
			[]string{"a.wav", "b.wav"},
			[]string{"a_out.wav", "b_out.wav"},
			[]string{"a_src.json", "b_src.json"},
			[]string{"a_tgt.json", "b_tgt.json"},
			[]string{"a_f0.txt", "b_f0.txt"},
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("got %d items, want 2", len(items))
		}
		want := Item{
			AudioPath:           "b.wav",
			OutputPath:          "b_out.wav",
			SourceAlignmentPath: "b_src.json",
			TargetAlignmentPath: "b_tgt.json",
			TargetPitchPath:     "b_f0.txt",
		}
		if items[1] != want {
			t.Errorf("item[1] = %+v, want %+v", items[1], want)
		}
	})

	t.Run("absent optional lists expand to empties", func(t *testing.T) {
		t.Parallel()
		items, err := BuildItems(
			[]string{"a.wav", "b.wav", "c.wav"},
			[]string{"a_out.wav", "b_out.wav", "c_out.wav"},
			nil, nil, nil,
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, item := range items {
			if item.SourceAlignmentPath != "" || item.TargetAlignmentPath != "" || item.TargetPitchPath != "" {
				t.Errorf("item %d has non-empty optional paths: %+v", i, item)
			}
		}
	})

	t.Run("output count mismatch", func(t *testing.T) {
		t.Parallel()
		_, err := BuildItems([]string{"a.wav", "b.wav"}, []string{"a_out.wav"}, nil, nil, nil)
		if !errors.Is(err, ErrLengthMismatch) {
			t.Fatalf("err = %v, want ErrLengthMismatch", err)
		}
	})

	t.Run("partial optional list rejected", func(t *testing.T) {
		t.Parallel()
		_, err := BuildItems(
			[]string{"a.wav", "b.wav", "c.wav"},
			[]string{"a_out.wav", "b_out.wav", "c_out.wav"},
			[]string{"a_src.json", "b_src.json"},
			nil, nil,
		)
		if !errors.Is(err, ErrLengthMismatch) {
			t.Fatalf("err = %v, want ErrLengthMismatch", err)
		}
	})

	t.Run("no audio inputs", func(t *testing.T) {
		t.Parallel()
		if _, err := BuildItems(nil, nil, nil, nil, nil); err == nil {
			t.Fatal("want error for empty audio list")
		}
	})
}

// writeBatchFixtures creates n WAV inputs under dir and returns ready items.
func writeBatchFixtures(t *testing.T, dir string, n int) []Item {
	t.Helper()
	samples := make([]float64, 4000)
	for i := range samples {
		samples[i] = 0.2 * math.Sin(float64(i)/15)
	}

	items := make([]Item, n)
	for i := range items {
		audio := filepath.Join(dir, "in"+strconv.Itoa(i)+".wav")
		if err := wavio.Encode(audio, samples, 16000); err != nil {
			t.Fatalf("fixture %d: %v", i, err)
		}
		items[i] = Item{
			AudioPath:  audio,
			OutputPath: filepath.Join(dir, "out"+strconv.Itoa(i)+".wav"),
		}
	}
	return items
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("sequential run writes every output", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		items := writeBatchFixtures(t, dir, 3)

		voc := vocoder.New(&enginemock.Engine{}, vocoder.WithWorkspaceRoot(dir))
		r := NewRunner(voc, WithConstantStretch(1.5))
		if err := r.Run(context.Background(), items); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, item := range items {
			if _, err := os.Stat(item.OutputPath); err != nil {
				t.Errorf("item %d output missing: %v", i, err)
			}
		}
	})

	t.Run("first failure aborts the run", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		items := writeBatchFixtures(t, dir, 3)
		items[1].AudioPath = filepath.Join(dir, "missing.wav")

		voc := vocoder.New(&enginemock.Engine{}, vocoder.WithWorkspaceRoot(dir))
		r := NewRunner(voc, WithConstantStretch(1.5))
		err := r.Run(context.Background(), items)
		if err == nil {
			t.Fatal("want error for missing audio input")
		}

		// Item 1 completed before the failure; item 3 never ran.
		if _, statErr := os.Stat(items[0].OutputPath); statErr != nil {
			t.Errorf("item 1 output missing: %v", statErr)
		}
		if _, statErr := os.Stat(items[2].OutputPath); !os.IsNotExist(statErr) {
			t.Error("item 3 ran after the batch failed")
		}
	})

	t.Run("concurrent run writes every output", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		items := writeBatchFixtures(t, dir, 6)

		voc := vocoder.New(&enginemock.Engine{}, vocoder.WithWorkspaceRoot(dir))
		r := NewRunner(voc, WithConstantStretch(0.8), WithWorkers(3))
		if err := r.Run(context.Background(), items); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, item := range items {
			if _, err := os.Stat(item.OutputPath); err != nil {
				t.Errorf("item %d output missing: %v", i, err)
			}
		}
	})

	t.Run("cancelled context stops the run", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		items := writeBatchFixtures(t, dir, 2)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		voc := vocoder.New(&enginemock.Engine{}, vocoder.WithWorkspaceRoot(dir))
		r := NewRunner(voc)
		if err := r.Run(ctx, items); !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	})
}
