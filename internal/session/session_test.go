package session

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prosodylab/revoice/internal/engine"
	enginemock "github.com/prosodylab/revoice/internal/engine/mock"
	"github.com/prosodylab/revoice/internal/tier"
	"github.com/prosodylab/revoice/pkg/contour"
)

func testSamples(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.25 * math.Sin(float64(i)/20)
	}
	return out
}

func TestWorkspace(t *testing.T) {
	t.Parallel()

	t.Run("paths are pairwise distinct", func(t *testing.T) {
		t.Parallel()
		root := t.TempDir()
		seen := make(map[string]bool)
		for i := 0; i < 50; i++ {
			ws, err := NewWorkspace(root)
			if err != nil {
				t.Fatalf("workspace %d: %v", i, err)
			}
			if seen[ws.Dir()] {
				t.Fatalf("workspace path %q repeated", ws.Dir())
			}
			seen[ws.Dir()] = true
		}
	})

	t.Run("remove deletes the tree", func(t *testing.T) {
		t.Parallel()
		ws, err := NewWorkspace(t.TempDir())
		if err != nil {
			t.Fatalf("workspace: %v", err)
		}
		if err := os.WriteFile(ws.Path("audio.wav"), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if err := ws.Remove(); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if _, err := os.Stat(ws.Dir()); !os.IsNotExist(err) {
			t.Error("workspace directory still present after Remove")
		}
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		t.Parallel()
		ws, err := NewWorkspace(t.TempDir())
		if err != nil {
			t.Fatalf("workspace: %v", err)
		}
		if err := ws.Remove(); err != nil {
			t.Fatalf("first remove: %v", err)
		}
		if err := ws.Remove(); err != nil {
			t.Fatalf("second remove: %v", err)
		}
	})

	t.Run("path joins inside the workspace", func(t *testing.T) {
		t.Parallel()
		ws, err := NewWorkspace(t.TempDir())
		if err != nil {
			t.Fatalf("workspace: %v", err)
		}
		defer ws.Remove()
		if got := ws.Path("pitch.txt"); got != filepath.Join(ws.Dir(), "pitch.txt") {
			t.Errorf("Path = %q", got)
		}
	})
}

func TestSessionStretch(t *testing.T) {
	t.Parallel()

	eng := &enginemock.Engine{}
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	defer ws.Remove()

	sess := New(eng, ws, engine.DefaultBand, 16000)
	curve := tier.RateCurve{Times: []float64{0, 1.0, 2.0}, Rates: []float64{1.5, 0.8}}

	out, err := sess.Stretch(context.Background(), testSamples(32000), curve)
	if err != nil {
		t.Fatalf("stretch: %v", err)
	}
	if len(out) != 32000 {
		t.Errorf("identity mock returned %d samples, want 32000", len(out))
	}

	if len(eng.Contexts) != 1 {
		t.Fatalf("engine opened %d contexts, want 1", len(eng.Contexts))
	}
	m := eng.Contexts[0]
	if m.DurationTierPath != ws.Path("duration.txt") {
		t.Errorf("duration tier path = %q", m.DurationTierPath)
	}
	if !strings.Contains(string(m.DurationTierData), `Object class = "DurationTier"`) {
		t.Error("replaced tier is not a duration tier")
	}
	if m.ResynthesizeCalls != 1 {
		t.Errorf("resynthesize called %d times, want 1", m.ResynthesizeCalls)
	}
	if len(eng.OpenCalls) != 1 || eng.OpenCalls[0].Band != engine.DefaultBand {
		t.Errorf("open calls = %+v", eng.OpenCalls)
	}
}

func TestSessionShift(t *testing.T) {
	t.Parallel()

	eng := &enginemock.Engine{}
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	defer ws.Remove()

	sess := New(eng, ws, engine.DefaultBand, 16000)
	pitch := contour.Pitch{Values: []float64{100, math.NaN(), 200}}

	// 24000 samples at 16 kHz: the tier must span 1.5 s.
	if _, err := sess.Shift(context.Background(), testSamples(24000), pitch); err != nil {
		t.Fatalf("shift: %v", err)
	}

	if len(eng.Contexts) != 1 {
		t.Fatalf("engine opened %d contexts, want 1", len(eng.Contexts))
	}
	data := string(eng.Contexts[0].PitchTierData)
	lines := strings.Split(data, "\n")
	if len(lines) < 6 {
		t.Fatalf("pitch tier too short: %q", data)
	}
	if lines[4] != "1.5" {
		t.Errorf("pitch tier xmax = %q, want 1.5", lines[4])
	}
	if lines[5] != "2" {
		t.Errorf("pitch tier point count = %q, want 2", lines[5])
	}
}

func TestSessionShapeMismatchPassesThrough(t *testing.T) {
	t.Parallel()

	eng := &enginemock.Engine{}
	ws, err := NewWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	defer ws.Remove()

	sess := New(eng, ws, engine.DefaultBand, 16000)
	bad := tier.RateCurve{Times: []float64{0, 1, 2}, Rates: []float64{1}}
	_, err = sess.Stretch(context.Background(), testSamples(100), bad)
	if err == nil {
		t.Fatal("want error for malformed curve")
	}
	if isWorkspaceErr := strings.Contains(err.Error(), "workspace"); isWorkspaceErr {
		t.Errorf("shape mismatch misclassified as workspace failure: %v", err)
	}
	if len(eng.OpenCalls) != 0 {
		t.Error("engine opened despite tier failure")
	}
}
