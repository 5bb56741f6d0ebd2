package praat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prosodylab/revoice/internal/engine"
)

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("missing audio", func(t *testing.T) {
		t.Parallel()
		e := New()
		_, err := e.Open(context.Background(), filepath.Join(t.TempDir(), "nope.wav"), engine.DefaultBand)
		if !errors.Is(err, engine.ErrAnalysis) {
			t.Fatalf("err = %v, want ErrAnalysis", err)
		}
	})

	t.Run("inverted band", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "audio.wav")
		if err := os.WriteFile(path, []byte("riff"), 0o644); err != nil {
			t.Fatalf("fixture: %v", err)
		}
		e := New()
		_, err := e.Open(context.Background(), path, engine.Band{Fmin: 500, Fmax: 40})
		if !errors.Is(err, engine.ErrAnalysis) {
			t.Fatalf("err = %v, want ErrAnalysis", err)
		}
	})
}

func TestScript(t *testing.T) {
	t.Parallel()

	t.Run("both tiers", func(t *testing.T) {
		t.Parallel()
		m := &manipulation{
			audioPath:        "/tmp/ws/audio.wav",
			band:             engine.Band{Fmin: 40, Fmax: 500},
			durationTierPath: "/tmp/ws/duration.txt",
			pitchTierPath:    "/tmp/ws/pitch.txt",
		}
		script := m.script("/tmp/ws/resynthesis.wav")

		for _, want := range []string{
			`Read from file: "/tmp/ws/audio.wav"`,
			"To Manipulation: 0.001, 40, 500",
			`Read from file: "/tmp/ws/duration.txt"`,
			"Replace duration tier",
			`Read from file: "/tmp/ws/pitch.txt"`,
			"Replace pitch tier",
			"Get resynthesis (overlap-add)",
			`Save as WAV file: "/tmp/ws/resynthesis.wav"`,
		} {
			if !strings.Contains(script, want) {
				t.Errorf("script missing %q:\n%s", want, script)
			}
		}
		if strings.Index(script, "Replace duration tier") > strings.Index(script, "Replace pitch tier") {
			t.Error("duration tier replaced after pitch tier")
		}
	})

	t.Run("no tiers", func(t *testing.T) {
		t.Parallel()
		m := &manipulation{audioPath: "/tmp/ws/audio.wav", band: engine.DefaultBand}
		script := m.script("/tmp/ws/resynthesis.wav")
		if strings.Contains(script, "Replace duration tier") || strings.Contains(script, "Replace pitch tier") {
			t.Errorf("tier replacement emitted without a tier:\n%s", script)
		}
	})

	t.Run("quotes doubled in paths", func(t *testing.T) {
		t.Parallel()
		m := &manipulation{audioPath: `/tmp/o"dd/audio.wav`, band: engine.DefaultBand}
		script := m.script("/tmp/out.wav")
		if !strings.Contains(script, `"/tmp/o""dd/audio.wav"`) {
			t.Errorf("embedded quote not doubled:\n%s", script)
		}
	})
}
