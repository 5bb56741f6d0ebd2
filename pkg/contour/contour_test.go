package contour

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeContour(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pitch.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("voiced and unvoiced frames", func(t *testing.T) {
		t.Parallel()
		p, err := Load(writeContour(t, "# f0 in Hz\n110.5\nnan\n\n220\nNaN\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Frames() != 4 {
			t.Fatalf("frames = %d, want 4", p.Frames())
		}
		if p.VoicedCount() != 2 {
			t.Errorf("voiced = %d, want 2", p.VoicedCount())
		}
		if !p.Voiced(0) || p.Voiced(1) || p.Voiced(2) || !p.Voiced(3) {
			t.Errorf("voicing pattern wrong: %v", p.Values)
		}
		if p.Values[0] != 110.5 || p.Values[3] != 220 {
			t.Errorf("values = %v", p.Values)
		}
	})

	t.Run("non-positive frequency rejected", func(t *testing.T) {
		t.Parallel()
		if _, err := Load(writeContour(t, "110\n-5\n")); err == nil {
			t.Fatal("want error for negative frequency")
		}
	})

	t.Run("garbage rejected", func(t *testing.T) {
		t.Parallel()
		if _, err := Load(writeContour(t, "110\nhello\n")); err == nil {
			t.Fatal("want error for unparseable line")
		}
	})

	t.Run("empty file rejected", func(t *testing.T) {
		t.Parallel()
		if _, err := Load(writeContour(t, "")); err == nil {
			t.Fatal("want error for empty contour")
		}
	})
}

func TestClone(t *testing.T) {
	t.Parallel()

	p := Pitch{Values: []float64{100, math.NaN(), 200}}
	c := p.Clone()
	c.Values[0] = 999
	if p.Values[0] != 100 {
		t.Error("clone shares backing array with original")
	}
	if !math.IsNaN(c.Values[1]) {
		t.Error("clone lost unvoiced marker")
	}
}
