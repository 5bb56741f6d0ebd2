package wavio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// sine returns n samples of a sine wave at freq Hz, amplitude 0.5.
func sine(n, sampleRate int, freq float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tone.wav")
	in := sine(16000, 16000, 220)

	if err := Encode(path, in, 16000); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, sampleRate, err := Decode(path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sampleRate != 16000 {
		t.Errorf("sample rate = %d, want 16000", sampleRate)
	}
	if len(out) != len(in) {
		t.Fatalf("decoded %d samples, want %d", len(out), len(in))
	}
	// 16-bit quantisation bounds the round-trip error.
	const tolerance = 1.0 / (1 << 15)
	for i := range in {
		if math.Abs(out[i]-in[i]) > 2*tolerance {
			t.Fatalf("sample %d differs: got %g, want %g", i, out[i], in[i])
		}
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	t.Run("clipping out-of-range samples", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "hot.wav")
		if err := Encode(path, []float64{1.5, -1.5, 0}, 8000); err != nil {
			t.Fatalf("encode: %v", err)
		}
		out, _, err := Decode(path)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out[0] > 1 || out[1] < -1 {
			t.Errorf("samples not clipped: %v", out)
		}
	})

	t.Run("invalid sample rate", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.wav")
		if err := Encode(path, []float64{0}, 0); err == nil {
			t.Fatal("want error for zero sample rate")
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("file created despite error")
		}
	})

	t.Run("no temp file left behind", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "tone.wav")
		if err := Encode(path, sine(100, 8000, 100), 8000); err != nil {
			t.Fatalf("encode: %v", err)
		}
		if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
			t.Error("temporary file left behind")
		}
	})
}

func TestDecodeMissing(t *testing.T) {
	t.Parallel()
	if _, _, err := Decode(filepath.Join(t.TempDir(), "nope.wav")); err == nil {
		t.Fatal("want error for missing file")
	}
}
