// Package wavio is the audio codec collaborator for the vocoding pipeline:
// it decodes WAV files to mono float64 sample buffers and encodes sample
// buffers back to 16-bit PCM WAV.
//
// The pipeline is mono throughout; multi-channel input is downmixed by
// channel averaging on decode.
package wavio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"gonum.org/v1/gonum/floats"
)

// encodeBitDepth is the PCM bit depth used for all written files.
const encodeBitDepth = 16

// Decode reads the WAV file at path and returns normalised mono samples in
// [-1, 1] along with the sample rate.
func Decode(path string) (samples []float64, sampleRate int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("wavio: open %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("wavio: decode %q: %w", path, err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, 0, fmt.Errorf("wavio: %q has no valid format header", path)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = encodeBitDepth
	}
	scale := float64(int64(1) << (bitDepth - 1))

	frames := len(buf.Data) / channels
	samples = make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c])
		}
		samples[i] = sum / float64(channels)
	}
	floats.Scale(1/scale, samples)

	return samples, buf.Format.SampleRate, nil
}

// Encode writes samples as a mono 16-bit PCM WAV file at path. The file is
// written to a temporary sibling first and renamed into place so that a
// failed write never leaves a decodable file at the final path.
func Encode(path string, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("wavio: sample rate %d must be positive", sampleRate)
	}

	tmp := path + ".tmp"
	if err := encodeFile(tmp, samples, sampleRate); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("wavio: rename %q: %w", path, err)
	}
	return nil
}

func encodeFile(path string, samples []float64, sampleRate int) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavio: create %q: %w", filepath.Base(path), err)
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: encodeBitDepth,
		Data:           make([]int, len(samples)),
	}
	const scale = 1 << (encodeBitDepth - 1)
	for i, s := range samples {
		v := int(s * scale)
		if v > scale-1 {
			v = scale - 1
		} else if v < -scale {
			v = -scale
		}
		buf.Data[i] = v
	}

	enc := wav.NewEncoder(out, sampleRate, encodeBitDepth, 1, 1)
	if err := enc.Write(buf); err != nil {
		out.Close()
		return fmt.Errorf("wavio: encode %q: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return fmt.Errorf("wavio: finalise %q: %w", path, err)
	}
	return out.Close()
}
