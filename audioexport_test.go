package kmusic_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/kmusic/kmusic"
)

func TestWavOfSilence(t *testing.T) {
	w := kmusic.Waveform{Samples: make([]float32, 44100), SampleRate: 44100, Channels: 1}
	data, err := w.Wav()
	if err != nil {
		t.Fatalf("Wav failed: %v", err)
	}
	if len(data) != 44+88200 {
		t.Fatalf("file is %d bytes, expected %d", len(data), 44+88200)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[36:40]) != "data" {
		t.Fatalf("bad chunk ids in header % x", data[:44])
	}
	if chunkSize := binary.LittleEndian.Uint32(data[4:8]); chunkSize != 36+88200 {
		t.Fatalf("chunkSize = %d", chunkSize)
	}
	if subChunk2Size := binary.LittleEndian.Uint32(data[40:44]); subChunk2Size != 88200 {
		t.Fatalf("subChunk2Size = %d", subChunk2Size)
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 44100 {
		t.Fatalf("sample rate = %d", rate)
	}
	for i, b := range data[44:] {
		if b != 0 {
			t.Fatalf("byte %d of silent data is %d", i, b)
		}
	}
}

func TestWavRoundTrip(t *testing.T) {
	const n = 1000
	samples := make([]float32, 2*n)
	for i := range samples {
		samples[i] = float32(math.Sin(float64(i) * 0.01))
	}
	samples[0] = 3 // clamped to 1
	var buf bytes.Buffer
	if err := kmusic.WriteWav(&buf, samples, 22050, 2); err != nil {
		t.Fatalf("WriteWav failed: %v", err)
	}
	w, err := kmusic.ReadWaveform(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadWaveform failed: %v", err)
	}
	if w.SampleRate != 22050 || w.Channels != 2 || w.Frames() != n {
		t.Fatalf("got format %d Hz, %d channels, %d frames", w.SampleRate, w.Channels, w.Frames())
	}
	if math.Abs(float64(w.Samples[0])-1) > 1e-3 {
		t.Fatalf("first sample not clamped: %v", w.Samples[0])
	}
	for i := 1; i < len(samples); i++ {
		if d := math.Abs(float64(w.Samples[i] - samples[i])); d > 1e-3 {
			t.Fatalf("sample %d: got %v, expected %v", i, w.Samples[i], samples[i])
		}
	}
}

func TestWaveformSegment(t *testing.T) {
	w := kmusic.Waveform{Samples: make([]float32, 2*100), SampleRate: 100, Channels: 2}
	for i := range w.Samples {
		w.Samples[i] = float32(i)
	}
	seg, err := w.Segment(0.25, 0.5)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	if seg.Frames() != 25 || seg.Samples[0] != 50 {
		t.Fatalf("segment has %d frames starting at %v", seg.Frames(), seg.Samples[0])
	}
	for _, r := range [][2]float64{{-0.1, 0.5}, {0.5, 0.5}, {0.5, 1.5}} {
		if _, err := w.Segment(r[0], r[1]); err == nil {
			t.Errorf("Segment(%v, %v) should fail", r[0], r[1])
		}
	}
	if p := seg.Peak(); p != 99 {
		t.Errorf("peak = %v", p)
	}
}
