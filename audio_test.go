package kmusic_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kmusic/kmusic"
)

type recordingSink struct {
	writes  int
	samples []float32
	cancel  func()
}

func (r *recordingSink) WriteAudio(buffer []float32) error {
	r.writes++
	r.samples = append(r.samples, buffer...)
	if r.cancel != nil {
		r.cancel()
	}
	return nil
}

func (r *recordingSink) Close() error { return nil }

func TestPlayWaveform(t *testing.T) {
	w := &kmusic.Waveform{Samples: make([]float32, 2*2500), SampleRate: 8000, Channels: 2}
	for i := range w.Samples {
		w.Samples[i] = float32(i%7) / 7
	}
	sink := &recordingSink{}
	if err := kmusic.PlayWaveform(context.Background(), sink, w); err != nil {
		t.Fatalf("PlayWaveform failed: %v", err)
	}
	if !slices.Equal(sink.samples, w.Samples) {
		t.Fatalf("sink got %d samples, expected the %d of the waveform", len(sink.samples), len(w.Samples))
	}
	if sink.writes != 3 {
		t.Fatalf("expected 3 blocks of at most 1024 frames, got %d writes", sink.writes)
	}
}

func TestPlayWaveformCancel(t *testing.T) {
	w := &kmusic.Waveform{Samples: make([]float32, 10000), SampleRate: 8000, Channels: 1}
	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{cancel: cancel}
	if err := kmusic.PlayWaveform(ctx, sink, w); !errors.Is(err, context.Canceled) {
		t.Fatalf("PlayWaveform returned %v, expected context.Canceled", err)
	}
	if sink.writes != 1 {
		t.Fatalf("playback went on for %d writes after cancel", sink.writes)
	}
}
