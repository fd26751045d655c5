package kmusic

import (
	"context"
	"fmt"
	"math"

	"github.com/viterin/vek/vek32"
)

type (
	// NoteTrigger is the sound producing collaborator of a sequencer. The
	// sequencer only tells it when a note starts and stops; what the note
	// sounds like is up to the implementation.
	NoteTrigger interface {
		NoteOn(id int, velocity float64)
		NoteOff(id int)
	}

	// AudioSink receives interleaved float32 audio.
	AudioSink interface {
		WriteAudio(buffer []float32) error
		Close() error
	}

	// AudioContext opens sinks on an audio device.
	AudioContext interface {
		Output() AudioSink
		Close() error
	}

	// Waveform is a buffer of interleaved float32 samples in [-1, 1].
	Waveform struct {
		Samples    []float32
		SampleRate int
		Channels   int
	}

	// NullTrigger is a NoteTrigger that ignores every note.
	NullTrigger struct{}
)

func (NullTrigger) NoteOn(id int, velocity float64) {}
func (NullTrigger) NoteOff(id int)                  {}

// playBlockFrames is the number of frames PlayWaveform writes at a time.
const playBlockFrames = 1024

// PlayWaveform writes w to sink block by block, stopping early with the
// error of ctx once it is done. Sinks are expected to block while their
// device buffer is full, which paces the writes.
func PlayWaveform(ctx context.Context, sink AudioSink, w *Waveform) error {
	block := playBlockFrames * max(w.Channels, 1)
	for start := 0; start < len(w.Samples); start += block {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sink.WriteAudio(w.Samples[start:min(start+block, len(w.Samples))]); err != nil {
			return err
		}
	}
	return nil
}

// Frames returns the number of sample frames, i.e. samples per channel.
func (w *Waveform) Frames() int {
	if w.Channels <= 0 {
		return 0
	}
	return len(w.Samples) / w.Channels
}

// Duration returns the length of the waveform in seconds.
func (w *Waveform) Duration() float64 {
	if w.SampleRate <= 0 {
		return 0
	}
	return float64(w.Frames()) / float64(w.SampleRate)
}

// Segment copies the part of the waveform between start and end, given in
// seconds. The frames [floor(start*rate), floor(end*rate)) are copied. The
// range must satisfy 0 <= start < end <= Duration().
func (w *Waveform) Segment(start, end float64) (*Waveform, error) {
	if w.SampleRate <= 0 || w.Channels <= 0 {
		return nil, fmt.Errorf("waveform has no format (rate %d, channels %d)", w.SampleRate, w.Channels)
	}
	if start < 0 || end > w.Duration() || start >= end {
		return nil, fmt.Errorf("invalid segment [%v, %v) of a %v s waveform", start, end, w.Duration())
	}
	first := int(math.Floor(start * float64(w.SampleRate)))
	last := min(int(math.Floor(end*float64(w.SampleRate))), w.Frames())
	samples := make([]float32, (last-first)*w.Channels)
	copy(samples, w.Samples[first*w.Channels:last*w.Channels])
	return &Waveform{Samples: samples, SampleRate: w.SampleRate, Channels: w.Channels}, nil
}

// Peak returns the largest absolute sample value.
func (w *Waveform) Peak() float32 {
	if len(w.Samples) == 0 {
		return 0
	}
	return vek32.Max(vek32.Abs(w.Samples))
}
