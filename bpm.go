package kmusic

import (
	"errors"

	"github.com/viterin/vek/vek32"
)

const (
	// BeatThreshold is the absolute sample level a frame has to exceed to
	// count as the onset of a beat.
	BeatThreshold = 0.1
	// MinBeatInterval is the shortest time between two beats, in seconds.
	// Frames above the threshold closer than this to the previous onset
	// belong to the same beat.
	MinBeatInterval = 0.2
)

// ErrNoBeats is returned by DetectBPM when fewer than two beats are found.
var ErrNoBeats = errors.New("no beats detected")

// DetectBPM estimates the tempo of the waveform from the average interval
// between beat onsets. An onset is the first frame in which any channel
// exceeds BeatThreshold, at least MinBeatInterval after the previous onset.
// This suits loops with clear transients, such as drum breaks.
func (w *Waveform) DetectBPM() (float64, error) {
	frames := w.Frames()
	if frames == 0 || w.SampleRate <= 0 {
		return 0, ErrNoBeats
	}
	levels := vek32.Abs(w.Samples[:frames*w.Channels])
	minGap := int(MinBeatInterval * float64(w.SampleRate))
	first, last, beats := -1, -1, 0
	for f := 0; f < frames; f++ {
		if vek32.Max(levels[f*w.Channels:(f+1)*w.Channels]) <= BeatThreshold {
			continue
		}
		if last >= 0 && f-last <= minGap {
			continue
		}
		if first < 0 {
			first = f
		}
		last = f
		beats++
	}
	if beats < 2 {
		return 0, ErrNoBeats
	}
	// the mean of the intervals telescopes to the span over their count
	interval := float64(last-first) / float64(beats-1) / float64(w.SampleRate)
	return 60 / interval, nil
}
