package tracker

import (
	"fmt"
	"math"
	"slices"

	"github.com/kmusic/kmusic"
)

// BPM returns the tempo of the open project.
func (s *Service) BPM() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.BPM
}

// SetBPM changes the tempo. A running clock picks up the new period on its
// next tick.
func (s *Service) SetBPM(bpm float64) error {
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return fmt.Errorf("BPM should be > 0, got %v", bpm)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project.BPM == bpm {
		return nil
	}
	s.change(func() error {
		s.project.BPM = bpm
		return nil
	})
	s.signalBPM()
	return nil
}

// Patch returns the selected preset index and its display name.
func (s *Service) Patch() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.PatchIndex, kmusic.PresetTitle(s.project.PatchIndex)
}

// NextPatch selects the next preset, wrapping around after the last.
func (s *Service) NextPatch() int {
	return s.stepPatch(1)
}

// PrevPatch selects the previous preset, wrapping around before the first.
func (s *Service) PrevPatch() int {
	return s.stepPatch(-1)
}

func (s *Service) stepPatch(delta int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(kmusic.Presets)
	s.change(func() error {
		s.project.PatchIndex = ((s.project.PatchIndex+delta)%n + n) % n
		return nil
	})
	return s.project.PatchIndex
}

// Param returns the value of a synth or mixer parameter.
func (s *Service) Param(name string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.Params.Get(name)
}

// SetParam sets a parameter, clamped to [0, 1].
func (s *Service) SetParam(name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.change(func() error { return s.project.Params.Set(name, value) })
}

// Chops returns a copy of the chop markers.
func (s *Service) Chops() kmusic.Chops {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.project.Chops)
}

// AddChop adds a marker at t seconds and returns its index.
func (s *Service) AddChop(t float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := -1
	err := s.change(func() (err error) {
		i, err = s.project.Chops.Add(t)
		return err
	})
	return i, err
}

// NudgeChop moves a marker by delta seconds, typically ±kmusic.TrimStep or
// ±kmusic.MicroStep, and returns its new index.
func (s *Service) NudgeChop(index int, delta float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := -1
	err := s.change(func() (err error) {
		i, err = s.project.Chops.Nudge(index, delta)
		return err
	})
	return i, err
}

// RemoveChop removes the marker at index.
func (s *Service) RemoveChop(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.change(func() error { return s.project.Chops.Remove(index) })
}

// ClearChops removes every marker.
func (s *Service) ClearChops() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.project.Chops) > 0 {
		s.change(func() error {
			s.project.Chops = kmusic.Chops{}
			return nil
		})
	}
}

// Source returns the reference to the source audio of the project.
func (s *Service) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.Source
}

// SetSource sets the source audio reference. The chops are kept, as they
// are often reused when replacing a missing file.
func (s *Service) SetSource(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.change(func() error {
		s.project.Source = ref
		return nil
	})
}

// MatchTempo sets the tempo to the one detected in w, typically the source
// audio of the project, rounded to a hundredth of a BPM.
func (s *Service) MatchTempo(w *kmusic.Waveform) (float64, error) {
	bpm, err := w.DetectBPM()
	if err != nil {
		return 0, err
	}
	bpm = math.Round(bpm*100) / 100
	if err := s.SetBPM(bpm); err != nil {
		return 0, err
	}
	s.logger.Info("tempo matched to source", "bpm", bpm)
	return bpm, nil
}
