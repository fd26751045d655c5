package tracker_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kmusic/kmusic"
	"github.com/kmusic/kmusic/tracker"
)

func TestUndoRedo(t *testing.T) {
	s, _ := newTestService(t)
	if s.Undo() || s.Redo() {
		t.Fatalf("a fresh project should have nothing to undo or redo")
	}
	empty := s.Project()
	s.AddNote(kmusic.Melodic, 60, 0, 4, 1)
	s.SetBPM(140)
	full := s.Project()
	if !s.Undo() {
		t.Fatalf("undo refused")
	}
	if s.BPM() != empty.BPM {
		t.Fatalf("BPM not undone: %v", s.BPM())
	}
	if !s.Undo() {
		t.Fatalf("second undo refused")
	}
	if got := s.Project(); !reflect.DeepEqual(got, empty) {
		t.Fatalf("got %+v, expected %+v", got, empty)
	}
	if s.Undo() {
		t.Fatalf("undo past the first change")
	}
	s.Redo()
	s.Redo()
	if got := s.Project(); !reflect.DeepEqual(got, full) {
		t.Fatalf("got %+v, expected %+v after redo", got, full)
	}
	s.Undo()
	s.NextPatch()
	if s.Redo() {
		t.Fatalf("a new change should clear the redo stack")
	}
}

func TestFailedEditIsNotUndoable(t *testing.T) {
	s, _ := newTestService(t)
	if err := s.AddNote(kmusic.Melodic, 60, 4, 2, 1); err == nil {
		t.Fatalf("expected an error for an inverted range")
	}
	if s.Undo() {
		t.Fatalf("a failed edit was pushed to the undo stack")
	}
}

func TestUndoClampsPlayhead(t *testing.T) {
	s, rec := newTestService(t)
	s.ExtendPage(kmusic.Drum, false)
	s.SetLoop(kmusic.Drum, true)
	s.Start()
	for q := int64(1); q <= 20; q++ {
		s.Tick(q)
	}
	rec.take()
	s.Undo() // loop flag
	s.Undo() // second page
	step, err := s.Step(kmusic.Drum)
	if err != nil || step != 15 {
		t.Fatalf("step = %d (%v), expected 15", step, err)
	}
	if state, _ := s.State(kmusic.Drum); state != kmusic.Playing {
		t.Fatalf("undo stopped playback")
	}
}

func TestRecovery(t *testing.T) {
	s, _ := newTestService(t)
	path := filepath.Join(t.TempDir(), "recovery.json")
	if err := s.SaveRecovery(path); err != nil {
		t.Fatalf("SaveRecovery failed: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("an unchanged project should not be written, stat: %v", err)
	}
	s.SetName("crashy")
	s.AddNote(kmusic.Sample, 3, 0, 1, 0.5)
	if err := s.SaveRecovery(path); err != nil {
		t.Fatalf("SaveRecovery failed: %v", err)
	}
	expected := s.Project()

	s2 := tracker.NewService(nil)
	defer s2.Close()
	if err := s2.LoadRecovery(path); err != nil {
		t.Fatalf("LoadRecovery failed: %v", err)
	}
	if got := s2.Project(); !reflect.DeepEqual(got, expected) {
		t.Fatalf("got %+v, expected %+v", got, expected)
	}
	if !s2.ChangedSinceSave() {
		t.Fatalf("a recovered project should count as unsaved")
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("recovery file should be removed after loading")
	}
}

func TestMatchTempoIsUndoable(t *testing.T) {
	s, _ := newTestService(t)
	// a click every 0.6 s is 100 BPM
	w := &kmusic.Waveform{Samples: make([]float32, 6*8000), SampleRate: 8000, Channels: 1}
	for beat := 0; beat < 10; beat++ {
		w.Samples[beat*4800] = 1
	}
	bpm, err := s.MatchTempo(w)
	if err != nil {
		t.Fatalf("MatchTempo failed: %v", err)
	}
	if bpm != 100 || s.BPM() != 100 {
		t.Fatalf("tempo = %v (returned %v), expected 100", s.BPM(), bpm)
	}
	s.Undo()
	if s.BPM() != kmusic.DefaultBPM {
		t.Fatalf("undo left the tempo at %v", s.BPM())
	}
	silent := &kmusic.Waveform{Samples: make([]float32, 8000), SampleRate: 8000, Channels: 1}
	if _, err := s.MatchTempo(silent); !errors.Is(err, kmusic.ErrNoBeats) {
		t.Fatalf("silence returned %v, expected ErrNoBeats", err)
	}
}
