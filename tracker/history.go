package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kmusic/kmusic"
	"github.com/kmusic/kmusic/store"
)

const maxUndo = 256

// change runs f and, if it succeeds, records the state before it on the
// undo stack and marks the project changed. The caller holds the lock.
func (s *Service) change(f func() error) error {
	before := s.snapshot()
	if err := f(); err != nil {
		return err
	}
	s.undoStack = pushBounded(s.undoStack, before)
	s.redoStack = s.redoStack[:0]
	s.changedSinceSave = true
	s.changedSinceRecovery = true
	return nil
}

func pushBounded(stack []kmusic.Project, p kmusic.Project) []kmusic.Project {
	if len(stack) >= maxUndo {
		stack = stack[len(stack)-maxUndo+1:]
	}
	return append(stack, p)
}

// Undo reverts the last change. It reports false if there is nothing to
// undo. Playback continues; playheads past a shortened pattern are clamped.
func (s *Service) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undoStack) == 0 {
		return false
	}
	s.redoStack = pushBounded(s.redoStack, s.snapshot())
	s.restore(s.undoStack[len(s.undoStack)-1])
	s.undoStack = s.undoStack[:len(s.undoStack)-1]
	return true
}

// Redo reapplies the last undone change. It reports false if there is
// nothing to redo.
func (s *Service) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.redoStack) == 0 {
		return false
	}
	s.undoStack = pushBounded(s.undoStack, s.snapshot())
	s.restore(s.redoStack[len(s.redoStack)-1])
	s.redoStack = s.redoStack[:len(s.redoStack)-1]
	return true
}

// restore puts a snapshot back in place, keeping the sequencers, and thus
// their transports, alive.
func (s *Service) restore(p kmusic.Project) {
	for _, r := range kmusic.Roles() {
		t, seq := p.Track(r), s.seqs[r]
		seq.Notes.Clear()
		for _, n := range t.Notes {
			seq.Notes.Add(n)
		}
		seq.Length = t.Length
		seq.Loop = t.Loop
		if seq.Step >= seq.Length {
			seq.Step = max(seq.Length-1, 0)
		}
		if s.transports[r].Resync() {
			s.publishStep(r, seq.Step, true)
		}
		*p.Track(r) = kmusic.Track{}
	}
	bpmChanged := s.project.BPM != p.BPM
	s.project = p
	s.changedSinceSave = true
	s.changedSinceRecovery = true
	if bpmChanged {
		s.signalBPM()
	}
}

// SaveRecovery writes the open project to path as JSON if it has changed
// since the last recovery save, so that work survives a crash before it is
// saved to the store.
func (s *Service) SaveRecovery(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.changedSinceRecovery {
		return nil
	}
	if path == "" {
		return errors.New("no recovery file path")
	}
	out, err := json.Marshal(s.snapshot())
	if err != nil {
		return fmt.Errorf("could not marshal recovery data: %w", err)
	}
	if err := store.WriteFileAtomic(path, out); err != nil {
		return fmt.Errorf("could not write recovery file: %w", err)
	}
	s.changedSinceRecovery = false
	return nil
}

// LoadRecovery opens the project saved by SaveRecovery. The project is
// marked as changed since it has not been saved to the store. The file is
// removed once read.
func (s *Service) LoadRecovery(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var p kmusic.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("could not unmarshal recovery data: %w", err)
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return &kmusic.CorruptDataError{Name: path, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(p); err != nil {
		return &kmusic.CorruptDataError{Name: path, Err: err}
	}
	s.changedSinceSave = true
	os.Remove(path)
	return nil
}
