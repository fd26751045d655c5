package kmusic

import (
	"cmp"
	"fmt"
	"iter"
	"maps"
	"slices"
)

type (
	// Note is a timed event on the step grid. ID is a pitch for the melodic
	// sequencer or a sample/pad slot for the sampler and drums. The note
	// sounds from Start (inclusive) to End (exclusive). Notes are values;
	// editing a note means replacing it.
	Note struct {
		ID       int     `yaml:"id" json:"id"`
		Start    int     `yaml:"start" json:"start"`
		End      int     `yaml:"end" json:"end"`
		Velocity float64 `yaml:"velocity" json:"velocity"`
	}

	// NoteStore is the set of notes of one sequencer. At most one note can
	// exist for each (ID, Start) pair; adding a note on an occupied pair
	// replaces the previous one. The zero value is an empty store ready to
	// use.
	NoteStore struct {
		notes map[noteKey]Note
	}

	noteKey struct {
		id    int
		start int
	}
)

func (n Note) key() noteKey {
	return noteKey{id: n.ID, start: n.Start}
}

// Validate returns an *InvalidRangeError if the note does not describe a
// non-empty range starting at or after step zero. A velocity outside
// [0, 1], NaN included, is an error too.
func (n Note) Validate() error {
	if n.Start < 0 || n.End <= n.Start {
		return &InvalidRangeError{ID: n.ID, Start: n.Start, End: n.End}
	}
	if !(n.Velocity >= 0 && n.Velocity <= 1) {
		return fmt.Errorf("note %d at step %d has velocity %v outside [0, 1]", n.ID, n.Start, n.Velocity)
	}
	return nil
}

// Length returns the number of steps the note sounds.
func (n Note) Length() int {
	return n.End - n.Start
}

// AddNote places a note on the grid, replacing any note with the same id
// and start step. Velocity is clamped to [0, 1]; NaN is refused. On error
// the store is not modified.
func (s *NoteStore) AddNote(id, start, end int, velocity float64) error {
	n := Note{ID: id, Start: start, End: end, Velocity: clamp(velocity, 0, 1)}
	if err := n.Validate(); err != nil {
		return err
	}
	if s.notes == nil {
		s.notes = make(map[noteKey]Note)
	}
	s.notes[n.key()] = n
	return nil
}

// Add places an already constructed note; see AddNote.
func (s *NoteStore) Add(n Note) error {
	return s.AddNote(n.ID, n.Start, n.End, n.Velocity)
}

// RemoveNotesInRange removes every note with the given id whose start step
// falls in [start, end). Nothing happens if no note matches.
func (s *NoteStore) RemoveNotesInRange(id, start, end int) {
	for k := range s.notes {
		if k.id == id && k.start >= start && k.start < end {
			delete(s.notes, k)
		}
	}
}

// removeStartingIn removes notes of any id starting in [start, end).
func (s *NoteStore) removeStartingIn(start, end int) {
	for k := range s.notes {
		if k.start >= start && k.start < end {
			delete(s.notes, k)
		}
	}
}

// Get returns the note with the given id starting at start, if any.
func (s *NoteStore) Get(id, start int) (Note, bool) {
	n, ok := s.notes[noteKey{id: id, start: start}]
	return n, ok
}

// Len returns the number of notes in the store.
func (s *NoteStore) Len() int {
	return len(s.notes)
}

// Clear removes all notes.
func (s *NoteStore) Clear() {
	clear(s.notes)
}

// All returns a sequence over a snapshot of the notes, taken when iteration
// starts. The order is unspecified. The sequence can be ranged over any
// number of times and each iteration sees the store as it was at that time.
func (s *NoteStore) All() iter.Seq[Note] {
	return func(yield func(Note) bool) {
		snapshot := slices.Collect(maps.Values(s.notes))
		for _, n := range snapshot {
			if !yield(n) {
				return
			}
		}
	}
}

// StartingAt returns the notes whose start step is exactly step.
func (s *NoteStore) StartingAt(step int) []Note {
	var ret []Note
	for k, n := range s.notes {
		if k.start == step {
			ret = append(ret, n)
		}
	}
	slices.SortFunc(ret, compareNotes)
	return ret
}

// Sorted returns all notes ordered by start step and then by id. The
// returned slice is never nil.
func (s *NoteStore) Sorted() []Note {
	ret := make([]Note, 0, len(s.notes))
	for _, n := range s.notes {
		ret = append(ret, n)
	}
	slices.SortFunc(ret, compareNotes)
	return ret
}

// Copy makes a deep copy of the store.
func (s *NoteStore) Copy() NoteStore {
	return NoteStore{notes: maps.Clone(s.notes)}
}

func compareNotes(a, b Note) int {
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func clamp[T cmp.Ordered](value, lo, hi T) T {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
