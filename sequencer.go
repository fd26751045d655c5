package kmusic

import (
	"fmt"
	"math"
)

// StepsPerPage is the number of steps in one pattern page.
const StepsPerPage = 16

// Sequencer is a note store laid out on a step timeline that is a whole
// number of pages long. Length is zero only for a sequencer that has never
// been extended; NewSequencer returns a one page sequencer.
type Sequencer struct {
	Notes  NoteStore
	Length int  // total steps, a multiple of StepsPerPage
	Loop   bool // wrap around at the end instead of stopping
	Step   int  // current step, 0 <= Step < Length
}

// NewSequencer returns a looping sequencer with a single empty page.
func NewSequencer() *Sequencer {
	return &Sequencer{Length: StepsPerPage, Loop: true}
}

// PageForStep returns the 1-based page that contains step. Steps before the
// timeline map to the first page.
func PageForStep(step int) int {
	if step < 0 {
		return 1
	}
	return step/StepsPerPage + 1
}

// NumPages returns the number of pages in the timeline.
func (s *Sequencer) NumPages() int {
	return s.Length / StepsPerPage
}

// CurrentPage returns the page that contains the current step.
func (s *Sequencer) CurrentPage() int {
	return PageForStep(s.Step)
}

// StepRangeForPage returns the half-open step range [start, end) of the
// 1-based page, clamped to the length of the timeline. Pages past the end
// yield an empty range.
func (s *Sequencer) StepRangeForPage(page int) (start, end int) {
	if page < 1 {
		page = 1
	}
	start = min((page-1)*StepsPerPage, s.Length)
	end = min(page*StepsPerPage, s.Length)
	return start, end
}

// ExtendByOnePage grows the timeline by one page. With copyFromPrevious, the
// notes starting in the last page before the extension are duplicated one
// page later, with their ends clamped to the new length. Notes already
// occupying a copy's id and start step are kept. When the timeline
// was empty, the first page is copied onto itself instead; this mirrors how
// a very first pattern has always been seeded.
func (s *Sequencer) ExtendByOnePage(copyFromPrevious bool) {
	oldLength := s.Length
	s.Length += StepsPerPage
	if !copyFromPrevious {
		return
	}
	srcStart, offset := oldLength-StepsPerPage, StepsPerPage
	if oldLength == 0 {
		srcStart, offset = 0, 0
	}
	srcEnd := srcStart + StepsPerPage
	var copies []Note
	for n := range s.Notes.All() {
		if n.Start >= srcStart && n.Start < srcEnd {
			copies = append(copies, Note{
				ID:       n.ID,
				Start:    n.Start + offset,
				End:      min(n.End+offset, s.Length),
				Velocity: n.Velocity,
			})
		}
	}
	for _, n := range copies {
		if n.End <= n.Start {
			continue
		}
		if _, taken := s.Notes.Get(n.ID, n.Start); taken && offset != 0 {
			continue
		}
		s.Notes.Add(n)
	}
}

// AddNote places a note like NoteStore.AddNote, but refuses notes starting
// at or past the end of the timeline with an *InvalidRangeError.
func (s *Sequencer) AddNote(id, start, end int, velocity float64) error {
	if start >= s.Length {
		return &InvalidRangeError{ID: id, Start: start, End: end}
	}
	return s.Notes.AddNote(id, start, end, velocity)
}

// ShrinkByOnePage drops the last page and every note starting in it. It does
// nothing and returns false if the timeline would become shorter than one
// page.
func (s *Sequencer) ShrinkByOnePage() bool {
	if s.Length-StepsPerPage < StepsPerPage {
		return false
	}
	s.Notes.removeStartingIn(s.Length-StepsPerPage, s.Length)
	s.Length -= StepsPerPage
	if s.Step >= s.Length {
		s.Step = s.Length - 1
	}
	return true
}

// SetLength sets the timeline length directly, as done by the sampler's
// length selector. Notes starting past the new end are removed.
func (s *Sequencer) SetLength(steps int) error {
	if steps < StepsPerPage || steps%StepsPerPage != 0 {
		return fmt.Errorf("sequencer length %d is not a positive multiple of %d", steps, StepsPerPage)
	}
	s.Notes.removeStartingIn(steps, math.MaxInt)
	s.Length = steps
	if s.Step >= s.Length {
		s.Step = s.Length - 1
	}
	return nil
}

// Track returns the persisted form of the sequencer. The notes are sorted
// so that the same sequencer always yields the same record.
func (s *Sequencer) Track() Track {
	return Track{Length: s.Length, Loop: s.Loop, Notes: s.Notes.Sorted()}
}

// NewSequencerFromTrack rebuilds a sequencer from its persisted form. The
// current step starts at zero.
func NewSequencerFromTrack(t Track) (*Sequencer, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	s := &Sequencer{Length: t.Length, Loop: t.Loop}
	for _, n := range t.Notes {
		if err := s.Notes.Add(n); err != nil {
			return nil, err
		}
	}
	return s, nil
}
