package tracker

import (
	"slices"

	"github.com/kmusic/kmusic"
)

// player keeps track of which notes of one sequencer are sounding and turns
// playhead movement into NoteOn and NoteOff calls on a trigger. Only one
// instance of an id can sound at a time; a note starting on an id that is
// still sounding retriggers it.
type player struct {
	trigger  kmusic.NoteTrigger
	sounding map[int]kmusic.Note
}

func newPlayer(trigger kmusic.NoteTrigger) *player {
	if trigger == nil {
		trigger = kmusic.NullTrigger{}
	}
	return &player{trigger: trigger, sounding: make(map[int]kmusic.Note)}
}

// enterStep releases the notes that have ended by step, then starts the
// notes that begin on it. After a wrap every sounding note is released.
func (p *player) enterStep(seq *kmusic.Sequencer, step int, wrapped bool) {
	for _, id := range p.soundingIDs() {
		n := p.sounding[id]
		if wrapped || step >= n.End || step < n.Start {
			p.release(id)
		}
	}
	for _, n := range seq.Notes.StartingAt(step) {
		p.start(n)
	}
}

func (p *player) start(n kmusic.Note) {
	if _, ok := p.sounding[n.ID]; ok {
		p.release(n.ID)
	}
	p.trigger.NoteOn(n.ID, n.Velocity)
	p.sounding[n.ID] = n
}

func (p *player) release(id int) {
	if _, ok := p.sounding[id]; !ok {
		return
	}
	delete(p.sounding, id)
	p.trigger.NoteOff(id)
}

func (p *player) releaseAll() {
	for _, id := range p.soundingIDs() {
		p.release(id)
	}
}

func (p *player) soundingIDs() []int {
	ids := make([]int, 0, len(p.sounding))
	for id := range p.sounding {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
