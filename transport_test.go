package kmusic_test

import (
	"testing"

	"github.com/kmusic/kmusic"
)

func TestTransportLoops(t *testing.T) {
	seq := &kmusic.Sequencer{Length: 32, Loop: true}
	tr := kmusic.NewTransport(seq)
	tr.Start()
	pageChanges := 0
	wraps := 0
	for q := int64(1); q <= 64; q++ {
		ev := tr.Tick(q)
		if !ev.Advanced {
			t.Fatalf("tick %d did not advance", q)
		}
		if ev.PageChanged {
			pageChanges++
		}
		if ev.Wrapped {
			wraps++
		}
		if ev.Step != int(q%32) {
			t.Fatalf("tick %d: step = %d", q, ev.Step)
		}
	}
	// 1->2 at step 16, 2->1 at the wrap, twice over
	if pageChanges != 4 {
		t.Fatalf("page changed %d times, expected 4", pageChanges)
	}
	if wraps != 2 {
		t.Fatalf("wrapped %d times, expected 2", wraps)
	}
}

func TestTransportPageChangedOncePerBoundary(t *testing.T) {
	seq := &kmusic.Sequencer{Length: 48, Loop: true}
	tr := kmusic.NewTransport(seq)
	tr.Start()
	for q := int64(1); q < 48; q++ {
		ev := tr.Tick(q)
		expected := kmusic.PageForStep(ev.Step) != kmusic.PageForStep(ev.Step-1)
		if ev.PageChanged != expected {
			t.Fatalf("step %d: PageChanged = %v, expected %v", ev.Step, ev.PageChanged, expected)
		}
	}
}

func TestTransportOneShotHalts(t *testing.T) {
	seq := &kmusic.Sequencer{Length: 16}
	tr := kmusic.NewTransport(seq)
	tr.Start()
	var ev kmusic.TickEvent
	for q := int64(1); q <= 20; q++ {
		ev = tr.Tick(q)
		if ev.Finished {
			break
		}
	}
	if !ev.Finished || ev.Step != 15 {
		t.Fatalf("expected to halt at step 15, got %+v", ev)
	}
	if tr.State() != kmusic.Stopped {
		t.Fatalf("transport should stop at the end, state = %v", tr.State())
	}
	if ev := tr.Tick(100); ev.Advanced || ev.Step != 15 {
		t.Fatalf("stopped transport advanced: %+v", ev)
	}
}

func TestTransportSameQuantumIsIgnored(t *testing.T) {
	seq := &kmusic.Sequencer{Length: 16, Loop: true}
	tr := kmusic.NewTransport(seq)
	tr.Start()
	tr.Tick(7)
	tr.Tick(7)
	tr.Tick(7)
	if seq.Step != 1 {
		t.Fatalf("step = %d, expected 1", seq.Step)
	}
	tr.Tick(8)
	if seq.Step != 2 {
		t.Fatalf("step = %d, expected 2", seq.Step)
	}
}

func TestTransportPauseResumeStop(t *testing.T) {
	seq := &kmusic.Sequencer{Length: 16, Loop: true}
	seq.Notes.AddNote(1, 0, 1, 1)
	tr := kmusic.NewTransport(seq)
	tr.Start()
	tr.Tick(1)
	tr.Tick(2)
	tr.Pause()
	tr.Tick(3)
	if seq.Step != 2 {
		t.Fatalf("paused transport advanced to %d", seq.Step)
	}
	tr.Start()
	if seq.Step != 2 {
		t.Fatalf("resume reset the step to %d", seq.Step)
	}
	tr.Tick(4)
	tr.Stop()
	if seq.Step != 3 || seq.Notes.Len() != 1 {
		t.Fatalf("stop changed step or notes")
	}
	tr.Start()
	if seq.Step != 0 {
		t.Fatalf("start after stop should reset the step, got %d", seq.Step)
	}
	tr.Tick(5)
	tr.Reset()
	if seq.Step != 0 || !tr.Playing() {
		t.Fatalf("reset: step %d, state %v", seq.Step, tr.State())
	}
}

func TestTransportResyncAfterShrink(t *testing.T) {
	seq := &kmusic.Sequencer{Length: 32, Loop: true}
	tr := kmusic.NewTransport(seq)
	tr.Start()
	for q := int64(1); q <= 20; q++ {
		tr.Tick(q)
	}
	seq.ShrinkByOnePage()
	if seq.Step != 15 {
		t.Fatalf("step = %d, expected it clamped to 15", seq.Step)
	}
	if !tr.Resync() {
		t.Fatalf("Resync should report the move from page 2 to page 1")
	}
	if tr.Resync() {
		t.Fatalf("second Resync reported a change")
	}
	ev := tr.Tick(21)
	if !ev.Wrapped || ev.Step != 0 || ev.PageChanged {
		t.Fatalf("wrapping within page 1 reported %+v", ev)
	}
}
