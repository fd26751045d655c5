package kmusic

type (
	// TransportState is the play state of a Transport.
	TransportState int

	// Transport advances the current step of a sequencer, one step for each
	// tick of an external clock. Ticks carry a quantum number (typically a
	// running counter of the clock); a second tick with the same quantum is
	// ignored, so a clock that fires twice within one period does not skip
	// steps.
	Transport struct {
		seq         *Sequencer
		state       TransportState
		lastQuantum int64
		ticked      bool
		page        int
	}

	// TickEvent describes what happened during one Tick.
	TickEvent struct {
		Step        int  // current step after the tick
		Page        int  // page containing Step
		Advanced    bool // the step moved
		Wrapped     bool // the step moved from the end back to zero
		PageChanged bool // Page differs from the page of the previous tick
		Finished    bool // a one-shot sequencer reached its end and stopped
	}
)

const (
	Stopped TransportState = iota
	Paused
	Playing
)

func (s TransportState) String() string {
	switch s {
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	default:
		return "stopped"
	}
}

// NewTransport returns a stopped transport driving seq.
func NewTransport(seq *Sequencer) *Transport {
	return &Transport{seq: seq, page: PageForStep(seq.Step)}
}

// State returns the play state.
func (t *Transport) State() TransportState {
	return t.state
}

// Playing reports whether the transport is in the Playing state.
func (t *Transport) Playing() bool {
	return t.state == Playing
}

// Step returns the current step of the driven sequencer.
func (t *Transport) Step() int {
	return t.seq.Step
}

// Start begins playback. Unless resuming from Paused, the step is reset to
// zero. Starting while already playing does nothing.
func (t *Transport) Start() {
	switch t.state {
	case Playing:
		return
	case Stopped:
		t.seq.Step = 0
		t.page = PageForStep(0)
	}
	t.state = Playing
	t.ticked = false
}

// Pause halts playback keeping the current step, so that Start resumes.
func (t *Transport) Pause() {
	if t.state == Playing {
		t.state = Paused
	}
}

// Stop halts playback. The notes and the current step are left as is; the
// next Start begins from step zero.
func (t *Transport) Stop() {
	t.state = Stopped
}

// Reset moves the current step to zero regardless of the state.
func (t *Transport) Reset() {
	t.seq.Step = 0
	t.page = PageForStep(0)
}

// Resync realigns the transport with a step that was moved outside Tick,
// such as one clamped by shrinking the sequencer. It reports whether the
// page of the playhead changed.
func (t *Transport) Resync() bool {
	page := PageForStep(t.seq.Step)
	if page == t.page {
		return false
	}
	t.page = page
	return true
}

// Tick advances the step by one when playing. A looping sequencer wraps
// from its last step to zero; a one-shot sequencer halts on its last step
// and the transport stops. Calling Tick again with the quantum of the
// previous call has no effect.
func (t *Transport) Tick(quantum int64) TickEvent {
	ev := TickEvent{Step: t.seq.Step, Page: t.page}
	if t.state != Playing || t.seq.Length <= 0 {
		return ev
	}
	if t.ticked && quantum == t.lastQuantum {
		return ev
	}
	t.ticked = true
	t.lastQuantum = quantum
	next := t.seq.Step + 1
	switch {
	case next < t.seq.Length:
		t.seq.Step = next
		ev.Advanced = true
	case t.seq.Loop:
		t.seq.Step = 0
		ev.Advanced = true
		ev.Wrapped = true
	default:
		t.seq.Step = t.seq.Length - 1
		t.state = Stopped
		ev.Finished = true
	}
	ev.Step = t.seq.Step
	ev.Page = PageForStep(t.seq.Step)
	if ev.Page != t.page {
		ev.PageChanged = true
		t.page = ev.Page
	}
	return ev
}
