package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kmusic/kmusic"
	"github.com/kmusic/kmusic/store"
)

type (
	// Service owns the open project. It is safe for concurrent use.
	Service struct {
		mu sync.Mutex

		project    kmusic.Project // header fields; tracks live in seqs
		seqs       [kmusic.NumRoles]*kmusic.Sequencer
		transports [kmusic.NumRoles]*kmusic.Transport
		players    [kmusic.NumRoles]*player

		changedSinceSave     bool
		changedSinceRecovery bool
		undoStack            []kmusic.Project
		redoStack            []kmusic.Project
		exportTemplate       string

		broker    *Broker
		logger    *log.Logger
		scheduler *Scheduler
		bpmSignal chan struct{}
	}

	// Option configures a Service.
	Option func(*Service)
)

// ErrUnknownRole is returned for a role outside Melodic, Sample and Drum.
var ErrUnknownRole = errors.New("unknown sequencer role")

// WithLogger sets the logger of the service. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTrigger sets the trigger that the notes of a role are played on.
// Roles without a trigger play into a kmusic.NullTrigger.
func WithTrigger(r kmusic.Role, t kmusic.NoteTrigger) Option {
	return func(s *Service) {
		if r >= 0 && r < kmusic.NumRoles {
			s.players[r] = newPlayer(t)
		}
	}
}

// WithExportTemplate sets the text/template used to name exported chops.
// See ExportItem for the fields available.
func WithExportTemplate(tmpl string) Option {
	return func(s *Service) { s.exportTemplate = tmpl }
}

// NewService returns a service with an empty, untitled project open.
func NewService(broker *Broker, options ...Option) *Service {
	if broker == nil {
		broker = NewBroker()
	}
	s := &Service{
		broker:         broker,
		logger:         log.Default(),
		scheduler:      NewScheduler(),
		exportTemplate: DefaultExportTemplate,
		bpmSignal:      make(chan struct{}, 1),
	}
	for _, o := range options {
		o(s)
	}
	for r := range s.players {
		if s.players[r] == nil {
			s.players[r] = newPlayer(nil)
		}
	}
	s.load(kmusic.NewProject("untitled"))
	return s
}

// Broker returns the broker the service sends its messages to.
func (s *Service) Broker() *Broker {
	return s.broker
}

// load replaces the open project. The caller holds the lock or is the
// constructor.
func (s *Service) load(p kmusic.Project) error {
	var seqs [kmusic.NumRoles]*kmusic.Sequencer
	for _, r := range kmusic.Roles() {
		seq, err := kmusic.NewSequencerFromTrack(*p.Track(r))
		if err != nil {
			return fmt.Errorf("%v track: %w", r, err)
		}
		seqs[r] = seq
	}
	for _, pl := range s.players {
		pl.releaseAll()
	}
	s.scheduler.CancelAll()
	s.project = p.Copy()
	for _, r := range kmusic.Roles() {
		*s.project.Track(r) = kmusic.Track{}
		s.seqs[r] = seqs[r]
		s.transports[r] = kmusic.NewTransport(seqs[r])
	}
	s.changedSinceSave = false
	s.changedSinceRecovery = false
	s.undoStack = s.undoStack[:0]
	s.redoStack = s.redoStack[:0]
	s.signalBPM()
	return nil
}

// NewProject replaces the open project with an empty one.
func (s *Service) NewProject(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(kmusic.NewProject(name))
	s.logger.Info("new project", "name", name)
}

// Open loads a project from the store. Warnings, such as missing source
// audio, are logged and published to the broker; they do not prevent
// opening. On error the open project is kept.
func (s *Service) Open(st *store.Store, name string) ([]error, error) {
	p, warnings, err := st.Load(name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(p); err != nil {
		return nil, &kmusic.CorruptDataError{Name: name, Err: err}
	}
	for _, w := range warnings {
		s.warn(w)
	}
	s.logger.Info("opened project", "name", name, "bpm", p.BPM, "warnings", len(warnings))
	return warnings, nil
}

// Save writes the open project to the store.
func (s *Service) Save(st *store.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.snapshot()
	if err := st.Save(p); err != nil {
		return err
	}
	s.changedSinceSave = false
	s.logger.Info("saved project", "name", p.Name)
	return nil
}

// Delete removes a project and its exports from the store. Deleting the
// open project leaves it open, as unsaved.
func (s *Service) Delete(st *store.Store, name string) error {
	warnings, err := st.Delete(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range warnings {
		s.warn(w)
	}
	if store.SanitizeName(name) == store.SanitizeName(s.project.Name) {
		s.changedSinceSave = true
	}
	return nil
}

// Project returns a copy of the open project including its tracks.
func (s *Service) Project() kmusic.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Service) snapshot() kmusic.Project {
	p := s.project.Copy()
	for _, r := range kmusic.Roles() {
		*p.Track(r) = s.seqs[r].Track()
	}
	return p
}

// ChangedSinceSave reports whether the project has been modified since it
// was last opened or saved.
func (s *Service) ChangedSinceSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.changedSinceSave
}

// SetName renames the open project. The next Save goes to the new slot.
func (s *Service) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.change(func() error {
		s.project.Name = name
		return nil
	})
}

func (s *Service) seq(r kmusic.Role) (*kmusic.Sequencer, error) {
	if r < 0 || r >= kmusic.NumRoles {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int(r))
	}
	return s.seqs[r], nil
}

// edit runs f on the sequencer of role r under the lock as an undoable
// change.
func (s *Service) edit(r kmusic.Role, f func(seq *kmusic.Sequencer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, err := s.seq(r)
	if err != nil {
		return err
	}
	if err := s.change(func() error { return f(seq) }); err != nil {
		return err
	}
	if s.transports[r].Resync() {
		s.publishStep(r, seq.Step, true)
	}
	return nil
}

// AddNote places a note on the pattern of a role. Notes starting past the
// end of the pattern are refused with a *kmusic.InvalidRangeError.
func (s *Service) AddNote(r kmusic.Role, id, start, end int, velocity float64) error {
	return s.edit(r, func(seq *kmusic.Sequencer) error {
		return seq.AddNote(id, start, end, velocity)
	})
}

// RemoveNotesInRange removes the notes with the given id starting in
// [start, end).
func (s *Service) RemoveNotesInRange(r kmusic.Role, id, start, end int) error {
	return s.edit(r, func(seq *kmusic.Sequencer) error {
		seq.Notes.RemoveNotesInRange(id, start, end)
		return nil
	})
}

// ClearNotes removes every note of a role and silences it.
func (s *Service) ClearNotes(r kmusic.Role) error {
	return s.edit(r, func(seq *kmusic.Sequencer) error {
		seq.Notes.Clear()
		s.players[r].releaseAll()
		return nil
	})
}

// Notes returns the notes of a role sorted by start step and id.
func (s *Service) Notes(r kmusic.Role) ([]kmusic.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, err := s.seq(r)
	if err != nil {
		return nil, err
	}
	return seq.Notes.Sorted(), nil
}

// ExtendPage adds a page to a role's pattern, optionally repeating the
// previous last page.
func (s *Service) ExtendPage(r kmusic.Role, copyFromPrevious bool) error {
	return s.edit(r, func(seq *kmusic.Sequencer) error {
		seq.ExtendByOnePage(copyFromPrevious)
		return nil
	})
}

// ShrinkPage drops the last page of a role's pattern. It reports false
// when the pattern is already a single page.
func (s *Service) ShrinkPage(r kmusic.Role) (bool, error) {
	var shrunk bool
	err := s.edit(r, func(seq *kmusic.Sequencer) error {
		if shrunk = seq.ShrinkByOnePage(); !shrunk {
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		err = nil
	}
	return shrunk, err
}

var errNoChange = errors.New("no change")

// SetLength sets the length of a role's pattern in steps.
func (s *Service) SetLength(r kmusic.Role, steps int) error {
	return s.edit(r, func(seq *kmusic.Sequencer) error {
		return seq.SetLength(steps)
	})
}

// SetLoop sets whether a role's pattern loops or plays once.
func (s *Service) SetLoop(r kmusic.Role, loop bool) error {
	return s.edit(r, func(seq *kmusic.Sequencer) error {
		seq.Loop = loop
		return nil
	})
}

// CurrentPage returns the page the playhead of a role is on, and the
// number of pages in its pattern.
func (s *Service) CurrentPage(r kmusic.Role) (page, pages int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, err := s.seq(r)
	if err != nil {
		return 0, 0, err
	}
	return seq.CurrentPage(), seq.NumPages(), nil
}

// Step returns the current step of a role.
func (s *Service) Step(r kmusic.Role) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, err := s.seq(r)
	if err != nil {
		return 0, err
	}
	return seq.Step, nil
}

// Start starts all sequencers and plays the notes on their current step.
// Sequencers that were paused resume where they were; others start from
// step zero.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range kmusic.Roles() {
		t := s.transports[r]
		if t.Playing() {
			continue
		}
		t.Start()
		seq := s.seqs[r]
		s.players[r].enterStep(seq, seq.Step, false)
		s.publishStep(r, seq.Step, true)
	}
	s.logger.Debug("transport started")
}

// Pause halts all sequencers, keeping their steps.
func (s *Service) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range kmusic.Roles() {
		s.transports[r].Pause()
		s.players[r].releaseAll()
	}
}

// Stop halts all sequencers and silences every sounding note. The notes of
// the patterns are kept.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
	s.logger.Debug("transport stopped")
}

func (s *Service) stop() {
	for _, r := range kmusic.Roles() {
		s.transports[r].Stop()
		s.players[r].releaseAll()
	}
}

// Reset moves every playhead back to step zero.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range kmusic.Roles() {
		s.transports[r].Reset()
		s.players[r].releaseAll()
		s.publishStep(r, 0, true)
	}
}

// State returns the transport state of a role.
func (s *Service) State(r kmusic.Role) (kmusic.TransportState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.seq(r); err != nil {
		return kmusic.Stopped, err
	}
	return s.transports[r].State(), nil
}

// Tick advances every playing sequencer by one step, releases the notes
// that end and plays the notes that start. A repeated quantum is ignored.
// The events are indexed by role.
func (s *Service) Tick(quantum int64) [kmusic.NumRoles]kmusic.TickEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var events [kmusic.NumRoles]kmusic.TickEvent
	for _, r := range kmusic.Roles() {
		ev := s.transports[r].Tick(quantum)
		events[r] = ev
		switch {
		case ev.Finished:
			s.players[r].releaseAll()
		case ev.Advanced:
			s.players[r].enterStep(s.seqs[r], ev.Step, ev.Wrapped)
			s.publishStep(r, ev.Step, ev.PageChanged)
		}
	}
	return events
}

func (s *Service) publishStep(r kmusic.Role, step int, pageChanged bool) {
	page := kmusic.PageForStep(step)
	TrySend(s.broker.ToSync, StepPosition{Role: r, Step: step, Page: page})
	if pageChanged {
		TrySend(s.broker.ToUI, any(PageChanged{Role: r, Page: page, Step: step}))
	}
}

// StepPeriod returns the duration of one step at the current tempo. A
// step is a sixteenth note.
func (s *Service) StepPeriod() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stepPeriod(s.project.BPM)
}

func stepPeriod(bpm float64) time.Duration {
	return time.Duration(float64(time.Minute) / bpm / 4)
}

// Run ticks the service with the wall clock until ctx is done. The tick
// period follows the tempo; changing the BPM re-arms the clock. A logger
// stored in ctx with log.WithContext takes precedence over the service
// logger.
func (s *Service) Run(ctx context.Context) error {
	logger := s.logger
	if l, ok := ctx.Value(log.ContextKey).(*log.Logger); ok && l != nil {
		logger = l
	}
	period := s.StepPeriod()
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	logger.Debug("clock running", "period", period)
	var quantum int64
	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		case <-s.bpmSignal:
			period = s.StepPeriod()
			ticker.Reset(period)
			logger.Debug("clock re-armed", "period", period)
		case <-ticker.C:
			quantum++
			for r, ev := range s.Tick(quantum) {
				if ev.Finished {
					logger.Debug("sequencer finished", "role", kmusic.Role(r))
				}
			}
		}
	}
}

func (s *Service) signalBPM() {
	TrySend(s.bpmSignal, struct{}{})
}

// Audition plays a note on the trigger of a role right away and releases
// it after duration. The returned function cancels the release; the note
// then sounds until the transport is stopped or the id is played again.
func (s *Service) Audition(r kmusic.Role, id int, velocity float64, duration time.Duration) (cancel func() bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.seq(r); err != nil {
		return nil, err
	}
	pl := s.players[r]
	n := kmusic.Note{ID: id, Start: 0, End: math.MaxInt, Velocity: max(0, min(1, velocity))}
	pl.start(n)
	return s.scheduler.After(duration, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if cur, ok := pl.sounding[id]; ok && cur == n {
			pl.release(id)
		}
	}), nil
}

// PendingCallbacks returns the number of scheduled callbacks that have not
// run yet.
func (s *Service) PendingCallbacks() int {
	return s.scheduler.Pending()
}

// Close stops playback and cancels every scheduled callback.
func (s *Service) Close() {
	s.scheduler.CancelAll()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stop()
}

func (s *Service) warn(err error) {
	s.logger.Warn(err.Error())
	TrySend(s.broker.ToUI, any(Warning{Err: err}))
}
