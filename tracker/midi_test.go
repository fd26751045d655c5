package tracker_test

import (
	"errors"
	"reflect"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/kmusic/kmusic/tracker"
)

func TestMIDITrigger(t *testing.T) {
	var sent []midi.Message
	trig := tracker.NewMIDITrigger(func(m midi.Message) error {
		sent = append(sent, m)
		return nil
	}, 9)
	trig.NoteOn(36, 1)
	trig.NoteOn(38, 0.5)
	trig.NoteOn(40, 0)
	trig.NoteOff(36)
	trig.NoteOn(128, 1)
	trig.NoteOff(-1)
	expected := []midi.Message{
		midi.NoteOn(9, 36, 127),
		midi.NoteOn(9, 38, 64),
		midi.NoteOn(9, 40, 1),
		midi.NoteOff(9, 36),
	}
	if !reflect.DeepEqual(sent, expected) {
		t.Fatalf("got %v, expected %v", sent, expected)
	}
}

func TestMIDITriggerErrors(t *testing.T) {
	failure := errors.New("port closed")
	trig := tracker.NewMIDITrigger(func(midi.Message) error { return failure }, 0)
	trig.NoteOn(60, 1)
	trig.NoteOff(60)
	if trig.Errors != 2 || trig.LastErr != failure {
		t.Fatalf("errors = %d, last = %v", trig.Errors, trig.LastErr)
	}
}
