//go:build !cgo

package cmd

import (
	"errors"

	"gitlab.com/gomidi/midi/v2"
)

// MIDIOutputs always fails: with no cgo, there are no ports to list.
func MIDIOutputs() ([]string, error) {
	return nil, errNoMIDI
}

var errNoMIDI = errors.New("MIDI support was not compiled in (build with cgo)")

// OpenMIDIOutput always fails: with no cgo, we cannot use MIDI.
func OpenMIDIOutput(namePrefix, virtualName string) (send func(midi.Message) error, name string, close func(), err error) {
	return nil, "", nil, errNoMIDI
}
