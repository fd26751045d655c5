//go:build cgo

package cmd

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/kmusic/kmusic/tracker/gomidi"
)

// MIDIOutputs lists the names of the MIDI output ports.
func MIDIOutputs() ([]string, error) {
	ctx := gomidi.NewContext()
	defer ctx.Close()
	return ctx.Outputs()
}

// OpenMIDIOutput opens the first MIDI output starting with namePrefix,
// falling back to a virtual port named virtualName. close releases the
// port and the driver.
func OpenMIDIOutput(namePrefix, virtualName string) (send func(midi.Message) error, name string, close func(), err error) {
	ctx := gomidi.NewContext()
	send, name, err = ctx.Open(namePrefix, virtualName)
	if err != nil {
		ctx.Close()
		return nil, "", nil, err
	}
	return send, name, ctx.Close, nil
}
