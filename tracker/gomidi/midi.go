// Package gomidi opens real MIDI output ports through the rtmidi driver.
// It needs cgo.
package gomidi

import (
	"errors"
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// RTMIDIContext owns the driver and the open output port.
type RTMIDIContext struct {
	driver *rtmididrv.Driver
	out    drivers.Out
}

// allNotesOff is the channel mode message silencing a channel.
const allNotesOff = 123

// ErrNoDriver is returned when the rtmidi driver could not be opened.
var ErrNoDriver = errors.New("no MIDI driver available")

// Open the driver.
func NewContext() *RTMIDIContext {
	m := RTMIDIContext{}
	// there's not much we can do if this fails, so just use m.driver = nil to
	// indicate no driver available
	m.driver, _ = rtmididrv.New()
	return &m
}

// Outputs lists the names of the available output ports.
func (c *RTMIDIContext) Outputs() ([]string, error) {
	if c.driver == nil {
		return nil, ErrNoDriver
	}
	outs, err := c.driver.Outs()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI outputs failed: %w", err)
	}
	names := make([]string, len(outs))
	for i, o := range outs {
		names[i] = o.String()
	}
	return names, nil
}

// Open opens the first output port whose name starts with namePrefix, or a
// virtual port called virtualName if none matches and virtualName is not
// empty. Any previously opened port is closed. The returned function sends
// messages to the port.
func (c *RTMIDIContext) Open(namePrefix, virtualName string) (func(midi.Message) error, string, error) {
	if c.driver == nil {
		return nil, "", ErrNoDriver
	}
	c.closeOut()
	outs, err := c.driver.Outs()
	if err != nil {
		return nil, "", fmt.Errorf("listing MIDI outputs failed: %w", err)
	}
	var out drivers.Out
	for _, o := range outs {
		if strings.HasPrefix(o.String(), namePrefix) {
			out = o
			break
		}
	}
	if out == nil {
		if virtualName == "" {
			return nil, "", fmt.Errorf("could not find a MIDI output starting with %q", namePrefix)
		}
		if out, err = c.driver.OpenVirtualOut(virtualName); err != nil {
			return nil, "", fmt.Errorf("opening virtual MIDI output failed: %w", err)
		}
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, "", fmt.Errorf("opening MIDI output failed: %w", err)
	}
	c.out = out
	return send, out.String(), nil
}

func (c *RTMIDIContext) closeOut() {
	if c.out != nil && c.out.IsOpen() {
		c.out.Close()
	}
	c.out = nil
}

// Close silences and closes the open port and the driver.
func (c *RTMIDIContext) Close() {
	if c.driver == nil {
		return
	}
	if c.out != nil && c.out.IsOpen() {
		for ch := uint8(0); ch < 16; ch++ {
			c.out.Send(midi.ControlChange(ch, allNotesOff, 0))
		}
	}
	c.closeOut()
	c.driver.Close()
}
