package tracker

import (
	"math"

	"gitlab.com/gomidi/midi/v2"
)

// MIDITrigger is a kmusic.NoteTrigger that sends note messages on one MIDI
// channel. Velocities in [0, 1] are scaled to 0..127; note ids outside
// 0..127 are ignored. Send errors are counted and the last one kept.
type MIDITrigger struct {
	send    func(midi.Message) error
	channel uint8
	Errors  int
	LastErr error
}

// NewMIDITrigger returns a trigger writing to send, which is typically
// obtained from midi.SendTo. channel is zero based.
func NewMIDITrigger(send func(midi.Message) error, channel uint8) *MIDITrigger {
	return &MIDITrigger{send: send, channel: channel & 0x0f}
}

func (m *MIDITrigger) NoteOn(id int, velocity float64) {
	if id < 0 || id > 127 {
		return
	}
	vel := uint8(math.Round(math.Max(0, math.Min(1, velocity)) * 127))
	if vel == 0 {
		// a zero velocity note on would be read as a note off
		vel = 1
	}
	m.emit(midi.NoteOn(m.channel, uint8(id), vel))
}

func (m *MIDITrigger) NoteOff(id int) {
	if id < 0 || id > 127 {
		return
	}
	m.emit(midi.NoteOff(m.channel, uint8(id)))
}

func (m *MIDITrigger) emit(msg midi.Message) {
	if err := m.send(msg); err != nil {
		m.Errors++
		m.LastErr = err
	}
}
