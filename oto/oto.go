// Package oto plays audio through the system audio device.
package oto

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/kmusic/kmusic"
)

// OtoContext is an open audio device with a fixed sample rate and channel
// count. Only one can exist per process.
type OtoContext struct {
	context    *oto.Context
	sampleRate int
	channels   int
}

// OtoOutput streams float audio written to it to the device.
type OtoOutput struct {
	player    *oto.Player
	pipe      *io.PipeWriter
	tmpBuffer []byte
}

const otoBufferSize = 100 * time.Millisecond

var _ kmusic.AudioContext = (*OtoContext)(nil)

// NewContext opens the audio device and waits until it is ready.
func NewContext(sampleRate, channels int) (*OtoContext, error) {
	context, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   otoBufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &OtoContext{context: context, sampleRate: sampleRate, channels: channels}, nil
}

// Output returns a sink that plays everything written to it. Writes block
// while the device buffer is full.
func (c *OtoContext) Output() kmusic.AudioSink {
	r, w := io.Pipe()
	player := c.context.NewPlayer(r)
	player.Play()
	return &OtoOutput{player: player, pipe: w}
}

// Format returns the sample rate and channel count of the device. Audio
// written to its outputs must match it.
func (c *OtoContext) Format() (sampleRate, channels int) {
	return c.sampleRate, c.channels
}

// Close suspends the device. oto contexts cannot be recreated, so the
// device stays reserved until the process exits.
func (c *OtoContext) Close() error {
	if err := c.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// WriteAudio converts the buffer to 16-bit samples and queues it.
func (o *OtoOutput) WriteAudio(floatBuffer []float32) (err error) {
	// we reuse the old capacity tmpBuffer by setting its length to zero. then,
	// we save the tmpBuffer so we can reuse it next time
	o.tmpBuffer = FloatBufferTo16BitLE(floatBuffer, o.tmpBuffer[:0])
	if _, err := o.pipe.Write(o.tmpBuffer); err != nil {
		return fmt.Errorf("cannot write to player: %w", err)
	}
	return nil
}

// Close lets the queued audio play out and disposes of the player.
func (o *OtoOutput) Close() error {
	o.pipe.Close()
	for o.player.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}
