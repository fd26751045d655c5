package oto_test

import (
	"bytes"
	"testing"

	"github.com/kmusic/kmusic/oto"
)

func TestFloatBufferTo16BitLE(t *testing.T) {
	got := oto.FloatBufferTo16BitLE([]float32{0, 1, -1, 2, -2, 0.5}, nil)
	expected := []byte{
		0x00, 0x00,
		0xff, 0x7f,
		0x01, 0x80,
		0xff, 0x7f,
		0x01, 0x80,
		0xff, 0x3f,
	}
	if !bytes.Equal(got, expected) {
		t.Fatalf("got % x, expected % x", got, expected)
	}
}

func TestFloatBufferTo16BitLEAppends(t *testing.T) {
	out := oto.FloatBufferTo16BitLE([]float32{0}, []byte{9})
	if !bytes.Equal(out, []byte{9, 0, 0}) {
		t.Fatalf("got % x", out)
	}
	if out := oto.FloatBufferTo16BitLE(nil, nil); len(out) != 0 {
		t.Fatalf("empty input gave % x", out)
	}
}
