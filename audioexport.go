package kmusic

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/viterin/vek/vek32"
)

// wavHeaderSize is the size of the RIFF, fmt and data chunk headers of a
// 16-bit PCM wave file.
const wavHeaderSize = 44

// Wav encodes the waveform as a 16-bit PCM .wav file with the waveform's
// own sample rate and channel count.
func (w *Waveform) Wav() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+2*len(w.Samples)))
	if err := WriteWav(buf, w.Samples, w.SampleRate, w.Channels); err != nil {
		return nil, fmt.Errorf("Wav failed: %v", err)
	}
	return buf.Bytes(), nil
}

// WriteWav writes interleaved samples as a 16-bit PCM .wav file. Samples
// are clamped to [-1, 1] before conversion to integers.
func WriteWav(out io.Writer, samples []float32, sampleRate, numChannels int) error {
	if sampleRate <= 0 || numChannels <= 0 {
		return fmt.Errorf("invalid wave format: %d Hz, %d channels", sampleRate, numChannels)
	}
	var buf bytes.Buffer
	wavHeader(len(samples), sampleRate, numChannels, &buf)
	if err := pcm16ToBuffer(samples, &buf); err != nil {
		return err
	}
	if _, err := buf.WriteTo(out); err != nil {
		return fmt.Errorf("could not write wave data: %w", err)
	}
	return nil
}

func pcm16ToBuffer(data []float32, buf *bytes.Buffer) error {
	if len(data) == 0 {
		return nil
	}
	scaled := vek32.MaximumNumber(data, -1)
	vek32.MinimumNumber_Inplace(scaled, 1)
	vek32.MulNumber_Inplace(scaled, math.MaxInt16)
	int16data := make([]int16, len(scaled))
	for i, v := range scaled {
		int16data[i] = int16(v)
	}
	if err := binary.Write(buf, binary.LittleEndian, int16data); err != nil {
		return fmt.Errorf("could not binary write data to binary buffer: %v", err)
	}
	return nil
}

// wavHeader writes the header of a 16-bit PCM wave file holding numSamples
// interleaved samples.
func wavHeader(numSamples, sampleRate, numChannels int, buf *bytes.Buffer) {
	// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
	const bytesPerSample = 2
	dataSize := bytesPerSample * numSamples
	buf.Write([]byte("RIFF"))
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize)) // chunkSize
	buf.Write([]byte("WAVE"))
	buf.Write([]byte("fmt "))
	binary.Write(buf, binary.LittleEndian, uint32(16)) // fmt chunk size
	binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*numChannels*bytesPerSample)) // avgBytesPerSec
	binary.Write(buf, binary.LittleEndian, uint16(numChannels*bytesPerSample))            // blockAlign
	binary.Write(buf, binary.LittleEndian, uint16(8*bytesPerSample))                      // bits per sample
	buf.Write([]byte("data"))
	binary.Write(buf, binary.LittleEndian, uint32(dataSize))
}
