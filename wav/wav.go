// Package wav wraps raw PCM voiceover audio in a minimal playable WAV
// container. The speech providers hand back bare 24 kHz 16-bit mono samples;
// ffmpeg needs a header before it will treat them as an audio input.
package wav

import (
	"encoding/binary"
	"fmt"
)

const (
	// SampleRate is the fixed PCM sample rate of generated voiceovers.
	SampleRate = 24000
	// NumChannels is always mono.
	NumChannels = 1
	// BitsPerSample is always 16.
	BitsPerSample = 16
	// HeaderSize is the canonical RIFF/fmt/data header length.
	HeaderSize = 44
)

// Header holds the fields of a decoded WAV header.
type Header struct {
	SampleRate    int
	NumChannels   int
	BitsPerSample int
	DataSize      int
}

// Encode prefixes pcm with a 44-byte RIFF/WAVE header describing 24 kHz
// 16-bit mono PCM. Declared sizes are derived from len(pcm).
func Encode(pcm []byte) []byte {
	dataSize := len(pcm)
	blockAlign := NumChannels * BitsPerSample / 8
	byteRate := SampleRate * blockAlign

	buf := make([]byte, HeaderSize+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // fmt chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(buf[22:24], NumChannels)
	binary.LittleEndian.PutUint32(buf[24:28], SampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], BitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[HeaderSize:], pcm)
	return buf
}

// DecodeHeader parses the header written by Encode back into its fields.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("wav: %d bytes is too short for a header", len(b))
	}
	if string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return Header{}, fmt.Errorf("wav: missing RIFF/WAVE magic")
	}
	if string(b[12:16]) != "fmt " || string(b[36:40]) != "data" {
		return Header{}, fmt.Errorf("wav: unexpected chunk layout")
	}
	h := Header{
		NumChannels:   int(binary.LittleEndian.Uint16(b[22:24])),
		SampleRate:    int(binary.LittleEndian.Uint32(b[24:28])),
		BitsPerSample: int(binary.LittleEndian.Uint16(b[34:36])),
		DataSize:      int(binary.LittleEndian.Uint32(b[40:44])),
	}
	return h, nil
}

// SampleCount returns the number of PCM samples described by the header.
func (h Header) SampleCount() int {
	bytesPerSample := h.NumChannels * h.BitsPerSample / 8
	if bytesPerSample == 0 {
		return 0
	}
	return h.DataSize / bytesPerSample
}
