package audio

import (
	"encoding/binary"
	"fmt"
)

// WAVHeaderSize is the length of a standard PCM WAV header.
const WAVHeaderSize = 44

// WAVInfo describes the audio format declared by a WAV header.
type WAVInfo struct {
	Format        uint16
	Channels      uint16
	SampleRate    int
	BitsPerSample uint16
}

// ParseWAVHeader validates a 44-byte RIFF/WAVE header and returns the
// declared format. Only the fixed-layout canonical header is supported.
func ParseWAVHeader(header []byte) (WAVInfo, error) {
	if len(header) < WAVHeaderSize {
		return WAVInfo{}, fmt.Errorf("WAV header too short: %d bytes", len(header))
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return WAVInfo{}, fmt.Errorf("not a valid WAV file")
	}
	return WAVInfo{
		Format:        binary.LittleEndian.Uint16(header[20:22]),
		Channels:      binary.LittleEndian.Uint16(header[22:24]),
		SampleRate:    int(binary.LittleEndian.Uint32(header[24:28])),
		BitsPerSample: binary.LittleEndian.Uint16(header[34:36]),
	}, nil
}

// PCM16Mono reports whether the header describes uncompressed 16-bit
// mono PCM, the only layout the capture client streams.
func (w WAVInfo) PCM16Mono() bool {
	return w.Format == 1 && w.Channels == 1 && w.BitsPerSample == 16
}
