// Package audio provides pure codec utilities shared by the capture
// pipeline and its clients: float-to-PCM16 quantization, linear
// decimation resampling, and little-endian frame encoding.
package audio

import (
	"encoding/binary"
	"math"
)

// FloatToPCM16 quantizes float samples to 16-bit signed PCM.
// Samples are clamped to [-1, 1] then scaled symmetrically:
// negative samples map onto [-32768, 0), non-negative onto [0, 32767].
func FloatToPCM16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		if s < 0 {
			out[i] = int16(s * 32768)
		} else {
			out[i] = int16(s * 32767)
		}
	}
	return out
}

// PCM16ToFloat converts 16-bit signed PCM samples back to floats in [-1, 1].
func PCM16ToFloat(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		if s < 0 {
			out[i] = float32(s) / 32768
		} else {
			out[i] = float32(s) / 32767
		}
	}
	return out
}

// Downsample reduces the sample rate of a buffer by nearest-index
// decimation: srcIndex = floor(i * inRate/outRate), output length =
// round(len(samples) / ratio). When the rates are equal the input buffer
// is returned unchanged.
func Downsample(samples []float32, inRate, outRate int) []float32 {
	if inRate == outRate {
		return samples
	}
	ratio := float64(inRate) / float64(outRate)
	n := int(math.Round(float64(len(samples)) / ratio))
	out := make([]float32, 0, n)
	for i := 0; i < n; i++ {
		src := int(math.Floor(float64(i) * ratio))
		if src >= len(samples) {
			break
		}
		out = append(out, samples[src])
	}
	return out
}

// PCM16Bytes encodes PCM16 samples as raw little-endian bytes, the
// binary frame format of the duplex transcription socket.
func PCM16Bytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// BytesToPCM16 decodes raw little-endian PCM16 bytes. Trailing odd
// bytes are ignored.
func BytesToPCM16(data []byte) []int16 {
	n := len(data) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}

// EncodeFrame downsamples one float frame to outRate and encodes it as a
// little-endian PCM16 binary frame ready to send on the socket.
func EncodeFrame(samples []float32, inRate, outRate int) []byte {
	return PCM16Bytes(FloatToPCM16(Downsample(samples, inRate, outRate)))
}
