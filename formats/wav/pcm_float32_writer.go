// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// WriteWAVFloat32 writes an interleaved 32-bit IEEE float PCM WAV
// (format tag 3) at sampleRate/channels. samples is interleaved
// float32 in [-1, 1], the same layout source.Source.Write produces.
// Promoted from WriteWAV16's bit-exact, chunked-write approach to
// serve device.WAVWriter, which needs the engine's native float32
// output with no 16-bit quantization.
func WriteWAVFloat32(w io.Writer, sampleRate, channels int, samples []float32) error {
	numChannels := uint16(channels)
	const bitsPerSample = 32
	byteRate := uint32(sampleRate) * uint32(numChannels) * uint32(bitsPerSample/8)
	blockAlign := numChannels * uint16(bitsPerSample/8)
	dataSize := uint32(len(samples) * 4)
	riffSize := 36 + dataSize

	header := make([]byte, 44)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], riffSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(header[20:22], 3)   // IEEE float format
	binary.LittleEndian.PutUint16(header[22:24], numChannels)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("%w", err)
	}

	if len(samples) == 0 {
		return nil
	}

	const chunkSize = 8192
	buf := make([]byte, min(len(samples), chunkSize)*4)

	for i := 0; i < len(samples); i += chunkSize {
		end := min(i+chunkSize, len(samples))
		chunk := samples[i:end]
		buf = buf[:len(chunk)*4]

		for j, s := range chunk {
			binary.LittleEndian.PutUint32(buf[j*4:j*4+4], math.Float32bits(s))
		}

		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("%w", err)
		}
	}

	return nil
}
