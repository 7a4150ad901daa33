// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Metadata is what Open can tell a caller about a file up front, from
// the chunk list alone: the frame count from the data chunk's size,
// and an optional loop region from a smpl chunk. LoopOK is false when
// the file carries no smpl chunk.
type Metadata struct {
	TotalFrames        int64
	LoopStart, LoopEnd int64
	LoopOK             bool
}

// Stream is a seekable WAV PCM reader: unlike Decode's audio.Source,
// it scans the entire chunk list up front (so a smpl chunk trailing
// the data chunk, the common on-disk order, is still seen) and seeks
// within the data chunk directly instead of redecoding from the top.
type Stream struct {
	r                    io.ReadSeeker
	sampleRate, channels int
	bitsPerSample        int
	dataStart, dataSize  int64
	meta                 Metadata
	buf                  []byte
}

func (s *Stream) SampleRate() int    { return s.sampleRate }
func (s *Stream) Channels() int      { return s.channels }
func (s *Stream) Close() error       { return nil }
func (s *Stream) Metadata() Metadata { return s.meta }

// ReadSamples decodes PCM16 bytes into dst, the same normalization
// Decode's audio.Source uses.
func (s *Stream) ReadSamples(dst []float32) (int, error) {
	const maxInt16 float32 = 32768.0

	if len(dst) == 0 {
		return 0, nil
	}

	bytesNeeded := len(dst) * 2
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	s.buf = s.buf[:bytesNeeded]

	n, err := io.ReadFull(s.r, s.buf)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		if n == 0 {
			return 0, io.EOF
		}
		n = (n / 2) * 2
	} else if err != nil {
		return 0, fmt.Errorf("%w", err)
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		val := int16(binary.LittleEndian.Uint16(s.buf[2*i : 2*i+2]))
		dst[i] = float32(val) / maxInt16
	}

	if samples == 0 {
		return 0, io.EOF
	}
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return samples, io.EOF
	}
	return samples, nil
}

// Seek repositions to frame within the data chunk, clamped to the end
// of the chunk.
func (s *Stream) Seek(frame int64) error {
	offset := s.dataStart + frame*int64(s.channels)*2
	if max := s.dataStart + s.dataSize; offset > max {
		offset = max
	}
	_, err := s.r.Seek(offset, io.SeekStart)
	return err
}

// Open decodes r's chunk list into a Stream, continuing past the data
// chunk to pick up a trailing smpl chunk rather than stopping at the
// first chunk it needs, so Metadata can report a loop region even
// though "smpl after data" is the common on-disk order.
func (Decoder) Open(r io.ReadSeeker) (*Stream, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	riffHeader := make([]byte, 12)
	if _, err := io.ReadFull(r, riffHeader); err != nil {
		return nil, fmt.Errorf("reading RIFF header: %w", err)
	}
	if !bytes.HasPrefix(riffHeader[:4], []byte("RIFF")) || !bytes.HasPrefix(riffHeader[8:12], []byte("WAVE")) {
		return nil, ErrNotWavFile
	}

	var sampleRate, channels, bitsPerSample int
	var foundFmt, foundData bool
	var meta Metadata
	var dataStart, dataSize int64

	chunkHeader := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, chunkHeader); err != nil {
			break
		}
		id := string(chunkHeader[0:4])
		size := int64(binary.LittleEndian.Uint32(chunkHeader[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("fmt chunk too small: %d bytes", size)
			}
			fmtData := make([]byte, size)
			if _, err := io.ReadFull(r, fmtData); err != nil {
				return nil, fmt.Errorf("reading fmt chunk: %w", err)
			}
			audioFormat := binary.LittleEndian.Uint16(fmtData[0:2])
			channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(fmtData[14:16]))
			if audioFormat != 1 {
				return nil, fmt.Errorf("unsupported audio format: %d (only PCM supported)", audioFormat)
			}
			if bitsPerSample != 16 {
				return nil, ErrOnlyPCM16bitSupported
			}
			foundFmt = true
			if size%2 != 0 {
				if _, err := r.Seek(1, io.SeekCurrent); err != nil {
					return nil, err
				}
			}

		case "data":
			if !foundFmt {
				return nil, fmt.Errorf("data chunk before fmt chunk")
			}
			foundData = true
			pos, err := r.Seek(0, io.SeekCurrent)
			if err != nil {
				return nil, err
			}
			dataStart, dataSize = pos, size
			if channels > 0 && bitsPerSample > 0 {
				if bytesPerFrame := int64(channels * bitsPerSample / 8); bytesPerFrame > 0 {
					meta.TotalFrames = size / bytesPerFrame
				}
			}
			if _, err := r.Seek(size+size%2, io.SeekCurrent); err != nil {
				return nil, err
			}

		case "smpl":
			// RIFF smpl layout: 7 uint32 header fields, then
			// NumSampleLoops (offset 28) and SamplerData size (offset
			// 32), then that many 24-byte loop records starting at
			// offset 36: CuePointID, Type, Start, End, Fraction, PlayCount.
			smplData := make([]byte, size)
			if _, err := io.ReadFull(r, smplData); err != nil {
				return nil, fmt.Errorf("reading smpl chunk: %w", err)
			}
			const loopCountOffset = 28
			const recordsOffset = 36
			if len(smplData) >= loopCountOffset+4 {
				loopCount := binary.LittleEndian.Uint32(smplData[loopCountOffset : loopCountOffset+4])
				if loopCount > 0 && len(smplData) >= recordsOffset+24 {
					rec := smplData[recordsOffset:]
					meta.LoopStart = int64(binary.LittleEndian.Uint32(rec[8:12]))
					meta.LoopEnd = int64(binary.LittleEndian.Uint32(rec[12:16]))
					meta.LoopOK = true
				}
			}
			if size%2 != 0 {
				if _, err := r.Seek(1, io.SeekCurrent); err != nil {
					return nil, err
				}
			}

		default:
			if _, err := r.Seek(size+size%2, io.SeekCurrent); err != nil {
				return nil, err
			}
		}
	}

	if !foundFmt {
		return nil, ErrUnsupportedWavLayout
	}
	if !foundData {
		return nil, ErrUnsupportedWavChunks
	}

	if _, err := r.Seek(dataStart, io.SeekStart); err != nil {
		return nil, err
	}

	return &Stream{
		r:             r,
		sampleRate:    sampleRate,
		channels:      channels,
		bitsPerSample: bitsPerSample,
		dataStart:     dataStart,
		dataSize:      dataSize,
		meta:          meta,
	}, nil
}
