// SPDX-License-Identifier: EPL-2.0

package decoder

import (
	"io"

	"github.com/ik5/audiograph/audio"
)

// Adapter wraps one of the formats/* audio.Decoder implementations,
// none of which support seeking on their own (go-mp3 and oggvorbis
// decode forward-only; the hand-rolled WAV/AIFF readers track no
// offset table), to satisfy Stream. Seek(0) rewinds the underlying
// reader and reopens; Seek(n>0) rewinds then discards n frames by
// decoding and throwing them away, the same "redecode to position"
// approach every one of these libraries uses internally for random
// access.
type Adapter struct {
	dec     audio.Decoder
	r       io.ReadSeeker
	src     audio.Source
	scratch []float32
}

// NewAdapter opens r with dec, producing a Stream.
func NewAdapter(dec audio.Decoder, r io.ReadSeeker) (*Adapter, error) {
	src, err := dec.Decode(r)
	if err != nil {
		return nil, err
	}
	return &Adapter{dec: dec, r: r, src: src}, nil
}

func (a *Adapter) SampleRate() int { return a.src.SampleRate() }
func (a *Adapter) Channels() int   { return a.src.Channels() }
func (a *Adapter) Close() error    { return a.src.Close() }

func (a *Adapter) ReadSamples(dst []float32) (int, error) {
	return a.src.ReadSamples(dst)
}

// Seek rewinds the stream and, for frame > 0, discards frame frames of
// decoded audio so the next ReadSamples starts exactly there.
func (a *Adapter) Seek(frame int64) error {
	if _, err := a.r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	src, err := a.dec.Decode(a.r)
	if err != nil {
		return err
	}
	_ = a.src.Close()
	a.src = src

	remaining := frame * int64(a.src.Channels())
	const chunk = 4096
	if cap(a.scratch) < chunk {
		a.scratch = make([]float32, chunk)
	}
	for remaining > 0 {
		n := chunk
		if int64(n) > remaining {
			n = int(remaining)
		}
		read, err := a.src.ReadSamples(a.scratch[:n])
		remaining -= int64(read)
		if read == 0 || err != nil {
			break
		}
	}
	return nil
}
