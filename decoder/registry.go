// SPDX-License-Identifier: EPL-2.0

package decoder

import (
	"fmt"
	"io"

	"github.com/ik5/audiograph/formats/aiff"
	"github.com/ik5/audiograph/formats/mp3"
	"github.com/ik5/audiograph/formats/vorbis"
	"github.com/ik5/audiograph/formats/wav"
)

// Registry maps a format name ("wav", "mp3", "vorbis", "aiff") to the
// Decoder that opens it. NewDefaultRegistry pre-populates every format
// the examples demonstrate.
type Registry struct {
	decoders map[string]Decoder
}

// NewDefaultRegistry returns a Registry with wav/mp3/vorbis/aiff
// already registered.
func NewDefaultRegistry() *Registry {
	r := &Registry{decoders: make(map[string]Decoder)}
	r.Register("wav", wavDecoder{})
	r.Register("mp3", mp3Decoder{})
	r.Register("vorbis", vorbisDecoder{})
	r.Register("ogg", vorbisDecoder{})
	r.Register("aiff", aiffDecoder{})
	r.Register("aif", aiffDecoder{})
	return r
}

// Register adds or replaces the Decoder for name.
func (r *Registry) Register(name string, d Decoder) {
	r.decoders[name] = d
}

// Open looks up name and opens src through it.
func (r *Registry) Open(name string, src io.ReadSeeker) (Stream, error) {
	d, ok := r.decoders[name]
	if !ok {
		return nil, fmt.Errorf("decoder: no decoder registered for format %q", name)
	}
	return d.Open(src)
}

type wavDecoder struct{}

// Open bypasses the generic Adapter: formats/wav.Stream already knows
// how to seek within its own data chunk and already scanned the
// chunk list (picking up a trailing smpl loop region along the way),
// so wrapping it in Adapter's redecode-and-discard Seek would both
// throw that away and be slower.
func (wavDecoder) Open(r io.ReadSeeker) (Stream, error) {
	s, err := wav.Decoder{}.Open(r)
	if err != nil {
		return nil, err
	}
	return &wavStream{Stream: s}, nil
}

type mp3Decoder struct{}

func (mp3Decoder) Open(r io.ReadSeeker) (Stream, error) { return NewAdapter(mp3.Decoder{}, r) }

type vorbisDecoder struct{}

func (vorbisDecoder) Open(r io.ReadSeeker) (Stream, error) { return NewAdapter(vorbis.Decoder{}, r) }

type aiffDecoder struct{}

func (aiffDecoder) Open(r io.ReadSeeker) (Stream, error) { return NewAdapter(aiff.Decoder{}, r) }

// wavStream adapts formats/wav.Stream's Metadata (a wav-local type, to
// keep formats/wav free of an import on decoder) to decoder.Metadata.
type wavStream struct {
	*wav.Stream
}

func (w *wavStream) Metadata() Metadata {
	m := w.Stream.Metadata()
	return Metadata{TotalFrames: m.TotalFrames, LoopStart: m.LoopStart, LoopEnd: m.LoopEnd, LoopOK: m.LoopOK}
}
