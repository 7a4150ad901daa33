// SPDX-License-Identifier: EPL-2.0

package decoder

import "io"

// Stream is what source.Streamed's decode worker pulls from: the same
// ReadSamples/SampleRate/Channels shape as audio.Source, plus Seek and
// Close. Every value returned by Decoder.Open satisfies it.
type Stream interface {
	ReadSamples(dst []float32) (int, error)
	SampleRate() int
	Channels() int
	Seek(frame int64) error
	Close() error
}

// Decoder opens a seekable reader as a Stream. Registered per format
// (wav, mp3, vorbis, aiff) in a Registry.
type Decoder interface {
	Open(r io.ReadSeeker) (Stream, error)
}

// Metadata is populated when a Stream can report it up front; zero
// values mean "unknown", not "absent".
type Metadata struct {
	TotalFrames int64
	// LoopStart/LoopEnd are a sample-loop region in frames, as found in
	// a WAV smpl chunk (§4 "SUPPLEMENTED FEATURES"); LoopOK is false
	// when the format or file carries none.
	LoopStart, LoopEnd int64
	LoopOK             bool
}

// MetadataStream is implemented by Streams that know their Metadata
// without a full decode pass (currently only formats/wav, via its smpl
// and data chunk sizes).
type MetadataStream interface {
	Stream
	Metadata() Metadata
}
