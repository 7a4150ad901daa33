// SPDX-License-Identifier: EPL-2.0

package device

import (
	"io"

	"github.com/ik5/audiograph/formats/wav"
)

// WAVWriter is a Device with no real clock: instead of hardware
// interrupts pacing the callback, Render pulls it in a tight loop
// until the requested number of frames has accumulated. A simple
// drain-to-file mode, not an attempt at faster-than-real-time offline
// rendering (the latter is out of scope; §1).
type WAVWriter struct {
	channels        int
	sampleRate      int
	framesPerBuffer int
	cb              Callback
	samples         []float32
	stopped         bool
}

func (w *WAVWriter) Open(channels, sampleRate, framesPerBuffer int) error {
	w.channels = channels
	w.sampleRate = sampleRate
	w.framesPerBuffer = framesPerBuffer
	return nil
}

func (w *WAVWriter) SampleRate() int   { return w.sampleRate }
func (w *WAVWriter) ChannelCount() int { return w.channels }

func (w *WAVWriter) Start(cb Callback) error {
	w.cb = cb
	w.stopped = false
	return nil
}

func (w *WAVWriter) Stop() error {
	w.stopped = true
	return nil
}

func (w *WAVWriter) IsSuspended() bool { return w.stopped }

// Render pulls the registered callback in a tight loop until at least
// frames frames have been produced (or Stop is called), appending each
// block to the writer's internal buffer.
func (w *WAVWriter) Render(frames int) {
	if w.cb == nil {
		return
	}
	block := make([]float32, w.framesPerBuffer*w.channels)
	produced := 0
	for produced < frames && !w.stopped {
		w.cb(block)
		w.samples = append(w.samples, block...)
		produced += w.framesPerBuffer
	}
}

// WriteTo flushes every frame rendered so far as a float32 RIFF/WAVE
// file (formats/wav.WriteWAVFloat32, format tag 3).
func (w *WAVWriter) WriteTo(dst io.Writer) error {
	return wav.WriteWAVFloat32(dst, w.sampleRate, w.channels, w.samples)
}

// Samples exposes the accumulated interleaved buffer directly, for
// tests that want to inspect rendered audio without a round trip
// through a WAV file.
func (w *WAVWriter) Samples() []float32 { return w.samples }
