// SPDX-License-Identifier: EPL-2.0

package source

import (
	"time"

	"github.com/ik5/audiograph/command"
	"github.com/ik5/audiograph/dsp"
)

// Resampled wraps a Source whose native sample rate differs from the
// rate it is written at, converting every block on the fly
// (§3 "adapters inserted on child insert when signal specs differ").
// Only the sample rate is converted; the channel count is not. The
// mixer does its own per-child resampling and does not use Resampled.
type Resampled struct {
	inner      Source
	resampler  resampleFn
	srcRate    int
	srcChannels int
	scratchIn  []float32
}

// resampleFn is the minimal shape Resampled needs; it is satisfied by
// resample.Resampler without importing that package here, avoiding a
// cycle (resample has no reason to depend on source, but keeping the
// dependency one-directional this way costs nothing).
type resampleFn interface {
	Process(in, out []float32, ratioStart, ratioEnd float64) (inConsumed, outWritten int)
	Reset()
}

// NewResampled wraps inner, which natively produces audio at srcRate
// with srcChannels channels, converting to the sample rate Write is
// called with via r. The resampled srcChannels-interleaved frames are
// written into out as they are; Write's channels argument must equal
// srcChannels, since no channel conversion is done.
func NewResampled(inner Source, r resampleFn, srcRate, srcChannels int) *Resampled {
	return &Resampled{inner: inner, resampler: r, srcRate: srcRate, srcChannels: srcChannels}
}

func (w *Resampled) IsExhausted() bool                 { return w.inner.IsExhausted() }
func (w *Resampled) ApplyEvent(cmd command.Command)    { w.inner.ApplyEvent(cmd) }
func (w *Resampled) Position() time.Duration           { return w.inner.Position() }

// Write implements source.Source.
func (w *Resampled) Write(out []float32, channels, sampleRate int, now uint64) int {
	if w.srcRate == sampleRate {
		return w.inner.Write(out, channels, sampleRate, now)
	}
	outFrames := len(out) / channels
	ratio := float64(w.srcRate) / float64(sampleRate)
	wantIn := int(float64(outFrames)*ratio) + resampleMargin
	need := wantIn * w.srcChannels
	if cap(w.scratchIn) < need {
		w.scratchIn = make([]float32, need)
	}
	w.scratchIn = w.scratchIn[:need]

	n := w.inner.Write(w.scratchIn, w.srcChannels, w.srcRate, now)
	dsp.Silence(w.scratchIn[n*w.srcChannels:])

	_, written := w.resampler.Process(w.scratchIn[:wantIn*w.srcChannels], out, ratio, ratio)
	return written
}

// Panned wraps a Source, applying a fixed pan after the inner source
// has produced its block (used when a child carries its own pan
// setting independent of whatever parameter model the mixer exposes).
type Panned struct {
	inner Source
	pan   float32
}

// NewPanned wraps inner with a constant pan in [-1,1].
func NewPanned(inner Source, pan float32) *Panned {
	return &Panned{inner: inner, pan: pan}
}

func (w *Panned) IsExhausted() bool              { return w.inner.IsExhausted() }
func (w *Panned) ApplyEvent(cmd command.Command) { w.inner.ApplyEvent(cmd) }
func (w *Panned) Position() time.Duration        { return w.inner.Position() }

// SetPan updates the constant pan applied to every subsequent block.
func (w *Panned) SetPan(pan float32) { w.pan = pan }

// Write implements source.Source.
func (w *Panned) Write(out []float32, channels, sampleRate int, now uint64) int {
	n := w.inner.Write(out, channels, sampleRate, now)
	dsp.Pan(out[:n*channels], channels, w.pan)
	return n
}
