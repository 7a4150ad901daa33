// SPDX-License-Identifier: EPL-2.0

package source

import (
	"math"
	"time"

	"github.com/ik5/audiograph/chanmap"
	"github.com/ik5/audiograph/command"
	"github.com/ik5/audiograph/dsp"
	"github.com/ik5/audiograph/param"
	"github.com/ik5/audiograph/resample"
)

// FourCCs for Preloaded's built-in parameters.
var (
	ParamGain  = param.NewFourCC("gain")
	ParamPan   = param.NewFourCC("pan")
	ParamSpeed = param.NewFourCC("spd ")
)

// resampleMargin is the number of extra source frames requested beyond
// the naive ratio*outFrames estimate, covering a resampler's internal
// interpolation lookahead (worst case the polyphase FIR's tap count).
const resampleMargin = 16

// fadeOutMillis is the click-avoiding fade-out duration applied both to
// an explicit Stop and to the natural end of a non-looping buffer
// (§4.2, §4.8).
const fadeOutMillis = 4.0

// Preloaded plays a fully decoded, shared in-memory buffer (§4.2):
// cursor, speed, gain, pan and fade-out state are per-instance, but the
// sample data itself is shared (and refcounted) across every instance
// that plays the same decoded file.
type Preloaded struct {
	buf        *dsp.SharedBuffer
	resampler  resample.Resampler
	srcCursor  int64
	repeatsRem int64 // -1 = infinite, 0 = no more loop passes

	speed param.Value
	gain  param.Value
	pan   param.Value

	fading        bool
	fadeRemaining int64
	fadeTotal     int64
	exhausted     bool

	deviceSampleRate int // 0 until the first Write call

	scratchIn        []float32 // source-channel-domain, fed to the resampler
	scratchResampled []float32 // source-channel-domain, resampler output
	scratchMapped    []float32 // output-channel-domain, after chanmap
}

// NewPreloaded creates a Preloaded player over buf. repeats is the
// number of additional loop passes allowed (-1 for infinite) and is
// ignored when buf has no loop region. highQuality selects
// resample.Polyphase over resample.Cubic.
func NewPreloaded(buf *dsp.SharedBuffer, repeats int64, highQuality bool) *Preloaded {
	var r resample.Resampler
	if highQuality {
		r = resample.NewPolyphase(buf.Channels)
	} else {
		r = resample.NewCubic(buf.Channels)
	}
	return &Preloaded{
		buf:        buf,
		resampler:  r,
		repeatsRem: repeats,
		speed:      param.NewValue(1, param.Smoothing{Kind: param.SmoothNone}),
		gain:       param.NewValue(1, param.Smoothing{Kind: param.SmoothNone}),
		pan:        param.NewValue(0, param.Smoothing{Kind: param.SmoothNone}),
	}
}

// IsExhausted implements source.Source.
func (p *Preloaded) IsExhausted() bool { return p.exhausted }

// Position implements source.Source, reporting position in the
// buffer's own sample-rate timeline.
func (p *Preloaded) Position() time.Duration {
	if p.buf.SampleRate <= 0 {
		return 0
	}
	seconds := float64(p.srcCursor) / float64(p.buf.SampleRate)
	return time.Duration(seconds * float64(time.Second))
}

// ApplyEvent implements source.Source: Stop schedules a fade-out, Seek
// repositions the cursor, SetParameter retargets gain/pan/speed.
func (p *Preloaded) ApplyEvent(cmd command.Command) {
	switch cmd.Payload.Kind {
	case command.Stop:
		if !p.fading {
			fade := cmd.Payload.FadeOutSamples
			if fade <= 0 {
				fade = p.defaultFadeSamples()
			}
			p.beginFade(fade)
		}
	case command.Seek:
		p.seek(cmd.Payload.SeekFrame)
	case command.SetParameter:
		p.setParameter(cmd.Payload)
	}
}

func (p *Preloaded) defaultFadeSamples() int64 {
	rate := p.deviceSampleRate
	if rate <= 0 {
		rate = 48000
	}
	return int64(fadeOutMillis / 1000 * float64(rate))
}

func (p *Preloaded) seek(frame int64) {
	if frame < 0 {
		frame = 0
	}
	if n := p.buf.Frames(); frame > n {
		frame = n
	}
	p.srcCursor = frame
	p.resampler.Reset()
}

func (p *Preloaded) setParameter(pl command.Payload) {
	var smoothing *param.Smoothing
	if pl.ParamSmoothing != nil {
		smoothing = &param.Smoothing{
			Kind:                param.SmoothingKind(pl.ParamSmoothing.Kind),
			TimeConstantSamples: pl.ParamSmoothing.TimeConstantSamples,
			RampSamples:         pl.ParamSmoothing.RampSamples,
		}
	}
	switch pl.ParamID {
	case ParamGain:
		p.gain.SetTarget(pl.ParamValue, smoothing)
	case ParamPan:
		p.pan.SetTarget(pl.ParamValue, smoothing)
	case ParamSpeed:
		v := pl.ParamValue
		if v <= 0 {
			v = 1e-3
		}
		p.speed.SetTarget(v, smoothing)
	}
}

func (p *Preloaded) beginFade(samples int64) {
	if samples <= 0 {
		samples = 1
	}
	p.fading = true
	p.fadeTotal = samples
	p.fadeRemaining = samples
}

// stepFrom advances a (cursor, repeats) pair by one source frame
// without mutating Preloaded state, so fillSourceFrames can probe ahead
// and the caller can later commit exactly as many steps as the
// resampler actually consumed.
func (p *Preloaded) stepFrom(cursor, repeats int64) (nextCursor, nextRepeats, idx int64, ok bool) {
	frames := p.buf.Frames()
	if cursor >= frames {
		return cursor, repeats, 0, false
	}
	idx = cursor
	cursor++
	if p.buf.HasLoop() && repeats != 0 && cursor >= p.buf.LoopEnd {
		cursor = p.buf.LoopStart
		if repeats > 0 {
			repeats--
		}
	}
	return cursor, repeats, idx, true
}

func (p *Preloaded) ensureScratch(inFrames, outFrames, srcChannels, outChannels int) {
	if n := inFrames * srcChannels; cap(p.scratchIn) < n {
		p.scratchIn = make([]float32, n)
	}
	p.scratchIn = p.scratchIn[:inFrames*srcChannels]
	if n := outFrames * srcChannels; cap(p.scratchResampled) < n {
		p.scratchResampled = make([]float32, n)
	}
	p.scratchResampled = p.scratchResampled[:outFrames*srcChannels]
	if n := outFrames * outChannels; cap(p.scratchMapped) < n {
		p.scratchMapped = make([]float32, n)
	}
	p.scratchMapped = p.scratchMapped[:outFrames*outChannels]
}

// fillSourceFrames fills dst (sized frames*srcChannels) starting from a
// trial copy of the current cursor state, returning the number of
// frames actually available (less than frames only at the true end of
// a non-looping, or loop-exhausted, buffer).
func (p *Preloaded) fillSourceFrames(dst []float32, frames, srcChannels int) int {
	cursor, repeats := p.srcCursor, p.repeatsRem
	provided := 0
	for provided < frames {
		var idx int64
		var ok bool
		cursor, repeats, idx, ok = p.stepFrom(cursor, repeats)
		if !ok {
			break
		}
		base := idx * int64(srcChannels)
		copy(dst[provided*srcChannels:(provided+1)*srcChannels], p.buf.Samples[base:base+int64(srcChannels)])
		provided++
	}
	return provided
}

// commitFrames advances the real cursor/repeats state by exactly n
// source frames, replaying the same stepping logic fillSourceFrames
// used to probe ahead.
func (p *Preloaded) commitFrames(n int) {
	cursor, repeats := p.srcCursor, p.repeatsRem
	for i := 0; i < n; i++ {
		var ok bool
		cursor, repeats, _, ok = p.stepFrom(cursor, repeats)
		if !ok {
			break
		}
	}
	p.srcCursor, p.repeatsRem = cursor, repeats
}

// framesUntilNaturalEnd reports how many source frames remain before
// the buffer truly ends, or -1 if the source can loop indefinitely
// from its current state.
func (p *Preloaded) framesUntilNaturalEnd() int64 {
	if p.buf.HasLoop() && p.repeatsRem != 0 {
		return -1
	}
	remaining := p.buf.Frames() - p.srcCursor
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// fadeGain returns the current fade-out envelope multiplier, smoothed
// with an ease-out curve so the final samples approach zero without a
// perceptible corner.
func (p *Preloaded) fadeGain() float32 {
	if !p.fading {
		return 1
	}
	t := float64(p.fadeRemaining) / float64(p.fadeTotal)
	if t < 0 {
		t = 0
	}
	return float32(math.Pow(t, 2))
}

// Write implements source.Source.
func (p *Preloaded) Write(out []float32, channels, sampleRate int, now uint64) int {
	if p.exhausted || channels <= 0 || len(out) == 0 {
		return 0
	}
	if p.deviceSampleRate == 0 {
		p.deviceSampleRate = sampleRate
	}
	dsp.Silence(out)

	srcChannels := p.buf.Channels
	outFrames := len(out) / channels
	ratio := p.speed.Current * float64(p.buf.SampleRate) / float64(sampleRate)
	if ratio <= 0 {
		ratio = 1e-3
	}

	// Arm the natural-end fade a little before the buffer truly runs
	// dry so the last audible block ramps to silence instead of
	// clicking off.
	if !p.fading {
		if remaining := p.framesUntilNaturalEnd(); remaining >= 0 {
			threshold := int64(float64(p.buf.SampleRate) * fadeOutMillis / 1000)
			if remaining <= threshold {
				p.beginFade(p.defaultFadeSamples())
			}
		}
	}

	written := 0
	for written < outFrames {
		remaining := outFrames - written
		wantIn := int(math.Ceil(float64(remaining)*ratio)) + resampleMargin
		if wantIn < 1 {
			wantIn = 1
		}
		p.ensureScratch(wantIn, remaining, srcChannels, channels)

		provided := p.fillSourceFrames(p.scratchIn, wantIn, srcChannels)
		if provided == 0 {
			p.exhausted = true
			break
		}

		target := p.scratchResampled[:remaining*srcChannels]
		consumed, wrote := p.resampler.Process(p.scratchIn[:provided*srcChannels], target, ratio, ratio)
		p.commitFrames(consumed)
		if wrote == 0 {
			if provided < wantIn {
				p.exhausted = true
			}
			break
		}

		mapped := p.scratchMapped[:wrote*channels]
		chanmap.Map(target[:wrote*srcChannels], srcChannels, mapped, channels)

		for f := 0; f < wrote; f++ {
			p.gain.Advance()
			p.pan.Advance()
			p.speed.Advance()
			g := float32(p.gain.Current) * p.fadeGain()
			base := (written + f) * channels
			for c := 0; c < channels; c++ {
				out[base+c] = mapped[f*channels+c] * g
			}
			if p.fading {
				p.fadeRemaining--
				if p.fadeRemaining <= 0 {
					p.exhausted = true
				}
			}
		}
		dsp.Pan(out[written*channels:(written+wrote)*channels], channels, float32(p.pan.Current))

		written += wrote
		if p.exhausted {
			break
		}
	}

	return written
}
