// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"math"

	"github.com/ik5/audiograph/param"
)

// BiquadType selects which RBJ cookbook coefficient derivation Biquad
// uses.
type BiquadType int

const (
	LowPass BiquadType = iota
	HighPass
	BandPass
	Notch
	Peaking
	LowShelf
	HighShelf
)

// ParamBiquadFreq, ParamBiquadQ and ParamBiquadGain are Biquad's
// parameters.
var (
	ParamBiquadFreq = param.NewFourCC("bqfr")
	ParamBiquadQ    = param.NewFourCC("bqq ")
	ParamBiquadGain = param.NewFourCC("bqdb")
)

// biquadState is one channel's direct-form-II-transposed delay line.
type biquadState struct {
	z1, z2 float64
}

// Biquad is a single second-order IIR section (one- or two-pole
// depending on btype), the core building block EQ chains to build
// multi-band filters, and usable standalone for a single cut/boost
// (§4.6).
type Biquad struct {
	btype BiquadType

	freq param.Value
	q    param.Value
	gain param.Value // dB, only meaningful for Peaking/LowShelf/HighShelf

	b0, b1, b2, a1, a2 float64
	coeffsDirty        bool

	lastSampleRate int
	state          []biquadState // one per channel
}

// NewBiquad creates a Biquad of the given type at a sensible default
// frequency/Q/gain.
func NewBiquad(btype BiquadType) *Biquad {
	b := &Biquad{
		btype: btype,
		freq:  param.NewValue(1000, param.Smoothing{}),
		q:     param.NewValue(0.707, param.Smoothing{}),
		gain:  param.NewValue(0, param.Smoothing{}),
	}
	b.coeffsDirty = true
	return b
}

func (b *Biquad) freqSchema() param.Desc {
	return param.Desc{
		ID: ParamBiquadFreq, Name: "Frequency", Kind: param.KindFloat,
		Min: 20, Max: 20000, Default: 1000, Curve: param.Exponential,
		Unit: "Hz",
	}
}

func (b *Biquad) qSchema() param.Desc {
	return param.Desc{
		ID: ParamBiquadQ, Name: "Q", Kind: param.KindFloat,
		Min: 0.1, Max: 18, Default: 0.707, Curve: param.Exponential,
	}
}

func (b *Biquad) gainSchema() param.Desc {
	return param.Desc{
		ID: ParamBiquadGain, Name: "Gain", Kind: param.KindFloat,
		Min: -24, Max: 24, Default: 0, Curve: param.Linear,
		Polarity: param.Bipolar, Unit: "dB",
	}
}

// ParameterSchema implements Effect.
func (b *Biquad) ParameterSchema() []param.Desc {
	return []param.Desc{b.freqSchema(), b.qSchema(), b.gainSchema()}
}

// SetParameter implements Effect.
func (b *Biquad) SetParameter(id param.FourCC, normalized float32, smoothing param.Smoothing) {
	switch id {
	case ParamBiquadFreq:
		b.freq.SetTarget(b.freqSchema().ToRaw(float64(normalized)), &smoothing)
	case ParamBiquadQ:
		b.q.SetTarget(b.qSchema().ToRaw(float64(normalized)), &smoothing)
	case ParamBiquadGain:
		b.gain.SetTarget(b.gainSchema().ToRaw(float64(normalized)), &smoothing)
	default:
		return
	}
	b.coeffsDirty = true
}

// Reset implements Effect, clearing filter history.
func (b *Biquad) Reset() {
	for i := range b.state {
		b.state[i] = biquadState{}
	}
}

func (b *Biquad) recalc(sampleRate int) {
	omega := 2 * math.Pi * b.freq.Current / float64(sampleRate)
	sinO, cosO := math.Sin(omega), math.Cos(omega)
	alpha := sinO / (2 * b.q.Current)
	a := math.Pow(10, b.gain.Current/40)

	var b0, b1, b2, a0, a1, a2 float64
	switch b.btype {
	case LowPass:
		b0, b1, b2 = (1-cosO)/2, 1-cosO, (1-cosO)/2
		a0, a1, a2 = 1+alpha, -2*cosO, 1-alpha
	case HighPass:
		b0, b1, b2 = (1+cosO)/2, -(1+cosO), (1+cosO)/2
		a0, a1, a2 = 1+alpha, -2*cosO, 1-alpha
	case BandPass:
		b0, b1, b2 = alpha, 0, -alpha
		a0, a1, a2 = 1+alpha, -2*cosO, 1-alpha
	case Notch:
		b0, b1, b2 = 1, -2*cosO, 1
		a0, a1, a2 = 1+alpha, -2*cosO, 1-alpha
	case Peaking:
		b0, b1, b2 = 1+alpha*a, -2*cosO, 1-alpha*a
		a0, a1, a2 = 1+alpha/a, -2*cosO, 1-alpha/a
	case LowShelf:
		sq := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) - (a-1)*cosO + sq)
		b1 = 2 * a * ((a - 1) - (a+1)*cosO)
		b2 = a * ((a + 1) - (a-1)*cosO - sq)
		a0 = (a + 1) + (a-1)*cosO + sq
		a1 = -2 * ((a - 1) + (a+1)*cosO)
		a2 = (a + 1) + (a-1)*cosO - sq
	case HighShelf:
		sq := 2 * math.Sqrt(a) * alpha
		b0 = a * ((a + 1) + (a-1)*cosO + sq)
		b1 = -2 * a * ((a - 1) + (a+1)*cosO)
		b2 = a * ((a + 1) + (a-1)*cosO - sq)
		a0 = (a + 1) - (a-1)*cosO + sq
		a1 = 2 * ((a - 1) - (a+1)*cosO)
		a2 = (a + 1) - (a-1)*cosO - sq
	}

	b.b0, b.b1, b.b2 = b0/a0, b1/a0, b2/a0
	b.a1, b.a2 = a1/a0, a2/a0
	b.lastSampleRate = sampleRate
	b.coeffsDirty = false
}

// Process implements Effect using a direct-form-II-transposed
// realization, one independent delay line per channel.
func (b *Biquad) Process(io []float32, channels, sampleRate int) {
	if len(b.state) != channels {
		b.state = make([]biquadState, channels)
	}
	if b.coeffsDirty || b.lastSampleRate != sampleRate {
		b.recalc(sampleRate)
	}

	frames := len(io) / channels
	for f := 0; f < frames; f++ {
		base := f * channels
		for c := 0; c < channels; c++ {
			st := &b.state[c]
			x := float64(io[base+c])
			y := b.b0*x + st.z1
			st.z1 = b.b1*x - b.a1*y + st.z2
			st.z2 = b.b2*x - b.a2*y
			io[base+c] = float32(y)
		}
	}
}
