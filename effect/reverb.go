// SPDX-License-Identifier: EPL-2.0

package effect

import "github.com/ik5/audiograph/param"

// Reverb parameters.
var (
	ParamReverbRoomSize = param.NewFourCC("rvsz")
	ParamReverbDamping  = param.NewFourCC("rvdp")
	ParamReverbMix      = param.NewFourCC("rvmx")
)

// combFilter is one feedback comb, the parallel bank classic Schroeder
// reverbs run the signal through before the series allpasses.
type combFilter struct {
	buf      []float32
	pos      int
	feedback float32
	filterStore float32
	damp1, damp2 float32
}

func newComb(delaySamples int) *combFilter {
	return &combFilter{buf: make([]float32, delaySamples)}
}

func (c *combFilter) process(x float32) float32 {
	out := c.buf[c.pos]
	c.filterStore = out*c.damp2 + c.filterStore*c.damp1
	c.buf[c.pos] = x + c.filterStore*c.feedback
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (c *combFilter) reset() {
	for i := range c.buf {
		c.buf[i] = 0
	}
	c.filterStore = 0
	c.pos = 0
}

// allpassFilter is one series allpass stage, diffusing the comb bank's
// output into a denser, less metallic tail.
type allpassFilter struct {
	buf []float32
	pos int
}

func newAllpass(delaySamples int) *allpassFilter {
	return &allpassFilter{buf: make([]float32, delaySamples)}
}

func (a *allpassFilter) process(x float32) float32 {
	bufOut := a.buf[a.pos]
	const feedback = 0.5
	y := -x + bufOut
	a.buf[a.pos] = x + bufOut*feedback
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return y
}

func (a *allpassFilter) reset() {
	for i := range a.buf {
		a.buf[i] = 0
	}
	a.pos = 0
}

// combTuningMs and allpassTuningMs are the classic Freeverb-style comb
// and allpass delay lengths, expressed in milliseconds so they scale
// with sample rate instead of being hardcoded to 44.1 kHz.
var combTuningMs = []float64{25.3, 26.9, 28.9, 30.2, 32.2, 33.3, 35.0, 36.6}
var allpassTuningMs = []float64{5.0, 1.7, 1.3, 0.9}

// Reverb is a Schroeder comb/allpass network (§4.6): a bank of parallel
// feedback combs (one per channel, summed) feeding a short series of
// allpass diffusers, with a roomSize/damping pair controlling decay and
// high-frequency absorption.
type Reverb struct {
	roomSize param.Value // 0..1, maps to comb feedback
	damping  param.Value // 0..1
	mix      param.Value // 0 (dry) .. 1 (wet)

	combs          [][]*combFilter // [channel][comb]
	allpasses      [][]*allpassFilter
	lastSampleRate int
	lastChannels   int
}

// NewReverb creates a Reverb with a medium room and moderate damping.
func NewReverb() *Reverb {
	return &Reverb{
		roomSize: param.NewValue(0.5, param.Smoothing{}),
		damping:  param.NewValue(0.5, param.Smoothing{}),
		mix:      param.NewValue(0.3, param.Smoothing{}),
	}
}

// ParameterSchema implements Effect.
func (r *Reverb) ParameterSchema() []param.Desc {
	return []param.Desc{
		{ID: ParamReverbRoomSize, Name: "Room Size", Kind: param.KindFloat, Min: 0, Max: 1, Default: 0.5, Curve: param.Linear, Unit: "%"},
		{ID: ParamReverbDamping, Name: "Damping", Kind: param.KindFloat, Min: 0, Max: 1, Default: 0.5, Curve: param.Linear, Unit: "%"},
		{ID: ParamReverbMix, Name: "Mix", Kind: param.KindFloat, Min: 0, Max: 1, Default: 0.3, Curve: param.Linear, Unit: "%"},
	}
}

// SetParameter implements Effect.
func (r *Reverb) SetParameter(id param.FourCC, normalized float32, smoothing param.Smoothing) {
	switch id {
	case ParamReverbRoomSize:
		r.roomSize.SetTarget(r.ParameterSchema()[0].ToRaw(float64(normalized)), &smoothing)
	case ParamReverbDamping:
		r.damping.SetTarget(r.ParameterSchema()[1].ToRaw(float64(normalized)), &smoothing)
	case ParamReverbMix:
		r.mix.SetTarget(r.ParameterSchema()[2].ToRaw(float64(normalized)), &smoothing)
	}
}

// Reset implements Effect.
func (r *Reverb) Reset() {
	for _, bank := range r.combs {
		for _, c := range bank {
			c.reset()
		}
	}
	for _, bank := range r.allpasses {
		for _, a := range bank {
			a.reset()
		}
	}
}

func (r *Reverb) ensureNetwork(channels, sampleRate int) {
	if r.lastChannels == channels && r.lastSampleRate == sampleRate {
		return
	}
	r.combs = make([][]*combFilter, channels)
	r.allpasses = make([][]*allpassFilter, channels)
	for ch := 0; ch < channels; ch++ {
		for _, ms := range combTuningMs {
			r.combs[ch] = append(r.combs[ch], newComb(int(ms/1000*float64(sampleRate))))
		}
		for _, ms := range allpassTuningMs {
			r.allpasses[ch] = append(r.allpasses[ch], newAllpass(int(ms/1000*float64(sampleRate))))
		}
	}
	r.lastChannels = channels
	r.lastSampleRate = sampleRate
}

// Process implements Effect.
func (r *Reverb) Process(io []float32, channels, sampleRate int) {
	r.ensureNetwork(channels, sampleRate)

	feedback := 0.7 + 0.28*r.roomSize.Current
	damp1 := r.damping.Current * 0.4
	damp2 := 1 - damp1
	mix := r.mix.Current

	frames := len(io) / channels
	for f := 0; f < frames; f++ {
		base := f * channels
		for ch := 0; ch < channels; ch++ {
			dry := io[base+ch]

			var wet float32
			for _, c := range r.combs[ch] {
				c.feedback = float32(feedback)
				c.damp1, c.damp2 = float32(damp1), float32(damp2)
				wet += c.process(dry)
			}
			wet /= float32(len(r.combs[ch]))

			for _, a := range r.allpasses[ch] {
				wet = a.process(wet)
			}

			io[base+ch] = dry*float32(1-mix) + wet*float32(mix)
		}
	}
}
