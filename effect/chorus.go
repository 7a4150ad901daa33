// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"math"

	"github.com/ik5/audiograph/param"
)

// Chorus parameters.
var (
	ParamChorusRateHz = param.NewFourCC("chrt")
	ParamChorusDepth  = param.NewFourCC("chdp")
	ParamChorusMix    = param.NewFourCC("chmx")
)

const chorusMaxDelayMs = 30.0

// Chorus is a modulated delay line per channel: a sine LFO sweeps the
// read position through a short delay buffer, producing the pitch
// drift characteristic of multiple detuned voices.
type Chorus struct {
	rateHz param.Value
	depth  param.Value // 0..1, fraction of chorusMaxDelayMs
	mix    param.Value // 0 (dry) .. 1 (wet)

	lines          [][]float32 // one ring buffer per channel
	writePos       []int
	phase          float64
	lastSampleRate int
}

// NewChorus creates a Chorus with a gentle default sweep.
func NewChorus() *Chorus {
	return &Chorus{
		rateHz: param.NewValue(0.5, param.Smoothing{}),
		depth:  param.NewValue(0.5, param.Smoothing{}),
		mix:    param.NewValue(0.5, param.Smoothing{}),
	}
}

// ParameterSchema implements Effect.
func (c *Chorus) ParameterSchema() []param.Desc {
	return []param.Desc{
		{ID: ParamChorusRateHz, Name: "Rate", Kind: param.KindFloat, Min: 0.05, Max: 5, Default: 0.5, Curve: param.Exponential, Unit: "Hz"},
		{ID: ParamChorusDepth, Name: "Depth", Kind: param.KindFloat, Min: 0, Max: 1, Default: 0.5, Curve: param.Linear, Unit: "%"},
		{ID: ParamChorusMix, Name: "Mix", Kind: param.KindFloat, Min: 0, Max: 1, Default: 0.5, Curve: param.Linear, Unit: "%"},
	}
}

// SetParameter implements Effect.
func (c *Chorus) SetParameter(id param.FourCC, normalized float32, smoothing param.Smoothing) {
	switch id {
	case ParamChorusRateHz:
		c.rateHz.SetTarget(c.ParameterSchema()[0].ToRaw(float64(normalized)), &smoothing)
	case ParamChorusDepth:
		c.depth.SetTarget(c.ParameterSchema()[1].ToRaw(float64(normalized)), &smoothing)
	case ParamChorusMix:
		c.mix.SetTarget(c.ParameterSchema()[2].ToRaw(float64(normalized)), &smoothing)
	}
}

// Reset implements Effect, clearing the delay lines and LFO phase.
func (c *Chorus) Reset() {
	for i := range c.lines {
		for j := range c.lines[i] {
			c.lines[i][j] = 0
		}
		c.writePos[i] = 0
	}
	c.phase = 0
}

func (c *Chorus) ensureLines(channels, sampleRate int) {
	if len(c.lines) == channels && c.lastSampleRate == sampleRate {
		return
	}
	size := int(chorusMaxDelayMs/1000*float64(sampleRate)) + 2
	c.lines = make([][]float32, channels)
	c.writePos = make([]int, channels)
	for i := range c.lines {
		c.lines[i] = make([]float32, size)
	}
	c.lastSampleRate = sampleRate
}

// Process implements Effect.
func (c *Chorus) Process(io []float32, channels, sampleRate int) {
	c.ensureLines(channels, sampleRate)
	phaseStep := c.rateHz.Current / float64(sampleRate)
	depthSamples := c.depth.Current * chorusMaxDelayMs / 1000 * float64(sampleRate)
	baseDelay := depthSamples + 1 // keep the read head away from the write head
	mix := c.mix.Current

	frames := len(io) / channels
	for f := 0; f < frames; f++ {
		lfo := math.Sin(2 * math.Pi * c.phase)
		delay := baseDelay + depthSamples*lfo
		c.phase += phaseStep
		if c.phase >= 1 {
			c.phase -= 1
		}

		base := f * channels
		for ch := 0; ch < channels; ch++ {
			line := c.lines[ch]
			size := len(line)
			wp := c.writePos[ch]

			readPos := float64(wp) - delay
			for readPos < 0 {
				readPos += float64(size)
			}
			i0 := int(readPos)
			frac := readPos - float64(i0)
			i1 := (i0 + 1) % size
			wet := line[i0%size]*float32(1-frac) + line[i1]*float32(frac)

			dry := io[base+ch]
			line[wp] = dry
			c.writePos[ch] = (wp + 1) % size

			io[base+ch] = dry*float32(1-mix) + wet*float32(mix)
		}
	}
}
