// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"github.com/ik5/audiograph/dsp"
	"github.com/ik5/audiograph/param"
)

// ParamGainDB is Gain's sole parameter, in dB, declared bipolar
// (boost or cut).
var ParamGainDB = param.NewFourCC("gdb ")

// Gain is the simplest Effect: a single smoothed gain stage, in dB.
type Gain struct {
	gain param.Value
}

// NewGain creates a Gain stage at 0 dB (unity).
func NewGain() *Gain {
	return &Gain{gain: param.NewValue(0, param.Smoothing{Kind: param.SmoothRamp, RampSamples: 64})}
}

func (g *Gain) gainSchema() param.Desc {
	return param.Desc{
		ID: ParamGainDB, Name: "Gain", Kind: param.KindFloat,
		Min: -60, Max: 12, Default: 0, Curve: param.Linear,
		Polarity: param.Bipolar, Unit: "dB",
		Smoothing: param.Smoothing{Kind: param.SmoothRamp, RampSamples: 64},
	}
}

// ParameterSchema implements Effect.
func (g *Gain) ParameterSchema() []param.Desc { return []param.Desc{g.gainSchema()} }

// SetParameter implements Effect.
func (g *Gain) SetParameter(id param.FourCC, normalized float32, smoothing param.Smoothing) {
	if id != ParamGainDB {
		return
	}
	raw := g.gainSchema().ToRaw(float64(normalized))
	g.gain.SetTarget(raw, &smoothing)
}

// Reset implements Effect; Gain carries no history to clear, so Reset
// does nothing (an in-progress gain ramp continues).
func (g *Gain) Reset() {}

// Process implements Effect.
func (g *Gain) Process(io []float32, channels, sampleRate int) {
	frames := len(io) / channels
	for f := 0; f < frames; f++ {
		g.gain.Advance()
		lin := dsp.DBToLinear(g.gain.Current)
		base := f * channels
		for c := 0; c < channels; c++ {
			io[base+c] *= float32(lin)
		}
	}
}
