// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"math"

	"github.com/ik5/audiograph/dsp"
	"github.com/ik5/audiograph/param"
)

// Compressor parameters.
var (
	ParamCompThreshold = param.NewFourCC("cthr")
	ParamCompRatio     = param.NewFourCC("crat")
	ParamCompAttack    = param.NewFourCC("catk")
	ParamCompRelease   = param.NewFourCC("crel")
	ParamCompMakeup    = param.NewFourCC("cmku")
)

// Compressor is a feedforward peak-detector compressor: a one-pole
// envelope follower driving a static gain-reduction curve above
// threshold, with independent attack/release time constants and a
// makeup-gain trim.
type Compressor struct {
	threshold param.Value // dB
	ratio     param.Value // e.g. 4 means 4:1
	attackMs  param.Value
	releaseMs param.Value
	makeupDB  param.Value

	envelope       float64 // linear, current follower state
	lastSampleRate int
}

// NewCompressor creates a Compressor with gentle default settings
// (−18 dB threshold, 4:1 ratio).
func NewCompressor() *Compressor {
	return &Compressor{
		threshold: param.NewValue(-18, param.Smoothing{}),
		ratio:     param.NewValue(4, param.Smoothing{}),
		attackMs:  param.NewValue(10, param.Smoothing{}),
		releaseMs: param.NewValue(100, param.Smoothing{}),
		makeupDB:  param.NewValue(0, param.Smoothing{}),
	}
}

// ParameterSchema implements Effect.
func (c *Compressor) ParameterSchema() []param.Desc {
	return []param.Desc{
		{ID: ParamCompThreshold, Name: "Threshold", Kind: param.KindFloat, Min: -60, Max: 0, Default: -18, Curve: param.Linear, Unit: "dB"},
		{ID: ParamCompRatio, Name: "Ratio", Kind: param.KindFloat, Min: 1, Max: 20, Default: 4, Curve: param.Exponential},
		{ID: ParamCompAttack, Name: "Attack", Kind: param.KindFloat, Min: 0.1, Max: 200, Default: 10, Curve: param.Exponential, Unit: "ms"},
		{ID: ParamCompRelease, Name: "Release", Kind: param.KindFloat, Min: 5, Max: 2000, Default: 100, Curve: param.Exponential, Unit: "ms"},
		{ID: ParamCompMakeup, Name: "Makeup", Kind: param.KindFloat, Min: 0, Max: 24, Default: 0, Curve: param.Linear, Unit: "dB"},
	}
}

// SetParameter implements Effect.
func (c *Compressor) SetParameter(id param.FourCC, normalized float32, smoothing param.Smoothing) {
	for _, d := range c.ParameterSchema() {
		if d.ID != id {
			continue
		}
		raw := d.ToRaw(float64(normalized))
		switch id {
		case ParamCompThreshold:
			c.threshold.SetTarget(raw, &smoothing)
		case ParamCompRatio:
			c.ratio.SetTarget(raw, &smoothing)
		case ParamCompAttack:
			c.attackMs.SetTarget(raw, &smoothing)
		case ParamCompRelease:
			c.releaseMs.SetTarget(raw, &smoothing)
		case ParamCompMakeup:
			c.makeupDB.SetTarget(raw, &smoothing)
		}
		return
	}
}

// Reset implements Effect.
func (c *Compressor) Reset() { c.envelope = 0 }

func timeConstantCoeff(ms float64, sampleRate int) float64 {
	if ms <= 0 {
		return 1
	}
	tau := ms / 1000 * float64(sampleRate)
	return 1 - math.Exp(-1/tau)
}

// Process implements Effect: a per-sample peak follower with
// independent attack/release, mapped through a static knee-free
// compression curve above threshold.
func (c *Compressor) Process(io []float32, channels, sampleRate int) {
	c.lastSampleRate = sampleRate
	attackCoeff := timeConstantCoeff(c.attackMs.Current, sampleRate)
	releaseCoeff := timeConstantCoeff(c.releaseMs.Current, sampleRate)
	makeup := dsp.DBToLinear(c.makeupDB.Current)

	frames := len(io) / channels
	for f := 0; f < frames; f++ {
		base := f * channels
		var peak float32
		for ch := 0; ch < channels; ch++ {
			x := io[base+ch]
			if x < 0 {
				x = -x
			}
			if x > peak {
				peak = x
			}
		}

		if float64(peak) > c.envelope {
			c.envelope += (float64(peak) - c.envelope) * attackCoeff
		} else {
			c.envelope += (float64(peak) - c.envelope) * releaseCoeff
		}

		gain := 1.0
		levelDB := dsp.LinearToDB(c.envelope)
		if levelDB > c.threshold.Current {
			overDB := levelDB - c.threshold.Current
			reducedDB := overDB / c.ratio.Current
			gain = dsp.DBToLinear(c.threshold.Current + reducedDB - levelDB)
		}
		gain *= makeup

		for ch := 0; ch < channels; ch++ {
			io[base+ch] *= float32(gain)
		}
	}
}
