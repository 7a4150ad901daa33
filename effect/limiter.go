// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"github.com/ik5/audiograph/dsp"
	"github.com/ik5/audiograph/param"
)

// ParamLimiterRelease is Limiter's release-time parameter; its ceiling
// parameter id is unexported (paramLimiterCeiling, below) since nothing
// outside the package needs to address it directly.
var ParamLimiterRelease = param.NewFourCC("lrel")

// Limiter is a lookahead-free peak limiter (§4.6): whenever the
// instantaneous peak exceeds the ceiling it clamps immediately, then
// releases the resulting gain reduction back toward unity over
// releaseMs so a single transient doesn't leave an audible gain dip
// that snaps back instantly.
type Limiter struct {
	ceiling   param.Value // linear, 0..1
	releaseMs param.Value

	reduction float64 // current linear gain multiplier, <= 1
}

// NewLimiter creates a Limiter with a 0 dBFS ceiling.
func NewLimiter() *Limiter {
	return &Limiter{
		ceiling:   param.NewValue(1, param.Smoothing{}),
		releaseMs: param.NewValue(50, param.Smoothing{}),
		reduction: 1,
	}
}

var paramLimiterCeiling = param.NewFourCC("lcei")

// ParameterSchema implements Effect.
func (l *Limiter) ParameterSchema() []param.Desc {
	return []param.Desc{
		{ID: paramLimiterCeiling, Name: "Ceiling", Kind: param.KindFloat, Min: -12, Max: 0, Default: 0, Curve: param.Linear, Unit: "dB"},
		{ID: ParamLimiterRelease, Name: "Release", Kind: param.KindFloat, Min: 5, Max: 500, Default: 50, Curve: param.Exponential, Unit: "ms"},
	}
}

// SetParameter implements Effect.
func (l *Limiter) SetParameter(id param.FourCC, normalized float32, smoothing param.Smoothing) {
	switch id {
	case paramLimiterCeiling:
		db := l.ParameterSchema()[0].ToRaw(float64(normalized))
		l.ceiling.SetTarget(dsp.DBToLinear(db), &smoothing)
	case ParamLimiterRelease:
		l.releaseMs.SetTarget(l.ParameterSchema()[1].ToRaw(float64(normalized)), &smoothing)
	}
}

// Reset implements Effect.
func (l *Limiter) Reset() { l.reduction = 1 }

// Process implements Effect.
func (l *Limiter) Process(io []float32, channels, sampleRate int) {
	releaseCoeff := timeConstantCoeff(l.releaseMs.Current, sampleRate)
	ceiling := l.ceiling.Current

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

		needed := 1.0
		if float64(peak)*l.reduction > ceiling && peak > 0 {
			needed = ceiling / float64(peak)
		}
		if needed < l.reduction {
			l.reduction = needed // instant clamp, no attack smoothing
		} else {
			l.reduction += (1 - l.reduction) * releaseCoeff
			if l.reduction > 1 {
				l.reduction = 1
			}
		}

		g := float32(l.reduction)
		for ch := 0; ch < channels; ch++ {
			io[base+ch] *= g
		}
	}
}
