// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"math"

	"github.com/ik5/audiograph/dsp"
	"github.com/ik5/audiograph/param"
)

// Distortion parameters.
var (
	ParamDistDrive  = param.NewFourCC("ddrv")
	ParamDistOutput = param.NewFourCC("dout")
)

// Distortion is a tanh waveshaper with a pre-gain ("drive") and a
// post-gain ("output") trim. Its curve is independent of dsp.SoftClip,
// which uses a fixed threshold and a different shape.
type Distortion struct {
	drive  param.Value // linear pre-gain multiplier
	output param.Value // dB trim
}

// NewDistortion creates a Distortion stage at unity drive (no added
// saturation).
func NewDistortion() *Distortion {
	return &Distortion{
		drive:  param.NewValue(1, param.Smoothing{}),
		output: param.NewValue(0, param.Smoothing{}),
	}
}

// ParameterSchema implements Effect.
func (d *Distortion) ParameterSchema() []param.Desc {
	return []param.Desc{
		{ID: ParamDistDrive, Name: "Drive", Kind: param.KindFloat, Min: 1, Max: 40, Default: 1, Curve: param.Exponential},
		{ID: ParamDistOutput, Name: "Output", Kind: param.KindFloat, Min: -24, Max: 0, Default: 0, Curve: param.Linear, Unit: "dB"},
	}
}

// SetParameter implements Effect.
func (d *Distortion) SetParameter(id param.FourCC, normalized float32, smoothing param.Smoothing) {
	switch id {
	case ParamDistDrive:
		d.drive.SetTarget(d.ParameterSchema()[0].ToRaw(float64(normalized)), &smoothing)
	case ParamDistOutput:
		d.output.SetTarget(d.ParameterSchema()[1].ToRaw(float64(normalized)), &smoothing)
	}
}

// Reset implements Effect; Distortion is memoryless, nothing to clear.
func (d *Distortion) Reset() {}

// Process implements Effect.
func (d *Distortion) Process(io []float32, channels, sampleRate int) {
	drive := d.drive.Current
	out := dsp.DBToLinear(d.output.Current)
	for i, x := range io {
		io[i] = float32(math.Tanh(float64(x)*drive) * out)
	}
}
