// SPDX-License-Identifier: EPL-2.0

package effect

import "github.com/ik5/audiograph/param"

// Effect is one stage of a mixer's DSP chain (§3 "Effect"). Process
// runs in place on an interleaved block; implementations must be
// allocation-free once constructed so they are safe to call from the
// audio thread.
type Effect interface {
	// Process applies the effect to io in place, which holds
	// len(io)/channels interleaved frames at sampleRate.
	Process(io []float32, channels, sampleRate int)
	// SetParameter updates one of the effect's parameters, identified by
	// id, to a normalized value in [0,1], smoothed per smoothing.
	SetParameter(id param.FourCC, normalized float32, smoothing param.Smoothing)
	// Reset clears any internal state (delay lines, filter history,
	// envelope followers) back to silence, used on seek/loop/restart.
	Reset()
	// ParameterSchema describes every parameter SetParameter accepts.
	ParameterSchema() []param.Desc
}
