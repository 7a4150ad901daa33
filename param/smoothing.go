// SPDX-License-Identifier: EPL-2.0

package param

import "math"

// SmoothingKind selects how a Value ramps toward a newly set target.
type SmoothingKind int

const (
	// SmoothNone applies a new target immediately at the next block
	// boundary with no interpolation.
	SmoothNone SmoothingKind = iota
	// SmoothOnePole applies a one-pole (exponential) filter toward the
	// target with a configurable time constant.
	SmoothOnePole
	// SmoothRamp applies a linear ramp toward the target over a fixed
	// number of samples.
	SmoothRamp
)

// Smoothing describes how a parameter's runtime Value advances.
type Smoothing struct {
	Kind SmoothingKind
	// TimeConstantSamples is the one-pole time constant, in samples, for SmoothOnePole.
	TimeConstantSamples float64
	// RampSamples is the ramp duration, in samples, for SmoothRamp.
	RampSamples int64
}

// Value is the audio-thread-resident runtime state of one parameter:
// current value, target value, and whatever state its Smoothing needs
// to advance one sample (or one block) at a time.
type Value struct {
	Current float64
	target  float64
	smooth  Smoothing

	// rampStep is the per-sample increment for SmoothRamp.
	rampStep float64
	// rampRemaining counts down the samples left in an active ramp.
	rampRemaining int64
	// onePoleCoeff is precomputed from TimeConstantSamples.
	onePoleCoeff float64
}

// NewValue creates a Value initialized to initial with no pending
// target change.
func NewValue(initial float64, smooth Smoothing) Value {
	v := Value{Current: initial, target: initial, smooth: smooth}
	v.recomputeOnePole()
	return v
}

func (v *Value) recomputeOnePole() {
	if v.smooth.TimeConstantSamples <= 0 {
		v.onePoleCoeff = 1
		return
	}
	// Standard one-pole coefficient for a time constant expressed in
	// samples: coeff = 1 - exp(-1/tau).
	v.onePoleCoeff = 1 - math.Exp(-1/v.smooth.TimeConstantSamples)
}

// SetTarget schedules a new target value. smoothing, if non-nil,
// overrides the Value's configured smoothing policy for this change
// only (§4.7: commands may carry a per-change smoothing override).
func (v *Value) SetTarget(target float64, smoothing *Smoothing) {
	policy := v.smooth
	if smoothing != nil {
		policy = *smoothing
	}
	v.target = target

	switch policy.Kind {
	case SmoothNone:
		v.Current = target
		v.rampRemaining = 0
	case SmoothRamp:
		n := policy.RampSamples
		if n <= 0 {
			v.Current = target
			v.rampRemaining = 0
			return
		}
		v.rampStep = (target - v.Current) / float64(n)
		v.rampRemaining = n
	case SmoothOnePole:
		v.smooth = policy
		v.recomputeOnePole()
	}
}

// Advance moves Current one sample closer to target per the active
// smoothing policy. Called once per sample when a block straddles a
// ramp, or once per block when no smoothing/ramp is in progress.
func (v *Value) Advance() {
	switch v.smooth.Kind {
	case SmoothRamp:
		if v.rampRemaining <= 0 {
			return
		}
		v.Current += v.rampStep
		v.rampRemaining--
		if v.rampRemaining == 0 {
			v.Current = v.target
		}
	case SmoothOnePole:
		v.Current += (v.target - v.Current) * v.onePoleCoeff
	default:
		v.Current = v.target
	}
}

// AdvanceBlock advances n samples' worth of ramp in one call, the
// "advances by block_size samples' worth of ramp" behavior of §4.7.
func (v *Value) AdvanceBlock(n int) {
	for range n {
		v.Advance()
	}
}

// Settled reports whether Current has reached target (no pending ramp).
func (v *Value) Settled() bool {
	return v.Current == v.target && v.rampRemaining == 0
}
