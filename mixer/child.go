// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"github.com/ik5/audiograph/param"
	"github.com/ik5/audiograph/resample"
	"github.com/ik5/audiograph/source"
)

// childState is one child's position in the §4.8 state machine:
// Pending -> Active -> FadingOut -> Stopped(reason).
type childState int

const (
	statePending childState = iota
	stateActive
	stateFadingOut
	stateStopped
)

// stopReason records why a child reached Stopped, surfaced via the
// Stopped/StoppedWithError status events (§4.8 step 3).
type stopReason int

const (
	stopNone stopReason = iota
	stopExhausted
	stopRequested
	stopError
)

const defaultFadeMillis = 4.0

// child wraps one mixer input — a leaf Source or a nested sub-mixer
// (itself a Source via Mixer.Write) — with its own gain/pan and
// lifecycle state, independent of the wrapped Source's own internal
// state.
type child struct {
	id  uint64
	src source.Source

	state      childState
	reason     stopReason
	startFrame uint64

	fadeTotal       int64
	fadeRemaining   int64
	fadeStartOffset int

	gain param.Value
	pan  param.Value

	// channels/sampleRate are the child's declared native format; the
	// mixer wraps it in source.Resampled/chanmap at insertion time if
	// these differ from the mixer's own, so child.src is always safe to
	// Write at the mixer's own channels/sampleRate.
	channels   int
	sampleRate int

	resampler        resample.Resampler
	nativeScratch    []float32
	resampledScratch []float32
	scratch          []float32
}

func newChild(id uint64, src source.Source, channels, sampleRate int, startFrame uint64) *child {
	return &child{
		id:         id,
		src:        src,
		channels:   channels,
		sampleRate: sampleRate,
		startFrame: startFrame,
		gain:       param.NewValue(0, param.Smoothing{Kind: param.SmoothRamp, RampSamples: 64}),
		pan:        param.NewValue(0, param.Smoothing{Kind: param.SmoothRamp, RampSamples: 64}),
	}
}

// beginFadeOut transitions an Active child to FadingOut over fadeMs
// (defaulting to defaultFadeMillis when <= 0). startOffset delays the
// first attenuated frame by that many samples into the block current
// when this is called, giving sample-accurate stop timing (§4.9) for
// a Stop scheduled mid-block rather than rounding to the block
// boundary.
func (c *child) beginFadeOut(startOffset int, fadeMs float64, sampleRate int) {
	if c.state != stateActive {
		return
	}
	if fadeMs <= 0 {
		fadeMs = defaultFadeMillis
	}
	n := int64(fadeMs / 1000 * float64(sampleRate))
	if n < 1 {
		n = 1
	}
	if startOffset < 0 {
		startOffset = 0
	}
	c.state = stateFadingOut
	c.fadeStartOffset = startOffset
	c.fadeTotal = n
	c.fadeRemaining = n
}
