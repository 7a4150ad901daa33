// SPDX-License-Identifier: EPL-2.0

package effect

import "github.com/ik5/audiograph/dsp"

// silenceThresholdDB and silenceBlocks implement §4.6's auto-bypass
// rule: a chain whose input has stayed below silenceThresholdDB for
// silenceBlocks consecutive blocks skips processing entirely (saving
// CPU on silent children), and crossfades back in over
// crossfadeSamples once the input becomes audible again so bypass
// never introduces an audible click.
const (
	silenceThresholdDB = -90.0
	silenceBlocks       = 8
)

// Chain is an ordered list of Effects processed in series, with
// automatic bypass of the whole chain while its input has been silent
// for a sustained period (§4.6). A mixer holds one Chain per child (or
// per itself, for a bus-level chain).
type Chain struct {
	effects []Effect

	quietBlocks   int
	bypassed      bool
	crossfadeLeft int
	crossfadeTotal int

	dryScratch []float32
}

// NewChain creates a Chain running effects in order.
func NewChain(effects ...Effect) *Chain {
	return &Chain{effects: effects}
}

// Effects returns the chain's stages in processing order.
func (c *Chain) Effects() []Effect { return c.effects }

// Insert adds eff at index, shifting later stages back (§3 "Effect"
// ordering is mutable at runtime via AddEffect/MoveEffect commands).
func (c *Chain) Insert(index int, eff Effect) {
	if index < 0 || index > len(c.effects) {
		index = len(c.effects)
	}
	c.effects = append(c.effects, nil)
	copy(c.effects[index+1:], c.effects[index:])
	c.effects[index] = eff
}

// Remove deletes the effect at index.
func (c *Chain) Remove(index int) {
	if index < 0 || index >= len(c.effects) {
		return
	}
	c.effects = append(c.effects[:index], c.effects[index+1:]...)
}

// Move relocates the effect at from to before.
func (c *Chain) Move(from, to int) {
	if from < 0 || from >= len(c.effects) || to < 0 || to >= len(c.effects) {
		return
	}
	eff := c.effects[from]
	c.effects = append(c.effects[:from], c.effects[from+1:]...)
	c.effects = append(c.effects[:to], append([]Effect{eff}, c.effects[to:]...)...)
}

// Reset clears every stage's internal state and the bypass tracker.
func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
	c.quietBlocks = 0
	c.bypassed = false
	c.crossfadeLeft = 0
}

// Bypassed reports whether the chain is currently skipping processing.
func (c *Chain) Bypassed() bool { return c.bypassed }

// Process runs io (an interleaved block at channels/sampleRate) through
// every stage, unless auto-bypass has engaged. The fade-back-in window
// is computed here from sampleRate as 4 ms (sampleRate*4/1000, at least
// one sample; §4.6).
func (c *Chain) Process(io []float32, channels, sampleRate int) {
	if len(c.effects) == 0 {
		return
	}

	peakDB := dsp.LinearToDB(float64(dsp.Peak(io)))
	crossfadeSamples := sampleRate * 4 / 1000
	if crossfadeSamples < 1 {
		crossfadeSamples = 1
	}

	if peakDB < silenceThresholdDB {
		c.quietBlocks++
		if c.quietBlocks >= silenceBlocks {
			c.bypassed = true
		}
		if c.bypassed {
			return
		}
	} else {
		c.quietBlocks = 0
		if c.bypassed {
			c.bypassed = false
			c.crossfadeLeft = crossfadeSamples
			c.crossfadeTotal = crossfadeSamples
		}
	}

	if c.crossfadeLeft <= 0 {
		for _, e := range c.effects {
			e.Process(io, channels, sampleRate)
		}
		return
	}

	c.processCrossfaded(io, channels, sampleRate)
}

// processCrossfaded runs the first c.crossfadeLeft frames as a
// dry/wet blend (dry = the bypassed signal, wet = fully processed),
// ramping from 0% wet to 100% wet, and the remainder of the block
// fully wet.
func (c *Chain) processCrossfaded(io []float32, channels, sampleRate int) {
	frames := len(io) / channels
	c.ensureDryScratch(len(io))
	dry := c.dryScratch
	copy(dry, io)

	for _, e := range c.effects {
		e.Process(io, channels, sampleRate)
	}

	fadeFrames := c.crossfadeLeft
	if fadeFrames > frames {
		fadeFrames = frames
	}
	for f := 0; f < fadeFrames; f++ {
		wetFrac := float32(c.crossfadeTotal-c.crossfadeLeft+f+1) / float32(c.crossfadeTotal)
		if wetFrac > 1 {
			wetFrac = 1
		}
		base := f * channels
		for ch := 0; ch < channels; ch++ {
			io[base+ch] = dry[base+ch]*(1-wetFrac) + io[base+ch]*wetFrac
		}
	}
	c.crossfadeLeft -= fadeFrames
}

func (c *Chain) ensureDryScratch(n int) {
	if cap(c.dryScratch) < n {
		c.dryScratch = make([]float32, n)
	}
	c.dryScratch = c.dryScratch[:n]
}
