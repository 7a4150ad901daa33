// SPDX-License-Identifier: EPL-2.0

package resample

// Cubic is the fast resampling path: cubic (Catmull-Rom) interpolation
// over a 4-frame history ring, adapted from the teacher engine's
// audio.Resampler. The original pulled its own input from an
// audio.Source one frame at a time; here Process is handed a block of
// input directly so it can run on the audio thread without performing
// any I/O, and so its ratio can glide within a single call.
type Cubic struct {
	channels int

	// frames[0..3] hold four consecutive source frames: frames[1] and
	// frames[2] bracket the current interpolation position, frames[0]
	// and frames[3] are the outer control points.
	frames   [4][]float32
	hasFrame [4]bool

	// pos is the fractional position in [0,1) between frames[1] and frames[2].
	pos float64

	// Anti-aliasing one-pole low-pass, engaged automatically whenever a
	// Process call downsamples (ratio > 1), matching the teacher's
	// "simple low-pass filter when downsampling" behavior.
	filterState []float32
}

// NewCubic creates a Cubic resampler for the given channel count.
func NewCubic(channels int) *Cubic {
	c := &Cubic{channels: channels, filterState: make([]float32, channels)}
	for i := range c.frames {
		c.frames[i] = make([]float32, channels)
	}
	return c
}

// Reset zeros all interpolation history.
func (c *Cubic) Reset() {
	for i := range c.frames {
		for j := range c.frames[i] {
			c.frames[i][j] = 0
		}
		c.hasFrame[i] = false
	}
	for i := range c.filterState {
		c.filterState[i] = 0
	}
	c.pos = 0
}

// fetchNext shifts the history ring and copies the frame at in[*idx]
// (if any remain) into the newest slot. Returns false when in is
// exhausted; the shift still happens so the ring correctly "forgets"
// the oldest frame even at end of stream.
func (c *Cubic) fetchNext(in []float32, idx *int, inFrames int, downsampling bool) bool {
	copy(c.frames[0], c.frames[1])
	copy(c.frames[1], c.frames[2])
	copy(c.frames[2], c.frames[3])
	c.hasFrame[0] = c.hasFrame[1]
	c.hasFrame[1] = c.hasFrame[2]
	c.hasFrame[2] = c.hasFrame[3]

	if *idx >= inFrames {
		c.hasFrame[3] = false
		return false
	}

	base := *idx * c.channels
	copy(c.frames[3], in[base:base+c.channels])
	c.hasFrame[3] = true

	if downsampling {
		const alpha = 0.5 // fixed one-pole coefficient, independent of the ratio
		for ch := range c.frames[3] {
			v := alpha*c.frames[3][ch] + (1-alpha)*c.filterState[ch]
			c.frames[3][ch] = v
			c.filterState[ch] = v
		}
	}

	*idx++
	return true
}

// Process implements Resampler.
func (c *Cubic) Process(in, out []float32, ratioStart, ratioEnd float64) (inConsumed, outWritten int) {
	if c.channels <= 0 || len(out) == 0 {
		return 0, 0
	}
	inFrames := len(in) / c.channels
	outFrames := len(out) / c.channels
	if outFrames == 0 {
		return 0, 0
	}

	downsampling := ratioStart > 1 || ratioEnd > 1
	idx := 0

	if !c.hasFrame[1] {
		for range 4 {
			c.fetchNext(in, &idx, inFrames, downsampling)
		}
	}

	written := 0
	for written < outFrames {
		t := float64(written) / float64(outFrames)
		ratio := clampRatio(ratioStart + (ratioEnd-ratioStart)*t)

		for c.pos >= 1.0 {
			c.pos -= 1.0
			if !c.fetchNext(in, &idx, inFrames, downsampling) {
				return idx, written
			}
		}

		if !c.hasFrame[1] || !c.hasFrame[2] {
			return idx, written
		}

		alpha := float32(c.pos)
		for ch := range c.channels {
			y0, y1, y2, y3 := c.frames[0][ch], c.frames[1][ch], c.frames[2][ch], c.frames[3][ch]
			if !c.hasFrame[0] {
				y0 = y1
			}
			if !c.hasFrame[3] {
				y3 = y2
			}
			out[written*c.channels+ch] = catmullRom(y0, y1, y2, y3, alpha)
		}

		written++
		c.pos += ratio
	}

	return idx, written
}

// catmullRom performs cubic Catmull-Rom interpolation between y1 and y2
// at fractional position x, using y0/y3 as the outer control points.
// Adapted from the teacher engine's utils.CubicInterpolate.
func catmullRom(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}
