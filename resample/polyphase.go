// SPDX-License-Identifier: EPL-2.0

package resample

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

const (
	polyphasePhases = 32
	polyphaseTaps   = 16
)

// Polyphase is the high-quality resampling path named in §4.4: a
// polyphase FIR built from a precomputed windowed-sinc prototype filter
// (Blackman-windowed, via gonum's dsp/window, the same family
// rayboyd-audio-engine pulls gonum in for). Quality comes at a fixed
// per-sample cost of polyphaseTaps multiply-adds per channel, versus
// Cubic's 4-tap interpolation.
type Polyphase struct {
	channels int
	phases   int
	taps     int
	kernel   []float32 // flattened [phase*taps+tap], unity gain per phase

	history    [][]float32 // per-channel delay line, most-recent-last
	histFilled int

	pos float64
}

// NewPolyphase creates a Polyphase resampler for the given channel
// count, with a kernel built once at construction time.
func NewPolyphase(channels int) *Polyphase {
	p := &Polyphase{
		channels: channels,
		phases:   polyphasePhases,
		taps:     polyphaseTaps,
		kernel:   buildWindowedSincKernel(polyphasePhases, polyphaseTaps),
		history:  make([][]float32, channels),
	}
	for ch := range p.history {
		p.history[ch] = make([]float32, polyphaseTaps)
	}
	return p
}

// Reset zeros the delay line and restarts the fractional position.
func (p *Polyphase) Reset() {
	for ch := range p.history {
		for i := range p.history[ch] {
			p.history[ch][i] = 0
		}
	}
	p.histFilled = 0
	p.pos = 0
}

func (p *Polyphase) shiftIn(frame []float32) {
	for ch := 0; ch < p.channels; ch++ {
		h := p.history[ch]
		copy(h, h[1:])
		h[len(h)-1] = frame[ch]
	}
}

// Process implements Resampler.
func (p *Polyphase) Process(in, out []float32, ratioStart, ratioEnd float64) (inConsumed, outWritten int) {
	if p.channels <= 0 || len(out) == 0 {
		return 0, 0
	}
	inFrames := len(in) / p.channels
	outFrames := len(out) / p.channels
	if outFrames == 0 {
		return 0, 0
	}

	idx := 0
	fetch := func() bool {
		if idx >= inFrames {
			return false
		}
		base := idx * p.channels
		p.shiftIn(in[base : base+p.channels])
		idx++
		if p.histFilled < p.taps {
			p.histFilled++
		}
		return true
	}

	written := 0
	for written < outFrames {
		t := float64(written) / float64(outFrames)
		ratio := clampRatio(ratioStart + (ratioEnd-ratioStart)*t)

		for p.pos >= 1.0 {
			p.pos -= 1.0
			if !fetch() {
				return idx, written
			}
		}

		phase := int(p.pos * float64(p.phases))
		if phase >= p.phases {
			phase = p.phases - 1
		} else if phase < 0 {
			phase = 0
		}
		krow := p.kernel[phase*p.taps : phase*p.taps+p.taps]

		for ch := 0; ch < p.channels; ch++ {
			h := p.history[ch]
			var acc float32
			for tap := 0; tap < p.taps; tap++ {
				acc += h[tap] * krow[tap]
			}
			out[written*p.channels+ch] = acc
		}

		written++
		p.pos += ratio
	}

	return idx, written
}

// buildWindowedSincKernel builds a phases*taps windowed-sinc polyphase
// filter bank: phase p implements the fractional delay p/phases,
// tapered by a Blackman window so each phase's frequency response stays
// well-behaved, and each phase's taps are normalized to unity DC gain.
func buildWindowedSincKernel(phases, taps int) []float32 {
	win := make([]float64, taps)
	for i := range win {
		win[i] = 1
	}
	win = window.Blackman(win)

	center := float64(taps-1) / 2
	kernel := make([]float32, phases*taps)

	for ph := 0; ph < phases; ph++ {
		frac := float64(ph) / float64(phases)
		var sum float64
		row := make([]float64, taps)
		for t := 0; t < taps; t++ {
			x := float64(t) - center - frac
			v := sinc(x) * win[t]
			row[t] = v
			sum += v
		}
		if sum == 0 {
			sum = 1
		}
		for t := 0; t < taps; t++ {
			kernel[ph*taps+t] = float32(row[t] / sum)
		}
	}
	return kernel
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	px := math.Pi * x
	return math.Sin(px) / px
}
