// SPDX-License-Identifier: EPL-2.0

package chanmap

// MaxChannels bounds the channel counts Map understands (§4.5).
const MaxChannels = 8

// minus3dB is the equal-power-ish attenuation applied when summing
// multiple source channels down into one, avoiding clipping on a
// same-phase sum.
const minus3dB = 0.70710678 // 1/sqrt(2)

// Map converts an interleaved frame from srcChannels layout into
// dstChannels layout, writing frames*dstChannels samples into out from
// frames*srcChannels samples in in. frames is min(len(in)/srcChannels,
// len(out)/dstChannels). Returns the number of frames written.
//
// Rules (§4.5): mono -> N duplicates the single channel into every
// destination channel. N -> mono averages all source channels. stereo
// -> N (N>2) copies L/R into channels 0/1 and zero-fills the rest.
// N -> stereo (N>2) sums even-indexed channels into L and odd-indexed
// channels into R, each at minus3dB to avoid clipping. Equal channel
// counts pass through unchanged. Any other combination copies the
// overlapping channels and zero-fills or drops the remainder.
func Map(in []float32, srcChannels int, out []float32, dstChannels int) int {
	if srcChannels <= 0 || dstChannels <= 0 {
		return 0
	}
	frames := len(in) / srcChannels
	if of := len(out) / dstChannels; of < frames {
		frames = of
	}

	switch {
	case srcChannels == dstChannels:
		copy(out[:frames*dstChannels], in[:frames*srcChannels])

	case srcChannels == 1:
		for f := 0; f < frames; f++ {
			v := in[f]
			base := f * dstChannels
			for c := 0; c < dstChannels; c++ {
				out[base+c] = v
			}
		}

	case dstChannels == 1:
		inv := 1 / float32(srcChannels)
		for f := 0; f < frames; f++ {
			sBase := f * srcChannels
			var sum float32
			for c := 0; c < srcChannels; c++ {
				sum += in[sBase+c]
			}
			out[f] = sum * inv
		}

	case srcChannels == 2 && dstChannels > 2:
		for f := 0; f < frames; f++ {
			sBase := f * 2
			dBase := f * dstChannels
			out[dBase] = in[sBase]
			out[dBase+1] = in[sBase+1]
			for c := 2; c < dstChannels; c++ {
				out[dBase+c] = 0
			}
		}

	case dstChannels == 2 && srcChannels > 2:
		for f := 0; f < frames; f++ {
			sBase := f * srcChannels
			var left, right float32
			for c := 0; c < srcChannels; c++ {
				if c%2 == 0 {
					left += in[sBase+c]
				} else {
					right += in[sBase+c]
				}
			}
			dBase := f * 2
			out[dBase] = left * minus3dB
			out[dBase+1] = right * minus3dB
		}

	default:
		n := srcChannels
		if dstChannels < n {
			n = dstChannels
		}
		for f := 0; f < frames; f++ {
			sBase := f * srcChannels
			dBase := f * dstChannels
			for c := 0; c < n; c++ {
				out[dBase+c] = in[sBase+c]
			}
			for c := n; c < dstChannels; c++ {
				out[dBase+c] = 0
			}
		}
	}

	return frames
}
