// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"fmt"

	"github.com/ik5/audiograph/param"
)

// EQ is a multi-band parametric equalizer: a fixed set of chained
// Biquad sections, each independently addressable through its own
// sub-range of the aggregated ParameterSchema.
type EQ struct {
	bands []*Biquad
}

// NewEQ builds an EQ with one LowShelf, len(midBands) Peaking bands,
// and one HighShelf, matching a typical channel-strip layout.
func NewEQ(midBands int) *EQ {
	eq := &EQ{}
	eq.bands = append(eq.bands, NewBiquad(LowShelf))
	for i := 0; i < midBands; i++ {
		eq.bands = append(eq.bands, NewBiquad(Peaking))
	}
	eq.bands = append(eq.bands, NewBiquad(HighShelf))
	return eq
}

// bandParamID namespaces a band's Biquad parameter id with its band
// index so EQ's aggregated schema has no collisions. Biquad's three
// ids share a "bq" prefix, so only the last two bytes are
// distinguishing; band is folded into the first byte instead.
func bandParamID(band int, id param.FourCC) param.FourCC {
	return param.NewFourCC(fmt.Sprintf("%d%c%c", band%10, id[2], id[3]))
}

// ParameterSchema implements Effect.
func (eq *EQ) ParameterSchema() []param.Desc {
	var out []param.Desc
	for i, b := range eq.bands {
		for _, d := range b.ParameterSchema() {
			d.ID = bandParamID(i, d.ID)
			d.Name = fmt.Sprintf("Band %d %s", i, d.Name)
			out = append(out, d)
		}
	}
	return out
}

// SetParameter implements Effect, routing to the band whose namespaced
// id prefix matches.
func (eq *EQ) SetParameter(id param.FourCC, normalized float32, smoothing param.Smoothing) {
	for i, b := range eq.bands {
		for _, d := range b.ParameterSchema() {
			if bandParamID(i, d.ID) == id {
				b.SetParameter(d.ID, normalized, smoothing)
				return
			}
		}
	}
}

// Reset implements Effect.
func (eq *EQ) Reset() {
	for _, b := range eq.bands {
		b.Reset()
	}
}

// Process implements Effect, running every band in series.
func (eq *EQ) Process(io []float32, channels, sampleRate int) {
	for _, b := range eq.bands {
		b.Process(io, channels, sampleRate)
	}
}
