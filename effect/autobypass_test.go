// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"testing"

	"github.com/ik5/audiograph/dsp"
	"github.com/ik5/audiograph/param"
)

func silentBlock(n int) []float32  { return make([]float32, n) }
func loudBlock(n int) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = 0.8
	}
	return buf
}

func TestChain_BypassesAfterSustainedSilence(t *testing.T) {
	t.Parallel()

	c := NewChain(NewGain())
	const blockFrames = 128

	for i := 0; i < silenceBlocks-1; i++ {
		buf := silentBlock(blockFrames)
		c.Process(buf, 1, 48000)
		if c.Bypassed() {
			t.Fatalf("block %d: chain bypassed too early", i)
		}
	}
	buf := silentBlock(blockFrames)
	c.Process(buf, 1, 48000)
	if !c.Bypassed() {
		t.Error("chain did not engage auto-bypass after silenceBlocks consecutive silent blocks")
	}
}

func TestChain_StaysActiveWhileAudible(t *testing.T) {
	t.Parallel()

	c := NewChain(NewGain())
	for i := 0; i < silenceBlocks+4; i++ {
		buf := loudBlock(64)
		c.Process(buf, 1, 48000)
		if c.Bypassed() {
			t.Fatalf("block %d: chain bypassed despite sustained audible input", i)
		}
	}
}

func TestChain_CrossfadesBackInAfterBypass(t *testing.T) {
	t.Parallel()

	g := NewGain()
	g.SetParameter(ParamGainDB, 1, param.Smoothing{}) // normalized 1 -> +12dB max is fine, just needs to be non-silent

	c := NewChain(g)
	for i := 0; i < silenceBlocks+1; i++ {
		c.Process(silentBlock(64), 1, 48000)
	}
	if !c.Bypassed() {
		t.Fatal("setup: chain should be bypassed before the crossfade test begins")
	}

	buf := loudBlock(512)
	c.Process(buf, 1, 48000)
	if c.Bypassed() {
		t.Error("chain should have un-bypassed on the first audible block")
	}
	if dsp.Peak(buf) == 0 {
		t.Error("crossfaded block should not be silent")
	}
}

func TestChain_EmptyChainIsANoOp(t *testing.T) {
	t.Parallel()

	c := NewChain()
	buf := loudBlock(32)
	before := append([]float32(nil), buf...)
	c.Process(buf, 1, 48000)
	for i := range buf {
		if buf[i] != before[i] {
			t.Fatalf("empty chain modified sample %d: %v != %v", i, buf[i], before[i])
		}
	}
}
