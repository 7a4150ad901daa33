// SPDX-License-Identifier: EPL-2.0

package resample

import "testing"

// genSine fills a mono buffer with a simple ramp, distinctive enough
// that interpolation errors show up as divergence rather than
// coincidentally matching zeros.
func genSine(frames int) []float32 {
	out := make([]float32, frames)
	for i := range out {
		out[i] = float32(i%7) - 3
	}
	return out
}

func closeEnough(a, b []float32, tol float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		if d > tol {
			return false
		}
	}
	return true
}

func runWhole(t *testing.T, newR func() Resampler, in []float32, ratio float64, outFrames int) []float32 {
	t.Helper()
	r := newR()
	out := make([]float32, outFrames)
	_, written := r.Process(in, out, ratio, ratio)
	if written != outFrames {
		t.Fatalf("one-shot Process wrote %d frames, want %d", written, outFrames)
	}
	return out
}

func runSplit(t *testing.T, newR func() Resampler, in []float32, ratio float64, outFrames, splitAt int) []float32 {
	t.Helper()
	r := newR()
	out := make([]float32, outFrames)

	consumed1, w1 := r.Process(in, out[:splitAt], ratio, ratio)
	if w1 != splitAt {
		t.Fatalf("first Process call wrote %d, want %d", w1, splitAt)
	}

	remaining := in[consumed1:]
	_, w2 := r.Process(remaining, out[splitAt:], ratio, ratio)
	if w2 != outFrames-splitAt {
		t.Fatalf("second Process call wrote %d, want %d", w2, outFrames-splitAt)
	}
	return out
}

func testConcatenationEqualsOneShot(t *testing.T, newR func() Resampler) {
	t.Helper()

	in := genSine(64)
	const ratio = 1.37
	const outFrames = 40
	const splitAt = 17

	whole := runWhole(t, newR, in, ratio, outFrames)
	split := runSplit(t, newR, in, ratio, outFrames, splitAt)

	if !closeEnough(whole, split, 1e-3) {
		t.Errorf("split Process calls diverged from one-shot call:\nwhole=%v\nsplit=%v", whole, split)
	}
}

func TestCubicConcatenationEqualsOneShot(t *testing.T) {
	t.Parallel()
	testConcatenationEqualsOneShot(t, func() Resampler { return NewCubic(1) })
}

func TestPolyphaseConcatenationEqualsOneShot(t *testing.T) {
	t.Parallel()
	testConcatenationEqualsOneShot(t, func() Resampler { return NewPolyphase(1) })
}

func TestCubicUpsampleProducesRequestedFrames(t *testing.T) {
	t.Parallel()
	c := NewCubic(2)
	in := make([]float32, 20*2)
	for i := range in {
		in[i] = float32(i)
	}
	out := make([]float32, 50*2)
	consumed, written := c.Process(in, out, 0.5, 0.5)
	if written != 50 {
		t.Errorf("written = %d, want 50", written)
	}
	if consumed > 20 {
		t.Errorf("consumed %d frames from a 20-frame input", consumed)
	}
}

func TestPolyphaseResetClearsHistory(t *testing.T) {
	t.Parallel()
	p := NewPolyphase(1)
	in := genSine(32)
	out := make([]float32, 16)
	p.Process(in, out, 1, 1)

	p.Reset()
	for ch := range p.history {
		for _, v := range p.history[ch] {
			if v != 0 {
				t.Fatalf("history not cleared after Reset: %v", p.history[ch])
			}
		}
	}
	if p.pos != 0 {
		t.Errorf("pos = %v after Reset, want 0", p.pos)
	}
}
