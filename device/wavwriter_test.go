// SPDX-License-Identifier: EPL-2.0

package device

import (
	"bytes"
	"testing"
)

func TestWAVWriter_RenderPullsCallbackUntilFrameCount(t *testing.T) {
	t.Parallel()

	w := &WAVWriter{}
	if err := w.Open(1, 48000, 64); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	calls := 0
	if err := w.Start(func(out []float32) {
		calls++
		for i := range out {
			out[i] = 0.5
		}
	}); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	w.Render(200)

	if calls < 4 {
		t.Errorf("callback invoked %d times, want at least ceil(200/64)=4", calls)
	}
	if len(w.Samples()) < 200 {
		t.Errorf("len(Samples()) = %d, want at least 200", len(w.Samples()))
	}
	for _, v := range w.Samples() {
		if v != 0.5 {
			t.Fatalf("sample = %v, want 0.5", v)
		}
	}
}

func TestWAVWriter_StopHaltsRenderEarly(t *testing.T) {
	t.Parallel()

	w := &WAVWriter{}
	_ = w.Open(1, 48000, 64)

	calls := 0
	_ = w.Start(func(out []float32) {
		calls++
		if calls == 2 {
			w.Stop()
		}
	})

	w.Render(10000)

	if calls != 2 {
		t.Errorf("callback invoked %d times, want exactly 2 (Stop called during the 2nd)", calls)
	}
	if !w.IsSuspended() {
		t.Error("IsSuspended() = false after Stop")
	}
}

func TestWAVWriter_WriteToProducesAValidFloat32WAV(t *testing.T) {
	t.Parallel()

	w := &WAVWriter{}
	_ = w.Open(2, 44100, 32)
	_ = w.Start(func(out []float32) {
		for i := range out {
			out[i] = 0.25
		}
	})
	w.Render(64)

	var buf bytes.Buffer
	if err := w.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if buf.Len() <= 44 {
		t.Errorf("written file = %d bytes, want more than just the header", buf.Len())
	}
	if string(buf.Bytes()[0:4]) != "RIFF" {
		t.Errorf("missing RIFF marker")
	}
}
