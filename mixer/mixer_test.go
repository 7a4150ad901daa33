// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"testing"
	"time"

	"github.com/ik5/audiograph/command"
	"github.com/ik5/audiograph/dsp"
	"github.com/ik5/audiograph/errs"
)

// toneSource is a minimal source.Source stub emitting a constant
// non-silent value, used to exercise Mixer summing/lifecycle in
// isolation from a real decoder or resampler.
type toneSource struct {
	value     float32
	exhausted bool
	stopped   bool
}

func (t *toneSource) Write(out []float32, channels, sampleRate int, now uint64) int {
	if t.exhausted {
		return 0
	}
	for i := range out {
		out[i] = t.value
	}
	return len(out) / channels
}
func (t *toneSource) IsExhausted() bool { return t.exhausted }
func (t *toneSource) ApplyEvent(cmd command.Command) {
	if cmd.Payload.Kind == command.Stop {
		t.stopped = true
	}
}
func (t *toneSource) Position() time.Duration { return 0 }

func TestMixer_SumsActiveChildren(t *testing.T) {
	t.Parallel()

	arena := NewArena()
	m := New(arena, 2, 48000)
	m.AddSource(&toneSource{value: 0.25}, 2, 48000)
	m.AddSource(&toneSource{value: 0.25}, 2, 48000)

	out := make([]float32, 64*2)
	m.Process(out, 0)

	if dsp.Peak(out) < 0.4 {
		t.Errorf("Peak() = %v, want close to 0.5 (two 0.25 children summed)", dsp.Peak(out))
	}
}

func TestMixer_RemovesExhaustedChildrenAndEmitsStopped(t *testing.T) {
	t.Parallel()

	arena := NewArena()
	m := New(arena, 1, 48000)
	src := &toneSource{exhausted: true}
	m.AddSource(src, 1, 48000)

	out := make([]float32, 64)
	m.Process(out, 0)

	if len(m.children) != 0 {
		t.Errorf("len(children) = %d, want 0 after exhaustion", len(m.children))
	}

	events := m.Status().Drain()
	found := false
	for _, ev := range events {
		if ev.Kind == command.EventStopped && ev.Exhausted {
			found = true
		}
	}
	if !found {
		t.Error("expected an Exhausted Stopped event after the child ran out")
	}
}

func TestMixer_StopCommandFadesThenRemovesChild(t *testing.T) {
	t.Parallel()

	arena := NewArena()
	m := New(arena, 1, 48000)
	src := &toneSource{value: 1.0}
	id := m.AddSource(src, 1, 48000)

	_ = m.Commands().PushCommand(command.Command{
		TargetID: id,
		FrameTime: 0,
		Payload:   command.Payload{Kind: command.Stop, FadeOutSamples: 64},
	})

	out := make([]float32, 256)
	for i := 0; i < 20 && len(m.children) > 0; i++ {
		m.Process(out, uint64(i*256))
	}

	if len(m.children) != 0 {
		t.Fatal("child was never removed after a Stop command with a short fade")
	}
	if !src.stopped {
		t.Error("inner source never received the forwarded Stop event")
	}
}

func TestMixer_AddChildMixerCycleRejected(t *testing.T) {
	t.Parallel()

	arena := NewArena()
	parent := New(arena, 2, 48000)
	child := New(arena, 2, 48000)

	if _, err := parent.AddChildMixer(child.ID()); err != nil {
		t.Fatalf("AddChildMixer(child) error = %v, want nil", err)
	}
	if _, err := child.AddChildMixer(parent.ID()); err != errs.InvalidState {
		t.Errorf("AddChildMixer(parent) on child = %v, want errs.InvalidState (cycle)", err)
	}
	if _, err := parent.AddChildMixer(parent.ID()); err != errs.InvalidState {
		t.Errorf("AddChildMixer(self) = %v, want errs.InvalidState", err)
	}
}

func TestMixer_SubMixerContributesAudio(t *testing.T) {
	t.Parallel()

	arena := NewArena()
	root := New(arena, 2, 48000)
	sub := New(arena, 2, 48000)
	sub.AddSource(&toneSource{value: 0.5}, 2, 48000)

	if _, err := root.AddChildMixer(sub.ID()); err != nil {
		t.Fatalf("AddChildMixer() error = %v", err)
	}

	out := make([]float32, 64*2)
	root.Process(out, 0)
	if dsp.Peak(out) == 0 {
		t.Error("root mixer produced silence despite an audible sub-mixer child")
	}
}

func TestMixer_SetParameterTargetsMasterGain(t *testing.T) {
	t.Parallel()

	arena := NewArena()
	m := New(arena, 1, 48000)
	m.AddSource(&toneSource{value: 1.0}, 1, 48000)

	_ = m.Commands().PushCommand(command.Command{
		TargetID: uint64(m.ID()),
		FrameTime: 0,
		Payload:   command.Payload{Kind: command.SetParameter, ParamID: ParamMasterGain, ParamValue: -60},
	})

	out := make([]float32, 4096)
	for i := 0; i < 5; i++ {
		m.Process(out, uint64(i*4096))
	}

	if dsp.Peak(out) > 0.1 {
		t.Errorf("Peak() = %v after driving master gain to -60dB, want near silence", dsp.Peak(out))
	}
}
