// SPDX-License-Identifier: EPL-2.0

package handle

import (
	"go.uber.org/atomic"

	"github.com/ik5/audiograph/command"
	"github.com/ik5/audiograph/errs"
	"github.com/ik5/audiograph/mixer"
	"github.com/ik5/audiograph/param"
)

// Kind distinguishes a Handle addressing a leaf source (a mixer child)
// from one addressing a mixer itself.
type Kind int

const (
	KindSource Kind = iota
	KindMixer
)

// Handle is a non-blocking, arena-safe reference to a playing source
// or mixer. playing/position are updated by the caller's status-event
// pump (command.StatusBus.Drain), not by Handle itself, since only the
// control side reading events knows when they arrive.
type Handle struct {
	kind     Kind
	owner    mixer.ID // the mixer whose CommandQueue commands are pushed into
	targetID uint64   // child id (KindSource) or the owning mixer's own id (KindMixer)
	arena    *mixer.Arena

	playing  atomic.Bool
	position atomic.Uint64
}

// NewSourceHandle addresses a child with id childID within owner.
func NewSourceHandle(arena *mixer.Arena, owner mixer.ID, childID uint64) *Handle {
	h := &Handle{kind: KindSource, owner: owner, targetID: childID, arena: arena}
	h.playing.Store(true)
	return h
}

// NewMixerHandle addresses a mixer's own master parameters/lifecycle.
func NewMixerHandle(arena *mixer.Arena, target mixer.ID) *Handle {
	h := &Handle{kind: KindMixer, owner: target, targetID: uint64(target), arena: arena}
	h.playing.Store(true)
	return h
}

func (h *Handle) resolve() (*mixer.Mixer, error) {
	m, ok := h.arena.Lookup(h.owner)
	if !ok {
		return nil, errs.NotFound
	}
	return m, nil
}

func (h *Handle) push(payload command.Payload) error {
	m, err := h.resolve()
	if err != nil {
		return err
	}
	return m.Commands().PushCommand(command.Command{TargetID: h.targetID, Payload: payload})
}

// Stop schedules a Stop (fade-out, milliseconds) for a source handle.
// On a mixer handle this is a no-op: Mixer only honors Stop on its
// children, not on itself, the same asymmetry Mixer.applyCommand has.
func (h *Handle) Stop(fadeMs float64) error {
	return h.push(command.Payload{
		Kind:           command.Stop,
		FadeOutSamples: int64(fadeMs),
	})
}

// SetParameter schedules a parameter change, immediately (no explicit
// FrameTime), at either the child's own source-level schema or, for
// mixer.ParamChildGain/Pan and mixer.ParamMasterGain/Pan, the mixer
// channel-strip fields. smoothing may be nil to use the target's
// configured default.
func (h *Handle) SetParameter(id param.FourCC, value float64, smoothing *param.Smoothing) error {
	return h.push(command.Payload{
		Kind:           command.SetParameter,
		ParamID:        id,
		ParamValue:     value,
		ParamSmoothing: toCommandSmoothing(smoothing),
	})
}

// toCommandSmoothing converts the param package's Smoothing into the
// command package's dependency-free mirror struct (see ParamSmoothing's
// doc comment for why the two types exist separately).
func toCommandSmoothing(s *param.Smoothing) *command.ParamSmoothing {
	if s == nil {
		return nil
	}
	return &command.ParamSmoothing{
		Kind:                int(s.Kind),
		TimeConstantSamples: s.TimeConstantSamples,
		RampSamples:         s.RampSamples,
	}
}

// Seek schedules a seek to frame for a source handle.
func (h *Handle) Seek(frame int64) error {
	return h.push(command.Payload{Kind: command.Seek, SeekFrame: frame})
}

// NoteOn schedules a NoteOn for a source handle wrapping a generator.
func (h *Handle) NoteOn(key int, velocity float32) error {
	return h.push(command.Payload{Kind: command.NoteOn, Key: key, Velocity: velocity})
}

// NoteOff schedules a NoteOff for a source handle wrapping a generator.
func (h *Handle) NoteOff(key int) error {
	return h.push(command.Payload{Kind: command.NoteOff, Key: key})
}

// IsPlaying reports the last-known playing state, as updated by
// SetPlaying from the control side's status-event pump.
func (h *Handle) IsPlaying() bool { return h.playing.Load() }

// SetPlaying is called by the status-event pump on a Stopped event for
// this handle's target.
func (h *Handle) SetPlaying(playing bool) { h.playing.Store(playing) }

// Position returns the last-known playback position in frames, as
// updated by SetPosition from the control side's status-event pump.
func (h *Handle) Position() uint64 { return h.position.Load() }

// SetPosition is called by the status-event pump on a Position event
// for this handle's target.
func (h *Handle) SetPosition(frames uint64) { h.position.Store(frames) }
