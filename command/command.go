// SPDX-License-Identifier: EPL-2.0

package command

// PayloadKind tags which field of Payload is populated (§3 "Command").
type PayloadKind int

const (
	PlayStart PayloadKind = iota
	Stop
	Seek
	SetParameter
	NoteOn
	NoteOff
	AddEffect
	RemoveEffect
	MoveEffect
	AddChildMixer
	RemoveMixer
)

func (k PayloadKind) String() string {
	switch k {
	case PlayStart:
		return "PlayStart"
	case Stop:
		return "Stop"
	case Seek:
		return "Seek"
	case SetParameter:
		return "SetParameter"
	case NoteOn:
		return "NoteOn"
	case NoteOff:
		return "NoteOff"
	case AddEffect:
		return "AddEffect"
	case RemoveEffect:
		return "RemoveEffect"
	case MoveEffect:
		return "MoveEffect"
	case AddChildMixer:
		return "AddChildMixer"
	case RemoveMixer:
		return "RemoveMixer"
	default:
		return "Unknown"
	}
}

// Payload is a fixed-shape union of every scheduled command's
// arguments. A plain struct (instead of an interface) keeps Command
// allocation-free to construct and copy, which matters since commands
// are built and enqueued from arbitrary control threads at high rates.
type Payload struct {
	Kind PayloadKind

	// Stop
	FadeOutSamples int64

	// Seek
	SeekFrame int64

	// SetParameter
	ParamID        [4]byte
	ParamValue     float64
	ParamSmoothing *ParamSmoothing

	// NoteOn / NoteOff
	Key      int
	Velocity float32

	// AddEffect / RemoveEffect / MoveEffect
	EffectIndex    int
	EffectNewIndex int
	EffectFactory  func() any // opaque effect.Effect constructor, set by callers

	// AddChildMixer / RemoveMixer
	ChildID uint64
}

// ParamSmoothing mirrors param.Smoothing without importing the param
// package, avoiding an import cycle (param has no need of command, but
// keeping command dependency-free of the DSP packages makes it usable
// from handle and mixer equally).
type ParamSmoothing struct {
	Kind                int
	TimeConstantSamples float64
	RampSamples         int64
}

// Command is a record scheduled for a target entity at an exact sample
// frame (§3 "Command").
type Command struct {
	TargetID  uint64
	FrameTime uint64
	Payload   Payload
	// seq disambiguates commands that share FrameTime: arrival order at
	// the audio thread's drain point decides execution order (§3, §5).
	seq uint64
}
