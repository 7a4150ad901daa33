// SPDX-License-Identifier: EPL-2.0

package source

import (
	"time"

	"github.com/ik5/audiograph/command"
)

// Source is the audio-thread-facing contract every playable thing in
// the engine implements (§4.1): preloaded buffers, streamed files,
// synthesizer/sampler generators, and a *mixer.Mixer itself when used
// as a child of another mixer ("Mixed" in the data model).
type Source interface {
	// Write fills out with up to len(out)/channels frames at the given
	// sampleRate and returns how many frames were actually written.
	// Fewer than requested signals partial output this block; zero
	// together with IsExhausted()==true signals end of life. now is the
	// device frame position at the start of this block, used by sources
	// that need to resolve scheduled events against absolute time.
	Write(out []float32, channels, sampleRate int, now uint64) (written int)

	// IsExhausted reports whether the source will never produce more
	// audio and may be reclaimed.
	IsExhausted() bool

	// ApplyEvent handles a scheduled command dispatched to this source
	// by the scheduler (§4.9). Must be cheap and non-blocking.
	ApplyEvent(cmd command.Command)

	// Position returns the current playback position.
	Position() time.Duration
}
