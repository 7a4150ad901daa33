// SPDX-License-Identifier: EPL-2.0

package source

import (
	"time"

	"github.com/ik5/audiograph/command"
	"github.com/ik5/audiograph/dsp"
)

// Guard wraps a Source and recovers any panic escaping its calls,
// marking it poisoned and pushing a status event so the mixer can
// unlink it on the next block instead of bringing down the audio
// callback (§4.1 "guarded wrapper catches unexpected panics").
//
// Grounded on the teacher's resampler/MonoMixer pattern of wrapping one
// Source in another: Guard is just another Source, so it composes with
// Resampled/Panned in either order.
type Guard struct {
	inner    Source
	id       uint64
	status   *command.StatusBus
	poisoned bool
}

// NewGuard wraps src so that a panic in any of its methods is
// contained. id identifies src in emitted status events; status may be
// nil (useful in tests), in which case poisoning is silent.
func NewGuard(src Source, id uint64, status *command.StatusBus) *Guard {
	return &Guard{inner: src, id: id, status: status}
}

// Poisoned reports whether a wrapped call has already panicked.
func (g *Guard) Poisoned() bool { return g.poisoned }

func (g *Guard) poison(now uint64) {
	g.poisoned = true
	if g.status != nil {
		g.status.Push(command.Event{Kind: command.EventPoisoned, SourceID: g.id, FramePosition: now})
	}
}

// Write implements Source. A poisoned Guard fills silence and reports
// exhausted without touching the inner source again.
func (g *Guard) Write(out []float32, channels, sampleRate int, now uint64) (written int) {
	if g.poisoned {
		dsp.Silence(out)
		return 0
	}
	defer func() {
		if r := recover(); r != nil {
			g.poison(now)
			dsp.Silence(out)
			written = 0
		}
	}()
	return g.inner.Write(out, channels, sampleRate, now)
}

// IsExhausted implements Source.
func (g *Guard) IsExhausted() (exhausted bool) {
	if g.poisoned {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			g.poison(0)
			exhausted = true
		}
	}()
	return g.inner.IsExhausted()
}

// ApplyEvent implements Source.
func (g *Guard) ApplyEvent(cmd command.Command) {
	if g.poisoned {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			g.poison(cmd.FrameTime)
		}
	}()
	g.inner.ApplyEvent(cmd)
}

// Position implements Source.
func (g *Guard) Position() (pos time.Duration) {
	if g.poisoned {
		return 0
	}
	defer func() {
		if r := recover(); r != nil {
			g.poison(0)
			pos = 0
		}
	}()
	return g.inner.Position()
}
