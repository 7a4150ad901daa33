// SPDX-License-Identifier: EPL-2.0

package source

import (
	"math"
	"time"

	"github.com/ik5/audiograph/chanmap"
	"github.com/ik5/audiograph/command"
	"github.com/ik5/audiograph/dsp"
	"github.com/ik5/audiograph/resample"
)

// maxVoices bounds Generator's polyphony; NoteOn beyond this count
// steals the oldest active voice (§3 "may have polyphony (voice set)").
const maxVoices = 16

// envelope stage durations, in milliseconds, converted to samples at the
// device rate on the first Write call.
const (
	attackMillis  = 5.0
	releaseMillis = 30.0
)

// voice is one active note: a cursor into the shared waveform buffer,
// pitched relative to rootKey, with a simple attack/release envelope.
type voice struct {
	active     bool
	key        int
	velocity   float32
	cursor     float64
	envGain    float32
	releasing  bool
	age        uint64
	resampler  resample.Resampler
}

// Generator is a stateful, note-triggered DSP producer (§3 "Generator"):
// a polyphonic sampler that plays a shared waveform buffer at a pitch
// derived from each active note's key, relative to rootKey (MIDI note
// 69 == no pitch shift by default, matching the standard A4 convention).
type Generator struct {
	wave     *dsp.SharedBuffer
	rootKey  int
	voices   [maxVoices]voice
	voiceAge uint64

	attackSamples  int64
	releaseSamples int64

	deviceSampleRate int
	exhausted        bool

	scratchIn        []float32
	scratchResampled []float32
	scratchMapped    []float32
}

// NewGenerator creates a Generator that plays wave at native pitch for
// rootKey (commonly 69, A4) and proportionally pitch-shifted for other
// keys.
func NewGenerator(wave *dsp.SharedBuffer, rootKey int) *Generator {
	return &Generator{wave: wave, rootKey: rootKey}
}

// IsExhausted implements source.Source: a Generator is only exhausted
// once explicitly closed (Stop with no fade) since it can always accept
// another NoteOn.
func (g *Generator) IsExhausted() bool { return g.exhausted }

// Position implements source.Source; generators have no single
// playback position, so this reports zero.
func (g *Generator) Position() time.Duration { return 0 }

// ApplyEvent implements source.Source.
func (g *Generator) ApplyEvent(cmd command.Command) {
	switch cmd.Payload.Kind {
	case command.NoteOn:
		g.noteOn(cmd.Payload.Key, cmd.Payload.Velocity)
	case command.NoteOff:
		g.noteOff(cmd.Payload.Key)
	case command.Stop:
		g.exhausted = true
	}
}

func (g *Generator) noteOn(key int, velocity float32) {
	slot := -1
	oldestAge := ^uint64(0)
	oldestIdx := 0
	for i := range g.voices {
		if !g.voices[i].active {
			slot = i
			break
		}
		if g.voices[i].age < oldestAge {
			oldestAge = g.voices[i].age
			oldestIdx = i
		}
	}
	if slot < 0 {
		slot = oldestIdx // voice stealing
	}

	g.voiceAge++
	v := &g.voices[slot]
	*v = voice{
		active:    true,
		key:       key,
		velocity:  velocity,
		cursor:    0,
		envGain:   0,
		releasing: false,
		age:       g.voiceAge,
		resampler: resample.NewCubic(g.wave.Channels),
	}
}

func (g *Generator) noteOff(key int) {
	for i := range g.voices {
		if g.voices[i].active && g.voices[i].key == key && !g.voices[i].releasing {
			g.voices[i].releasing = true
		}
	}
}

func (g *Generator) pitchRatio(key int) float64 {
	semitones := float64(key - g.rootKey)
	return math.Pow(2, semitones/12)
}

func (g *Generator) ensureScratch(inFrames, outFrames, srcChannels, outChannels int) {
	if n := inFrames * srcChannels; cap(g.scratchIn) < n {
		g.scratchIn = make([]float32, n)
	}
	g.scratchIn = g.scratchIn[:inFrames*srcChannels]
	if n := outFrames * srcChannels; cap(g.scratchResampled) < n {
		g.scratchResampled = make([]float32, n)
	}
	g.scratchResampled = g.scratchResampled[:outFrames*srcChannels]
	if n := outFrames * outChannels; cap(g.scratchMapped) < n {
		g.scratchMapped = make([]float32, n)
	}
	g.scratchMapped = g.scratchMapped[:outFrames*outChannels]
}

// writeVoice renders v's contribution for this block into mixBuf
// (sized outFrames*outChannels), advancing its cursor and envelope, and
// deactivating it once it releases to silence or runs off the end of
// the waveform.
func (g *Generator) writeVoice(v *voice, mixBuf []float32, outFrames, outChannels, sampleRate int) {
	srcChannels := g.wave.Channels
	ratio := g.pitchRatio(v.key) * float64(g.wave.SampleRate) / float64(sampleRate)
	if ratio <= 0 {
		ratio = 1e-3
	}

	wantIn := int(math.Ceil(float64(outFrames)*ratio)) + resampleMargin
	g.ensureScratch(wantIn, outFrames, srcChannels, outChannels)

	frames := g.wave.Frames()
	cursor := int64(v.cursor)
	provided := 0
	for provided < wantIn && cursor < frames {
		base := cursor * int64(srcChannels)
		copy(g.scratchIn[provided*srcChannels:(provided+1)*srcChannels], g.wave.Samples[base:base+int64(srcChannels)])
		provided++
		cursor++
	}
	if provided == 0 {
		v.active = false
		return
	}

	consumed, wrote := v.resampler.Process(g.scratchIn[:provided*srcChannels], g.scratchResampled[:outFrames*srcChannels], ratio, ratio)
	v.cursor += float64(consumed)
	if wrote == 0 {
		v.active = false
		return
	}

	mapped := g.scratchMapped[:wrote*outChannels]
	chanmap.Map(g.scratchResampled[:wrote*srcChannels], srcChannels, mapped, outChannels)

	for f := 0; f < wrote; f++ {
		if v.releasing {
			v.envGain -= float32(1.0 / float64(g.releaseSamples))
			if v.envGain <= 0 {
				v.envGain = 0
				v.active = false
			}
		} else if v.envGain < 1 {
			v.envGain += float32(1.0 / float64(g.attackSamples))
			if v.envGain > 1 {
				v.envGain = 1
			}
		}
		amp := v.velocity * v.envGain
		base := f * outChannels
		for c := 0; c < outChannels; c++ {
			mixBuf[base+c] += mapped[base+c] * amp
		}
		if !v.active {
			break
		}
	}

	if int64(v.cursor) >= frames {
		v.active = false
	}
}

// Write implements source.Source.
func (g *Generator) Write(out []float32, channels, sampleRate int, now uint64) int {
	if g.exhausted || channels <= 0 || len(out) == 0 {
		return 0
	}
	if g.deviceSampleRate == 0 {
		g.deviceSampleRate = sampleRate
		g.attackSamples = int64(attackMillis / 1000 * float64(sampleRate))
		g.releaseSamples = int64(releaseMillis / 1000 * float64(sampleRate))
		if g.attackSamples < 1 {
			g.attackSamples = 1
		}
		if g.releaseSamples < 1 {
			g.releaseSamples = 1
		}
	}
	dsp.Silence(out)

	outFrames := len(out) / channels
	anyActive := false
	for i := range g.voices {
		if !g.voices[i].active {
			continue
		}
		anyActive = true
		g.writeVoice(&g.voices[i], out, outFrames, channels, sampleRate)
	}

	if anyActive {
		return outFrames
	}
	return 0
}
