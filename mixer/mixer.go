// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"math"
	"time"

	"github.com/ik5/audiograph/chanmap"
	"github.com/ik5/audiograph/command"
	"github.com/ik5/audiograph/dsp"
	"github.com/ik5/audiograph/effect"
	"github.com/ik5/audiograph/errs"
	"github.com/ik5/audiograph/param"
	"github.com/ik5/audiograph/resample"
	"github.com/ik5/audiograph/scheduler"
	"github.com/ik5/audiograph/source"
)

// ParamMasterGain and ParamMasterPan address a Mixer's own master
// volume/pan when a SetParameter command targets the mixer's own id
// (§4.8 step 5).
var (
	ParamMasterGain = param.NewFourCC("mgdb")
	ParamMasterPan  = param.NewFourCC("mpan")
)

// ParamChildGain and ParamChildPan address a child's mixer-level
// gain/pan (a channel-strip fader layered outside whatever parameter
// model the child's own Source exposes) when a SetParameter command
// targets that child's id.
var (
	ParamChildGain = param.NewFourCC("cgdb")
	ParamChildPan  = param.NewFourCC("cpan")
)

// Mixer implements §4.8's per-block algorithm: drain commands, sum
// children with format adaptation, run the effect chain, apply master
// volume/pan, and track CPU load. A Mixer is itself a source.Source
// (via Write), so nesting one mixer as another's child needs no
// separate adapter type.
type Mixer struct {
	id     ID
	parent ID
	arena  *Arena

	channels   int
	sampleRate int

	children    []*child
	nextChildID uint64

	cmds        *command.CommandQueue
	drainer     *scheduler.Drainer
	status      *command.StatusBus
	chain       *effect.Chain
	highQuality bool

	masterGain param.Value
	masterPan  param.Value

	accum []float32

	stopped bool

	loadEMA  float64
	loadPeak float64

	currentFrame uint64
}

// New creates a Mixer with no parent, registering it in arena.
func New(arena *Arena, channels, sampleRate int) *Mixer {
	m := &Mixer{
		id:         arena.NewID(),
		arena:      arena,
		channels:   channels,
		sampleRate: sampleRate,
		cmds:       command.NewCommandQueue(256),
		drainer:    scheduler.NewDrainer(),
		status:     command.NewStatusBus(256),
		chain:      effect.NewChain(),
		masterGain: param.NewValue(0, param.Smoothing{Kind: param.SmoothRamp, RampSamples: 64}),
		masterPan:  param.NewValue(0, param.Smoothing{Kind: param.SmoothRamp, RampSamples: 64}),
	}
	arena.Register(m)
	return m
}

// ID returns the mixer's process-unique arena id.
func (m *Mixer) ID() ID { return m.id }

// PeekNextChildID reports the child id the next AddSource/AddSourceAt/
// AddChildMixer call will hand out, without reserving it. Callers that
// need to construct a source (e.g. source.NewStreamed, which takes the
// id its status events will carry) before the child exists must
// serialize their own call with any concurrent AddSource on this mixer
// to keep the two in sync.
func (m *Mixer) PeekNextChildID() uint64 { return m.nextChildID + 1 }

// Commands returns the queue handles enqueue scheduled commands into.
func (m *Mixer) Commands() *command.CommandQueue { return m.cmds }

// Status returns the bus this mixer reports child lifecycle events to.
func (m *Mixer) Status() *command.StatusBus { return m.status }

// Chain returns the mixer's effect chain for direct manipulation.
func (m *Mixer) Chain() *effect.Chain { return m.chain }

// SetHighQuality selects the polyphase resampler (instead of cubic)
// for every child format adapter created from this point on.
func (m *Mixer) SetHighQuality(hq bool) { m.highQuality = hq }

// AddSource inserts src as a new child, declared at channels/sampleRate
// (resampled and channel-mapped to the mixer's own format on every
// block if they differ), becoming Active immediately. Returns the
// child id used to target later commands (Stop/Seek/SetParameter/
// NoteOn/NoteOff) at it.
func (m *Mixer) AddSource(src source.Source, channels, sampleRate int) uint64 {
	return m.addChildAt(src, channels, sampleRate, 0)
}

// AddSourceAt is AddSource but stays Pending until the mixer's block
// counter reaches startFrame (§4.8 child state machine).
func (m *Mixer) AddSourceAt(src source.Source, channels, sampleRate int, startFrame uint64) uint64 {
	return m.addChildAt(src, channels, sampleRate, startFrame)
}

func (m *Mixer) addChildAt(src source.Source, channels, sampleRate int, startFrame uint64) uint64 {
	m.nextChildID++
	id := m.nextChildID
	c := newChild(id, src, channels, sampleRate, startFrame)
	if startFrame > m.currentFrame {
		c.state = statePending
	} else {
		c.state = stateActive
	}
	m.children = append(m.children, c)
	return id
}

// AddChildMixer adds another mixer from the same arena as a child,
// rejecting the insertion with errs.InvalidState if it would create a
// cycle (childID is m itself or one of m's ancestors).
func (m *Mixer) AddChildMixer(childID ID) (uint64, error) {
	if childID == m.id || m.arena.isAncestor(m.id, childID) {
		return 0, errs.InvalidState
	}
	sub, ok := m.arena.Lookup(childID)
	if !ok {
		return 0, errs.NotFound
	}
	sub.parent = m.id
	return m.AddSource(sub, sub.channels, sub.sampleRate), nil
}

// findChild locates the child with the given id, or nil.
func (m *Mixer) findChild(id uint64) *child {
	for _, c := range m.children {
		if c.id == id {
			return c
		}
	}
	return nil
}

// IsExhausted implements source.Source: a mixer never reports itself
// exhausted on its own account; it is torn down explicitly via Stop.
func (m *Mixer) IsExhausted() bool { return m.stopped }

// Position implements source.Source; mixers have no single playback
// position.
func (m *Mixer) Position() time.Duration { return 0 }

// ApplyEvent implements source.Source, used when this mixer is itself
// a child of another mixer: only Stop is meaningful at that level.
func (m *Mixer) ApplyEvent(cmd command.Command) {
	if cmd.Payload.Kind == command.Stop {
		m.stopped = true
	}
}

// Load returns the exponential-moving-average and peak-hold CPU load
// fractions (1.0 == using 100% of the block's real-time budget).
func (m *Mixer) Load() (ema, peak float64) { return m.loadEMA, m.loadPeak }

func (m *Mixer) ensureScratch(outFrames int) {
	need := outFrames * m.channels
	if cap(m.accum) < need {
		m.accum = make([]float32, need)
	}
	m.accum = m.accum[:need]
}

// Write implements source.Source, delegating to Process so a Mixer can
// be nested as another Mixer's child.
func (m *Mixer) Write(out []float32, channels, sampleRate int, now uint64) int {
	return m.Process(out, now)
}

// Process runs one block (§4.8 steps 1-6): drains due commands,
// renders and sums every child, applies effects and master gain/pan,
// and updates the CPU load metric. out is interleaved at the mixer's
// own declared channels/sampleRate.
func (m *Mixer) Process(out []float32, now uint64) int {
	start := time.Now()
	outFrames := len(out) / m.channels
	m.ensureScratch(outFrames)
	dsp.Silence(m.accum)

	m.currentFrame = now
	blockEnd := now + uint64(outFrames)
	m.drainCommands(blockEnd)

	kept := m.children[:0]
	for _, c := range m.children {
		m.renderChild(c, outFrames, now)
		if c.state == stateStopped {
			m.emitChildStopped(c)
			continue
		}
		kept = append(kept, c)
	}
	m.children = kept

	copy(out, m.accum[:len(out)])
	m.chain.Process(out, m.channels, m.sampleRate)
	m.applyMaster(out, outFrames)
	dsp.SoftClip(out)

	elapsed := time.Since(start).Seconds()
	budget := float64(outFrames) / float64(m.sampleRate)
	if budget > 0 {
		m.updateLoad(elapsed / budget)
	}

	return outFrames
}

func (m *Mixer) emitChildStopped(c *child) {
	kind := command.EventStopped
	if c.reason == stopError {
		kind = command.EventStoppedWithError
	}
	m.status.Push(command.Event{
		Kind:          kind,
		SourceID:      c.id,
		FramePosition: m.currentFrame,
		Exhausted:     c.reason == stopExhausted,
	})
}

func (m *Mixer) updateLoad(sample float64) {
	const emaCoeff = 0.1
	if m.loadEMA == 0 {
		m.loadEMA = sample
	} else {
		m.loadEMA += (sample - m.loadEMA) * emaCoeff
	}
	if sample > m.loadPeak {
		m.loadPeak = sample
	}
}

func (m *Mixer) applyMaster(out []float32, frames int) {
	for f := 0; f < frames; f++ {
		m.masterGain.Advance()
		gain := float32(dsp.DBToLinear(m.masterGain.Current))
		base := f * m.channels
		for c := 0; c < m.channels; c++ {
			out[base+c] *= gain
		}
	}
	m.masterPan.AdvanceBlock(frames)
	dsp.Pan(out, m.channels, float32(m.masterPan.Current))
}

// drainCommands hands this block's due commands to m.drainer, which
// separates them from anything scheduled for a later block (§4.9);
// applyCommand then dispatches each due command, including the
// sample-accurate offset computation for mid-block Stops.
func (m *Mixer) drainCommands(blockEnd uint64) {
	m.drainer.Drain(m.cmds, blockEnd, m.applyCommand)
}

func (m *Mixer) applyCommand(cmd command.Command) {
	if cmd.TargetID == uint64(m.id) || cmd.TargetID == 0 {
		m.applySelfCommand(cmd)
		return
	}
	c := m.findChild(cmd.TargetID)
	if c == nil {
		return
	}
	switch cmd.Payload.Kind {
	case command.Stop:
		offset := 0
		if cmd.FrameTime > m.currentFrame {
			offset = int(cmd.FrameTime - m.currentFrame)
		}
		fadeMs := float64(cmd.Payload.FadeOutSamples) / float64(m.sampleRate) * 1000
		c.beginFadeOut(offset, fadeMs, m.sampleRate)
		c.src.ApplyEvent(cmd)
	case command.SetParameter:
		switch cmd.Payload.ParamID {
		case ParamChildGain:
			c.gain.SetTarget(cmd.Payload.ParamValue, smoothingFromCommand(cmd))
		case ParamChildPan:
			c.pan.SetTarget(cmd.Payload.ParamValue, smoothingFromCommand(cmd))
		default:
			c.src.ApplyEvent(cmd)
		}
	default:
		c.src.ApplyEvent(cmd)
	}
}

func (m *Mixer) applySelfCommand(cmd command.Command) {
	switch cmd.Payload.Kind {
	case command.SetParameter:
		switch cmd.Payload.ParamID {
		case ParamMasterGain:
			m.masterGain.SetTarget(cmd.Payload.ParamValue, smoothingFromCommand(cmd))
		case ParamMasterPan:
			m.masterPan.SetTarget(cmd.Payload.ParamValue, smoothingFromCommand(cmd))
		}
	case command.AddChildMixer:
		_, _ = m.AddChildMixer(ID(cmd.Payload.ChildID))
	case command.RemoveMixer:
		m.removeChildMixer(ID(cmd.Payload.ChildID))
	}
}

func (m *Mixer) removeChildMixer(id ID) {
	kept := m.children[:0]
	for _, c := range m.children {
		if sub, ok := c.src.(*Mixer); ok && sub.id == id {
			m.arena.Unregister(id)
			continue
		}
		kept = append(kept, c)
	}
	m.children = kept
}

func smoothingFromCommand(cmd command.Command) *param.Smoothing {
	if cmd.Payload.ParamSmoothing == nil {
		return nil
	}
	return &param.Smoothing{
		Kind:                param.SmoothingKind(cmd.Payload.ParamSmoothing.Kind),
		TimeConstantSamples: cmd.Payload.ParamSmoothing.TimeConstantSamples,
		RampSamples:         cmd.Payload.ParamSmoothing.RampSamples,
	}
}

// renderChild advances c's state machine and, if it is audible this
// block, renders its format-adapted contribution into m.accum.
func (m *Mixer) renderChild(c *child, outFrames int, now uint64) {
	switch c.state {
	case statePending:
		if now < c.startFrame {
			return
		}
		c.state = stateActive
	case stateStopped:
		return
	}

	if c.src.IsExhausted() {
		c.state = stateStopped
		c.reason = stopExhausted
		return
	}

	need := outFrames * m.channels
	if cap(c.scratch) < need {
		c.scratch = make([]float32, need)
	}
	c.scratch = c.scratch[:need]
	dsp.Silence(c.scratch)

	written := m.renderChildAudio(c, c.scratch, outFrames, now)

	if c.state == stateFadingOut {
		m.applyChildFade(c, c.scratch, written)
	}
	m.applyChildGainPan(c, c.scratch, written)

	dsp.Add(m.accum, c.scratch[:need])

	if c.state == stateFadingOut && c.fadeRemaining <= 0 {
		c.state = stateStopped
		c.reason = stopRequested
	}
}

// renderChildAudio writes c's audio for this block into dst (sized
// outFrames*mixer.channels, pre-silenced by the caller), resampling
// and channel-mapping if c's declared format differs from the
// mixer's, and returns the number of frames actually produced.
func (m *Mixer) renderChildAudio(c *child, dst []float32, outFrames int, now uint64) int {
	sameFormat := c.sampleRate == m.sampleRate
	if sameFormat && c.channels == m.channels {
		return c.src.Write(dst, m.channels, m.sampleRate, now)
	}

	ratio := float64(c.sampleRate) / float64(m.sampleRate)
	if ratio <= 0 {
		ratio = 1
	}
	wantIn := outFrames
	if !sameFormat {
		wantIn = int(math.Ceil(float64(outFrames)*ratio)) + 16
	}

	if n := wantIn * c.channels; cap(c.nativeScratch) < n {
		c.nativeScratch = make([]float32, n)
	}
	c.nativeScratch = c.nativeScratch[:wantIn*c.channels]
	dsp.Silence(c.nativeScratch)

	produced := c.src.Write(c.nativeScratch, c.channels, c.sampleRate, now)

	rateAdapted := c.nativeScratch
	written := produced
	if !sameFormat {
		if c.resampler == nil {
			if m.highQuality {
				c.resampler = resample.NewPolyphase(c.channels)
			} else {
				c.resampler = resample.NewCubic(c.channels)
			}
		}
		if n := outFrames * c.channels; cap(c.resampledScratch) < n {
			c.resampledScratch = make([]float32, n)
		}
		c.resampledScratch = c.resampledScratch[:outFrames*c.channels]
		_, written = c.resampler.Process(c.nativeScratch[:wantIn*c.channels], c.resampledScratch, ratio, ratio)
		rateAdapted = c.resampledScratch
	}

	if c.channels == m.channels {
		copy(dst[:written*m.channels], rateAdapted[:written*m.channels])
	} else {
		chanmap.Map(rateAdapted[:written*c.channels], c.channels, dst[:written*m.channels], m.channels)
	}
	return written
}

// applyChildFade multiplies an ease-out envelope into buf, leaving the
// first c.fadeStartOffset frames untouched (the sample-accurate delay
// for a Stop scheduled mid-block) before counting down fadeRemaining.
func (m *Mixer) applyChildFade(c *child, buf []float32, written int) {
	for f := 0; f < written; f++ {
		if c.fadeStartOffset > 0 {
			c.fadeStartOffset--
			continue
		}
		if c.fadeRemaining <= 0 {
			break
		}
		t := float64(c.fadeRemaining) / float64(c.fadeTotal)
		env := float32(t * t)
		base := f * m.channels
		for ch := 0; ch < m.channels; ch++ {
			buf[base+ch] *= env
		}
		c.fadeRemaining--
	}
}

func (m *Mixer) applyChildGainPan(c *child, buf []float32, written int) {
	for f := 0; f < written; f++ {
		c.gain.Advance()
		gain := float32(dsp.DBToLinear(c.gain.Current))
		base := f * m.channels
		for ch := 0; ch < m.channels; ch++ {
			buf[base+ch] *= gain
		}
	}
	c.pan.AdvanceBlock(written)
	dsp.Pan(buf[:written*m.channels], m.channels, float32(c.pan.Current))
}
