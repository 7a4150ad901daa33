// SPDX-License-Identifier: EPL-2.0

package audiograph

import (
	"fmt"
	"io"
	"sync"

	"github.com/ik5/audiograph/command"
	"github.com/ik5/audiograph/decoder"
	"github.com/ik5/audiograph/device"
	"github.com/ik5/audiograph/dsp"
	"github.com/ik5/audiograph/errs"
	"github.com/ik5/audiograph/handle"
	"github.com/ik5/audiograph/mixer"
	"github.com/ik5/audiograph/source"
)

// Player owns one real-time audio thread: a device.Device, a root
// mixer.Mixer, the mixer.Arena every sub-mixer it creates lives in, and
// the decoder.Registry used to open files handed to Load*. It is the
// top-level object an application constructs (§5 "one real-time
// callback goroutine per Player").
type Player struct {
	dev      device.Device
	arena    *mixer.Arena
	root     *mixer.Mixer
	registry *decoder.Registry

	collector *dsp.Collector
	freeCh    chan<- *dsp.SharedBuffer

	highQuality bool

	mu        sync.Mutex
	panicHook func(error)
	streamed  []*source.Streamed
	subMixers []*mixer.Mixer
	handles   map[handleKey]*handle.Handle
	frame     uint64
	closed    bool
}

type handleKey struct {
	owner  mixer.ID
	target uint64
}

// PlayerOption configures a Player at construction.
type PlayerOption func(*playerConfig)

type playerConfig struct {
	channels        int
	sampleRate      int
	framesPerBuffer int
	highQuality     bool
	registry        *decoder.Registry
	panicHook       func(error)
}

func defaultConfig() *playerConfig {
	return &playerConfig{
		channels:        2,
		sampleRate:      44100,
		framesPerBuffer: 512,
		registry:        decoder.NewDefaultRegistry(),
	}
}

// WithChannels sets the device and root mixer channel count (default 2).
func WithChannels(n int) PlayerOption { return func(c *playerConfig) { c.channels = n } }

// WithSampleRate sets the device and root mixer sample rate (default 44100).
func WithSampleRate(hz int) PlayerOption { return func(c *playerConfig) { c.sampleRate = hz } }

// WithFramesPerBuffer sets the device's callback block size (default 512).
func WithFramesPerBuffer(n int) PlayerOption { return func(c *playerConfig) { c.framesPerBuffer = n } }

// WithHighQuality selects resample.Polyphase over resample.Cubic for
// every source the Player creates from this point on (root mixer and
// every sub-mixer share the setting at construction time).
func WithHighQuality(hq bool) PlayerOption { return func(c *playerConfig) { c.highQuality = hq } }

// WithRegistry overrides the default wav/mp3/vorbis/aiff decoder.Registry.
func WithRegistry(r *decoder.Registry) PlayerOption { return func(c *playerConfig) { c.registry = r } }

// WithPanicHook registers a hook invoked (from the audio thread) when a
// panic escapes the root mixer's own Process call — a failure that
// source.Guard, which wraps each child the Player adds, can't contain,
// since it's the mixer's own bookkeeping, not a child's. The device keeps
// running; the callback that panicked is filled with silence (§7).
func WithPanicHook(fn func(error)) PlayerOption { return func(c *playerConfig) { c.panicHook = fn } }

// NewPlayer opens dev at the configured format and starts the real-time
// callback. The callback drains due commands, sums every child, and
// writes the result to out; NewPlayer returns only after dev.Start
// succeeds, so a failed device open/start never leaves a half-started
// Player behind.
func NewPlayer(dev device.Device, opts ...PlayerOption) (*Player, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := dev.Open(cfg.channels, cfg.sampleRate, cfg.framesPerBuffer); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.DeviceError, err)
	}

	arena := mixer.NewArena()
	root := mixer.New(arena, cfg.channels, cfg.sampleRate)
	root.SetHighQuality(cfg.highQuality)

	collector, freeCh := dsp.NewCollector(64, nil)
	go collector.Run()

	p := &Player{
		dev:         dev,
		arena:       arena,
		root:        root,
		registry:    cfg.registry,
		collector:   collector,
		freeCh:      freeCh,
		highQuality: cfg.highQuality,
		panicHook:   cfg.panicHook,
		handles:     make(map[handleKey]*handle.Handle),
	}

	if err := dev.Start(p.renderBlock); err != nil {
		p.collector.Close()
		return nil, fmt.Errorf("%w: %v", errs.DeviceError, err)
	}
	return p, nil
}

// renderBlock is the Callback handed to device.Device.Start. It must
// never block or allocate on the steady-state path (§5); the only
// allocation here is the recover closure's error on the cold panic
// path, which by definition only runs once before the hook is expected
// to stop the device.
func (p *Player) renderBlock(out []float32) {
	defer func() {
		if r := recover(); r != nil {
			dsp.Silence(out)
			if p.panicHook != nil {
				p.panicHook(fmt.Errorf("%w: mixer callback: %v", errs.Poisoned, r))
			}
		}
	}()
	n := p.root.Process(out, p.frame)
	p.frame += uint64(n)
}

// Root returns the Player's root mixer, for direct manipulation
// (effect chain, master parameters, CPU load) beyond what Handle
// exposes.
func (p *Player) Root() *mixer.Mixer { return p.root }

// Arena returns the mixer.Arena every mixer this Player knows about is
// registered in.
func (p *Player) Arena() *mixer.Arena { return p.arena }

// SetPanicHook replaces the hook installed by WithPanicHook.
func (p *Player) SetPanicHook(fn func(error)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.panicHook = fn
}

// SubMixer bundles a routed child mixer with the two handles that
// address it: Child targets its slot in the parent (Stop, Seek are
// meaningless on a mixer but Stop still tears down the route), Master
// targets the sub-mixer's own gain/pan.
type SubMixer struct {
	Mixer  *mixer.Mixer
	Child  *handle.Handle
	Master *handle.Handle
}

// AddSubMixer creates a new mixer at channels/sampleRate and routes it
// as a child of parent (root if nil), rejecting cycles the same way
// parent.AddChildMixer does (§4.8; TestMixer_AddChildMixerCycleRejected).
func (p *Player) AddSubMixer(parent *mixer.Mixer, channels, sampleRate int) (*SubMixer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if parent == nil {
		parent = p.root
	}

	sub := mixer.New(p.arena, channels, sampleRate)
	sub.SetHighQuality(p.highQuality)

	childID, err := parent.AddChildMixer(sub.ID())
	if err != nil {
		return nil, err
	}
	p.subMixers = append(p.subMixers, sub)

	result := &SubMixer{
		Mixer:  sub,
		Child:  handle.NewSourceHandle(p.arena, parent.ID(), childID),
		Master: handle.NewMixerHandle(p.arena, sub.ID()),
	}
	p.handles[handleKey{owner: parent.ID(), target: childID}] = result.Child
	p.handles[handleKey{owner: sub.ID(), target: uint64(sub.ID())}] = result.Master
	return result, nil
}

// LoadPreloaded fully decodes r through the registered decoder for
// format, wraps the result in a shared, refcounted buffer (§4.2), and
// adds it as a new child of target (root if nil). r is read to
// completion and closed before this call returns; the returned Handle
// is live as soon as AddSource returns, since Preloaded needs no
// further I/O.
func (p *Player) LoadPreloaded(r io.ReadSeeker, format string, repeats int64, target *mixer.Mixer) (*handle.Handle, error) {
	stream, err := p.registry.Open(format, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.DecodeError, err)
	}
	defer stream.Close()

	samples, err := readAllSamples(stream)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.DecodeError, err)
	}

	buf := dsp.NewSharedBuffer(samples, stream.Channels(), stream.SampleRate(), p.freeCh)
	if ms, ok := stream.(decoder.MetadataStream); ok {
		if meta := ms.Metadata(); meta.LoopOK {
			buf.LoopStart = meta.LoopStart
			buf.LoopEnd = meta.LoopEnd
		}
	}

	src := source.NewPreloaded(buf, repeats, p.highQuality)
	return p.addChild(src, buf.Channels, buf.SampleRate, target)
}

// LoadStreamed opens r through the registered decoder for format and
// adds a source.Streamed child reading from it via a decoder worker
// goroutine (§4.3). r must stay open and seekable for the lifetime of
// the returned Handle; Player.Close joins the worker goroutine it
// spawns.
func (p *Player) LoadStreamed(r io.ReadSeeker, format string, ringSeconds float64, target *mixer.Mixer) (*handle.Handle, error) {
	stream, err := p.registry.Open(format, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.DecodeError, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if target == nil {
		target = p.root
	}

	id := target.PeekNextChildID()
	streamed := source.NewStreamed(stream, ringSeconds, p.highQuality, target.Status(), id)
	guarded := source.NewGuard(streamed, id, target.Status())
	childID := target.AddSource(guarded, stream.Channels(), stream.SampleRate())
	p.streamed = append(p.streamed, streamed)

	h := handle.NewSourceHandle(p.arena, target.ID(), childID)
	p.handles[handleKey{owner: target.ID(), target: childID}] = h
	return h, nil
}

// addChild wires a freshly built source.Source into target (root if
// nil) and registers its Handle for PumpStatus, guarding it against a
// panic the same way every other child source is guarded.
func (p *Player) addChild(src source.Source, channels, sampleRate int, target *mixer.Mixer) (*handle.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if target == nil {
		target = p.root
	}

	id := target.PeekNextChildID()
	guarded := source.NewGuard(src, id, target.Status())
	childID := target.AddSource(guarded, channels, sampleRate)

	h := handle.NewSourceHandle(p.arena, target.ID(), childID)
	p.handles[handleKey{owner: target.ID(), target: childID}] = h
	return h, nil
}

// PumpStatus drains every known mixer's status bus (root plus every
// sub-mixer created via AddSubMixer) and updates the playing/position
// fields of whichever Handle each event's SourceID resolves to. Callers
// run this from a control-side goroutine or timer; it never touches the
// audio thread (§4.9, §5).
func (p *Player) PumpStatus() {
	p.mu.Lock()
	mixers := make([]*mixer.Mixer, 0, len(p.subMixers)+1)
	mixers = append(mixers, p.root)
	mixers = append(mixers, p.subMixers...)
	p.mu.Unlock()

	for _, m := range mixers {
		p.pumpOne(m)
	}
}

func (p *Player) pumpOne(m *mixer.Mixer) {
	for _, ev := range m.Status().Drain() {
		p.mu.Lock()
		h, ok := p.handles[handleKey{owner: m.ID(), target: ev.SourceID}]
		p.mu.Unlock()
		if !ok {
			continue
		}
		switch ev.Kind {
		case command.EventStopped, command.EventStoppedWithError, command.EventPoisoned:
			h.SetPlaying(false)
		case command.EventPosition:
			h.SetPosition(ev.FramePosition)
		}
	}
}

// Close stops the device, joins every decoder worker goroutine this
// Player spawned, and stops the shared-buffer collector — the "scoped
// acquisition" teardown order from §5: detach the callback before
// freeing anything it might still be touching.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.dev.Stop()
	for _, s := range p.streamed {
		_ = s.Close()
	}
	p.collector.Close()
	if err != nil {
		return fmt.Errorf("%w: %v", errs.DeviceError, err)
	}
	return nil
}

// readAllSamples drains stream to completion into a single interleaved
// buffer, the fully-decoded counterpart to source.Streamed's
// incremental pull.
func readAllSamples(stream decoder.Stream) ([]float32, error) {
	var out []float32
	buf := make([]float32, 4096)
	for {
		n, err := stream.ReadSamples(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}
