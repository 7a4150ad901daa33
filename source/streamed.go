// SPDX-License-Identifier: EPL-2.0

package source

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smallnest/ringbuffer"

	"github.com/ik5/audiograph/chanmap"
	"github.com/ik5/audiograph/command"
	"github.com/ik5/audiograph/dsp"
	"github.com/ik5/audiograph/resample"
)

// decoderSource is the minimal pull contract Streamed's decode worker
// needs: the same ReadSamples/SampleRate/Channels shape the teacher's
// audio.Source already has, extended with Seek/Close. Every
// decoder.Decoder (and therefore every formats/* decoder) satisfies it;
// declaring it locally avoids a source<->decoder import cycle.
type decoderSource interface {
	ReadSamples(dst []float32) (int, error)
	SampleRate() int
	Channels() int
	Seek(frame int64) error
	Close() error
}

const bytesPerSample = 4 // float32, little-endian, matching the ring's byte storage

// Streamed plays a file via a decoder worker goroutine feeding a
// bounded SPSC ring buffer (§4.3): the audio thread only ever reads
// from the ring and never touches the decoder directly, so a slow disk
// or a stalled demuxer can never block the audio callback.
type Streamed struct {
	dec        decoderSource
	srcChannels int
	srcRate     int

	ring *ringbuffer.RingBuffer

	// mu/cond guard only the worker's own sleep/wake bookkeeping
	// (workerLoop's wait-for-refill-room loop and Close's shutdown
	// signal). The audio thread must never block on them, so anything
	// it reads (closed, workerExhausted) lives in an atomic instead.
	mu      sync.Mutex
	cond    *sync.Cond
	closed  atomic.Bool
	done    chan struct{}
	started bool

	seekReq chan int64 // capacity 1: latest seek wins, matching an SPSC request slot

	consecutiveExhausted int
	workerExhausted       atomic.Bool

	resampler resample.Resampler
	scratchIn        []float32
	scratchResampled []float32
	scratchMapped    []float32
	scratchRaw       []byte

	posFrames int64 // frames pulled from the ring, in source-rate domain

	statusBus *command.StatusBus
	id        uint64

	exhausted bool
}

// NewStreamed creates a Streamed source reading from dec and starts its
// decoder worker goroutine. ringSeconds sizes the SPSC ring to roughly
// that many seconds of native-rate audio (§4.3: "sized to ~1s").
// status/id are used to emit EventUnderrun; status may be nil.
func NewStreamed(dec decoderSource, ringSeconds float64, highQuality bool, status *command.StatusBus, id uint64) *Streamed {
	channels := dec.Channels()
	rate := dec.SampleRate()
	capacityBytes := int(float64(rate*channels)*ringSeconds) * bytesPerSample
	if capacityBytes < 4096 {
		capacityBytes = 4096
	}

	var r resample.Resampler
	if highQuality {
		r = resample.NewPolyphase(channels)
	} else {
		r = resample.NewCubic(channels)
	}

	s := &Streamed{
		dec:         dec,
		srcChannels: channels,
		srcRate:     rate,
		ring:        ringbuffer.New(capacityBytes),
		done:        make(chan struct{}),
		seekReq:     make(chan int64, 1),
		resampler:   r,
		statusBus:   status,
		id:          id,
	}
	s.cond = sync.NewCond(&s.mu)
	s.started = true
	go s.workerLoop()
	return s
}

// refillThreshold is the ring occupancy (as a fraction of capacity)
// below which the worker wakes to refill (§4.3: "e.g. 50%").
const refillThreshold = 0.5

func (s *Streamed) belowThreshold() bool {
	return s.ring.Length() < int(float64(s.ring.Capacity())*refillThreshold)
}

func (s *Streamed) workerLoop() {
	defer close(s.done)

	packet := make([]float32, 4096*s.srcChannels)
	raw := make([]byte, len(packet)*bytesPerSample)

	for {
		s.mu.Lock()
		for !s.closed.Load() && !s.belowThreshold() {
			s.cond.Wait()
		}
		closed := s.closed.Load()
		s.mu.Unlock()
		if closed {
			return
		}

		select {
		case pos := <-s.seekReq:
			s.ring.Reset()
			if err := s.dec.Seek(pos); err != nil {
				s.pushStatus(command.EventStoppedWithError, err)
				return
			}
			s.consecutiveExhausted = 0
		default:
		}

		n, err := s.dec.ReadSamples(packet)
		if n > 0 {
			encodeFloats(raw, packet[:n])
			s.ring.Write(raw[:n*bytesPerSample])
		}

		switch {
		case err == nil:
			s.consecutiveExhausted = 0
		case err == io.EOF:
			s.consecutiveExhausted++
			if s.consecutiveExhausted >= 2 {
				s.workerExhausted.Store(true)
				return
			}
		default:
			s.pushStatus(command.EventStoppedWithError, err)
			return
		}
	}
}

func (s *Streamed) pushStatus(kind command.EventKind, err error) {
	if s.statusBus == nil {
		return
	}
	s.statusBus.Push(command.Event{Kind: kind, SourceID: s.id, FramePosition: uint64(s.posFrames), Err: err})
}

// wake notifies the worker it may have room to refill. Safe to call
// from the audio thread: Signal never blocks.
func (s *Streamed) wake() {
	s.cond.Signal()
}

// IsExhausted implements source.Source.
func (s *Streamed) IsExhausted() bool { return s.exhausted }

// Position implements source.Source.
func (s *Streamed) Position() time.Duration {
	if s.srcRate <= 0 {
		return 0
	}
	return time.Duration(float64(s.posFrames) / float64(s.srcRate) * float64(time.Second))
}

// ApplyEvent implements source.Source.
func (s *Streamed) ApplyEvent(cmd command.Command) {
	switch cmd.Payload.Kind {
	case command.Seek:
		select {
		case s.seekReq <- cmd.Payload.SeekFrame:
		default:
			// a seek is already pending; the newest one wins once the
			// worker drains the channel, so drop-and-replace.
			select {
			case <-s.seekReq:
			default:
			}
			s.seekReq <- cmd.Payload.SeekFrame
		}
		s.wake()
	case command.Stop:
		s.exhausted = true
	}
}

func (s *Streamed) ensureScratch(inFrames, outFrames, outChannels int) {
	if n := inFrames * s.srcChannels; cap(s.scratchIn) < n {
		s.scratchIn = make([]float32, n)
	}
	s.scratchIn = s.scratchIn[:inFrames*s.srcChannels]
	if n := outFrames * s.srcChannels; cap(s.scratchResampled) < n {
		s.scratchResampled = make([]float32, n)
	}
	s.scratchResampled = s.scratchResampled[:outFrames*s.srcChannels]
	if n := outFrames * outChannels; cap(s.scratchMapped) < n {
		s.scratchMapped = make([]float32, n)
	}
	s.scratchMapped = s.scratchMapped[:outFrames*outChannels]
}

// Write implements source.Source.
func (s *Streamed) Write(out []float32, channels, sampleRate int, now uint64) int {
	if s.exhausted || channels <= 0 || len(out) == 0 {
		return 0
	}
	dsp.Silence(out)

	outFrames := len(out) / channels
	ratio := float64(s.srcRate) / float64(sampleRate)
	if ratio <= 0 {
		ratio = 1
	}
	wantIn := int(math.Ceil(float64(outFrames)*ratio)) + resampleMargin
	s.ensureScratch(wantIn, outFrames, channels)

	availBytes := s.ring.Length()
	availFrames := availBytes / (s.srcChannels * bytesPerSample)
	provided := availFrames
	if provided > wantIn {
		provided = wantIn
	}

	if provided > 0 {
		needBytes := provided * s.srcChannels * bytesPerSample
		if cap(s.scratchRaw) < needBytes {
			s.scratchRaw = make([]byte, needBytes)
		}
		s.scratchRaw = s.scratchRaw[:needBytes]
		n, _ := s.ring.Read(s.scratchRaw)
		decodeFloats(s.scratchIn[:provided*s.srcChannels], s.scratchRaw[:n])
	}
	if provided < wantIn {
		dsp.Silence(s.scratchIn[provided*s.srcChannels : wantIn*s.srcChannels])
		if provided == 0 {
			s.pushStatus(command.EventUnderrun, nil)
		}
	}
	s.wake()

	consumed, wrote := s.resampler.Process(s.scratchIn[:wantIn*s.srcChannels], s.scratchResampled[:outFrames*s.srcChannels], ratio, ratio)
	s.posFrames += int64(consumed)
	if wrote == 0 {
		if provided == 0 && s.workerExhausted.Load() {
			s.exhausted = true
		}
		return 0
	}

	mapped := s.scratchMapped[:wrote*channels]
	chanmap.Map(s.scratchResampled[:wrote*s.srcChannels], s.srcChannels, mapped, channels)
	copy(out[:wrote*channels], mapped)

	if s.workerExhausted.Load() && s.ring.Length() == 0 && wrote < outFrames {
		s.exhausted = true
	}

	return wrote
}

// Close stops the decoder worker and releases the decoder. Safe to
// call once.
func (s *Streamed) Close() error {
	s.mu.Lock()
	s.closed.Store(true)
	s.mu.Unlock()
	s.cond.Signal()
	<-s.done
	return s.dec.Close()
}

func encodeFloats(dst []byte, src []float32) {
	for i, v := range src {
		binary.LittleEndian.PutUint32(dst[i*4:i*4+4], math.Float32bits(v))
	}
}

func decodeFloats(dst []float32, src []byte) {
	n := len(src) / 4
	for i := 0; i < n; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4 : i*4+4]))
	}
}
