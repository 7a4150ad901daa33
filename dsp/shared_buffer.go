// SPDX-License-Identifier: EPL-2.0

package dsp

import "sync/atomic"

// SharedBuffer is an atomically refcounted, immutable interleaved
// sample buffer. Every source.Preloaded clone holds a reference to the
// same SharedBuffer; the audio thread only ever calls Release, which
// decrements a counter. When the counter reaches zero the buffer is
// handed to a background collector instead of being freed inline,
// preserving the no-allocation-or-deallocation rule on the audio
// thread (§9 "Shared immutable sample buffers").
type SharedBuffer struct {
	Samples    []float32
	Channels   int
	SampleRate int
	// LoopStart/LoopEnd are frame indices (not sample indices) of an
	// optional loop region. LoopEnd <= LoopStart means "no loop".
	LoopStart, LoopEnd int64

	refs *atomic.Int64
	free chan<- *SharedBuffer
}

// NewSharedBuffer wraps samples with a refcount of 1. free receives the
// buffer once its refcount drops to zero; a nil free is valid and simply
// means "no collector is watching this buffer" (fine for short-lived
// buffers built inside tests).
func NewSharedBuffer(samples []float32, channels, sampleRate int, free chan<- *SharedBuffer) *SharedBuffer {
	b := &SharedBuffer{
		Samples:    samples,
		Channels:   channels,
		SampleRate: sampleRate,
		LoopStart:  -1,
		LoopEnd:    -1,
		refs:       new(atomic.Int64),
		free:       free,
	}
	b.refs.Store(1)
	return b
}

// Frames returns the number of multichannel frames held by the buffer.
func (b *SharedBuffer) Frames() int64 {
	if b.Channels == 0 {
		return 0
	}
	return int64(len(b.Samples) / b.Channels)
}

// HasLoop reports whether a valid, non-empty loop region is set.
func (b *SharedBuffer) HasLoop() bool {
	return b.LoopEnd > b.LoopStart && b.LoopStart >= 0 && b.LoopEnd <= b.Frames()
}

// Acquire increments the refcount and returns b, so a clone can be
// produced with `clone := buf.Acquire()`.
func (b *SharedBuffer) Acquire() *SharedBuffer {
	b.refs.Add(1)
	return b
}

// Release decrements the refcount. When it reaches zero the buffer is
// pushed onto the collector channel without blocking: if the channel is
// full, the buffer is not handed to the collector and is left to the Go
// garbage collector. Safe to call from the audio thread.
func (b *SharedBuffer) Release() {
	if b.refs.Add(-1) != 0 {
		return
	}
	if b.free == nil {
		return
	}
	select {
	case b.free <- b:
	default:
	}
}

// Collector drains buffers whose refcount reached zero on a background
// goroutine. It never runs on the audio thread; Run blocks until in is
// closed, so callers should launch it with `go collector.Run()`.
type Collector struct {
	in  chan *SharedBuffer
	out func(*SharedBuffer)
}

// NewCollector creates a collector with the given channel capacity. The
// returned channel is the `free` argument to pass to NewSharedBuffer.
// onReclaim, if non-nil, is invoked for every buffer the collector
// drains (tests use this to assert buffers are actually reclaimed).
func NewCollector(capacity int, onReclaim func(*SharedBuffer)) (*Collector, chan<- *SharedBuffer) {
	c := &Collector{
		in:  make(chan *SharedBuffer, capacity),
		out: onReclaim,
	}
	return c, c.in
}

// Run drains reclaimed buffers until the channel is closed.
func (c *Collector) Run() {
	for b := range c.in {
		if c.out != nil {
			c.out(b)
		}
	}
}

// Close stops accepting further buffers. Safe to call once.
func (c *Collector) Close() {
	close(c.in)
}
