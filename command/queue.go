// SPDX-License-Identifier: EPL-2.0

package command

import (
	"sync/atomic"

	"github.com/ik5/audiograph/errs"
)

type cell[T any] struct {
	seq   atomic.Uint64
	value T
}

// Queue is a bounded, lock-free, multi-producer single-consumer ring
// buffer, the classic Vyukov MPSC design: each slot carries its own
// sequence number so producers never need a mutex and the single
// consumer never spins on anything but a CAS-free load. Capacity is
// rounded up to the next power of two.
//
// Every mixer owns one Queue[Command] for inbound scheduled commands
// (§4.9); Player owns one Queue[Event] as the status bus (§4.9,
// "Status bus").
type Queue[T any] struct {
	mask    uint64
	buf     []cell[T]
	enqueue atomic.Uint64
	dequeue atomic.Uint64
	seqGen  atomic.Uint64
}

// NewQueue creates a queue with capacity rounded up to a power of two,
// minimum 2.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 2 {
		capacity = 2
	}
	size := 1
	for size < capacity {
		size <<= 1
	}
	q := &Queue[T]{
		mask: uint64(size - 1),
		buf:  make([]cell[T], size),
	}
	for i := range q.buf {
		q.buf[i].seq.Store(uint64(i))
	}
	return q
}

// Push enqueues v. Safe to call concurrently from any number of
// producer goroutines. Returns errs.QueueFull if the queue is at
// capacity; the caller should retry or report the failure (§4.9, §7).
func (q *Queue[T]) Push(v T) error {
	var c *cell[T]
	pos := q.enqueue.Load()
	for {
		c = &q.buf[pos&q.mask]
		seq := c.seq.Load()
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if q.enqueue.CompareAndSwap(pos, pos+1) {
				goto claimed
			}
			pos = q.enqueue.Load()
		case diff < 0:
			return errs.QueueFull
		default:
			pos = q.enqueue.Load()
		}
	}
claimed:
	c.value = v
	c.seq.Store(pos + 1)
	return nil
}

// Pop dequeues the oldest value. Must only be called from the single
// consumer goroutine. ok is false when the queue is empty.
func (q *Queue[T]) Pop() (v T, ok bool) {
	pos := q.dequeue.Load()
	c := &q.buf[pos&q.mask]
	seq := c.seq.Load()
	diff := int64(seq) - int64(pos+1)
	if diff != 0 {
		return v, false
	}
	v = c.value
	q.dequeue.Store(pos + 1)
	c.seq.Store(pos + q.mask + 1)
	return v, true
}

// Len estimates the number of queued items. Approximate under
// concurrent producers; exact once they quiesce.
func (q *Queue[T]) Len() int {
	n := int64(q.enqueue.Load()) - int64(q.dequeue.Load())
	if n < 0 {
		return 0
	}
	return int(n)
}

// nextSeq hands out a monotonically increasing arrival-order tiebreaker
// for commands sharing the same FrameTime (§3, §5).
func (q *Queue[T]) nextSeq() uint64 {
	return q.seqGen.Add(1) - 1
}

// Seq exposes a command's arrival-order tiebreaker for sorting.
func (c Command) Seq() uint64 { return c.seq }

// CommandQueue is the command-flavored instantiation of Queue, with a
// PushCommand convenience that stamps each command with an
// arrival-order sequence number before enqueuing (methods cannot be
// added directly to a specific generic instantiation, hence the thin
// wrapper).
type CommandQueue struct {
	*Queue[Command]
}

// NewCommandQueue creates a mixer's inbound command queue.
func NewCommandQueue(capacity int) *CommandQueue {
	return &CommandQueue{Queue: NewQueue[Command](capacity)}
}

// PushCommand stamps cmd with an arrival-order tiebreaker and enqueues
// it. Safe to call from any control thread.
func (q *CommandQueue) PushCommand(cmd Command) error {
	cmd.seq = q.nextSeq()
	return q.Push(cmd)
}
