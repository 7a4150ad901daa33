// SPDX-License-Identifier: EPL-2.0

package scheduler

import "github.com/ik5/audiograph/command"

// Drainer holds the scratch backlog buffer Drain needs to inspect a
// queue without losing not-yet-due commands behind due ones, reused
// across calls so draining a block's commands never allocates once
// the backlog has stopped growing.
type Drainer struct {
	buf []command.Command
}

// NewDrainer creates an empty Drainer. The zero value is also usable;
// NewDrainer exists for symmetry with the rest of the pack's
// constructors.
func NewDrainer() *Drainer {
	return &Drainer{}
}

// Drain pulls every command currently queued in q, applying (via
// apply, in FIFO arrival order) those with FrameTime < blockEnd and
// re-enqueuing the rest for a later block.
//
// Queue.Pop only drains in FIFO order and the queue has no peek
// operation, so a single forward pass collecting everything followed
// by a requeue pass is the only way to inspect the backlog without
// losing not-yet-due commands behind ones that are due. The backlog
// is collected into d.buf (grown only when the backlog outgrows its
// current capacity) and then partitioned in place: due commands are
// applied and dropped, not-due commands are compacted to the front of
// the same slice and pushed back.
func (d *Drainer) Drain(q *command.CommandQueue, blockEnd uint64, apply func(command.Command)) {
	if n := q.Len(); cap(d.buf) < n {
		d.buf = make([]command.Command, 0, n)
	}
	d.buf = d.buf[:0]
	for {
		cmd, ok := q.Pop()
		if !ok {
			break
		}
		d.buf = append(d.buf, cmd)
	}

	requeue := d.buf[:0]
	for _, cmd := range d.buf {
		if cmd.FrameTime >= blockEnd {
			requeue = append(requeue, cmd)
			continue
		}
		apply(cmd)
	}
	for _, cmd := range requeue {
		_ = q.Push(cmd)
	}
}
