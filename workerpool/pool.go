// SPDX-License-Identifier: EPL-2.0

package workerpool

import "fmt"

// Renderer is the shape of one block of work: mixer.Mixer.Process
// satisfies it without the package needing to import mixer.
type Renderer interface {
	Process(out []float32, now uint64) int
}

// job is one unit of work posted to the pool's queue: render renderer
// into out at now, and report back through result so ProcessAll's
// countdown latch can tell when the whole batch is done.
type job struct {
	renderer Renderer
	out      []float32
	now      uint64
	index    int
	result   chan<- jobResult
}

type jobResult struct {
	index int
	n     int
	err   error
}

// Pool runs a fixed, opt-in number of worker goroutines spawned once
// at New and parked on a shared job queue for the pool's lifetime —
// not real-time OS priority (Go offers no portable way to request
// that without cgo or capability-aware syscalls the pack never
// demonstrates, so a worker here is scheduled like any other
// goroutine). Every ProcessAll call posts one job per renderer to that
// queue and waits on a per-call result channel sized to the batch: the
// channel receive loop is the countdown latch, and because each result
// carries its own index, the final written/error slices are ordered by
// mixer configuration rather than by whichever worker finished first.
//
// A zero-value Pool has no queue and no workers; ProcessAll on it runs
// every renderer inline on the caller's goroutine, matching Go's zero
// values being meaningfully usable elsewhere in the pack (e.g.
// sync.Mutex).
type Pool struct {
	workers int
	jobs    chan job
}

// New creates a Pool capped at workers concurrent Process calls and
// starts workers goroutines immediately; they live until Close.
// workers <= 0 is treated as 1.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		workers: workers,
		jobs:    make(chan job, workers*4),
	}
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Close shuts down the pool's worker goroutines. Safe to call once;
// ProcessAll must not be called again afterward.
func (p *Pool) Close() {
	if p.jobs != nil {
		close(p.jobs)
	}
}

func (p *Pool) worker() {
	for j := range p.jobs {
		j.result <- runJob(j)
	}
}

func runJob(j job) (res jobResult) {
	res.index = j.index
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("workerpool: renderer %d panicked: %v", j.index, r)
		}
	}()
	res.n = j.renderer.Process(j.out, j.now)
	return res
}

// ProcessAll renders every renderers[i] into outs[i] at the same now.
// Panics inside a single Renderer are recovered and reported as an
// error for that index rather than taking down the other workers; the
// audio thread should treat any returned error as cause to fall back
// to silence for this block, not to retry.
func (p *Pool) ProcessAll(renderers []Renderer, outs [][]float32, now uint64) ([]int, error) {
	if len(renderers) != len(outs) {
		panic("workerpool: renderers and outs must have the same length")
	}

	written := make([]int, len(renderers))
	if p.jobs == nil {
		var firstErr error
		for i, r := range renderers {
			res := runJob(job{renderer: r, out: outs[i], now: now, index: i})
			written[i] = res.n
			if res.err != nil && firstErr == nil {
				firstErr = res.err
			}
		}
		return written, firstErr
	}

	results := make(chan jobResult, len(renderers))
	for i, r := range renderers {
		p.jobs <- job{renderer: r, out: outs[i], now: now, index: i, result: results}
	}

	var firstErr error
	for range renderers {
		res := <-results
		written[res.index] = res.n
		if res.err != nil && firstErr == nil {
			firstErr = res.err
		}
	}
	return written, firstErr
}
