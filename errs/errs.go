// SPDX-License-Identifier: EPL-2.0

// Package errs declares the engine-wide error taxonomy. Every error
// surfaced from a control-side call, and every status event emitted
// from the audio thread, is one of these sentinels (optionally wrapped
// with context via fmt.Errorf("%w", ...)).
package errs

import "errors"

var (
	// DeviceError marks an output device open/start/format failure.
	// Fatal to the player that raised it.
	DeviceError = errors.New("device error")

	// DecodeError marks an unrecoverable decoder fault; the affected
	// source transitions to Stopped(error).
	DecodeError = errors.New("decode error")

	// IoError marks a file read failure for a streamed source. Recoverable
	// by skipping the frame (an Underrun event is emitted) unless the
	// failure persists, in which case it escalates to DecodeError.
	IoError = errors.New("io error")

	// QueueFull marks a command or status queue at capacity. The caller
	// may retry; the audio thread never blocks on this condition.
	QueueFull = errors.New("queue full")

	// NotFound marks a handle referring to an id no longer present in
	// the mixer arena.
	NotFound = errors.New("not found")

	// InvalidState marks an operation incompatible with the target's
	// current state (seek on a non-seekable generator, cyclic mixer
	// insertion, etc).
	InvalidState = errors.New("invalid state")

	// Poisoned marks a source or effect that panicked and was unlinked.
	Poisoned = errors.New("poisoned")
)
