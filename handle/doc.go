// SPDX-License-Identifier: EPL-2.0

// Package handle gives control-side goroutines a safe, non-blocking
// reference to a playing source or mixer (§4.11): a Handle carries the
// owning mixer's arena id plus the target's child/mixer id and
// enqueues command.Commands through the owning Mixer's CommandQueue.
// Every operation resolves the owning mixer through the arena first,
// so a Handle outliving its target (the mixer was torn down, or the
// child already finished and was removed) reports errs.NotFound
// instead of blocking or panicking.
package handle
