// SPDX-License-Identifier: EPL-2.0

// Package command implements the sample-accurate command/event protocol
// between the control side and the audio thread (§3 "Command", §4.9
// "Scheduler & command bus"): a bounded lock-free multi-producer queue
// for commands flowing in, and a bounded multi-producer status bus for
// events flowing back out. Both are safe to push from any thread and to
// drain from exactly one (the audio thread, and the control side,
// respectively) without blocking or allocating.
package command
