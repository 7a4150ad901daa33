// SPDX-License-Identifier: EPL-2.0

// Package scheduler drains a mixer's inbound command.CommandQueue once
// per audio block, separating commands due within the block (applied
// in FIFO arrival order, the tiebreaker for commands sharing a
// FrameTime) from commands scheduled for a later block (re-enqueued
// untouched). Sample-accurate dispatch within a due block — e.g. a
// Stop command's fade beginning at its exact FrameTime rather than at
// the block boundary — is the caller's responsibility, since it
// depends on per-child state the scheduler has no view of.
package scheduler
