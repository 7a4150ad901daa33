// SPDX-License-Identifier: EPL-2.0

// Package workerpool fans a Player's top-level sub-mixers out across a
// fixed set of persistent worker goroutines when a caller opts in
// (§4.10). New spawns the workers once; every ProcessAll call posts
// one job per sub-mixer to the pool's shared queue and waits on a
// per-call result channel sized to the batch. Work items are
// independent Renderer.Process calls, each writing into its own
// pre-sized output slice indexed by the sub-mixer's position in the
// input slice — the final sum order a caller reduces over is therefore
// fixed by that configuration, never by which worker happened to
// finish first.
package workerpool
