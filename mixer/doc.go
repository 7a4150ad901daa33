// SPDX-License-Identifier: EPL-2.0

// Package mixer implements the per-block summing, effects, and child
// lifecycle engine (§4.8): a Mixer sums its children (sources or
// nested sub-mixers) into an accumulation buffer, runs its effect
// chain, applies master volume/pan, and tracks CPU load. Mixers are
// addressed by a process-unique ID registered in a shared arena rather
// than by pointer, so parent links and cross-mixer lookups (AddChildMixer,
// cycle detection) never need unsafe weak references.
package mixer
