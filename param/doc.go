// SPDX-License-Identifier: EPL-2.0

// Package param implements the engine's parameter model (§4.7): typed
// descriptors (Float, Integer, Boolean, Enum) with a normalized-to-raw
// mapping curve, a string formatter/parser, smoothing policy, and the
// per-parameter runtime state that ramps a value toward its target one
// block at a time on the audio thread.
package param
