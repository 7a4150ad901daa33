// SPDX-License-Identifier: EPL-2.0

// Package effect provides the per-child and per-mixer DSP chain: a
// polymorphic, parameter-schema-declaring Effect interface and a set of
// built-ins (Gain, Biquad, EQ, Reverb, Chorus, Compressor, Limiter,
// Distortion). Every built-in processes interleaved float32 blocks
// in place and exposes its tunables through param.Desc so a host/UI
// can drive it uniformly regardless of which effect is in the chain.
package effect
