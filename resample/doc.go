// SPDX-License-Identifier: EPL-2.0

// Package resample implements the per-source rate conversion of §4.4:
// a shared Resampler contract with two implementations, Cubic (a fast
// 4-frame Catmull-Rom interpolator, adapted from the teacher engine's
// audio.Resampler so it operates on caller-owned blocks instead of
// pulling from an audio.Source) and Polyphase (a windowed-sinc FIR for
// the high-quality mode, built once from gonum's window functions).
//
// Both implementations accept a (ratioStart, ratioEnd) pair per call so
// a smoothly changing playback speed glides across the block instead of
// producing an audible jump, and both are allocation-free once
// constructed.
package resample
