// SPDX-License-Identifier: EPL-2.0

// Package source implements the Source interface and its concrete
// variants (§4.1-4.3): Preloaded (a shared decoded buffer with loop
// region, speed, gain, pan and fade-out), Streamed (a decoder worker
// feeding a bounded ring buffer), Generator (polyphonic note on/off),
// and the Resampled/Panned wrappers a mixer inserts when a child's
// signal spec disagrees with its own.
//
// Every implementation's Write is allocation-free and never panics: it
// is expected to run on the audio callback thread, and Guard recovers
// any panic that escapes an inner Source so the mixer can unlink it
// instead of corrupting the device.
package source
