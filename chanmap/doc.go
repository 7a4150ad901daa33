// SPDX-License-Identifier: EPL-2.0

// Package chanmap adapts audio between channel counts when a mixer's
// children disagree with it on layout (§4.5). It generalizes the
// teacher engine's audio.MonoMixer (which only ever collapsed to mono)
// into up- and down-mixing across 1..8 channels.
package chanmap
