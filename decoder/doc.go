// SPDX-License-Identifier: EPL-2.0

// Package decoder extends the audio package's format decoders
// (formats/wav, formats/mp3, formats/vorbis, formats/aiff, each
// already an audio.Decoder/audio.Source pair) with the operations a
// streamed source.Source needs beyond straight-through decode: Seek to
// an exact PCM frame, TotalFrames when known up front, and a WAV
// sample-loop region for loop playback.
package decoder
