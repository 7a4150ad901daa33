// SPDX-License-Identifier: EPL-2.0

// Package device abstracts the real-time audio callback loop behind
// Device, with three backends: PortAudio (desktop playback via
// gordonklaus/portaudio), WAVWriter (pulls the registered callback in
// a tight loop and renders to a float32 RIFF/WAVE file, letting the
// engine run in tests without real hardware), and Web (an interface-
// only placeholder — browser/WASM glue is out of scope).
package device
