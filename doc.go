// SPDX-License-Identifier: EPL-2.0

// Package audiograph is a real-time audio playback and mixing engine:
// decode, resample, mix, and apply effects to any number of files and
// generators through a tree of mixers, driven by a single real-time
// callback per Player.
//
// # Quick Start
//
// A Player owns one output device and one root mixer:
//
//	p, err := audiograph.NewPlayer(&device.PortAudio{}, audiograph.WithChannels(2))
//	if err != nil {
//	    // handle error
//	}
//	defer p.Close()
//
//	file, _ := os.Open("music.wav")
//	h, err := p.LoadPreloaded(file, "wav", 0, nil)
//	if err != nil {
//	    // handle error
//	}
//	h.SetParameter(mixer.ParamChildGain, -6, nil)
//
// LoadPreloaded fully decodes the file into a shared, refcounted buffer
// before playback starts; LoadStreamed instead spins up a decoder
// worker goroutine feeding a bounded ring buffer, for files too large
// to hold entirely in memory. Both return a *handle.Handle: a
// non-blocking reference used to Stop, Seek, SetParameter, or send
// NoteOn/NoteOff to the source, regardless of which mixer it ended up
// routed through.
//
// # Routing
//
// Player.AddSubMixer creates a child mixer.Mixer wired into the root
// (or any other mixer), for building a channel-strip tree — group
// busses, a reverb send, a sidechain — rather than a single flat mix:
//
//	drums, _ := p.AddSubMixer(nil, 2, 44100)
//	h, _ := p.LoadPreloaded(kick, "wav", 0, drums.Mixer)
//	drums.Master.SetParameter(mixer.ParamMasterGain, -3, nil)
//
// # Supported Formats
//
// decoder.NewDefaultRegistry pre-registers:
//   - WAV (PCM 16-bit, plus smpl-chunk loop regions) via formats/wav
//   - MP3 via formats/mp3
//   - Ogg Vorbis via formats/vorbis
//   - AIFF (PCM 16-bit) via formats/aiff
//
// WAV seeks directly within its data chunk (wav.Stream); MP3, Vorbis and
// AIFF get Seek from decoder.Adapter, which rewinds and redecodes.
//
// # Output Backends
//
// device.PortAudio drives the host's default output device; for tests
// and offline rendering, device.WAVWriter pulls the same callback in a
// tight loop and writes a bit-exact float32 RIFF/WAVE file instead.
//
// # Convenience: ResampleToMono16
//
// Outside the Player/mixer graph, ResampleToMono16 is a standalone
// pipeline for the common case of collapsing a decoded source straight
// to mono 16-bit PCM at a target rate, with no mixing involved:
//
//	decoder := wav.Decoder{}
//	src, _ := decoder.Decode(file)
//	samples, rate, _ := audiograph.ResampleToMono16(src, 8000, 4096)
//
// See the individual subpackages for more detailed documentation.
package audiograph
