// SPDX-License-Identifier: EPL-2.0

package audiograph_test

import (
	"bytes"
	"math"
	"testing"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/ik5/audiograph"
	"github.com/ik5/audiograph/decoder"
	"github.com/ik5/audiograph/device"
	"github.com/ik5/audiograph/dsp"
	"github.com/ik5/audiograph/formats/wav"
	"github.com/ik5/audiograph/mixer"
	"github.com/ik5/audiograph/source"
)

// decodeAll fully decodes r through the default registry's named
// decoder and returns the interleaved samples plus stream format,
// mirroring what Player.LoadPreloaded does internally, for tests that
// need the decoded source.Source directly (e.g. to call
// mixer.Mixer.AddSourceAt, which Player's own API doesn't expose).
func decodeAll(t *testing.T, r *bytes.Reader, format string) ([]float32, int, int) {
	t.Helper()
	stream, err := decoder.NewDefaultRegistry().Open(format, r)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", format, err)
	}
	defer stream.Close()

	var out []float32
	buf := make([]float32, 4096)
	for {
		n, err := stream.ReadSamples(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			break
		}
	}
	return out, stream.Channels(), stream.SampleRate()
}

func sineWAV(t *testing.T, sampleRate int, freq float64, seconds float64) *bytes.Reader {
	t.Helper()
	n := int(float64(sampleRate) * seconds)
	samples := make([]int16, n)
	for i := range samples {
		v := math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
		samples[i] = int16(v * 20000)
	}
	buf := new(bytes.Buffer)
	if err := wav.WriteWAV16(buf, sampleRate, samples); err != nil {
		t.Fatalf("WriteWAV16() error = %v", err)
	}
	return bytes.NewReader(buf.Bytes())
}

// TestPlayer_PreloadTwoFilesThenStopAllSettlesToSilence covers the
// "preload + stop-all" end-to-end scenario (§8): two preloaded voices
// mixed together, both stopped, and the output settling to silence
// once their fade-outs complete.
func TestPlayer_PreloadTwoFilesThenStopAllSettlesToSilence(t *testing.T) {
	t.Parallel()

	dev := &device.WAVWriter{}
	p, err := audiograph.NewPlayer(dev,
		audiograph.WithChannels(1),
		audiograph.WithSampleRate(8000),
		audiograph.WithFramesPerBuffer(256),
	)
	if err != nil {
		t.Fatalf("NewPlayer() error = %v", err)
	}
	defer p.Close()

	h1, err := p.LoadPreloaded(sineWAV(t, 8000, 440, 1), "wav", 0, nil)
	if err != nil {
		t.Fatalf("LoadPreloaded(1) error = %v", err)
	}
	h2, err := p.LoadPreloaded(sineWAV(t, 8000, 220, 1), "wav", 0, nil)
	if err != nil {
		t.Fatalf("LoadPreloaded(2) error = %v", err)
	}

	dev.Render(256 * 4)
	mixed := dev.Samples()
	loud := false
	for _, s := range mixed {
		if float32(math.Abs(float64(s))) > 0.05 {
			loud = true
			break
		}
	}
	if !loud {
		t.Fatalf("expected non-silent output before Stop, got near-silence")
	}

	if err := h1.Stop(0); err != nil {
		t.Fatalf("h1.Stop() error = %v", err)
	}
	if err := h2.Stop(0); err != nil {
		t.Fatalf("h2.Stop() error = %v", err)
	}

	// Render well past both fade-outs (a few milliseconds at 8kHz).
	before := len(dev.Samples())
	dev.Render(8000)
	tail := dev.Samples()[before+4000:]
	for i, s := range tail {
		if float32(math.Abs(float64(s))) > 1e-3 {
			t.Fatalf("tail[%d] = %v, want silence once both voices have stopped", i, s)
		}
	}
}

// TestPlayer_TwoFileMixPreservesBothFrequencies covers the "two-file
// mix" scenario (§8): summing a 390.625Hz and a 781.25Hz tone (FFT bins
// 100 and 200) should leave
// spectral energy at both frequencies, verified via gonum's FFT.
func TestPlayer_TwoFileMixPreservesBothFrequencies(t *testing.T) {
	t.Parallel()

	const sampleRate = 8000
	dev := &device.WAVWriter{}
	p, err := audiograph.NewPlayer(dev,
		audiograph.WithChannels(1),
		audiograph.WithSampleRate(sampleRate),
		audiograph.WithFramesPerBuffer(512),
	)
	if err != nil {
		t.Fatalf("NewPlayer() error = %v", err)
	}
	defer p.Close()

	// n is the FFT window; picking frequencies that land exactly on bin
	// boundaries (freq = bin * sampleRate / n) means each tone's energy
	// is confined to its own bin regardless of window phase, so the
	// comparison below isn't at the mercy of spectral leakage.
	const n = 2048
	const binHz = float64(sampleRate) / n
	freqA := 100 * binHz // bin 100
	freqB := 200 * binHz // bin 200
	floorBin := 137      // not a harmonic of bin 100 or bin 200

	if _, err := p.LoadPreloaded(sineWAV(t, sampleRate, freqA, 1), "wav", 0, nil); err != nil {
		t.Fatalf("LoadPreloaded(freqA) error = %v", err)
	}
	if _, err := p.LoadPreloaded(sineWAV(t, sampleRate, freqB, 1), "wav", 0, nil); err != nil {
		t.Fatalf("LoadPreloaded(freqB) error = %v", err)
	}

	dev.Render(n)
	samples := dev.Samples()[:n]

	signal := make([]float64, n)
	for i, s := range samples {
		signal[i] = float64(s)
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, signal)

	peakA := cmplxAbs(coeffs[100])
	peakB := cmplxAbs(coeffs[200])
	peakFloor := cmplxAbs(coeffs[floorBin])

	if peakA < peakFloor*5 {
		t.Errorf("magnitude at bin 100 (%vHz) = %v, want well above the floor bin's %v", freqA, peakA, peakFloor)
	}
	if peakB < peakFloor*5 {
		t.Errorf("magnitude at bin 200 (%vHz) = %v, want well above the floor bin's %v", freqB, peakB, peakFloor)
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// TestPlayer_SequencedVoiceStaysSilentUntilItsStartFrame covers the
// "sequenced beats" scenario (§8): a voice added via AddSourceAt stays
// out of the mix until the mixer's block counter reaches its start
// frame, then joins cleanly.
func TestPlayer_SequencedVoiceStaysSilentUntilItsStartFrame(t *testing.T) {
	t.Parallel()

	dev := &device.WAVWriter{}
	p, err := audiograph.NewPlayer(dev,
		audiograph.WithChannels(1),
		audiograph.WithSampleRate(8000),
		audiograph.WithFramesPerBuffer(256),
	)
	if err != nil {
		t.Fatalf("NewPlayer() error = %v", err)
	}
	defer p.Close()

	samples, channels, rate := decodeAll(t, sineWAV(t, 8000, 440, 1), "wav")
	buf := dsp.NewSharedBuffer(samples, channels, rate, nil)
	voice := source.NewPreloaded(buf, 0, false)

	const startFrame = 2000
	p.Root().AddSourceAt(voice, channels, rate, startFrame)

	dev.Render(startFrame)
	early := dev.Samples()
	for i, s := range early {
		if float32(math.Abs(float64(s))) > 1e-3 {
			t.Fatalf("frame %d before start = %v, want silence (voice hasn't started)", i, s)
		}
	}

	dev.Render(4000)
	later := dev.Samples()[startFrame:]
	loud := false
	for _, s := range later {
		if float32(math.Abs(float64(s))) > 0.05 {
			loud = true
			break
		}
	}
	if !loud {
		t.Fatalf("expected the sequenced voice to be audible after its start frame")
	}
}

// TestPlayer_SubMixerRoutingReachesTheMaster covers the "sub-mixer
// routing" scenario (§8): a voice loaded into a sub-mixer is audible
// at the root's output, and muting the sub-mixer's own master gain
// silences it without touching the voice directly.
func TestPlayer_SubMixerRoutingReachesTheMaster(t *testing.T) {
	t.Parallel()

	dev := &device.WAVWriter{}
	p, err := audiograph.NewPlayer(dev,
		audiograph.WithChannels(1),
		audiograph.WithSampleRate(8000),
		audiograph.WithFramesPerBuffer(256),
	)
	if err != nil {
		t.Fatalf("NewPlayer() error = %v", err)
	}
	defer p.Close()

	drums, err := p.AddSubMixer(nil, 1, 8000)
	if err != nil {
		t.Fatalf("AddSubMixer() error = %v", err)
	}

	if _, err := p.LoadPreloaded(sineWAV(t, 8000, 440, 1), "wav", 0, drums.Mixer); err != nil {
		t.Fatalf("LoadPreloaded() error = %v", err)
	}

	dev.Render(1024)
	if dev.Samples() == nil {
		t.Fatal("expected rendered samples")
	}

	if err := drums.Master.SetParameter(mixer.ParamMasterGain, -120, nil); err != nil {
		t.Fatalf("SetParameter() error = %v", err)
	}

	before := len(dev.Samples())
	dev.Render(2048)
	muted := dev.Samples()[before+1500:]
	for i, s := range muted {
		if float32(math.Abs(float64(s))) > 1e-3 {
			t.Fatalf("muted sub-mixer frame %d = %v, want silence", i, s)
		}
	}
}

// TestPlayer_StreamedSourcePlaysWithoutBlockingTheCallback covers the
// "streamed" half of the engine: a source.Streamed voice, loaded via
// Player.LoadStreamed, produces audible output through the same
// real-time callback as a preloaded one.
func TestPlayer_StreamedSourcePlaysWithoutBlockingTheCallback(t *testing.T) {
	t.Parallel()

	dev := &device.WAVWriter{}
	p, err := audiograph.NewPlayer(dev,
		audiograph.WithChannels(1),
		audiograph.WithSampleRate(8000),
		audiograph.WithFramesPerBuffer(256),
	)
	if err != nil {
		t.Fatalf("NewPlayer() error = %v", err)
	}
	defer p.Close()

	if _, err := p.LoadStreamed(sineWAV(t, 8000, 440, 2), "wav", 0.25, nil); err != nil {
		t.Fatalf("LoadStreamed() error = %v", err)
	}

	dev.Render(8000)
	samples := dev.Samples()
	loud := false
	for _, s := range samples {
		if float32(math.Abs(float64(s))) > 0.05 {
			loud = true
			break
		}
	}
	if !loud {
		t.Fatalf("expected the streamed voice to be audible")
	}
}

// TestPlayer_ParameterChangeSettlesNearSilence covers parameter
// automation through a handle (§8): after a SetParameter command that
// drops the source gain to near-mute with the parameter's default
// smoothing, the output more than 2000 frames later is near silence.
func TestPlayer_ParameterChangeSettlesNearSilence(t *testing.T) {
	t.Parallel()

	dev := &device.WAVWriter{}
	p, err := audiograph.NewPlayer(dev,
		audiograph.WithChannels(1),
		audiograph.WithSampleRate(8000),
		audiograph.WithFramesPerBuffer(512),
	)
	if err != nil {
		t.Fatalf("NewPlayer() error = %v", err)
	}
	defer p.Close()

	h, err := p.LoadPreloaded(sineWAV(t, 8000, 440, 1), "wav", 0, nil)
	if err != nil {
		t.Fatalf("LoadPreloaded() error = %v", err)
	}

	dev.Render(512)
	loudBefore := dsp32Peak(dev.Samples())

	if err := h.SetParameter(source.ParamGain, 0.0005, nil); err != nil {
		t.Fatalf("SetParameter(near-mute) error = %v", err)
	}
	before := len(dev.Samples())
	dev.Render(4096)
	after := dev.Samples()[before+2000:]
	quietAfter := dsp32Peak(after)

	if loudBefore < 0.05 {
		t.Fatalf("expected audible output before ramping gain down, got peak %v", loudBefore)
	}
	if quietAfter > 0.05 {
		t.Errorf("expected the gain to have settled near silence well after the change, got peak %v", quietAfter)
	}
}

func dsp32Peak(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		if v := float32(math.Abs(float64(s))); v > peak {
			peak = v
		}
	}
	return peak
}
