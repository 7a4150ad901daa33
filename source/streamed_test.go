// SPDX-License-Identifier: EPL-2.0

package source

import (
	"io"
	"testing"
	"time"

	"github.com/ik5/audiograph/command"
)

// fakeDecoder is a deterministic decoderSource backed by an in-memory
// ramp, standing in for formats/* during tests that exercise Streamed's
// worker/ring-buffer plumbing without real file I/O.
type fakeDecoder struct {
	sampleRate int
	channels   int
	data       []float32 // interleaved
	pos        int       // frame index
	closed     bool
}

func newFakeDecoder(frames, channels, sampleRate int) *fakeDecoder {
	data := make([]float32, frames*channels)
	for i := range data {
		data[i] = float32(i%1000) / 1000
	}
	return &fakeDecoder{sampleRate: sampleRate, channels: channels, data: data}
}

func (d *fakeDecoder) SampleRate() int { return d.sampleRate }
func (d *fakeDecoder) Channels() int   { return d.channels }
func (d *fakeDecoder) Close() error    { d.closed = true; return nil }

func (d *fakeDecoder) Seek(frame int64) error {
	d.pos = int(frame)
	return nil
}

func (d *fakeDecoder) ReadSamples(dst []float32) (int, error) {
	totalFrames := len(d.data) / d.channels
	if d.pos >= totalFrames {
		return 0, io.EOF
	}
	framesWanted := len(dst) / d.channels
	framesAvail := totalFrames - d.pos
	n := framesWanted
	if n > framesAvail {
		n = framesAvail
	}
	base := d.pos * d.channels
	copy(dst[:n*d.channels], d.data[base:base+n*d.channels])
	d.pos += n
	if d.pos >= totalFrames {
		return n * d.channels, io.EOF
	}
	return n * d.channels, nil
}

func waitForRingFill(t *testing.T, s *Streamed) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.ring.Length() > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("decoder worker never filled the ring buffer")
}

func TestStreamed_PlaysDecodedAudio(t *testing.T) {
	t.Parallel()

	dec := newFakeDecoder(48000, 1, 48000)
	s := NewStreamed(dec, 1.0, false, nil, 1)
	defer s.Close()

	waitForRingFill(t, s)

	out := make([]float32, 512)
	n := s.Write(out, 1, 48000, 0)
	if n == 0 {
		t.Fatal("Write() returned 0 frames once the ring had data")
	}
}

func TestStreamed_UnderrunFillsSilenceWithoutBlocking(t *testing.T) {
	t.Parallel()

	dec := newFakeDecoder(10, 1, 48000) // tiny source, drains almost immediately
	s := NewStreamed(dec, 1.0, false, nil, 1)
	defer s.Close()

	out := make([]float32, 4096)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			s.Write(out, 1, 48000, 0)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Write() appears to have blocked the audio thread")
	}
}

func TestStreamed_SeekRequestIsDeliveredToDecoder(t *testing.T) {
	t.Parallel()

	dec := newFakeDecoder(48000, 1, 48000)
	s := NewStreamed(dec, 1.0, false, nil, 1)
	defer s.Close()

	s.ApplyEvent(command.Command{Payload: command.Payload{Kind: command.Seek, SeekFrame: 24000}})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && dec.pos < 24000 {
		time.Sleep(time.Millisecond)
	}
	if dec.pos < 24000 {
		t.Errorf("decoder position = %d after seek, want >= 24000", dec.pos)
	}
}

func TestStreamed_CloseStopsWorker(t *testing.T) {
	t.Parallel()

	dec := newFakeDecoder(48000, 1, 48000)
	s := NewStreamed(dec, 1.0, false, nil, 1)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !dec.closed {
		t.Error("Close() did not close the underlying decoder")
	}
}
