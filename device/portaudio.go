// SPDX-License-Identifier: EPL-2.0

package device

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/ik5/audiograph/errs"
)

// PortAudio drives playback through the host's default output device
// via gordonklaus/portaudio (cgo). Open initializes the PortAudio
// library; Stop tears the stream down and terminates it, matching the
// library's paired Initialize/Terminate lifecycle.
type PortAudio struct {
	channels        int
	sampleRate      int
	framesPerBuffer int
	stream          *portaudio.Stream
}

func (p *PortAudio) Open(channels, sampleRate, framesPerBuffer int) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("%w: portaudio initialize: %v", errs.DeviceError, err)
	}
	p.channels = channels
	p.sampleRate = sampleRate
	p.framesPerBuffer = framesPerBuffer
	return nil
}

func (p *PortAudio) SampleRate() int   { return p.sampleRate }
func (p *PortAudio) ChannelCount() int { return p.channels }

func (p *PortAudio) Start(cb Callback) error {
	stream, err := portaudio.OpenDefaultStream(
		0, p.channels, float64(p.sampleRate), p.framesPerBuffer,
		func(out []float32) { cb(out) },
	)
	if err != nil {
		return fmt.Errorf("%w: opening default stream: %v", errs.DeviceError, err)
	}
	if err := stream.Start(); err != nil {
		return fmt.Errorf("%w: starting stream: %v", errs.DeviceError, err)
	}
	p.stream = stream
	return nil
}

func (p *PortAudio) Stop() error {
	if p.stream == nil {
		return nil
	}
	if err := p.stream.Stop(); err != nil {
		return fmt.Errorf("%w: stopping stream: %v", errs.DeviceError, err)
	}
	if err := p.stream.Close(); err != nil {
		return fmt.Errorf("%w: closing stream: %v", errs.DeviceError, err)
	}
	p.stream = nil
	return portaudio.Terminate()
}

func (p *PortAudio) IsSuspended() bool { return p.stream == nil }
