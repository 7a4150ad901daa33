// SPDX-License-Identifier: EPL-2.0

package device

// Callback fills out (interleaved, at the device's own channel count
// and sample rate) with the next block of audio. Implementations call
// it from whatever goroutine drives their real-time loop; it must
// never block or allocate (§5).
type Callback func(out []float32)

// Device is the output backend a Player drives: open it at a format,
// register the render callback, and let it pull blocks until Stop.
type Device interface {
	Open(channels, sampleRate, framesPerBuffer int) error
	SampleRate() int
	ChannelCount() int
	Start(cb Callback) error
	Stop() error
	IsSuspended() bool
}
