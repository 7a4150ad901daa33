// SPDX-License-Identifier: EPL-2.0

package device

import "errors"

// ErrWebNotImplemented is returned by every Web method. Browser/WASM
// audio glue (AudioWorklet wiring, js.Value interop) is out of scope
// (§1); Web exists only so callers can name the backend and fail
// predictably rather than the type simply not existing.
var ErrWebNotImplemented = errors.New("device: web backend not implemented")

// Web is a Device stub for a future browser/WASM backend.
type Web struct{}

func (Web) Open(channels, sampleRate, framesPerBuffer int) error { return ErrWebNotImplemented }
func (Web) SampleRate() int                                      { return 0 }
func (Web) ChannelCount() int                                    { return 0 }
func (Web) Start(cb Callback) error                              { return ErrWebNotImplemented }
func (Web) Stop() error                                          { return ErrWebNotImplemented }
func (Web) IsSuspended() bool                                    { return true }
