// SPDX-License-Identifier: EPL-2.0

// Package dsp provides the allocation-free sample buffer operations that
// every mixer node and effect shares: fill, copy, accumulate, scale, pan,
// and soft-clip over interleaved float32 buffers, plus the atomically
// refcounted shared buffer used by preloaded sources.
//
// Everything in this package is safe to call from the real-time audio
// callback: no function here allocates once its destination buffer is
// sized, and SharedBuffer's Release never frees memory on the calling
// goroutine.
package dsp
