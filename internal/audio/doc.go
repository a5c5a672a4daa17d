// Package audio provides the fixed-size PCM sample block used by the
// capture loop, including construction from raw little-endian bytes,
// zero-padding of short reads, and waveform downsampling for display.
package audio
