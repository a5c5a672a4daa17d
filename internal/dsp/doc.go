// Package dsp implements the per-block signal processing chain: an optional
// DC-blocking filter, a single-pole IIR lowpass, windowed feature extraction
// (RMS, peak, low/high derivative energy split), and the threshold-based
// environment classifier.
package dsp
