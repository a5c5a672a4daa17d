package dsp

import "fmt"

// LowpassFilter is a single-pole IIR lowpass applied in place over one block:
//
//	out[0] = in[0]
//	out[i] = alpha*in[i] + (1-alpha)*out[i-1]
//
// The recurrence reseeds from each block's own first sample, so the filter
// carries no state across blocks and is discontinuous at block boundaries.
type LowpassFilter struct {
	alpha float64
}

// NewLowpassFilter creates a lowpass filter with the given smoothing
// coefficient, which must lie strictly inside (0, 1)
func NewLowpassFilter(alpha float64) (*LowpassFilter, error) {
	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("alpha must be in (0, 1), got %f", alpha)
	}
	return &LowpassFilter{alpha: alpha}, nil
}

// Apply runs the recurrence in place. Accumulation happens in float64 and
// each value is narrowed to int16 only on store, avoiding premature
// truncation inside the recurrence.
func (f *LowpassFilter) Apply(samples []int16) {
	if len(samples) == 0 {
		return
	}

	prev := float64(samples[0])
	for i := 1; i < len(samples); i++ {
		prev = f.alpha*float64(samples[i]) + (1-f.alpha)*prev
		samples[i] = int16(prev)
	}
}

// Alpha returns the smoothing coefficient
func (f *LowpassFilter) Alpha() float64 {
	return f.alpha
}

// DCBlocker removes a constant offset from a block:
//
//	y[i] = x[i] - x[i-1] + R*y[i-1]
//
// Like the lowpass it is block-local: the recurrence reseeds at every block.
type DCBlocker struct {
	r float64
}

// NewDCBlocker creates a DC-blocking filter with pole radius R in (0, 1)
func NewDCBlocker(r float64) (*DCBlocker, error) {
	if r <= 0 || r >= 1 {
		return nil, fmt.Errorf("R must be in (0, 1), got %f", r)
	}
	return &DCBlocker{r: r}, nil
}

// Apply runs the DC-blocking recurrence in place with float64 accumulation
func (d *DCBlocker) Apply(samples []int16) {
	var prevIn, prevOut float64
	for i, s := range samples {
		x := float64(s)
		y := x - prevIn + d.r*prevOut
		prevIn = x
		prevOut = y
		samples[i] = int16(y)
	}
}
