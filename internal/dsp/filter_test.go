package dsp

import (
	"math"
	"testing"
)

func TestNewLowpassFilterValidation(t *testing.T) {
	tests := []struct {
		name      string
		alpha     float64
		expectErr bool
	}{
		{"valid", 0.25, false},
		{"zero", 0, true},
		{"one", 1, true},
		{"negative", -0.5, true},
		{"above one", 1.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLowpassFilter(tt.alpha)
			if tt.expectErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestLowpassKeepsFirstSample(t *testing.T) {
	filter, err := NewLowpassFilter(0.25)
	if err != nil {
		t.Fatalf("Failed to create filter: %v", err)
	}

	samples := []int16{1234, -500, 800, 0, 32000}
	filter.Apply(samples)

	if samples[0] != 1234 {
		t.Errorf("Expected first sample unchanged (1234), got %d", samples[0])
	}
}

func TestLowpassBlendProperty(t *testing.T) {
	// Each output must lie between the raw input and the previous output
	filter, err := NewLowpassFilter(0.25)
	if err != nil {
		t.Fatalf("Failed to create filter: %v", err)
	}

	input := []int16{0, 1000, -2000, 3000, -4000, 500, 500, 0, 32767, -32768}
	filtered := make([]int16, len(input))
	copy(filtered, input)
	filter.Apply(filtered)

	for i := 1; i < len(input); i++ {
		lo := float64(input[i])
		hi := float64(filtered[i-1])
		if lo > hi {
			lo, hi = hi, lo
		}
		// Allow one unit of slack for the int16 narrowing
		got := float64(filtered[i])
		if got < lo-1 || got > hi+1 {
			t.Errorf("Sample %d: output %v outside blend range [%v, %v]", i, got, lo, hi)
		}
	}
}

func TestLowpassSmoothsStep(t *testing.T) {
	filter, err := NewLowpassFilter(0.25)
	if err != nil {
		t.Fatalf("Failed to create filter: %v", err)
	}

	// Step from 0 to 10000: the filtered edge must rise gradually
	samples := make([]int16, 16)
	for i := 8; i < 16; i++ {
		samples[i] = 10000
	}
	filter.Apply(samples)

	if samples[8] != 2500 {
		t.Errorf("Expected first step response 2500 (alpha*10000), got %d", samples[8])
	}

	for i := 9; i < 16; i++ {
		if samples[i] <= samples[i-1] {
			t.Errorf("Expected monotone rise at sample %d: %d <= %d", i, samples[i], samples[i-1])
		}
	}
}

func TestLowpassReseedsEveryBlock(t *testing.T) {
	filter, err := NewLowpassFilter(0.25)
	if err != nil {
		t.Fatalf("Failed to create filter: %v", err)
	}

	first := []int16{30000, 30000, 30000, 30000}
	filter.Apply(first)

	// A second block starting at zero must begin at zero: no carried state
	second := []int16{0, 0, 0, 0}
	filter.Apply(second)

	for i, s := range second {
		if s != 0 {
			t.Errorf("Expected zero output at sample %d after reseed, got %d", i, s)
		}
	}
}

func TestLowpassEmptyBlock(t *testing.T) {
	filter, _ := NewLowpassFilter(0.25)
	filter.Apply(nil) // must not panic
}

func TestNewDCBlockerValidation(t *testing.T) {
	if _, err := NewDCBlocker(0); err == nil {
		t.Error("Expected error for R=0")
	}
	if _, err := NewDCBlocker(1); err == nil {
		t.Error("Expected error for R=1")
	}
	if _, err := NewDCBlocker(0.995); err != nil {
		t.Errorf("Expected no error for R=0.995, got: %v", err)
	}
}

func TestDCBlockerRemovesOffset(t *testing.T) {
	blocker, err := NewDCBlocker(0.995)
	if err != nil {
		t.Fatalf("Failed to create DC blocker: %v", err)
	}

	// Constant offset: after the initial transient the output decays
	// toward zero
	samples := make([]int16, 512)
	for i := range samples {
		samples[i] = 5000
	}
	blocker.Apply(samples)

	if samples[0] != 5000 {
		t.Errorf("Expected initial transient 5000, got %d", samples[0])
	}

	tail := samples[len(samples)-1]
	if math.Abs(float64(tail)) >= 5000*0.1 {
		t.Errorf("Expected DC offset mostly removed at block end, got %d", tail)
	}
}
