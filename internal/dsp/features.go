package dsp

import "math"

// FeatureSet holds the features extracted from one filtered block.
// All fields are non-negative; LowEnergy and HighEnergy are the per-sample
// means of the adjacent absolute first differences below and above the
// derivative threshold, so their unnormalized sum equals the total
// derivative energy of the block.
type FeatureSet struct {
	RMS        float64 `json:"rms"`
	Peak       float64 `json:"peak"`
	LowEnergy  float64 `json:"low_energy"`
	HighEnergy float64 `json:"high_energy"`
}

// ExtractFeatures computes RMS, peak magnitude, and the two-band derivative
// energy split over one block. Squares and sums accumulate in float64, wide
// enough for a full block of 16-bit samples. It always succeeds on a valid
// block; an empty block yields the zero FeatureSet.
func ExtractFeatures(samples []int16, derivativeThreshold float64) FeatureSet {
	if len(samples) == 0 {
		return FeatureSet{}
	}

	var sumSquares, peak float64
	for _, s := range samples {
		v := float64(s)
		sumSquares += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}

	var lowSum, highSum float64
	for i := 1; i < len(samples); i++ {
		diff := math.Abs(float64(samples[i]) - float64(samples[i-1]))
		if diff < derivativeThreshold {
			lowSum += diff
		} else {
			highSum += diff
		}
	}

	n := float64(len(samples))
	return FeatureSet{
		RMS:        math.Sqrt(sumSquares / n),
		Peak:       peak,
		LowEnergy:  lowSum / n,
		HighEnergy: highSum / n,
	}
}
