package dsp

import "fmt"

// Environment is the coarse classification of ambient sound for one block
type Environment int

// The label set is closed; switches over Environment are exhaustive
const (
	EnvCalm Environment = iota
	EnvNormal
	EnvNoisy
)

// String returns the label name used in published payloads
func (e Environment) String() string {
	switch e {
	case EnvCalm:
		return "Calm"
	case EnvNormal:
		return "Normal"
	case EnvNoisy:
		return "Noisy"
	default:
		return fmt.Sprintf("Unknown(%d)", int(e))
	}
}

// MarshalText serializes the label for JSON payloads
func (e Environment) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// Classifier maps a FeatureSet to an Environment label using fixed
// thresholds. It is a pure function of the current features: no smoothing,
// no hysteresis, no memory of prior labels.
type Classifier struct {
	calmThreshold  float64
	noisyThreshold float64
}

// NewClassifier creates a classifier; thresholds share the RMS domain and
// calm must be strictly below noisy
func NewClassifier(calmThreshold, noisyThreshold float64) (*Classifier, error) {
	if calmThreshold <= 0 {
		return nil, fmt.Errorf("calm threshold must be positive, got %f", calmThreshold)
	}
	if noisyThreshold <= calmThreshold {
		return nil, fmt.Errorf("noisy threshold (%f) must be greater than calm threshold (%f)",
			noisyThreshold, calmThreshold)
	}
	return &Classifier{calmThreshold: calmThreshold, noisyThreshold: noisyThreshold}, nil
}

// Classify evaluates the decision table. The Calm condition is checked
// strictly before the Noisy condition, so a block satisfying both is Calm
// (first-match-wins).
func (c *Classifier) Classify(f FeatureSet) Environment {
	if f.RMS < c.calmThreshold || f.LowEnergy > 2*f.HighEnergy {
		return EnvCalm
	}
	if f.RMS > c.noisyThreshold || f.HighEnergy > 2*f.LowEnergy {
		return EnvNoisy
	}
	return EnvNormal
}
