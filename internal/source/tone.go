package source

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Kamalbura/micstream/internal/audio"
)

// ToneSource synthesizes a continuous sine wave, paced at the natural block
// period (BlockSize / SampleRate). It stands in for a device during demos
// and tests.
type ToneSource struct {
	frequency  float64
	amplitude  float64
	sampleRate int
	blockSize  int
	phase      float64
}

// NewToneSource creates a sine generator
func NewToneSource(frequencyHz, amplitude float64, sampleRate, blockSize int) (*ToneSource, error) {
	if frequencyHz <= 0 {
		return nil, fmt.Errorf("frequency must be positive, got %f", frequencyHz)
	}
	if amplitude < 0 || amplitude > 32767 {
		return nil, fmt.Errorf("amplitude must be between 0 and 32767, got %f", amplitude)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if blockSize <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", blockSize)
	}

	return &ToneSource{
		frequency:  frequencyHz,
		amplitude:  amplitude,
		sampleRate: sampleRate,
		blockSize:  blockSize,
	}, nil
}

// ReadBlock waits one block period, then returns the next block of the
// sine, with phase continuous across blocks
func (t *ToneSource) ReadBlock(ctx context.Context) (*audio.Block, int, Status) {
	period := time.Duration(float64(t.blockSize) / float64(t.sampleRate) * float64(time.Second))

	timer := time.NewTimer(period)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, 0, StatusTimeout
	case <-timer.C:
	}

	block := audio.NewBlock(t.blockSize)
	step := 2 * math.Pi * t.frequency / float64(t.sampleRate)
	for i := range block.Samples {
		block.Samples[i] = int16(t.amplitude * math.Sin(t.phase))
		t.phase += step
	}

	// Keep the phase bounded
	t.phase = math.Mod(t.phase, 2*math.Pi)

	return block, t.blockSize, StatusOK
}

// Close is a no-op for the synthetic source
func (t *ToneSource) Close() error {
	return nil
}
