package audio

import (
	"encoding/binary"
	"fmt"
)

// Block is one fixed-length group of signed 16-bit mono samples produced by
// a single acquisition call. A block is owned by the cycle that produced it
// and is never retained across cycles.
type Block struct {
	Samples []int16
}

// NewBlock allocates a zeroed block of the given size
func NewBlock(size int) *Block {
	return &Block{Samples: make([]int16, size)}
}

// NewBlockFromSamples builds a full-size block from up to size samples.
// If fewer samples are provided (short read), the remainder is zero-filled
// so no downstream stage ever sees a partially-initialized block.
func NewBlockFromSamples(samples []int16, size int) *Block {
	block := NewBlock(size)
	n := copy(block.Samples, samples)
	for i := n; i < size; i++ {
		block.Samples[i] = 0
	}
	return block
}

// NewBlockFromBytes builds a full-size block from raw little-endian PCM-16
// bytes, zero-filling any shortfall
func NewBlockFromBytes(data []byte, size int) (*Block, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("audio data length must be even (got %d bytes)", len(data))
	}

	count := len(data) / 2
	if count > size {
		count = size
	}

	block := NewBlock(size)
	for i := 0; i < count; i++ {
		block.Samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}

	return block, nil
}

// Len returns the block length in samples
func (b *Block) Len() int {
	return len(b.Samples)
}

// Bytes serializes the block as contiguous little-endian PCM-16 bytes,
// the binary payload sent to a consumer
func (b *Block) Bytes() []byte {
	out := make([]byte, len(b.Samples)*2)
	for i, s := range b.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Downsample reduces the block to a fixed number of display points by
// nearest-index selection. The result exists only for one publish event.
func (b *Block) Downsample(points int) []int16 {
	if points <= 0 {
		return nil
	}

	n := len(b.Samples)
	out := make([]int16, points)
	if n == 0 {
		return out
	}

	// Nearest-index selection; repeats samples when points > n
	for i := 0; i < points; i++ {
		out[i] = b.Samples[i*n/points]
	}
	return out
}
