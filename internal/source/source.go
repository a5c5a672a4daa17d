package source

import (
	"context"
	"fmt"

	"github.com/Kamalbura/micstream/internal/audio"
)

// Status is the result classification of one acquisition call
type Status int

const (
	// StatusOK means a block was delivered (possibly zero-padded after a
	// short read)
	StatusOK Status = iota
	// StatusTimeout means no frame arrived within the read timeout
	StatusTimeout
	// StatusDriverError means the transport failed or delivered garbage
	StatusDriverError
)

// String returns a human-readable status name
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusTimeout:
		return "timeout"
	case StatusDriverError:
		return "driver_error"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Source delivers fixed-size sample blocks with blocking-with-timeout
// semantics. ReadBlock returns a full-size block and the number of valid
// samples it carries; positions beyond that count are zero-filled before
// the block is handed out. On StatusTimeout or StatusDriverError the block
// is nil and the cycle must be skipped.
type Source interface {
	// ReadBlock blocks until a frame arrives, the configured read timeout
	// elapses, or ctx is cancelled
	ReadBlock(ctx context.Context) (*audio.Block, int, Status)

	// Close releases the underlying transport
	Close() error
}

// padToBlock turns up to blockSize samples into a full, zero-padded block
func padToBlock(samples []int16, blockSize int) (*audio.Block, int) {
	n := len(samples)
	if n > blockSize {
		n = blockSize
	}
	return audio.NewBlockFromSamples(samples, blockSize), n
}
