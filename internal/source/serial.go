package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Kamalbura/micstream/internal/audio"
	"github.com/Kamalbura/micstream/internal/protocol"
)

// deadlineSetter is implemented by *os.File for pollable devices (ttys)
type deadlineSetter interface {
	SetReadDeadline(t time.Time) error
}

// SerialSource reads magic-framed PCM frames from a byte stream, typically
// a tty device carrying the firmware's serial protocol. The tty line
// discipline (baud rate, raw mode) must be configured before the service
// starts.
type SerialSource struct {
	scanner   *protocol.FrameScanner
	closer    io.Closer
	deadliner deadlineSetter
	blockSize int
	timeout   time.Duration
}

// NewSerialSource opens the device file and prepares a framed reader
func NewSerialSource(device string, blockSize int, timeout time.Duration) (*SerialSource, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", blockSize)
	}

	f, err := os.OpenFile(device, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial device %s: %w", device, err)
	}

	s := newSerialSourceFromReader(f, blockSize, timeout)
	s.closer = f
	s.deadliner = f
	return s, nil
}

// newSerialSourceFromReader builds a source over any byte stream; used by
// tests and by NewSerialSource
func newSerialSourceFromReader(r io.Reader, blockSize int, timeout time.Duration) *SerialSource {
	return &SerialSource{
		scanner:   protocol.NewFrameScanner(r),
		blockSize: blockSize,
		timeout:   timeout,
	}
}

// ReadBlock reads the next frame from the stream. Frames shorter than the
// block size are zero-padded; longer frames are truncated to the block size.
func (s *SerialSource) ReadBlock(ctx context.Context) (*audio.Block, int, Status) {
	if s.deadliner != nil && s.timeout > 0 {
		if err := s.deadliner.SetReadDeadline(time.Now().Add(s.timeout)); err != nil {
			return nil, 0, StatusDriverError
		}
	}

	samples, err := s.scanner.ReadFrame()
	if err != nil {
		var timeoutErr interface{ Timeout() bool }
		if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
			return nil, 0, StatusTimeout
		}
		return nil, 0, StatusDriverError
	}

	block, n := padToBlock(samples, s.blockSize)
	return block, n, StatusOK
}

// Close closes the underlying device
func (s *SerialSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
