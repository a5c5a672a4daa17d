package source

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Kamalbura/micstream/internal/audio"
	"github.com/Kamalbura/micstream/internal/protocol"
)

// UDPSource receives one frame per datagram from the firmware's WiFi
// transport. Datagrams use the same codec as the serial stream: magic,
// sample count, little-endian PCM payload.
type UDPSource struct {
	conn      *net.UDPConn
	buffer    []byte
	blockSize int
	timeout   time.Duration
}

// NewUDPSource binds the listening socket
func NewUDPSource(bindAddress string, port int, bufferSize int, blockSize int, timeout time.Duration) (*UDPSource, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("block size must be positive, got %d", blockSize)
	}

	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", bindAddress, port))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP: %w", err)
	}

	// Best effort; the kernel default buffer still delivers datagrams
	_ = conn.SetReadBuffer(bufferSize)

	return &UDPSource{
		conn:      conn,
		buffer:    make([]byte, bufferSize),
		blockSize: blockSize,
		timeout:   timeout,
	}, nil
}

// ReadBlock waits for the next datagram, bounded by the read timeout
func (u *UDPSource) ReadBlock(ctx context.Context) (*audio.Block, int, Status) {
	if err := u.conn.SetReadDeadline(time.Now().Add(u.timeout)); err != nil {
		return nil, 0, StatusDriverError
	}

	n, _, err := u.conn.ReadFromUDP(u.buffer)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, 0, StatusTimeout
		}
		return nil, 0, StatusDriverError
	}

	samples, err := protocol.DecodeFrame(u.buffer[:n])
	if err != nil {
		// Malformed datagram counts as a driver failure for this cycle
		return nil, 0, StatusDriverError
	}

	block, count := padToBlock(samples, u.blockSize)
	return block, count, StatusOK
}

// Close closes the listening socket
func (u *UDPSource) Close() error {
	return u.conn.Close()
}

// LocalAddr returns the bound address, useful when port 0 was requested
func (u *UDPSource) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}
