package protocol

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Frame layout constants
const (
	// FrameMagic marks the start of every frame on the wire
	FrameMagic = 0xAA55

	// HeaderSize is magic (2) + sample count (2), both big-endian
	HeaderSize = 4

	// BytesPerSample is the width of one PCM-16 sample
	BytesPerSample = 2

	// MaxSamplesPerFrame bounds the sample count field so a corrupted
	// header cannot trigger an unbounded read
	MaxSamplesPerFrame = 4096
)

// Header represents the 4-byte frame header
// Layout: [Magic:2 BE][SampleCount:2 BE]
type Header struct {
	Magic       uint16
	SampleCount uint16
}

// ParseHeader parses the 4-byte frame header
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("header too short: expected %d bytes, got %d", HeaderSize, len(data))
	}

	header := &Header{
		Magic:       binary.BigEndian.Uint16(data[0:2]),
		SampleCount: binary.BigEndian.Uint16(data[2:4]),
	}

	if err := ValidateHeader(header); err != nil {
		return nil, err
	}

	return header, nil
}

// ValidateHeader validates the frame header fields
func ValidateHeader(header *Header) error {
	if header.Magic != FrameMagic {
		return fmt.Errorf("invalid frame magic: expected 0x%04X, got 0x%04X", FrameMagic, header.Magic)
	}

	if header.SampleCount == 0 {
		return fmt.Errorf("frame sample count cannot be zero")
	}

	if header.SampleCount > MaxSamplesPerFrame {
		return fmt.Errorf("frame sample count too large: %d (maximum %d)",
			header.SampleCount, MaxSamplesPerFrame)
	}

	return nil
}

// EncodeFrame encodes PCM-16 samples into a complete wire frame
func EncodeFrame(samples []int16) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("cannot encode empty frame")
	}

	if len(samples) > MaxSamplesPerFrame {
		return nil, fmt.Errorf("too many samples for one frame: %d (maximum %d)",
			len(samples), MaxSamplesPerFrame)
	}

	buf := make([]byte, HeaderSize+len(samples)*BytesPerSample)
	binary.BigEndian.PutUint16(buf[0:2], FrameMagic)
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(samples)))

	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[HeaderSize+i*2:], uint16(s))
	}

	return buf, nil
}

// DecodeFrame decodes a complete frame held in a single buffer (one UDP
// datagram is one frame)
func DecodeFrame(data []byte) ([]int16, error) {
	header, err := ParseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	payloadLen := int(header.SampleCount) * BytesPerSample
	if len(data) < HeaderSize+payloadLen {
		return nil, fmt.Errorf("frame payload too short: expected %d bytes, got %d",
			payloadLen, len(data)-HeaderSize)
	}

	return decodeSamples(data[HeaderSize:HeaderSize+payloadLen], int(header.SampleCount)), nil
}

// decodeSamples converts little-endian PCM-16 bytes into samples
func decodeSamples(data []byte, count int) []int16 {
	samples := make([]int16, count)
	for i := 0; i < count; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return samples
}

// FrameScanner reads frames from a byte stream, resynchronizing on the
// magic marker after any corruption
type FrameScanner struct {
	r *bufio.Reader
}

// NewFrameScanner creates a scanner over the given stream
func NewFrameScanner(r io.Reader) *FrameScanner {
	return &FrameScanner{r: bufio.NewReader(r)}
}

// ReadFrame scans forward to the next magic marker and reads one complete
// frame. It returns the decoded samples, or an error if the underlying
// stream fails before a frame completes.
func (s *FrameScanner) ReadFrame() ([]int16, error) {
	if err := s.syncToMagic(); err != nil {
		return nil, err
	}

	// Magic already consumed; read the sample count
	countBytes := make([]byte, 2)
	if _, err := io.ReadFull(s.r, countBytes); err != nil {
		return nil, fmt.Errorf("failed to read sample count: %w", err)
	}

	count := binary.BigEndian.Uint16(countBytes)
	if count == 0 || count > MaxSamplesPerFrame {
		// Corrupted length field; the next ReadFrame resyncs on the marker
		return nil, fmt.Errorf("invalid frame sample count: %d", count)
	}

	payload := make([]byte, int(count)*BytesPerSample)
	if _, err := io.ReadFull(s.r, payload); err != nil {
		return nil, fmt.Errorf("failed to read frame payload: %w", err)
	}

	return decodeSamples(payload, int(count)), nil
}

// syncToMagic consumes bytes until the two-byte magic marker is seen
func (s *FrameScanner) syncToMagic() error {
	const (
		magicHi = byte(FrameMagic >> 8)
		magicLo = byte(FrameMagic & 0xFF)
	)

	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return fmt.Errorf("failed to scan for frame marker: %w", err)
		}
		if b != magicHi {
			continue
		}

		next, err := s.r.Peek(1)
		if err != nil {
			return fmt.Errorf("failed to scan for frame marker: %w", err)
		}
		if next[0] != magicLo {
			continue
		}

		// Consume the low byte; header magic fully matched
		if _, err := s.r.ReadByte(); err != nil {
			return fmt.Errorf("failed to scan for frame marker: %w", err)
		}
		return nil
	}
}

// String returns a human-readable representation of the header
func (h *Header) String() string {
	return fmt.Sprintf("Header{Magic:0x%04X, SampleCount:%d}", h.Magic, h.SampleCount)
}
