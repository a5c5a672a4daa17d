// Package protocol implements the device PCM frame codec.
// It handles the binary framing used by the firmware on its serial and WiFi
// transports: a magic marker, a big-endian sample count, and little-endian
// signed 16-bit PCM payload, with stream resynchronization on the marker.
package protocol
