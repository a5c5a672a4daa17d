// Package server provides the consumer-facing transport: a WebSocket
// endpoint carrying the text/binary frame pairs produced by the capture
// loop, and an HTTP API for monitoring and management.
package server
