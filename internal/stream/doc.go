// Package stream implements the capture-and-stream loop: each cycle reads
// one block from the acquisition source, runs the filter, feature and
// classification chain, and publishes a text/binary frame pair to the
// attached consumer.
package stream
