// Package source provides acquisition sources that deliver fixed-size
// blocks of PCM-16 samples to the capture loop. Sources share
// blocking-with-timeout read semantics and a three-valued status so the
// loop can treat timeouts and driver errors uniformly as skip-and-retry.
package source
