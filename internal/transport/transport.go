// Package transport provides the preview/debug data sinks: generic fan-out
// interfaces plus WebSocket and UDP implementations. Transports are side
// channels for renderers and visualizers; they are not part of the decode
// critical path and never apply backpressure to it.
package transport

// Transport defines a generic interface for sending processed data or
// events. Implementations must be thread-safe and non-blocking.
type Transport interface {
	Send(data any) error
	Close() error
}

// MagnitudeConsumer is implemented by sibling consumers of the analyzer's
// per-block carrier magnitude maps (feedback synthesizer, UDP publisher).
// Consume must not retain the map.
type MagnitudeConsumer interface {
	Consume(mags map[int]float64)
}
