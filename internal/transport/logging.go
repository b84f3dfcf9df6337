package transport

import (
	applog "lumitone/internal/log"
)

// LoggingTransport implements the Transport interface by logging data at
// debug level. Useful for headless runs and tests.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	return &LoggingTransport{}
}

// Send logs the received data at debug level.
func (lt *LoggingTransport) Send(data any) error {
	applog.Debugf("transport: %+v", data)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
