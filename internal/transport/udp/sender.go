// Package udp publishes carrier magnitude snapshots over UDP for external
// spectrum visualizers.
package udp

import (
	"fmt"
	"net"
	"sync"

	applog "lumitone/internal/log"
)

// Sender handles sending data packets over UDP.
type Sender struct {
	conn       *net.UDPConn
	targetAddr *net.UDPAddr
	mu         sync.Mutex // Protects conn during Close
	closed     bool
}

// NewSender creates a Sender targeting the specified address, in the
// format "host:port", e.g. "127.0.0.1:9090".
func NewSender(targetAddress string) (*Sender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address '%s': %w", targetAddress, err)
	}

	// No specific local port is needed for sending.
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP for target '%s': %w", targetAddress, err)
	}

	applog.Infof("transport: UDP sender established to %s", conn.RemoteAddr())

	return &Sender{
		conn:       conn,
		targetAddr: udpAddr,
	}, nil
}

// Send writes one packet. Errors are returned to the caller; UDP delivery
// itself is best-effort.
func (s *Sender) Send(packet []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("UDP sender is closed")
	}
	if _, err := s.conn.Write(packet); err != nil {
		return fmt.Errorf("UDP write failed: %w", err)
	}
	return nil
}

// Close closes the underlying connection. Safe to call more than once.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
