package scan

import (
	"context"
	"net"
	"strconv"
	"time"
)

// DefaultProbeTimeout bounds a single connection attempt.
const DefaultProbeTimeout = time.Second

// Prober reports whether a single TCP port on a host accepts connections.
type Prober interface {
	Probe(ctx context.Context, ip string, port int) bool
}

// Compile-time interface guard.
var _ Prober = (*ConnectProber)(nil)

// ConnectProber probes with one full TCP connection attempt per port.
type ConnectProber struct {
	timeout time.Duration
}

// NewConnectProber creates a prober with the given per-attempt timeout.
func NewConnectProber(timeout time.Duration) *ConnectProber {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &ConnectProber{timeout: timeout}
}

// Probe attempts a TCP connection to ip:port. A connection established
// within the timeout is open; refused, timed out, and unreachable all
// collapse to not open. A single attempt is authoritative -- no retries.
func (p *ConnectProber) Probe(ctx context.Context, ip string, port int) bool {
	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	d := net.Dialer{Timeout: p.timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
