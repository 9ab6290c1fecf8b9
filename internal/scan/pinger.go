package scan

import (
	"context"
	"runtime"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
)

// Pinger checks target reachability with ICMP ahead of a sweep.
type Pinger struct {
	timeout time.Duration
	count   int
	logger  *zap.Logger
}

// NewPinger creates an ICMP pinger.
func NewPinger(timeout time.Duration, count int, logger *zap.Logger) *Pinger {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if count <= 0 {
		count = 1
	}
	return &Pinger{timeout: timeout, count: count, logger: logger}
}

// Reachable pings the host and reports whether any reply arrived.
// ICMP is frequently filtered, so a false result is advisory only --
// callers must not gate the sweep on it.
func (p *Pinger) Reachable(ctx context.Context, ip string) bool {
	pinger, err := probing.NewPinger(ip)
	if err != nil {
		p.logger.Debug("failed to create pinger", zap.String("ip", ip), zap.Error(err))
		return false
	}

	pinger.Count = p.count
	pinger.Timeout = p.timeout
	pinger.SetPrivileged(runtime.GOOS == "windows")

	done := make(chan struct{})
	go func() {
		defer close(done)
		if runErr := pinger.Run(); runErr != nil {
			p.logger.Debug("ping failed", zap.String("ip", ip), zap.Error(runErr))
		}
	}()

	select {
	case <-done:
	case <-ctx.Done():
		pinger.Stop()
		return false
	}

	return pinger.Statistics().PacketsRecv > 0
}
