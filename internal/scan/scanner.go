// Package scan implements the concurrent port sweep: one bounded-duration
// TCP probe per port across the full port space, gated by a counting
// admission limiter.
package scan

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/HerbHall/portscout/internal/event"
	"github.com/HerbHall/portscout/internal/svcmap"
	"github.com/HerbHall/portscout/internal/target"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// The scanned port space: every TCP port, enumerated exactly once.
const (
	FirstPort = 1
	LastPort  = 65535

	// PortCount is the number of ports in a full sweep.
	PortCount = LastPort - FirstPort + 1
)

// outcome is the terminal result for a single port. Exactly one is
// produced per port, on every path, including cancellation and panics.
type outcome struct {
	port int
	open bool
}

// Result aggregates one sweep.
type Result struct {
	Target    *target.Target
	OpenPorts []int // ascending
	Probed    int   // terminal outcomes collected; PortCount on a full sweep
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}

// reachabilityChecker is the advisory ICMP pre-check. *Pinger implements it.
type reachabilityChecker interface {
	Reachable(ctx context.Context, ip string) bool
}

// Scanner sweeps the full port space against one target with bounded
// parallelism. One goroutine is spawned per port; the Limiter bounds how
// many probes are live at once, the pacer (off by default) bounds the
// probe launch rate.
type Scanner struct {
	prober  Prober
	limiter *Limiter
	pacer   *rate.Limiter
	pinger  reachabilityChecker
	bus     *event.Bus
	logger  *zap.Logger
}

// NewScanner builds a scanner from config. bus may be nil, in which case
// no events are published.
func NewScanner(cfg Config, bus *event.Bus, logger *zap.Logger) *Scanner {
	pacer := rate.NewLimiter(rate.Inf, 0)
	if cfg.MaxRate > 0 {
		pacer = rate.NewLimiter(rate.Limit(cfg.MaxRate), cfg.MaxRate)
	}
	var pinger reachabilityChecker
	if cfg.PingFirst {
		pinger = NewPinger(cfg.PingTimeout, cfg.PingCount, logger.Named("ping"))
	}
	return &Scanner{
		prober:  NewConnectProber(cfg.ProbeTimeout),
		limiter: NewLimiter(cfg.Concurrency),
		pacer:   pacer,
		pinger:  pinger,
		bus:     bus,
		logger:  logger,
	}
}

// Run probes every port on the target and returns the set of open ports in
// ascending order. Per-port failures (refused, timed out, unreachable) are
// contained and never abort the sweep. Run blocks until every port has a
// terminal outcome; if ctx is cancelled mid-sweep the partial result is
// returned together with ctx.Err().
func (s *Scanner) Run(ctx context.Context, tgt *target.Target) (*Result, error) {
	started := time.Now().UTC()

	if s.pinger != nil {
		if s.pinger.Reachable(ctx, tgt.IP) {
			s.logger.Debug("target answered ICMP", zap.String("ip", tgt.IP))
		} else {
			s.logger.Warn("target did not answer ICMP, scanning anyway",
				zap.String("ip", tgt.IP))
		}
	}

	s.publish(ctx, TopicScanStarted, ScanStartedEvent{Target: tgt.Display(), Ports: PortCount})
	s.logger.Info("scan started",
		zap.String("target", tgt.IP),
		zap.Int("ports", PortCount),
		zap.Int("concurrency", s.limiter.Capacity()),
	)

	results := make(chan outcome, 256)
	var wg sync.WaitGroup

	for port := FirstPort; port <= LastPort; port++ {
		wg.Add(1)
		go s.probePort(ctx, tgt.IP, port, results, &wg)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single consumer: no other goroutine touches the open-port slice, so
	// the limiter's counter is the only shared mutable state in the sweep.
	res := &Result{Target: tgt, StartedAt: started}
	for out := range results {
		res.Probed++
		if !out.open {
			continue
		}
		res.OpenPorts = append(res.OpenPorts, out.port)
		s.publish(ctx, TopicPortOpen, PortOpenEvent{Port: out.port, Service: svcmap.Name(out.port)})
	}

	// Outcomes arrive in completion order; sort for deterministic output.
	sort.Ints(res.OpenPorts)
	res.EndedAt = time.Now().UTC()
	res.Duration = res.EndedAt.Sub(res.StartedAt)

	if err := ctx.Err(); err != nil {
		s.logger.Warn("scan cancelled",
			zap.Int("probed", res.Probed),
			zap.Int("open", len(res.OpenPorts)),
		)
		return res, err
	}

	s.publish(ctx, TopicScanCompleted, res)
	s.logger.Info("scan completed",
		zap.String("target", tgt.IP),
		zap.Int("open", len(res.OpenPorts)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// probePort is one unit of work: wait for the pacer, acquire a limiter
// slot, probe, and report exactly one outcome. The slot is released on
// every path. A panicking probe is logged and resolves to not open, so
// the join phase can neither hang nor silently lose a port.
func (s *Scanner) probePort(ctx context.Context, ip string, port int, results chan<- outcome, wg *sync.WaitGroup) {
	defer wg.Done()

	open := false
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("probe panicked",
				zap.Int("port", port),
				zap.Any("panic", r),
			)
		}
		results <- outcome{port: port, open: open}
	}()

	if err := s.pacer.Wait(ctx); err != nil {
		return
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return // cancelled while queued for a slot
	}
	defer s.limiter.Release()

	open = s.prober.Probe(ctx, ip, port)
}

func (s *Scanner) publish(ctx context.Context, topic string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event.Event{
		Topic:     topic,
		Source:    "scan",
		Timestamp: time.Now(),
		Payload:   payload,
	})
}
