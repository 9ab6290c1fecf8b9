package scan

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HerbHall/portscout/internal/event"
	"github.com/HerbHall/portscout/internal/target"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// fakeProber returns canned answers and counts calls per port.
type fakeProber struct {
	open     map[int]bool
	calls    []int32 // indexed by port, updated atomically
	panicOn  int
	panicAll bool
	hold     bool // block until ctx is cancelled
}

func newFakeProber(openPorts ...int) *fakeProber {
	open := make(map[int]bool, len(openPorts))
	for _, p := range openPorts {
		open[p] = true
	}
	return &fakeProber{open: open, calls: make([]int32, LastPort+1)}
}

func (f *fakeProber) Probe(ctx context.Context, ip string, port int) bool {
	atomic.AddInt32(&f.calls[port], 1)
	if f.panicAll || (f.panicOn != 0 && port == f.panicOn) {
		panic("probe exploded")
	}
	if f.hold {
		<-ctx.Done()
		return false
	}
	return f.open[port]
}

func testScanner(p Prober, concurrency int, bus *event.Bus) *Scanner {
	return &Scanner{
		prober:  p,
		limiter: NewLimiter(concurrency),
		pacer:   rate.NewLimiter(rate.Inf, 0),
		bus:     bus,
		logger:  zap.NewNop(),
	}
}

func TestScanner_FullSweepEveryPortOnce(t *testing.T) {
	fake := newFakeProber(8080, 443, 22, 80)
	s := testScanner(fake, DefaultConcurrency, nil)

	res, err := s.Run(context.Background(), &target.Target{IP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Probed != PortCount {
		t.Errorf("Probed = %d, want %d", res.Probed, PortCount)
	}
	want := []int{22, 80, 443, 8080}
	if !reflect.DeepEqual(res.OpenPorts, want) {
		t.Errorf("OpenPorts = %v, want %v", res.OpenPorts, want)
	}
	for port := FirstPort; port <= LastPort; port++ {
		if n := atomic.LoadInt32(&fake.calls[port]); n != 1 {
			t.Fatalf("port %d probed %d times, want exactly 1", port, n)
		}
	}
	if res.Duration <= 0 {
		t.Errorf("Duration = %v, want positive", res.Duration)
	}
}

// ceilingProber records the maximum number of concurrent probes.
type ceilingProber struct {
	inflight int32
	max      int32
}

func (c *ceilingProber) Probe(ctx context.Context, ip string, port int) bool {
	cur := atomic.AddInt32(&c.inflight, 1)
	for {
		prev := atomic.LoadInt32(&c.max)
		if cur <= prev || atomic.CompareAndSwapInt32(&c.max, prev, cur) {
			break
		}
	}
	time.Sleep(50 * time.Microsecond)
	atomic.AddInt32(&c.inflight, -1)
	return false
}

func TestScanner_ConcurrencyCeiling(t *testing.T) {
	const capacity = 50
	probe := &ceilingProber{}
	s := testScanner(probe, capacity, nil)

	if _, err := s.Run(context.Background(), &target.Target{IP: "127.0.0.1"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	max := atomic.LoadInt32(&probe.max)
	if max > capacity {
		t.Errorf("observed %d concurrent probes, capacity is %d", max, capacity)
	}
	if max < 2 {
		t.Errorf("observed %d concurrent probes, expected parallelism", max)
	}
}

func TestScanner_PanickingProbeStillResolves(t *testing.T) {
	fake := newFakeProber(31338)
	fake.panicOn = 31337
	s := testScanner(fake, DefaultConcurrency, nil)

	type runResult struct {
		res *Result
		err error
	}
	done := make(chan runResult, 1)
	go func() {
		res, err := s.Run(context.Background(), &target.Target{IP: "127.0.0.1"})
		done <- runResult{res, err}
	}()

	var got runResult
	select {
	case got = <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("sweep did not complete: panicking probe stalled the join")
	}

	if got.err != nil {
		t.Fatalf("Run failed: %v", got.err)
	}
	if got.res.Probed != PortCount {
		t.Errorf("Probed = %d, want %d", got.res.Probed, PortCount)
	}
	want := []int{31338}
	if !reflect.DeepEqual(got.res.OpenPorts, want) {
		t.Errorf("OpenPorts = %v, want %v (panicking port resolves to not open)", got.res.OpenPorts, want)
	}
}

// A probe panicking while it holds a slot must still return the slot: run
// a sweep where every probe panics with a capacity far below the port
// count. Any leak would exhaust the limiter and deadlock the sweep.
func TestScanner_PanicsDoNotLeakSlots(t *testing.T) {
	const capacity = 8
	fake := newFakeProber()
	fake.panicAll = true
	s := testScanner(fake, capacity, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background(), &target.Target{IP: "127.0.0.1"})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(60 * time.Second):
		t.Fatal("sweep deadlocked: a panicking probe leaked its slot")
	}

	// Every slot must be back: the full capacity is immediately acquirable.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := 0; i < capacity; i++ {
		if err := s.limiter.Acquire(ctx); err != nil {
			t.Fatalf("slot %d not returned after sweep: %v", i, err)
		}
	}
}

func TestScanner_CancelMidSweep(t *testing.T) {
	fake := newFakeProber()
	fake.hold = true
	s := testScanner(fake, DefaultConcurrency, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	res, err := s.Run(ctx, &target.Target{IP: "127.0.0.1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if res == nil {
		t.Fatal("Run returned nil result on cancellation, want partial result")
	}
	// Cancellation resolves queued and in-flight ports to not open; none
	// may be dropped.
	if res.Probed != PortCount {
		t.Errorf("Probed = %d, want %d", res.Probed, PortCount)
	}
	if len(res.OpenPorts) != 0 {
		t.Errorf("OpenPorts = %v, want none", res.OpenPorts)
	}
}

func TestScanner_PublishesEvents(t *testing.T) {
	bus := event.NewBus(zap.NewNop())

	var started []ScanStartedEvent
	bus.Subscribe(TopicScanStarted, func(ctx context.Context, e event.Event) {
		started = append(started, e.Payload.(ScanStartedEvent))
	})
	var opened []PortOpenEvent
	bus.Subscribe(TopicPortOpen, func(ctx context.Context, e event.Event) {
		opened = append(opened, e.Payload.(PortOpenEvent))
	})
	var completed []*Result
	bus.Subscribe(TopicScanCompleted, func(ctx context.Context, e event.Event) {
		completed = append(completed, e.Payload.(*Result))
	})

	fake := newFakeProber(22, 80, 443, 8080)
	s := testScanner(fake, DefaultConcurrency, bus)
	res, err := s.Run(context.Background(), &target.Target{IP: "127.0.0.1"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(started) != 1 {
		t.Fatalf("got %d scan.started events, want 1", len(started))
	}
	if started[0].Target != "127.0.0.1" || started[0].Ports != PortCount {
		t.Errorf("started event = %+v, want target 127.0.0.1 and %d ports", started[0], PortCount)
	}

	// Discoveries are published in completion order, so compare as a set.
	if len(opened) != 4 {
		t.Fatalf("got %d scan.port_open events, want 4", len(opened))
	}
	services := make(map[int]string, len(opened))
	for _, e := range opened {
		services[e.Port] = e.Service
	}
	wantServices := map[int]string{22: "SSH", 80: "HTTP", 443: "HTTPS", 8080: "unknown"}
	for port, service := range wantServices {
		if services[port] != service {
			t.Errorf("service for port %d = %q, want %q", port, services[port], service)
		}
	}

	if len(completed) != 1 {
		t.Fatalf("got %d scan.completed events, want 1", len(completed))
	}
	if completed[0] != res {
		t.Error("scan.completed payload is not the returned result")
	}
}

func TestScanner_RepeatSweepsIdentical(t *testing.T) {
	fake := newFakeProber(1, 443, 8080, 65535)
	s := testScanner(fake, DefaultConcurrency, nil)
	tgt := &target.Target{IP: "127.0.0.1"}

	first, err := s.Run(context.Background(), tgt)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	second, err := s.Run(context.Background(), tgt)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	if !reflect.DeepEqual(first.OpenPorts, second.OpenPorts) {
		t.Errorf("sweeps disagree: %v vs %v", first.OpenPorts, second.OpenPorts)
	}
	if first.Probed != second.Probed {
		t.Errorf("Probed differs between sweeps: %d vs %d", first.Probed, second.Probed)
	}
}

func TestNewScanner_Defaults(t *testing.T) {
	s := NewScanner(DefaultConfig(), nil, zap.NewNop())

	if got := s.limiter.Capacity(); got != DefaultConcurrency {
		t.Errorf("limiter capacity = %d, want %d", got, DefaultConcurrency)
	}
	cp, ok := s.prober.(*ConnectProber)
	if !ok {
		t.Fatalf("prober is %T, want *ConnectProber", s.prober)
	}
	if cp.timeout != DefaultProbeTimeout {
		t.Errorf("probe timeout = %v, want %v", cp.timeout, DefaultProbeTimeout)
	}
	if s.pacer.Limit() != rate.Inf {
		t.Errorf("pacer limit = %v, want unlimited", s.pacer.Limit())
	}
	if s.pinger == nil {
		t.Error("pinger is nil, want ICMP pre-check enabled by default")
	}
}

func TestNewScanner_RateAndPingOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRate = 100
	cfg.PingFirst = false

	s := NewScanner(cfg, nil, zap.NewNop())
	if s.pacer.Limit() != rate.Limit(100) {
		t.Errorf("pacer limit = %v, want 100", s.pacer.Limit())
	}
	if s.pacer.Burst() != 100 {
		t.Errorf("pacer burst = %d, want 100", s.pacer.Burst())
	}
	if s.pinger != nil {
		t.Error("pinger enabled, want disabled when ping_first is off")
	}
}
