// Package target validates and resolves scan targets to a single IPv4 address.
package target

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
)

// Input errors reported before any scanning begins.
var (
	ErrNoTarget    = errors.New("either an IP address (-ip) or a domain name (-domain) must be provided")
	ErrBothTargets = errors.New("provide either an IP address or a domain name, not both")
)

// Target is a validated scan destination. IP is always a dotted-quad IPv4
// string; Domain is set only when the target was resolved from a name.
// Immutable once resolved.
type Target struct {
	IP     string
	Domain string
}

// Display returns the identity used in scan reports:
// "<domain> (<ip>)" when a domain was given, else "<ip>".
func (t *Target) Display() string {
	if t.Domain != "" {
		return fmt.Sprintf("%s (%s)", t.Domain, t.IP)
	}
	return t.IP
}

// LookupFunc resolves a host name to IP addresses.
type LookupFunc func(ctx context.Context, host string) ([]net.IP, error)

// Resolver turns user-supplied target input into a validated IPv4 Target.
type Resolver struct {
	lookup  LookupFunc
	timeout time.Duration
	logger  *zap.Logger
}

// NewResolver creates a resolver backed by the system DNS resolver.
func NewResolver(timeout time.Duration, logger *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		lookup: func(ctx context.Context, host string) ([]net.IP, error) {
			return net.DefaultResolver.LookupIP(ctx, "ip4", host)
		},
		timeout: timeout,
		logger:  logger,
	}
}

// Resolve validates the ip/domain pair and returns the scan target.
// Exactly one of ip and domain must be non-empty. IPv6 input is rejected
// here: scanning is IPv4-only and the policy is enforced at this boundary,
// not inside the prober.
func (r *Resolver) Resolve(ctx context.Context, ip, domain string) (*Target, error) {
	switch {
	case ip == "" && domain == "":
		return nil, ErrNoTarget
	case ip != "" && domain != "":
		return nil, ErrBothTargets
	case ip != "":
		return parseIPv4(ip)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ips, err := r.lookup(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("resolve domain %q: %w", domain, err)
	}
	for _, addr := range ips {
		v4 := addr.To4()
		if v4 == nil {
			continue
		}
		r.logger.Debug("domain resolved",
			zap.String("domain", domain),
			zap.String("ip", v4.String()),
		)
		return &Target{IP: v4.String(), Domain: domain}, nil
	}
	return nil, fmt.Errorf("domain %q did not resolve to an IPv4 address", domain)
}

// parseIPv4 validates an IP literal and normalizes it to dotted-quad form.
func parseIPv4(ip string) (*Target, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("invalid IP address %q", ip)
	}
	v4 := parsed.To4()
	if v4 == nil {
		return nil, fmt.Errorf("IP address %q is not IPv4", ip)
	}
	return &Target{IP: v4.String()}, nil
}
