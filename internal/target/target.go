// Package target validates scan targets and resolves them to a single IP address.
package target

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"

	"github.com/JadenB9/mode/internal/config"
	"github.com/JadenB9/mode/internal/metrics"
	"github.com/JadenB9/mode/internal/scanerr"
)

const (
	maxHostnameLength = 253
	maxLabelLength    = 63
)

// Validate checks that target is an IP literal or a syntactically valid
// hostname. It performs no network I/O.
func Validate(target string) error {
	if target == "" {
		return invalid("Target cannot be empty")
	}

	if net.ParseIP(target) != nil {
		return nil
	}

	if len(target) > maxHostnameLength {
		return invalid("Hostname too long (max 253 characters)")
	}

	for _, label := range strings.Split(target, ".") {
		if label == "" || len(label) > maxLabelLength {
			return invalid("Invalid hostname format")
		}
		for _, c := range label {
			if !isAlphanumeric(c) && c != '-' {
				return invalid("Invalid hostname format (only alphanumeric and hyphens allowed)")
			}
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return invalid("Invalid hostname format (cannot start or end with hyphen)")
		}
	}

	return nil
}

func isAlphanumeric(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func invalid(msg string) error {
	return scanerr.New(scanerr.InvalidTarget, "validate", msg, nil)
}

// LookupFunc resolves a hostname to its addresses.
type LookupFunc func(ctx context.Context, host string) ([]net.IPAddr, error)

// Resolver turns validated targets into IP addresses, caching hostname lookups.
type Resolver struct {
	lookup  LookupFunc
	cache   *ristretto.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLookup replaces the system resolver, mainly for tests.
func WithLookup(fn LookupFunc) Option {
	return func(r *Resolver) { r.lookup = fn }
}

// NewResolver creates a Resolver. The cache is only allocated when enabled.
func NewResolver(cfg config.ResolverConfig, m *metrics.Metrics, logger *zap.SugaredLogger, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		lookup:  net.DefaultResolver.LookupIPAddr,
		ttl:     time.Duration(cfg.CacheTTL) * time.Second,
		metrics: m,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}

	if cfg.CacheEnabled && r.ttl > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: 1e4,
			MaxCost:     1 << 20,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create resolver cache: %w", err)
		}
		r.cache = cache
	}

	return r, nil
}

// Close releases the cache.
func (r *Resolver) Close() {
	if r.cache != nil {
		r.cache.Close()
	}
}

// Resolve validates target and returns the address to probe. IP literals
// are returned without I/O; hostnames resolve to their first address.
func (r *Resolver) Resolve(ctx context.Context, target string) (net.IP, error) {
	if err := Validate(target); err != nil {
		return nil, err
	}

	if ip := net.ParseIP(target); ip != nil {
		return ip, nil
	}

	key := strings.ToLower(target)
	if r.cache != nil {
		if v, ok := r.cache.Get(key); ok {
			r.metrics.ObserveCache(true)
			return v.(net.IP), nil
		}
		r.metrics.ObserveCache(false)
	}

	addrs, err := r.lookup(ctx, target)
	if err != nil {
		return nil, scanerr.New(scanerr.ResolutionFailed, "resolve",
			fmt.Sprintf("Failed to resolve target %s", target), err)
	}
	if len(addrs) == 0 {
		return nil, scanerr.New(scanerr.ResolutionFailed, "resolve",
			fmt.Sprintf("Failed to resolve hostname: %s", target), nil)
	}

	ip := addrs[0].IP
	if r.cache != nil {
		r.cache.SetWithTTL(key, ip, 1, r.ttl)
	}

	r.logger.Debugw("Target resolved",
		"target", target,
		"ip", ip.String(),
		"candidates", len(addrs),
	)

	return ip, nil
}
