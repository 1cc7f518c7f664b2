// Package ratelimit implements the per-host adaptive rate limiter:
// Acquire(ctx, host) blocks until the host's current delay has elapsed
// since the last request to that host. Every host starts at the
// configured baseline delay; the delay widens whenever the caller reports
// a 429-equivalent and decays back toward baseline after a quiet
// cooldown. Acquire takes no per-call minimum delay, and a board's
// RateLimitDelay is not consulted.
package ratelimit

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"jobscraper/internal/config"
	"jobscraper/internal/logging"
)

// hostState tracks the adaptive delay and bookkeeping for one host.
type hostState struct {
	mu           sync.Mutex
	lastRequest  time.Time
	currentDelay time.Duration
	lastWidened  time.Time

	concurrency chan struct{}
}

// Limiter is the per-host adaptive rate limiter. Safe for concurrent use;
// Acquire serializes callers for the same host first-come-first-served via
// a per-host mutex held across the wait.
type Limiter struct {
	cfg    config.RateLimitConfig
	logger logging.Logger

	// global smooths total outbound request rate across every host;
	// nil when no global cap is configured.
	global *rate.Limiter

	mu    sync.Mutex
	hosts map[string]*hostState
}

// New builds a Limiter from the rate-limit section of the configuration.
func New(cfg config.RateLimitConfig, logger logging.Logger) *Limiter {
	var global *rate.Limiter
	if cfg.GlobalRPS > 0 {
		burst := cfg.GlobalBurst
		if burst < 1 {
			burst = 1
		}
		global = rate.NewLimiter(rate.Limit(cfg.GlobalRPS), burst)
	}
	return &Limiter{
		cfg:    cfg,
		logger: logger.WithField("component", "ratelimit"),
		global: global,
		hosts:  make(map[string]*hostState),
	}
}

func (l *Limiter) baselineDelay() time.Duration {
	if l.cfg.BaselineDelay > 0 {
		return l.cfg.BaselineDelay
	}
	return 2 * time.Second
}

func (l *Limiter) ceilingDelay() time.Duration {
	if l.cfg.CeilingDelay > 0 {
		return l.cfg.CeilingDelay
	}
	return 60 * time.Second
}

func (l *Limiter) cooldownWindow() time.Duration {
	if l.cfg.CooldownWindow > 0 {
		return l.cfg.CooldownWindow
	}
	return 5 * time.Minute
}

func (l *Limiter) stateFor(host string) *hostState {
	host = normalizeHost(host)
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.hosts[host]
	if !ok {
		st = &hostState{
			currentDelay: l.baselineDelay(),
			concurrency:  make(chan struct{}, l.maxConcurrent()),
		}
		l.hosts[host] = st
	}
	return st
}

func (l *Limiter) maxConcurrent() int {
	if l.cfg.MaxConcurrent > 0 {
		return l.cfg.MaxConcurrent
	}
	return 4
}

// AcquireSlot blocks until a concurrency slot for the host is free, in
// addition to (not instead of) the minimum-delay wait enforced by
// Acquire. Release must be called exactly once per successful
// AcquireSlot call, normally via defer.
func (l *Limiter) AcquireSlot(ctx context.Context, host string) (release func(), err error) {
	st := l.stateFor(host)
	select {
	case st.concurrency <- struct{}{}:
		return func() { <-st.concurrency }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Acquire blocks until at least the host's current effective minimum
// delay has elapsed since the last request to that host, then records
// "now" as the last request. It never fails except on context
// cancellation. Fairness within a host is first-come-first-served
// because the per-host mutex is held across the sleep.
func (l *Limiter) Acquire(ctx context.Context, host string) error {
	if l.global != nil {
		if err := l.global.Wait(ctx); err != nil {
			return err
		}
	}

	st := l.stateFor(host)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.maybeDecay(l.baselineDelay(), l.cooldownWindow())

	if !st.lastRequest.IsZero() {
		wait := st.currentDelay - time.Since(st.lastRequest)
		if wait > 0 {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	st.lastRequest = time.Now()
	return nil
}

// maybeDecay must be called with st.mu held. It narrows the effective
// delay back toward baseline once the host has gone a full cooldown
// window without a widening event.
func (st *hostState) maybeDecay(baseline, cooldown time.Duration) {
	if st.currentDelay <= baseline {
		return
	}
	if st.lastWidened.IsZero() {
		return
	}
	if time.Since(st.lastWidened) >= cooldown {
		st.currentDelay = baseline
		st.lastWidened = time.Time{}
	}
}

// ReportRateLimited doubles the host's effective delay (capped at the
// configured ceiling) in response to a 429-equivalent signal observed by
// the caller, and restarts the cooldown-to-decay clock.
func (l *Limiter) ReportRateLimited(host string) {
	st := l.stateFor(host)
	st.mu.Lock()
	defer st.mu.Unlock()

	widened := st.currentDelay * 2
	if ceiling := l.ceilingDelay(); widened > ceiling {
		widened = ceiling
	}
	if widened < l.baselineDelay() {
		widened = l.baselineDelay()
	}
	st.currentDelay = widened
	st.lastWidened = time.Now()

	l.logger.Info("widened rate limit delay", map[string]interface{}{
		"host":  host,
		"delay": widened.String(),
	})
}

// CurrentDelay reports the effective minimum delay currently in force
// for a host (for telemetry/inspection; not required for correctness).
func (l *Limiter) CurrentDelay(host string) time.Duration {
	st := l.stateFor(host)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.currentDelay
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		return u.Host
	}
	return host
}
