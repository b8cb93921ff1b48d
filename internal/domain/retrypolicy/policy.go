// Package retrypolicy computes backoff delays and retry eligibility for
// failed fetch attempts.
package retrypolicy

import (
	"math"
	"math/rand"
	"time"
)

// Config parameterizes the exponential backoff curve.
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	ExponentialBase float64
	Jitter          bool
}

// DefaultConfig mirrors the crawl defaults: three retries, 1s base, 60s cap,
// doubling, with jitter.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseDelay:       time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	}
}

// Policy decides whether and when a failed target is retried.
type Policy struct {
	cfg Config
	rng *rand.Rand
}

// New constructs a Policy from cfg, correcting non-positive values to the
// defaults.
func New(cfg Config) *Policy {
	def := DefaultConfig()
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.ExponentialBase <= 1 {
		cfg.ExponentialBase = def.ExponentialBase
	}
	return &Policy{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // backoff jitter needs no crypto entropy
	}
}

// MaxRetries exposes the configured retry cap.
func (p *Policy) MaxRetries() int {
	return p.cfg.MaxRetries
}

// Delay returns min(base * exponentialBase^retryCount, maxDelay). With jitter
// enabled a uniform offset within ±25% of that value is added; the result is
// floored at zero.
func (p *Policy) Delay(retryCount int) time.Duration {
	base := p.cfg.BaseDelay.Seconds() * math.Pow(p.cfg.ExponentialBase, float64(retryCount))
	delay := math.Min(base, p.cfg.MaxDelay.Seconds())

	if p.cfg.Jitter {
		jitterRange := delay * 0.25
		delay += (p.rng.Float64()*2 - 1) * jitterRange
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay * float64(time.Second))
}

// ShouldRetry reports whether another attempt is allowed. Abuse-classified
// failures are never auto-retried.
func (p *Policy) ShouldRetry(retryCount int, isAbuse bool) bool {
	if isAbuse {
		return false
	}
	return retryCount < p.cfg.MaxRetries
}
