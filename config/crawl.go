package config

import "time"

// CrawlConfig parameterizes the batch orchestration loop.
type CrawlConfig struct {
	// BatchSize is the number of pending targets claimed per iteration.
	BatchSize int `env:"CRAWL_BATCH_SIZE" envDefault:"10"`
	// ConcurrentLimit bounds in-flight fetches within a batch.
	ConcurrentLimit int `env:"CRAWL_CONCURRENT_LIMIT" envDefault:"5"`
	// InterBatchDelay is the sleep between batch iterations.
	InterBatchDelay time.Duration `env:"CRAWL_INTER_BATCH_DELAY" envDefault:"2s"`
	// AutoPause enables the abuse-ratio trip.
	AutoPause bool `env:"CRAWL_AUTO_PAUSE" envDefault:"true"`
	// AbuseRatioThreshold pauses a job when a batch's abuse failure ratio
	// strictly exceeds it.
	AbuseRatioThreshold float64 `env:"CRAWL_ABUSE_RATIO_THRESHOLD" envDefault:"0.5"`
	// RecentDetections is how many abuse log entries resume info includes.
	RecentDetections int `env:"CRAWL_RECENT_DETECTIONS" envDefault:"5"`
	// UserAgent is sent by the built-in HTTP fetcher.
	UserAgent string `env:"CRAWL_USER_AGENT" envDefault:"harvester/1.0"`
}

// Sanitize applies guardrails to crawl configuration values.
func (c *CrawlConfig) Sanitize() {
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.ConcurrentLimit <= 0 {
		c.ConcurrentLimit = 5
	}
	if c.ConcurrentLimit > c.BatchSize {
		c.ConcurrentLimit = c.BatchSize
	}
	if c.InterBatchDelay < 0 {
		c.InterBatchDelay = 0
	}
	if c.AbuseRatioThreshold <= 0 || c.AbuseRatioThreshold > 1 {
		c.AbuseRatioThreshold = 0.5
	}
	if c.RecentDetections <= 0 {
		c.RecentDetections = 5
	}
}

// RetryConfig parameterizes the per-target retry policy.
type RetryConfig struct {
	// MaxRetries caps automatic retries per target.
	MaxRetries int `env:"RETRY_MAX" envDefault:"3"`
	// BaseDelay is the first backoff step.
	BaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`
	// MaxDelay caps the backoff curve.
	MaxDelay time.Duration `env:"RETRY_MAX_DELAY" envDefault:"60s"`
	// ExponentialBase is the backoff growth factor.
	ExponentialBase float64 `env:"RETRY_EXPONENTIAL_BASE" envDefault:"2.0"`
	// Jitter adds a uniform ±25% offset to each delay.
	Jitter bool `env:"RETRY_JITTER" envDefault:"true"`
}

// Sanitize applies guardrails to retry configuration values.
func (c *RetryConfig) Sanitize() {
	if c.MaxRetries < 0 {
		c.MaxRetries = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = 60 * time.Second
	}
	if c.ExponentialBase <= 1 {
		c.ExponentialBase = 2.0
	}
}

// ReaperConfig parameterizes the stale-processing sweep.
type ReaperConfig struct {
	// Interval is how often the sweep runs.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"1m"`
	// ProcessingMaxAge is how long a record may sit in processing before it is
	// considered orphaned by a crashed run.
	ProcessingMaxAge time.Duration `env:"REAPER_PROCESSING_MAX_AGE" envDefault:"10m"`
	// BatchSize bounds rows requeued per sweep.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"500"`
}

// Sanitize applies guardrails to reaper configuration values.
func (c *ReaperConfig) Sanitize() {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.ProcessingMaxAge <= 0 {
		c.ProcessingMaxAge = 10 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
}
