package retrypolicy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Delay_ExponentialWithoutJitter(t *testing.T) {
	p := New(Config{
		MaxRetries:      3,
		BaseDelay:       time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          false,
	})

	tests := []struct {
		retryCount int
		expected   time.Duration
	}{
		{retryCount: 0, expected: time.Second},
		{retryCount: 1, expected: 2 * time.Second},
		{retryCount: 2, expected: 4 * time.Second},
		{retryCount: 3, expected: 8 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, p.Delay(tt.retryCount), "retryCount=%d", tt.retryCount)
	}
}

func TestPolicy_Delay_CappedAtMaxDelay(t *testing.T) {
	p := New(Config{
		MaxRetries:      3,
		BaseDelay:       time.Second,
		MaxDelay:        10 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          false,
	})

	assert.Equal(t, 10*time.Second, p.Delay(10))
	assert.Equal(t, 10*time.Second, p.Delay(100))
}

func TestPolicy_Delay_JitterStaysInBand(t *testing.T) {
	p := New(Config{
		MaxRetries:      3,
		BaseDelay:       time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	})

	// Jitter adds at most ±25% of the capped delay.
	base := 4 * time.Second
	lo := time.Duration(float64(base) * 0.75)
	hi := time.Duration(float64(base) * 1.25)
	for i := 0; i < 100; i++ {
		d := p.Delay(2)
		assert.GreaterOrEqual(t, d, lo)
		assert.LessOrEqual(t, d, hi)
	}
}

func TestPolicy_Delay_NeverNegative(t *testing.T) {
	p := New(Config{
		MaxRetries:      3,
		BaseDelay:       time.Millisecond,
		MaxDelay:        time.Second,
		ExponentialBase: 2.0,
		Jitter:          true,
	})

	for i := 0; i < 100; i++ {
		assert.GreaterOrEqual(t, p.Delay(0), time.Duration(0))
	}
}

func TestPolicy_ShouldRetry(t *testing.T) {
	p := New(Config{
		MaxRetries:      3,
		BaseDelay:       time.Second,
		MaxDelay:        60 * time.Second,
		ExponentialBase: 2.0,
	})

	tests := []struct {
		name       string
		retryCount int
		isAbuse    bool
		expected   bool
	}{
		{name: "first failure retries", retryCount: 0, isAbuse: false, expected: true},
		{name: "under the cap retries", retryCount: 2, isAbuse: false, expected: true},
		{name: "at the cap stops", retryCount: 3, isAbuse: false, expected: false},
		{name: "over the cap stops", retryCount: 5, isAbuse: false, expected: false},
		{name: "abuse never retries", retryCount: 0, isAbuse: true, expected: false},
		{name: "abuse never retries under cap", retryCount: 1, isAbuse: true, expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.ShouldRetry(tt.retryCount, tt.isAbuse))
		})
	}
}

func TestNew_CorrectsInvalidConfig(t *testing.T) {
	p := New(Config{
		MaxRetries:      -1,
		BaseDelay:       0,
		MaxDelay:        0,
		ExponentialBase: 0.5,
		Jitter:          false,
	})

	def := DefaultConfig()
	assert.Equal(t, def.MaxRetries, p.MaxRetries())
	// Defaults restored: base 1s doubling, capped at 60s.
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 60*time.Second, p.Delay(20))
}

func TestNew_ZeroMaxRetriesMeansNoRetries(t *testing.T) {
	p := New(Config{MaxRetries: 0, BaseDelay: time.Second, MaxDelay: time.Minute, ExponentialBase: 2})

	assert.False(t, p.ShouldRetry(0, false))
}
