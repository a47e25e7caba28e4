package config

import "time"

// RateLimitConfig configures the Redis token bucket.  The defaults allow
// 100 requests per 15 minutes per client IP.
type RateLimitConfig struct {
	Enabled        bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Capacity       int           `env:"RATE_LIMIT_CAPACITY" envDefault:"100"`
	RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS" envDefault:"100"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL" envDefault:"15m"`
	TTL            time.Duration `env:"RATE_LIMIT_TTL" envDefault:"30m"`
	KeyStrategy    string        `env:"RATE_LIMIT_KEY_STRATEGY" envDefault:"ip"`
	Prefix         string        `env:"RATE_LIMIT_PREFIX" envDefault:"rl"`
	Debug          bool          `env:"RATE_LIMIT_DEBUG" envDefault:"false"`
}

// normalize clamps nonsensical values.  Bucket state must outlive a few
// refill intervals, so TTL is at least 2× the interval.
func (r RateLimitConfig) normalize() RateLimitConfig {
	if r.Capacity < 1 {
		r.Capacity = 1
	}
	if r.RefillTokens < 1 {
		r.RefillTokens = 1
	}
	if r.RefillInterval <= 0 {
		r.RefillInterval = time.Second
	}
	if minTTL := 2 * r.RefillInterval; r.TTL < minTTL {
		r.TTL = minTTL
	}
	return r
}
