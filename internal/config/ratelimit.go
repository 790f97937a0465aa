package config

import "time"

// RateLimitConfig drives the token bucket middleware.  The bucket lives in
// Redis when a client is available; otherwise an in-process limiter with the
// same capacity and refill rate is used so a Redis outage never disables
// throttling entirely.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int           // bucket size (burst)
	RefillTokens   int           // tokens added per interval
	RefillInterval time.Duration // how often RefillTokens are added
	TTL            time.Duration // idle expiry of a bucket key in Redis
	KeyStrategy    string        // ip | user | route | ip_user | ip_route | user_route | ip_user_route
	Prefix         string
	Debug          bool
	// AuthCapacity is a tighter bucket applied to the credential endpoints
	// (login, register, password reset, KingsChat exchange).
	AuthCapacity int
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables and normalises them so
// the middleware never sees a zero capacity or interval.
func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    getenv("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         getenv("RATE_LIMIT_PREFIX", "crusades:rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
		AuthCapacity:   envInt("RATE_LIMIT_AUTH_CAPACITY", 10),
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.AuthCapacity < 1 {
		def.AuthCapacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if minTTL := 5 * def.RefillInterval; def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}

// WithCapacity returns a copy of c using a different bucket size and key
// prefix, for routes that need their own budget.
func (c RateLimitConfig) WithCapacity(capacity int, prefix string) RateLimitConfig {
	c.Capacity = capacity
	c.Prefix = c.Prefix + ":" + prefix
	return c
}
