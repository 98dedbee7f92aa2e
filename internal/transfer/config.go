package transfer

import "time"

// Config tunes the HTTP client, retry, and concurrency behaviour of the
// transfer actor. Values are expected to be sourced from environment
// variables by internal/config; the defaults here mirror spec §6's table.
type Config struct {
	HTTPTimeout        time.Duration
	HTTPConnectTimeout time.Duration
	Concurrency        int
	Retries            int
	RetryBackoff       time.Duration
	RetryBackoffMax    time.Duration
	CacheMaxBytes      uint64
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		HTTPTimeout:        30 * time.Second,
		HTTPConnectTimeout: 10 * time.Second,
		Concurrency:        0, // 0 means "use logical CPU count", resolved in New
		Retries:            2,
		RetryBackoff:       250 * time.Millisecond,
		RetryBackoffMax:    2000 * time.Millisecond,
		CacheMaxBytes:      2048 * 1024 * 1024,
	}
}
