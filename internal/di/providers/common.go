package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// rateLimiterIdleTTL drops per-session buckets after this much silence.
	rateLimiterIdleTTL = 10 * time.Minute

	// janitorInterval is how often idle dialog sessions are pruned.
	janitorInterval = 5 * time.Minute
)
