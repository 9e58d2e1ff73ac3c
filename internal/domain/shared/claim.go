package shared

import (
	"context"
	"time"
)

// ClaimStore hands out short-lived exclusive claims on keys so that two workers
// sharing the store do not process the same key at the same time.
type ClaimStore interface {
	// Claim takes the key for ttl.
	// Returns true if the claim was taken, false if someone else holds it.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release gives the key back before its ttl runs out.
	Release(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// ClaimConfig holds configuration for order claims
type ClaimConfig struct {
	// TTL bounds how long a crashed worker can block an order.
	// Default: 10 minutes
	TTL time.Duration

	// Enabled determines whether claims are taken at all.
	// Default: false
	Enabled bool
}

// DefaultClaimConfig returns the default claim configuration
func DefaultClaimConfig() ClaimConfig {
	return ClaimConfig{
		TTL:     10 * time.Minute,
		Enabled: false,
	}
}
