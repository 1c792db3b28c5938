package ports

import (
	"context"
	"time"

	"github.com/wardenhq/warden/core"
)

// ChallengeStore holds the single pending challenge per address. Put replaces
// any prior entry for the same address.
type ChallengeStore interface {
	Put(ctx context.Context, challenge *core.Challenge, ttl time.Duration) error
	// Get returns core.ErrChallengeNotFound when no challenge is pending.
	Get(ctx context.Context, address string) (*core.Challenge, error)
	Delete(ctx context.Context, address string) error
}

// RevocationStore records explicitly logged-out credential IDs until the
// credential would have expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, credentialID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, credentialID string) (bool, error)
}
