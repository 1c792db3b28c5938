package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wardenhq/warden/core"
	"github.com/wardenhq/warden/ports"
)

// RedisChallengeStore is a Redis implementation of the ChallengeStore
// interface. Redis TTLs expire challenges without a sweep; Get additionally
// distinguishes expiry so that a verification attempt racing the TTL still
// reports the right error.
type RedisChallengeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisChallengeStore creates a new Redis challenge store.
func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{
		client: client,
		prefix: "warden:challenge:",
	}
}

func (s *RedisChallengeStore) key(address string) (string, error) {
	addr, err := core.CanonicalAddress(address)
	if err != nil {
		return "", err
	}
	return s.prefix + addr, nil
}

// Put stores a challenge with a TTL, replacing any prior entry.
func (s *RedisChallengeStore) Put(ctx context.Context, challenge *core.Challenge, ttl time.Duration) error {
	key, err := s.key(challenge.Address)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}

	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrNetworkUnreachable, err)
	}

	return nil
}

// Get retrieves the pending challenge for an address.
func (s *RedisChallengeStore) Get(ctx context.Context, address string) (*core.Challenge, error) {
	key, err := s.key(address)
	if err != nil {
		return nil, err
	}

	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", core.ErrNetworkUnreachable, err)
	}

	var challenge core.Challenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}

	return &challenge, nil
}

// Delete removes the pending challenge for an address.
func (s *RedisChallengeStore) Delete(ctx context.Context, address string) error {
	key, err := s.key(address)
	if err != nil {
		return err
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrNetworkUnreachable, err)
	}

	return nil
}

var _ ports.ChallengeStore = (*RedisChallengeStore)(nil)

// RedisRevocationStore is a Redis implementation of the RevocationStore
// interface.
type RedisRevocationStore struct {
	client *redis.Client
	prefix string
}

// NewRedisRevocationStore creates a new Redis revocation store.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{
		client: client,
		prefix: "warden:revoked:",
	}
}

// Revoke marks a credential ID as logged out, expiring with the credential.
func (s *RedisRevocationStore) Revoke(ctx context.Context, credentialID string, ttl time.Duration) error {
	key := s.prefix + credentialID

	if err := s.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke credential: %w", err)
	}

	return nil
}

// IsRevoked checks whether a credential ID has been logged out.
func (s *RedisRevocationStore) IsRevoked(ctx context.Context, credentialID string) (bool, error) {
	key := s.prefix + credentialID

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}

	return val > 0, nil
}

var _ ports.RevocationStore = (*RedisRevocationStore)(nil)
