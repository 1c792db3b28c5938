package store

import (
	"context"
	"sync"
	"time"

	"github.com/wardenhq/warden/core"
	"github.com/wardenhq/warden/ports"
)

// MemoryChallengeStore is an in-memory implementation of the ChallengeStore
// interface, keyed by canonical address.
type MemoryChallengeStore struct {
	challenges map[string]*core.Challenge
	mu         sync.RWMutex
}

// NewMemoryChallengeStore creates a new in-memory challenge store.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		challenges: make(map[string]*core.Challenge),
	}
}

// Put stores a challenge, replacing any prior pending challenge for the
// address. Expiry is enforced on Get rather than by a background sweep.
func (s *MemoryChallengeStore) Put(ctx context.Context, challenge *core.Challenge, ttl time.Duration) error {
	addr, err := core.CanonicalAddress(challenge.Address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[addr] = challenge
	return nil
}

// Get retrieves the pending challenge for an address.
func (s *MemoryChallengeStore) Get(ctx context.Context, address string) (*core.Challenge, error) {
	addr, err := core.CanonicalAddress(address)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	challenge, ok := s.challenges[addr]
	if !ok {
		return nil, core.ErrChallengeNotFound
	}

	return challenge, nil
}

// Delete removes the pending challenge for an address.
func (s *MemoryChallengeStore) Delete(ctx context.Context, address string) error {
	addr, err := core.CanonicalAddress(address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.challenges, addr)
	return nil
}

var _ ports.ChallengeStore = (*MemoryChallengeStore)(nil)

// MemoryRevocationStore is an in-memory implementation of the RevocationStore
// interface.
type MemoryRevocationStore struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
}

// NewMemoryRevocationStore creates a new in-memory revocation store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		revoked: make(map[string]time.Time),
	}
}

// Revoke marks a credential ID as logged out until its natural expiry.
func (s *MemoryRevocationStore) Revoke(ctx context.Context, credentialID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revoked[credentialID] = time.Now().Add(ttl)
	return nil
}

// IsRevoked checks whether a credential ID has been logged out.
func (s *MemoryRevocationStore) IsRevoked(ctx context.Context, credentialID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	until, ok := s.revoked[credentialID]
	if !ok {
		return false, nil
	}

	// Revocation records lapse once the credential itself would be expired.
	if time.Now().After(until) {
		return false, nil
	}

	return true, nil
}

var _ ports.RevocationStore = (*MemoryRevocationStore)(nil)
