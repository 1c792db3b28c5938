package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/wardenhq/warden/core"
	"github.com/wardenhq/warden/internal/eth"
	"github.com/wardenhq/warden/metrics"
	"github.com/wardenhq/warden/ports"
)

// MessageTemplate is the fixed format of the sign-in message. The nonce and
// timestamps bind the signature to one challenge; the leading line tells the
// human what they are approving.
const MessageTemplate = `warden wants you to sign in with your Ethereum account:
%s

This request will not trigger a blockchain transaction or cost any gas fees.

Nonce: %s
Issued At: %s
Expiration Time: %s`

// AuthService handles the wallet sign-in protocol: challenge issuance,
// signature verification, and session credential issuance.
type AuthService struct {
	tokenizer  ports.Tokenizer
	challenges ports.ChallengeStore
	revoked    ports.RevocationStore
	eventPub   ports.EventPublisher
	metrics    *metrics.Metrics

	challengeTTL time.Duration
	sessionTTL   time.Duration
}

// AuthOption customizes an AuthService.
type AuthOption func(*AuthService)

// WithChallengeTTL overrides the default challenge validity window.
func WithChallengeTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) { s.challengeTTL = ttl }
}

// WithSessionTTL overrides the default session validity window.
func WithSessionTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) { s.sessionTTL = ttl }
}

// WithAuthMetrics attaches metric collectors.
func WithAuthMetrics(m *metrics.Metrics) AuthOption {
	return func(s *AuthService) { s.metrics = m }
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	tokenizer ports.Tokenizer,
	challenges ports.ChallengeStore,
	revoked ports.RevocationStore,
	eventPub ports.EventPublisher,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		tokenizer:    tokenizer,
		challenges:   challenges,
		revoked:      revoked,
		eventPub:     eventPub,
		challengeTTL: 5 * time.Minute,
		sessionTTL:   72 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateChallenge generates a new sign-in challenge for an address and stores
// it, replacing any prior pending challenge for that address.
func (s *AuthService) CreateChallenge(ctx context.Context, address string) (*core.Challenge, error) {
	addr, err := core.CanonicalAddress(address)
	if err != nil {
		return nil, err
	}

	nonceBytes := make([]byte, 32)
	if _, err := rand.Read(nonceBytes); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)

	now := time.Now()
	expiresAt := now.Add(s.challengeTTL)
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Address:   addr,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
		Message: fmt.Sprintf(MessageTemplate,
			addr, nonce, now.UTC().Format(time.RFC3339), expiresAt.UTC().Format(time.RFC3339)),
	}

	if err := s.challenges.Put(ctx, challenge, s.challengeTTL); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	s.metrics.IncChallenge()
	return challenge, nil
}

// Verify checks a signed challenge. On success the challenge is consumed
// (single-use) and the verified address is returned in canonical form.
// Expiry is enforced here, not just at issuance.
func (s *AuthService) Verify(ctx context.Context, address, message, signature string) (string, error) {
	addr, err := core.CanonicalAddress(address)
	if err != nil {
		s.metrics.IncLogin("invalid_address")
		return "", err
	}

	challenge, err := s.challenges.Get(ctx, addr)
	if err != nil {
		s.metrics.IncLogin("challenge_not_found")
		return "", err
	}

	if challenge.Expired(time.Now()) {
		// Drop the stale entry so a retry starts from a clean slate.
		_ = s.challenges.Delete(ctx, addr)
		s.metrics.IncLogin("challenge_expired")
		return "", core.ErrChallengeExpired
	}

	// The presented message must be exactly the one issued; anything else
	// would let a signature over unrelated text consume the challenge.
	if message != challenge.Message {
		s.metrics.IncLogin("challenge_not_found")
		return "", core.ErrChallengeNotFound
	}

	if err := eth.VerifyPersonal([]byte(message), signature, addr); err != nil {
		// Never downgraded or retried: a mismatched signer is a potential
		// attack and is surfaced verbatim.
		log.Printf("signature mismatch for %s: %v", addr, err)
		s.metrics.IncLogin("signature_mismatch")
		return "", core.ErrSignatureMismatch
	}

	if err := s.challenges.Delete(ctx, addr); err != nil {
		return "", fmt.Errorf("failed to consume challenge: %w", err)
	}

	s.metrics.IncLogin("ok")
	return addr, nil
}

// Mint creates a session for a verified address and returns it with its
// signed credential.
func (s *AuthService) Mint(address string) (*core.Session, error) {
	now := time.Now()
	session := &core.Session{
		ID:        uuid.New().String(),
		Address:   address,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	credential, err := s.tokenizer.SessionToCredential(session)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}
	session.Credential = credential

	return session, nil
}

// Login verifies a signed challenge and mints a session in one step.
func (s *AuthService) Login(ctx context.Context, address, message, signature string) (*core.Session, error) {
	addr, err := s.Verify(ctx, address, message, signature)
	if err != nil {
		return nil, err
	}
	return s.Mint(addr)
}

// Introspect validates a credential's signature and expiry. The credential is
// the source of truth; the only server-side state consulted is the explicit
// logout denylist.
func (s *AuthService) Introspect(ctx context.Context, credential string) (*core.Session, error) {
	session, err := s.tokenizer.CredentialToSession(credential)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revoked.IsRevoked(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return nil, core.ErrCredentialInvalid
	}

	return session, nil
}

// Refresh re-issues a fresh credential for a still-valid one and denylists
// the old credential ID.
func (s *AuthService) Refresh(ctx context.Context, credential string) (*core.Session, error) {
	session, err := s.Introspect(ctx, credential)
	if err != nil {
		return nil, err
	}

	if err := s.revoked.Revoke(ctx, session.ID, time.Until(session.ExpiresAt)); err != nil {
		return nil, fmt.Errorf("failed to revoke credential: %w", err)
	}

	return s.Mint(session.Address)
}

// Logout denylists a credential for its remaining lifetime and publishes a
// logout event for other instances.
func (s *AuthService) Logout(ctx context.Context, credential string) error {
	session, err := s.tokenizer.CredentialToSession(credential)
	if err != nil {
		// An expired credential cannot be used anyway.
		if errors.Is(err, core.ErrCredentialExpired) {
			return nil
		}
		return err
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := s.revoked.Revoke(ctx, session.ID, ttl); err != nil {
		return fmt.Errorf("failed to revoke credential: %w", err)
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogout(ctx, session.Address, session.ID); err != nil {
			// The credential is already denylisted, which is the part that
			// matters; the event is best effort.
			log.Printf("failed to publish logout event: %v", err)
		}
	}

	return nil
}
