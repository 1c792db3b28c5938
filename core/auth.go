package core

import "time"

// Challenge represents a pending sign-in challenge. At most one challenge is
// live per address; issuing a new one replaces the previous.
type Challenge struct {
	ID        string    // Unique identifier for the challenge
	Address   string    // Ethereum address of the claimant
	Nonce     string    // Random nonce embedded in the message
	Message   string    // Human-readable message the claimant must sign
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Expired reports whether the challenge is past its validity window.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Session represents an authenticated session. The credential is
// self-verifying; the server keeps no mutable per-session record.
type Session struct {
	ID         string    // Unique credential identifier (JWT ID)
	Address    string    // Ethereum address the session is bound to
	IssuedAt   time.Time // When the session was created
	ExpiresAt  time.Time // When the credential expires
	Credential string    // Signed credential string
}
