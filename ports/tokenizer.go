package ports

import "github.com/wardenhq/warden/core"

// Tokenizer converts sessions to self-verifying credentials and back.
type Tokenizer interface {
	// SessionToCredential signs a credential binding the session's address
	// and expiry.
	SessionToCredential(session *core.Session) (string, error)

	// CredentialToSession validates signature and expiry and returns the
	// embedded session. Fails with core.ErrCredentialExpired or
	// core.ErrCredentialInvalid.
	CredentialToSession(credential string) (*core.Session, error)
}
