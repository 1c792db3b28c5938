package core

import "errors"

// Authentication errors.
var (
	ErrNoProviderDetected = errors.New("no account provider detected")
	ErrUserRejected       = errors.New("user rejected the request")
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrChallengeExpired   = errors.New("challenge has expired")
	ErrSignatureMismatch  = errors.New("recovered signer does not match address")
	ErrCredentialExpired  = errors.New("credential has expired")
	ErrCredentialInvalid  = errors.New("credential is invalid")
	ErrInvalidAddress     = errors.New("invalid ethereum address")
)

// Registry errors.
var (
	ErrArrayLengthMismatch = errors.New("batch array lengths differ")
	ErrScoreOutOfRange     = errors.New("risk score exceeds 100")
	ErrZeroTimestamp       = errors.New("report timestamp must be non-zero")
	ErrRoleUnauthorized    = errors.New("caller does not hold the required role")
	ErrBadUpgradeVersion   = errors.New("migration does not target the next schema version")
)

// ErrNetworkUnreachable marks transport-level failures, surfaced distinctly
// from protocol errors so callers can retry with backoff.
var ErrNetworkUnreachable = errors.New("network unreachable")
