package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the claims carried by a session credential. The subject
// is the canonical address; the JWT ID identifies the credential for the
// logout denylist.
type SessionClaims struct {
	jwt.RegisteredClaims
}
