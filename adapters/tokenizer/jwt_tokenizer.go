package tokenizer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wardenhq/warden/core"
	"github.com/wardenhq/warden/ports"
)

// AudienceSession tags session credentials so they cannot be replayed against
// a surface expecting a different token kind.
const AudienceSession = "session:access"

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs.
type JWTTokenizer struct {
	signKey *ecdsa.PrivateKey
}

// NewJWTTokenizer creates a new JWT tokenizer signing with the given key.
func NewJWTTokenizer(signKey *ecdsa.PrivateKey) ports.Tokenizer {
	return &JWTTokenizer{signKey: signKey}
}

// SessionToCredential converts a Session to a signed JWT credential.
func (j *JWTTokenizer) SessionToCredential(session *core.Session) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Address,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signed, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign credential: %w", err)
	}

	return signed, nil
}

// CredentialToSession validates a JWT credential and returns the session it
// encodes. Expiry failures map to core.ErrCredentialExpired, everything else
// to core.ErrCredentialInvalid.
func (j *JWTTokenizer) CredentialToSession(credential string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(credential, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	}, jwt.WithAudience(AudienceSession))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.ErrCredentialExpired
		}
		return nil, core.ErrCredentialInvalid
	}

	if !token.Valid {
		return nil, core.ErrCredentialInvalid
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, core.ErrCredentialInvalid
	}

	session := &core.Session{
		ID:         claims.ID,
		Address:    claims.Subject,
		IssuedAt:   claims.IssuedAt.Time,
		ExpiresAt:  claims.ExpiresAt.Time,
		Credential: credential,
	}

	return session, nil
}
