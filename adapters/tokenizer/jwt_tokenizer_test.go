package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/core"
)

func newTokenizer(t *testing.T) *JWTTokenizer {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return NewJWTTokenizer(key).(*JWTTokenizer)
}

func newSession(ttl time.Duration) *core.Session {
	now := time.Now()
	return &core.Session{
		ID:        uuid.New().String(),
		Address:   "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	tk := newTokenizer(t)
	session := newSession(time.Hour)

	credential, err := tk.SessionToCredential(session)
	require.NoError(t, err)

	parsed, err := tk.CredentialToSession(credential)
	require.NoError(t, err)

	assert.Equal(t, session.ID, parsed.ID)
	assert.Equal(t, session.Address, parsed.Address)
	assert.WithinDuration(t, session.ExpiresAt, parsed.ExpiresAt, time.Second)
	assert.Equal(t, credential, parsed.Credential)
}

func TestExpiredCredential(t *testing.T) {
	tk := newTokenizer(t)

	credential, err := tk.SessionToCredential(newSession(-time.Minute))
	require.NoError(t, err)

	// Expiry wins regardless of a valid signature.
	_, err = tk.CredentialToSession(credential)
	assert.ErrorIs(t, err, core.ErrCredentialExpired)
}

func TestForeignKeyCredential(t *testing.T) {
	credential, err := newTokenizer(t).SessionToCredential(newSession(time.Hour))
	require.NoError(t, err)

	// A credential signed by a different issuer is invalid here.
	_, err = newTokenizer(t).CredentialToSession(credential)
	assert.ErrorIs(t, err, core.ErrCredentialInvalid)
}

func TestGarbageCredential(t *testing.T) {
	tk := newTokenizer(t)

	_, err := tk.CredentialToSession("not.a.jwt")
	assert.ErrorIs(t, err, core.ErrCredentialInvalid)
}
