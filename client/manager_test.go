package client

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http/httptest"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardenhq/warden/adapters/registrystore"
	"github.com/wardenhq/warden/adapters/store"
	"github.com/wardenhq/warden/adapters/tokenizer"
	"github.com/wardenhq/warden/core"
	"github.com/wardenhq/warden/service"
	transporthttp "github.com/wardenhq/warden/transport/http"
)

type nopPublisher struct{}

func (nopPublisher) PublishReportStored(ctx context.Context, event core.ReportStoredEvent) error {
	return nil
}

func (nopPublisher) PublishLogout(ctx context.Context, address, credentialID string) error {
	return nil
}

// newTestServer stands up the real router over in-memory adapters.
func newTestServer(t *testing.T, opts ...service.AuthOption) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	auth := service.NewAuthService(
		tokenizer.NewJWTTokenizer(signKey),
		store.NewMemoryChallengeStore(),
		store.NewMemoryRevocationStore(),
		nopPublisher{},
		opts...,
	)

	registry, err := service.NewRegistryService(
		registrystore.NewMemory(), nopPublisher{},
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", nil)
	require.NoError(t, err)

	server := httptest.NewServer(transporthttp.SetupRouter(auth, registry, service.NewReconciler(registry)))
	t.Cleanup(server.Close)
	return server
}

func newWallet(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return key, ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestChooseProvider(t *testing.T) {
	_, err := ChooseProvider(nil, "")
	assert.ErrorIs(t, err, core.ErrNoProviderDetected)

	a := NewKeyProvider("metamask", nil)
	b := NewKeyProvider("rabby", nil)

	p, err := ChooseProvider([]Provider{a, b}, "rabby")
	require.NoError(t, err)
	assert.Equal(t, "rabby", p.Name())

	// Unknown preference falls back to the first available.
	p, err = ChooseProvider([]Provider{a, b}, "ledger")
	require.NoError(t, err)
	assert.Equal(t, "metamask", p.Name())

	p, err = ChooseProvider([]Provider{a, b}, "")
	require.NoError(t, err)
	assert.Equal(t, "metamask", p.Name())
}

func TestSignInFullHandshake(t *testing.T) {
	server := newTestServer(t)
	key, address := newWallet(t)

	creds := NewMemoryCredentialStore()
	manager := NewSessionManager(NewAPIClient(server.URL), creds, NewKeyProvider("test", nil, key))

	require.NoError(t, manager.SignIn(context.Background(), ""))

	state, failure := manager.State()
	assert.Equal(t, StateAuthenticated, state)
	assert.NoError(t, failure)

	session := manager.Session()
	require.NotNil(t, session)
	assert.Equal(t, address, session.Address)

	persisted, err := creds.Load()
	require.NoError(t, err)
	assert.Equal(t, address, persisted.Address)
	assert.Equal(t, session.Credential, persisted.Credential)
}

func TestSignInNoProvider(t *testing.T) {
	server := newTestServer(t)
	manager := NewSessionManager(NewAPIClient(server.URL), NewMemoryCredentialStore())

	err := manager.SignIn(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrNoProviderDetected)

	state, failure := manager.State()
	assert.Equal(t, StateFailed, state)
	assert.ErrorIs(t, failure, core.ErrNoProviderDetected)
}

func TestSignInUserRejected(t *testing.T) {
	server := newTestServer(t)
	key, _ := newWallet(t)

	reject := func(action string) bool { return action != "sign_message" }
	manager := NewSessionManager(NewAPIClient(server.URL), NewMemoryCredentialStore(),
		NewKeyProvider("test", reject, key))

	err := manager.SignIn(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrUserRejected)

	state, _ := manager.State()
	assert.Equal(t, StateFailed, state)

	// Reset returns the machine to Disconnected; a retry starts clean.
	manager.Reset()
	state, failure := manager.State()
	assert.Equal(t, StateDisconnected, state)
	assert.NoError(t, failure)
}

func TestSignInRetryAfterRejection(t *testing.T) {
	server := newTestServer(t)
	key, address := newWallet(t)

	rejected := false
	approve := func(action string) bool {
		if action == "sign_message" && !rejected {
			rejected = true
			return false
		}
		return true
	}
	manager := NewSessionManager(NewAPIClient(server.URL), NewMemoryCredentialStore(),
		NewKeyProvider("test", approve, key))

	err := manager.SignIn(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrUserRejected)

	// The retry succeeds from a fresh challenge; no state leaked over.
	require.NoError(t, manager.SignIn(context.Background(), ""))
	session := manager.Session()
	require.NotNil(t, session)
	assert.Equal(t, address, session.Address)
}

func TestAccountChangeMidHandshake(t *testing.T) {
	server := newTestServer(t)
	key, _ := newWallet(t)
	_, other := newWallet(t)

	creds := NewMemoryCredentialStore()
	var manager *SessionManager
	// The switch lands while the wallet prompt is open, before the user signs.
	approve := func(action string) bool {
		if action == "sign_message" {
			manager.HandleAccountChange(other)
		}
		return true
	}
	manager = NewSessionManager(NewAPIClient(server.URL), creds, NewKeyProvider("test", approve, key))

	err := manager.SignIn(context.Background(), "")
	assert.ErrorIs(t, err, ErrSignInAborted)

	state, failure := manager.State()
	assert.Equal(t, StateFailed, state)
	assert.ErrorIs(t, failure, ErrSignInAborted)

	// Nothing was persisted for the abandoned attempt.
	_, err = creds.Load()
	assert.ErrorIs(t, err, ErrNoPersistedSession)
}

func TestAccountChangeWhileAuthenticated(t *testing.T) {
	server := newTestServer(t)
	key, address := newWallet(t)
	_, other := newWallet(t)

	creds := NewMemoryCredentialStore()
	manager := NewSessionManager(NewAPIClient(server.URL), creds, NewKeyProvider("test", nil, key))
	require.NoError(t, manager.SignIn(context.Background(), ""))

	// Same address (any casing) keeps the session.
	manager.HandleAccountChange(address)
	state, _ := manager.State()
	assert.Equal(t, StateAuthenticated, state)

	// A different address drops to Disconnected and discards the credential.
	manager.HandleAccountChange(other)
	state, _ = manager.State()
	assert.Equal(t, StateDisconnected, state)
	assert.Nil(t, manager.Session())

	_, err := creds.Load()
	assert.ErrorIs(t, err, ErrNoPersistedSession)
}

func TestRunConsumesProviderSwitch(t *testing.T) {
	server := newTestServer(t)
	key, _ := newWallet(t)
	otherKey, _ := newWallet(t)

	provider := NewKeyProvider("test", nil, key, otherKey)
	manager := NewSessionManager(NewAPIClient(server.URL), NewMemoryCredentialStore(), provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go manager.Run(ctx)

	require.NoError(t, manager.SignIn(ctx, ""))

	provider.SwitchAccount(1)

	require.Eventually(t, func() bool {
		state, _ := manager.State()
		return state == StateDisconnected
	}, time.Second, 10*time.Millisecond)
}

func TestRestore(t *testing.T) {
	server := newTestServer(t)
	key, address := newWallet(t)

	creds := NewMemoryCredentialStore()
	first := NewSessionManager(NewAPIClient(server.URL), creds, NewKeyProvider("test", nil, key))
	require.NoError(t, first.SignIn(context.Background(), ""))

	// A fresh manager over the same store picks the session back up after
	// server-side validation.
	second := NewSessionManager(NewAPIClient(server.URL), creds)
	second.Restore(context.Background())

	state, _ := second.State()
	assert.Equal(t, StateAuthenticated, state)
	session := second.Session()
	require.NotNil(t, session)
	assert.Equal(t, address, session.Address)
}

func TestRestoreDropsStaleCredential(t *testing.T) {
	server := newTestServer(t)

	creds := NewMemoryCredentialStore()
	require.NoError(t, creds.Save(PersistedSession{
		Address:    "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		Credential: "not.a.valid.token",
	}))

	manager := NewSessionManager(NewAPIClient(server.URL), creds)
	manager.Restore(context.Background())

	// The stale session is never presented as valid and is gone from disk.
	state, _ := manager.State()
	assert.Equal(t, StateDisconnected, state)
	assert.Nil(t, manager.Session())

	_, err := creds.Load()
	assert.ErrorIs(t, err, ErrNoPersistedSession)
}

func TestSignOutRevokesServerSide(t *testing.T) {
	server := newTestServer(t)
	key, _ := newWallet(t)

	creds := NewMemoryCredentialStore()
	manager := NewSessionManager(NewAPIClient(server.URL), creds, NewKeyProvider("test", nil, key))
	require.NoError(t, manager.SignIn(context.Background(), ""))

	credential := manager.Session().Credential
	manager.SignOut(context.Background())

	state, _ := manager.State()
	assert.Equal(t, StateDisconnected, state)
	_, err := creds.Load()
	assert.ErrorIs(t, err, ErrNoPersistedSession)

	// The credential was denylisted, not just forgotten locally.
	api := NewAPIClient(server.URL)
	_, _, err = api.Me(context.Background(), credential)
	assert.ErrorIs(t, err, core.ErrCredentialInvalid)
}

func TestFileCredentialStoreRoundTrip(t *testing.T) {
	path := t.TempDir() + "/session.json"
	fs := NewFileCredentialStore(path)

	_, err := fs.Load()
	assert.ErrorIs(t, err, ErrNoPersistedSession)

	want := PersistedSession{Address: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", Credential: "tok"}
	require.NoError(t, fs.Save(want))

	got, err := fs.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, fs.Clear())
	_, err = fs.Load()
	assert.ErrorIs(t, err, ErrNoPersistedSession)

	// Clearing twice is fine.
	require.NoError(t, fs.Clear())
}
