package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wardenhq/warden/core"
)

// State is the session manager's position in the sign-in handshake. Every
// step suspends on an external call, so the machine only advances when its
// predecessor resolved.
type State string

const (
	StateDisconnected       State = "disconnected"
	StateConnecting         State = "connecting"
	StateChallengeRequested State = "challenge_requested"
	StateAwaitingSignature  State = "awaiting_signature"
	StateVerifying          State = "verifying"
	StateAuthenticated      State = "authenticated"
	StateFailed             State = "failed"
)

// ErrSignInAborted is returned when an account change lands mid-handshake;
// the attempt is abandoned rather than completed against a stale address.
var ErrSignInAborted = errors.New("sign-in aborted: active account changed")

// ErrSignInInProgress is returned when SignIn is called while a handshake is
// already running.
var ErrSignInInProgress = errors.New("sign-in already in progress")

// SessionManager drives the handshake against a chosen provider, persists the
// resulting credential, restores it on startup, and reacts to account
// changes. Account changes arrive as messages through HandleAccountChange, so
// "account changed while verifying" is an ordinary transition.
type SessionManager struct {
	api       *APIClient
	providers []Provider
	creds     CredentialStore

	mu       sync.Mutex
	state    State
	failure  error
	session  *core.Session
	provider Provider
	cancel   context.CancelFunc

	events  chan string
	watched map[Provider]bool
}

// NewSessionManager creates a manager over the available providers.
func NewSessionManager(api *APIClient, creds CredentialStore, providers ...Provider) *SessionManager {
	return &SessionManager{
		api:       api,
		providers: providers,
		creds:     creds,
		state:     StateDisconnected,
		events:    make(chan string, 8),
		watched:   make(map[Provider]bool),
	}
}

// State returns the current state and, when Failed, the reason.
func (m *SessionManager) State() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.failure
}

// Session returns the active session, or nil when not authenticated.
func (m *SessionManager) Session() *core.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return nil
	}
	s := *m.session
	return &s
}

// SignIn runs the full handshake: choose a provider, request accounts,
// request a challenge, collect a signature, verify, and persist the session.
// preferred optionally names a provider; empty takes the first available.
func (m *SessionManager) SignIn(ctx context.Context, preferred string) error {
	m.mu.Lock()
	if m.state != StateDisconnected && m.state != StateFailed {
		m.mu.Unlock()
		return ErrSignInInProgress
	}

	provider, err := ChooseProvider(m.providers, preferred)
	if err != nil {
		m.state = StateFailed
		m.failure = err
		m.mu.Unlock()
		return err
	}

	hctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.provider = provider
	m.cancel = cancel
	m.state = StateConnecting
	m.failure = nil
	m.mu.Unlock()

	m.watch(provider)

	accounts, err := provider.RequestAccounts(hctx)
	if err != nil {
		return m.fail(err)
	}
	if len(accounts) == 0 {
		return m.fail(core.ErrNoProviderDetected)
	}
	address := accounts[0]

	if err := m.advance(StateChallengeRequested); err != nil {
		return err
	}

	message, _, err := m.api.Nonce(hctx, address)
	if err != nil {
		return m.fail(err)
	}

	if err := m.advance(StateAwaitingSignature); err != nil {
		return err
	}

	signature, err := provider.SignMessage(hctx, address, []byte(message))
	if err != nil {
		return m.fail(err)
	}

	if err := m.advance(StateVerifying); err != nil {
		return err
	}

	token, canonical, err := m.api.Verify(hctx, address, message, signature)
	if err != nil {
		return m.fail(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateVerifying {
		// Aborted between the last call and here.
		return ErrSignInAborted
	}

	m.session = &core.Session{Address: canonical, Credential: token}
	if err := m.creds.Save(PersistedSession{Address: canonical, Credential: token}); err != nil {
		m.state = StateFailed
		m.failure = err
		m.session = nil
		return fmt.Errorf("failed to persist session: %w", err)
	}

	m.state = StateAuthenticated
	m.cancel = nil
	return nil
}

// advance moves the handshake forward unless it was aborted underneath us.
func (m *SessionManager) advance(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateFailed || m.state == StateDisconnected {
		return ErrSignInAborted
	}
	m.state = to
	return nil
}

// fail abandons the current attempt, discarding all intermediate state; a
// retry starts from a fresh challenge.
func (m *SessionManager) fail(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// An abort already recorded its own reason; the context error from the
	// interrupted call is just its echo.
	if m.state == StateFailed && m.failure != nil && errors.Is(err, context.Canceled) {
		return m.failure
	}

	m.state = StateFailed
	m.failure = err
	m.session = nil
	m.cancel = nil
	return err
}

// Restore re-validates a persisted session on startup. The UI must not treat
// the client as authenticated until this returns with the machine in
// StateAuthenticated; any failure drops silently to Disconnected.
func (m *SessionManager) Restore(ctx context.Context) {
	persisted, err := m.creds.Load()
	if err != nil {
		return
	}

	address, _, err := m.api.Me(ctx, persisted.Credential)
	if err != nil {
		// Never present a stale session as valid.
		_ = m.creds.Clear()
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &core.Session{Address: address, Credential: persisted.Credential}
	m.state = StateAuthenticated
	m.failure = nil
}

// SignOut logs out server-side (best effort), discards the persisted
// credential, and returns to Disconnected.
func (m *SessionManager) SignOut(ctx context.Context) {
	m.mu.Lock()
	session := m.session
	m.session = nil
	m.state = StateDisconnected
	m.failure = nil
	m.mu.Unlock()

	if session != nil {
		_ = m.api.Logout(ctx, session.Credential)
	}
	_ = m.creds.Clear()
}

// Reset returns a Failed machine to Disconnected so sign-in can be retried.
func (m *SessionManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateFailed {
		m.state = StateDisconnected
		m.failure = nil
	}
}

// HandleAccountChange is the transition for an account-change notification.
// Mid-handshake it abandons the in-flight attempt; while authenticated, a
// mismatching address forces Disconnected and discards the persisted session
// without any server call.
func (m *SessionManager) HandleAccountChange(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateConnecting, StateChallengeRequested, StateAwaitingSignature, StateVerifying:
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		m.state = StateFailed
		m.failure = ErrSignInAborted

	case StateAuthenticated:
		if !core.SameAddress(m.session.Address, address) {
			m.session = nil
			m.state = StateDisconnected
			_ = m.creds.Clear()
		}
	}
}

// Run consumes account-change notifications until ctx is done. Providers are
// wired into the stream the first time they are selected.
func (m *SessionManager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case addr := <-m.events:
			m.HandleAccountChange(addr)
		}
	}
}

// watch forwards a provider's account-change stream into the manager's event
// channel, once per provider.
func (m *SessionManager) watch(p Provider) {
	m.mu.Lock()
	if m.watched[p] {
		m.mu.Unlock()
		return
	}
	m.watched[p] = true
	m.mu.Unlock()

	go func() {
		for addr := range p.AccountChanges() {
			m.events <- addr
		}
	}()
}
