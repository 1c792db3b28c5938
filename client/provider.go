// Package client implements the browser-side half of the sign-in protocol:
// account providers, the auth API client, and the session state machine.
package client

import (
	"context"
	"crypto/ecdsa"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/wardenhq/warden/core"
	"github.com/wardenhq/warden/internal/eth"
)

// Provider is the account-provider surface a wallet exposes: account
// discovery, message signing, and an account-change stream. Both signing
// calls may prompt a human and block until they respond.
type Provider interface {
	// Name identifies the provider for preference-based selection.
	Name() string

	// RequestAccounts returns the provider's active addresses.
	RequestAccounts(ctx context.Context) ([]string, error)

	// SignMessage signs message with the key controlling address using
	// personal_sign semantics. Returns core.ErrUserRejected when the human
	// declines.
	SignMessage(ctx context.Context, address string, message []byte) (string, error)

	// AccountChanges delivers the new active address on every switch.
	AccountChanges() <-chan string
}

// ChooseProvider selects among available providers: the one matching
// preferred by name, else the first. A pure function so selection is testable
// without a browser.
func ChooseProvider(available []Provider, preferred string) (Provider, error) {
	if len(available) == 0 {
		return nil, core.ErrNoProviderDetected
	}
	if preferred != "" {
		for _, p := range available {
			if p.Name() == preferred {
				return p, nil
			}
		}
	}
	return available[0], nil
}

// KeyProvider is an in-process Provider backed by raw ECDSA keys. It stands
// in for an injected wallet extension in tests and CLI tooling.
type KeyProvider struct {
	name    string
	keys    []*ecdsa.PrivateKey
	approve func(action string) bool

	mu      sync.Mutex
	active  int
	changes chan string
}

// NewKeyProvider creates a provider over the given keys; the first key is
// active. The approve hook models the human prompt — nil approves everything.
func NewKeyProvider(name string, approve func(action string) bool, keys ...*ecdsa.PrivateKey) *KeyProvider {
	if approve == nil {
		approve = func(string) bool { return true }
	}
	return &KeyProvider{
		name:    name,
		keys:    keys,
		approve: approve,
		changes: make(chan string, 4),
	}
}

// Name identifies the provider.
func (p *KeyProvider) Name() string { return p.name }

func (p *KeyProvider) address(i int) string {
	return crypto.PubkeyToAddress(p.keys[i].PublicKey).Hex()
}

// RequestAccounts returns the active address first, then the rest.
func (p *KeyProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	if !p.approve("request_accounts") {
		return nil, core.ErrUserRejected
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	addrs := make([]string, 0, len(p.keys))
	addrs = append(addrs, p.address(p.active))
	for i := range p.keys {
		if i != p.active {
			addrs = append(addrs, p.address(i))
		}
	}
	return addrs, nil
}

// SignMessage signs with the key controlling address.
func (p *KeyProvider) SignMessage(ctx context.Context, address string, message []byte) (string, error) {
	if !p.approve("sign_message") {
		return "", core.ErrUserRejected
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.keys {
		if core.SameAddress(p.address(i), address) {
			return eth.SignPersonal(message, p.keys[i])
		}
	}
	return "", core.ErrInvalidAddress
}

// AccountChanges delivers the new active address on every switch.
func (p *KeyProvider) AccountChanges() <-chan string {
	return p.changes
}

// SwitchAccount makes the key at index active and notifies subscribers.
func (p *KeyProvider) SwitchAccount(index int) {
	p.mu.Lock()
	p.active = index
	addr := p.address(index)
	p.mu.Unlock()

	p.changes <- addr
}

var _ Provider = (*KeyProvider)(nil)
