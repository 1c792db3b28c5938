package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/wardenhq/warden/core"
)

// APIClient talks to the auth server's /auth endpoints.
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAPIClient creates a client for the given base URL.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
	}
}

type nonceResponse struct {
	Message string `json:"message"`
	Nonce   string `json:"nonce"`
}

type verifyResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
}

type meResponse struct {
	Address   string `json:"address"`
	ExpiresAt int64  `json:"expires_at"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Nonce requests a sign-in challenge for an address.
func (c *APIClient) Nonce(ctx context.Context, address string) (message, nonce string, err error) {
	var resp nonceResponse
	err = c.post(ctx, "/auth/nonce", map[string]string{"address": address}, "", &resp)
	if err != nil {
		return "", "", err
	}
	return resp.Message, resp.Nonce, nil
}

// Verify submits a signed challenge and returns the session credential.
func (c *APIClient) Verify(ctx context.Context, address, message, signature string) (token, canonical string, err error) {
	var resp verifyResponse
	err = c.post(ctx, "/auth/verify", map[string]string{
		"address":   address,
		"message":   message,
		"signature": signature,
	}, "", &resp)
	if err != nil {
		return "", "", err
	}
	return resp.Token, resp.Address, nil
}

// Me validates a credential against the server and returns the bound address
// and expiry.
func (c *APIClient) Me(ctx context.Context, token string) (address string, expiresAt int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/auth/me", nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var resp meResponse
	if err := c.do(req, &resp); err != nil {
		return "", 0, err
	}
	return resp.Address, resp.ExpiresAt, nil
}

// Logout denylists a credential server-side.
func (c *APIClient) Logout(ctx context.Context, token string) error {
	return c.post(ctx, "/auth/logout", map[string]string{"token": token}, "", nil)
}

func (c *APIClient) post(ctx context.Context, path string, body any, bearer string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return c.do(req, out)
}

func (c *APIClient) do(req *http.Request, out any) error {
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// Transport failures are retriable; protocol errors below are not.
		return fmt.Errorf("%w: %v", core.ErrNetworkUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return mapReason(resp.StatusCode, e.Error)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// mapReason converts the server's machine-readable reason back into the
// sentinel the state machine branches on.
func mapReason(status int, reason string) error {
	switch reason {
	case "challenge not found":
		return core.ErrChallengeNotFound
	case "challenge expired":
		return core.ErrChallengeExpired
	case "signature mismatch":
		return core.ErrSignatureMismatch
	case "credential expired":
		return core.ErrCredentialExpired
	case "credential invalid":
		return core.ErrCredentialInvalid
	case "invalid address":
		return core.ErrInvalidAddress
	}
	return fmt.Errorf("auth server returned %d: %s", status, reason)
}
