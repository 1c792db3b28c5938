// Package config reads warden's configuration from the environment.
package config

import (
	"os"
	"time"
)

// Config is consumed, not computed: registry location and chain parameters
// are deployment facts handed to the process.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// RedisURL enables the redis-backed challenge/revocation stores and the
	// redis-stream event publisher when set; empty runs in-memory.
	RedisURL string

	// RegistryDBPath is the bbolt file backing the registry store.
	RegistryDBPath string

	// SigningKeyHex is the credential signing key; generated when empty.
	SigningKeyHex string

	// Deployer is the address seeded with the Updater and Admin roles.
	Deployer string

	// SessionTTL is the session credential validity window.
	SessionTTL time.Duration

	// ChallengeTTL is the challenge validity window.
	ChallengeTTL time.Duration

	// ChainID, RegistryContract and RPCURL identify the on-chain deployment
	// this instance mirrors; passed through to clients, not interpreted.
	ChainID          string
	RegistryContract string
	RPCURL           string
}

// FromEnv builds a Config from environment variables with defaults.
func FromEnv() Config {
	return Config{
		Addr:             envOr("WARDEN_ADDR", ":9000"),
		RedisURL:         os.Getenv("WARDEN_REDIS_URL"),
		RegistryDBPath:   envOr("WARDEN_REGISTRY_DB", "warden-registry.db"),
		SigningKeyHex:    os.Getenv("WARDEN_SIGNING_KEY"),
		Deployer:         os.Getenv("WARDEN_DEPLOYER"),
		SessionTTL:       durationOr("WARDEN_SESSION_TTL", 72*time.Hour),
		ChallengeTTL:     durationOr("WARDEN_CHALLENGE_TTL", 5*time.Minute),
		ChainID:          envOr("WARDEN_CHAIN_ID", "1"),
		RegistryContract: os.Getenv("WARDEN_REGISTRY_CONTRACT"),
		RPCURL:           os.Getenv("WARDEN_RPC_URL"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
