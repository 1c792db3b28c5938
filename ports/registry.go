package ports

import (
	"context"

	"github.com/wardenhq/warden/core"
)

// RegistryRecord pairs a registry key with its report for batch writes.
type RegistryRecord struct {
	Key    core.RegistryKey
	Report core.RiskReport
}

// RegistryStore persists risk reports keyed by registry key. Implementations
// execute writes sequentially; callers never observe a half-applied batch.
type RegistryStore interface {
	// Get returns the zero-value report when the key was never written.
	Get(ctx context.Context, key core.RegistryKey) (core.RiskReport, error)

	// Put fully replaces the record under key.
	Put(ctx context.Context, key core.RegistryKey, report core.RiskReport) error

	// PutBatch applies every record or none.
	PutBatch(ctx context.Context, records []RegistryRecord) error

	// SchemaVersion reports the store's current schema version.
	SchemaVersion(ctx context.Context) (uint32, error)

	// SetSchemaVersion records a completed migration.
	SetSchemaVersion(ctx context.Context, version uint32) error
}
