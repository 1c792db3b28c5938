// Package registrystore provides persistence adapters for the risk report
// registry.
package registrystore

import (
	"context"
	"sync"

	"github.com/wardenhq/warden/core"
	"github.com/wardenhq/warden/ports"
)

// Memory is an in-memory implementation of the RegistryStore interface.
type Memory struct {
	reports map[core.RegistryKey]core.RiskReport
	version uint32
	mu      sync.RWMutex
}

// NewMemory creates a new in-memory registry store.
func NewMemory() *Memory {
	return &Memory{
		reports: make(map[core.RegistryKey]core.RiskReport),
		version: 1,
	}
}

// Get returns the report under key, or the zero value if never written.
func (s *Memory) Get(ctx context.Context, key core.RegistryKey) (core.RiskReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.reports[key], nil
}

// Put fully replaces the record under key.
func (s *Memory) Put(ctx context.Context, key core.RegistryKey, report core.RiskReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[key] = report
	return nil
}

// PutBatch applies every record under one lock; readers observe the batch as
// a single transition.
func (s *Memory) PutBatch(ctx context.Context, records []ports.RegistryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		s.reports[r.Key] = r.Report
	}
	return nil
}

// SchemaVersion reports the store's current schema version.
func (s *Memory) SchemaVersion(ctx context.Context) (uint32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.version, nil
}

// SetSchemaVersion records a completed migration.
func (s *Memory) SetSchemaVersion(ctx context.Context, version uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.version = version
	return nil
}

var _ ports.RegistryStore = (*Memory)(nil)
