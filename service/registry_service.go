package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wardenhq/warden/core"
	"github.com/wardenhq/warden/metrics"
	"github.com/wardenhq/warden/ports"
)

// Migration upgrades the registry store's layout by one schema version.
// Storage layout compatibility is the migration author's responsibility —
// nothing here can check that the rewritten records still decode.
type Migration interface {
	// Version is the schema version this migration produces.
	Version() uint32

	// Apply rewrites the store's contents into the new layout.
	Apply(ctx context.Context, store ports.RegistryStore) error
}

// RegistryService is the risk attestation registry: an address-keyed mapping
// of risk reports with role-gated writes, open reads, and an Admin-gated
// upgrade path. Writes validate fully before touching the store, so a failed
// call leaves no partial state.
type RegistryService struct {
	store    ports.RegistryStore
	eventPub ports.EventPublisher
	metrics  *metrics.Metrics

	mu    sync.RWMutex
	roles map[string]map[core.Role]bool
}

// NewRegistryService creates a registry whose deployer holds both the
// Updater and Admin roles.
func NewRegistryService(store ports.RegistryStore, eventPub ports.EventPublisher, deployer string, m *metrics.Metrics) (*RegistryService, error) {
	addr, err := core.CanonicalAddress(deployer)
	if err != nil {
		return nil, err
	}

	s := &RegistryService{
		store:    store,
		eventPub: eventPub,
		metrics:  m,
		roles: map[string]map[core.Role]bool{
			addr: {core.RoleUpdater: true, core.RoleAdmin: true},
		},
	}
	return s, nil
}

// HasRole reports whether an account holds a role.
func (s *RegistryService) HasRole(account string, role core.Role) bool {
	addr, err := core.CanonicalAddress(account)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.roles[addr][role]
}

// GrantRole grants a role to an account. Caller must hold Admin.
func (s *RegistryService) GrantRole(caller, account string, role core.Role) error {
	if !s.HasRole(caller, core.RoleAdmin) {
		return core.ErrRoleUnauthorized
	}

	addr, err := core.CanonicalAddress(account)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roles[addr] == nil {
		s.roles[addr] = make(map[core.Role]bool)
	}
	s.roles[addr][role] = true
	return nil
}

// RevokeRole revokes a role from an account. Caller must hold Admin.
func (s *RegistryService) RevokeRole(caller, account string, role core.Role) error {
	if !s.HasRole(caller, core.RoleAdmin) {
		return core.ErrRoleUnauthorized
	}

	addr, err := core.CanonicalAddress(account)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.roles[addr], role)
	return nil
}

func validateReport(report core.RiskReport) error {
	if report.Score > core.MaxRiskScore {
		return core.ErrScoreOutOfRange
	}
	// Zero is the "never written" sentinel; storing it would make the record
	// indistinguishable from an empty slot.
	if report.Timestamp == 0 {
		return core.ErrZeroTimestamp
	}
	return nil
}

// StoreReport fully replaces the record under key and emits a record-stored
// event. Caller must hold Updater.
func (s *RegistryService) StoreReport(ctx context.Context, caller string, key core.RegistryKey, report core.RiskReport) error {
	if !s.HasRole(caller, core.RoleUpdater) {
		s.metrics.IncRegistryWrite("unauthorized", "single")
		return core.ErrRoleUnauthorized
	}

	if err := validateReport(report); err != nil {
		s.metrics.IncRegistryWrite("invalid", "single")
		return err
	}

	if err := s.store.Put(ctx, key, report); err != nil {
		s.metrics.IncRegistryWrite("error", "single")
		return fmt.Errorf("failed to store report: %w", err)
	}

	s.publishStored(ctx, key, report)
	s.metrics.IncRegistryWrite("ok", "single")
	return nil
}

// StoreReportsBatch applies every tuple in input order, or none. Validation
// runs over the whole batch before any write, and the store applies the batch
// atomically, so a reader never observes a partial batch. One event is
// emitted per record, in order.
func (s *RegistryService) StoreReportsBatch(ctx context.Context, caller string, keys []core.RegistryKey, reports []core.RiskReport) error {
	if !s.HasRole(caller, core.RoleUpdater) {
		s.metrics.IncRegistryWrite("unauthorized", "batch")
		return core.ErrRoleUnauthorized
	}

	if len(keys) != len(reports) {
		s.metrics.IncRegistryWrite("invalid", "batch")
		return core.ErrArrayLengthMismatch
	}

	for _, report := range reports {
		if err := validateReport(report); err != nil {
			s.metrics.IncRegistryWrite("invalid", "batch")
			return err
		}
	}

	records := make([]ports.RegistryRecord, len(keys))
	for i := range keys {
		records[i] = ports.RegistryRecord{Key: keys[i], Report: reports[i]}
	}

	if err := s.store.PutBatch(ctx, records); err != nil {
		s.metrics.IncRegistryWrite("error", "batch")
		return fmt.Errorf("failed to store batch: %w", err)
	}

	for i := range keys {
		s.publishStored(ctx, keys[i], reports[i])
	}
	s.metrics.IncRegistryWrite("ok", "batch")
	return nil
}

// GetReport is an unrestricted read. A report with a zero timestamp means
// "no attestation exists".
func (s *RegistryService) GetReport(ctx context.Context, key core.RegistryKey) (core.RiskReport, error) {
	start := time.Now()
	report, err := s.store.Get(ctx, key)
	s.metrics.ObserveRead(time.Since(start))
	return report, err
}

// AuthorizeUpgrade applies a schema migration. Caller must hold Admin — a
// distinct role from Updater, so the normal write path can never reach the
// upgrade path. Migrations must target the next schema version.
func (s *RegistryService) AuthorizeUpgrade(ctx context.Context, caller string, migration Migration) error {
	if !s.HasRole(caller, core.RoleAdmin) {
		return core.ErrRoleUnauthorized
	}

	current, err := s.store.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if migration.Version() != current+1 {
		return core.ErrBadUpgradeVersion
	}

	if err := migration.Apply(ctx, s.store); err != nil {
		return fmt.Errorf("migration to v%d failed: %w", migration.Version(), err)
	}

	return s.store.SetSchemaVersion(ctx, migration.Version())
}

func (s *RegistryService) publishStored(ctx context.Context, key core.RegistryKey, report core.RiskReport) {
	if s.eventPub == nil {
		return
	}
	event := core.ReportStoredEvent{
		Wallet:         key.Hex(),
		Score:          report.Score,
		ContentPointer: report.ContentPointer,
		Timestamp:      report.Timestamp,
	}
	if err := s.eventPub.PublishReportStored(ctx, event); err != nil {
		// The write has already landed; indexers catch up from state.
		log.Printf("failed to publish report-stored event: %v", err)
	}
}
