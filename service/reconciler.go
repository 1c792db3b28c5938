package service

import (
	"context"

	"github.com/wardenhq/warden/core"
)

// Reconciler is a read-only helper that resolves an address to its on-chain
// attestation, used to cross-check a freshly computed off-chain score against
// the recorded point-in-time one.
type Reconciler struct {
	registry *RegistryService
}

// NewReconciler creates a reconciler over a registry.
func NewReconciler(registry *RegistryService) *Reconciler {
	return &Reconciler{registry: registry}
}

// Lookup derives the registry key for an address and fetches its report.
// ok is false when no attestation exists for the address.
func (r *Reconciler) Lookup(ctx context.Context, address string) (report core.RiskReport, ok bool, err error) {
	key, err := core.DeriveKey(address)
	if err != nil {
		return core.RiskReport{}, false, err
	}

	report, err = r.registry.GetReport(ctx, key)
	if err != nil {
		return core.RiskReport{}, false, err
	}

	return report, report.Exists(), nil
}
