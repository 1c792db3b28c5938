package core

import "github.com/ethereum/go-ethereum/common"

// Roles gating registry mutations. The deployer holds both at initialization.
type Role string

const (
	// RoleUpdater may write risk reports.
	RoleUpdater Role = "updater"

	// RoleAdmin may grant/revoke roles and authorize registry upgrades.
	// Deliberately distinct from RoleUpdater: upgrades are a rarely-used
	// escape hatch, not part of the normal write path.
	RoleAdmin Role = "admin"
)

// MaxRiskScore is the inclusive upper bound for risk scores.
const MaxRiskScore = 100

// RegistryKey is the fixed-size key a report is stored under, derived from
// the canonical form of an address. Never stored as a separate mapping;
// computed fresh on every read and write.
type RegistryKey = common.Hash

// RiskReport is the registry record attesting to a wallet's assessed risk at
// a point in time. A write fully replaces the prior record; history, if any,
// lives behind ContentPointer. Timestamp is caller-supplied metadata, not a
// trust anchor.
type RiskReport struct {
	Score          uint8  `json:"risk_score"`
	ContentPointer string `json:"content_pointer"`
	Timestamp      uint64 `json:"timestamp"`
}

// Exists reports whether the record has ever been written. A zero timestamp
// means "no attestation", never a valid zero-score report.
func (r RiskReport) Exists() bool {
	return r.Timestamp != 0
}

// ReportStoredEvent is emitted on every successful registry write for
// off-chain indexing.
type ReportStoredEvent struct {
	Wallet         string `json:"wallet"`
	Score          uint8  `json:"risk_score"`
	ContentPointer string `json:"content_pointer"`
	Timestamp      uint64 `json:"timestamp"`
}
