package ports

import (
	"context"

	"github.com/wardenhq/warden/core"
)

// EventPublisher notifies off-chain indexers and other instances.
type EventPublisher interface {
	PublishReportStored(ctx context.Context, event core.ReportStoredEvent) error
	PublishLogout(ctx context.Context, address string, credentialID string) error
}
