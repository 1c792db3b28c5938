package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/wardenhq/warden/core"
	"github.com/wardenhq/warden/ports"
)

// Topics published for off-chain consumers.
const (
	TopicReportStored = "warden.report_stored"
	TopicLogout       = "warden.logout"
)

// LogoutEvent notifies other instances that a credential was logged out.
type LogoutEvent struct {
	Address      string `json:"address"`
	CredentialID string `json:"credential_id"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishReportStored publishes a record-stored event for indexing.
func (p *WatermillPublisher) PublishReportStored(ctx context.Context, event core.ReportStoredEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(TopicReportStored, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// PublishLogout publishes a logout event.
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string, credentialID string) error {
	event := LogoutEvent{
		Address:      address,
		CredentialID: credentialID,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(credentialID, payload)

	if err := p.publisher.Publish(TopicLogout, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
