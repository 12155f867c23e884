package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/crosswalk-games/pointbridge/core"
	"github.com/crosswalk-games/pointbridge/ports"
)

// ApprovalEvent represents an issued action approval
type ApprovalEvent struct {
	WalletAddress string `json:"wallet_address"`
	Action        string `json:"action"`
	Amount        int64  `json:"amount"`
	NextNonce     int64  `json:"next_nonce"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     "pointbridge.approvals",
	}
}

// PublishApproval publishes an approval-issued event
func (p *WatermillPublisher) PublishApproval(ctx context.Context, walletAddress string, action core.Action, amount, nextNonce int64) error {
	event := ApprovalEvent{
		WalletAddress: walletAddress,
		Action:        string(action),
		Amount:        amount,
		NextNonce:     nextNonce,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
