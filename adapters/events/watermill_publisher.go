package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/herald/core"
	"github.com/layer-3/herald/ports"
)

// Topics events are published on
const (
	TopicSessionAuthenticated = "herald.session.authenticated"
	TopicSessionEnded         = "herald.session.ended"
	TopicActionSubmitted      = "herald.action.submitted"
)

// SessionEvent is published when a session starts or ends
type SessionEvent struct {
	Address string    `json:"address"`
	At      time.Time `json:"at"`
}

// ActionEvent is published once the contract call was accepted by the node
type ActionEvent struct {
	RequestID   string          `json:"request_id,omitempty"`
	Kind        core.ActionKind `json:"kind"`
	TxHash      string          `json:"tx_hash"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	now       func() time.Time
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		now:       time.Now,
	}
}

// PublishSessionAuthenticated publishes a session start event
func (p *WatermillPublisher) PublishSessionAuthenticated(ctx context.Context, address common.Address) error {
	return p.publish(ctx, TopicSessionAuthenticated, SessionEvent{Address: address.Hex(), At: p.now()})
}

// PublishSessionEnded publishes a logout event
func (p *WatermillPublisher) PublishSessionEnded(ctx context.Context, address common.Address) error {
	return p.publish(ctx, TopicSessionEnded, SessionEvent{Address: address.Hex(), At: p.now()})
}

// PublishActionSubmitted publishes a submitted transaction
func (p *WatermillPublisher) PublishActionSubmitted(ctx context.Context, requestID string, tx core.TxHandle) error {
	return p.publish(ctx, TopicActionSubmitted, ActionEvent{
		RequestID:   requestID,
		Kind:        tx.Kind,
		TxHash:      tx.Hash.Hex(),
		SubmittedAt: tx.SubmittedAt,
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
