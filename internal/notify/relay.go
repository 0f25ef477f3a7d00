package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trogers1052/gold-price-alerts/internal/models"
)

// PushPublisher enqueues push requests for an out-of-process worker
type PushPublisher interface {
	PublishPushRequest(ctx context.Context, req models.PushRequest) error
}

// Relay hands notifications to a queue instead of delivering them
type Relay struct {
	publisher PushPublisher
}

// NewRelay creates a Relay
func NewRelay(publisher PushPublisher) *Relay {
	return &Relay{publisher: publisher}
}

// Send enqueues msg for token
func (r *Relay) Send(ctx context.Context, token string, msg Message) error {
	req := models.PushRequest{
		EventID:     uuid.NewString(),
		EventType:   models.EventPushRequested,
		DeviceToken: token,
		Title:       msg.Title,
		Body:        msg.Body,
		Data:        msg.Data,
		Timestamp:   time.Now().UTC(),
	}
	if err := r.publisher.PublishPushRequest(ctx, req); err != nil {
		return fmt.Errorf("failed to enqueue push request: %w", err)
	}
	return nil
}
