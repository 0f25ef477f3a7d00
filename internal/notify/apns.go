package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// ErrRejected is returned when APNs refuses a notification
var ErrRejected = errors.New("push rejected")

// APNsConfig holds token-based APNs credentials
type APNsConfig struct {
	KeyFile    string
	KeyID      string
	TeamID     string
	Topic      string
	Production bool
}

// APNsNotifier pushes through Apple Push Notification service
type APNsNotifier struct {
	client *apns2.Client
	topic  string
}

// NewAPNs builds a token-authenticated notifier from a .p8 key file
func NewAPNs(cfg APNsConfig) (*APNsNotifier, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load apns auth key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return NewAPNsFromClient(client, cfg.Topic), nil
}

// NewAPNsFromClient wraps an existing apns2 client
func NewAPNsFromClient(client *apns2.Client, topic string) *APNsNotifier {
	return &APNsNotifier{client: client, topic: topic}
}

// Send pushes msg to the device
func (n *APNsNotifier) Send(ctx context.Context, deviceToken string, msg Message) error {
	pl := payload.NewPayload().AlertTitle(msg.Title).AlertBody(msg.Body).Sound("default")
	for k, v := range msg.Data {
		pl.Custom(k, v)
	}

	resp, err := n.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       n.topic,
		Expiration:  time.Now().Add(24 * time.Hour),
		Payload:     pl,
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if !resp.Sent() {
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, resp.Reason)
	}
	return nil
}
