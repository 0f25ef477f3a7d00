package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/gold-price-alerts/internal/models"
	"github.com/trogers1052/gold-price-alerts/internal/notify"
	"go.uber.org/zap"
)

// PushConsumer delivers queued push requests through a Notifier
type PushConsumer struct {
	reader   *kafka.Reader
	notifier notify.Notifier
	timeout  time.Duration
	logger   *zap.Logger
}

// NewPushConsumer creates a consumer for push requests
func NewPushConsumer(brokers []string, topic, groupID string, notifier notify.Notifier, timeout time.Duration, logger *zap.Logger) *PushConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &PushConsumer{
		reader:   reader,
		notifier: notifier,
		timeout:  timeout,
		logger:   logger,
	}
}

// Start begins consuming messages from Kafka
func (c *PushConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting push consumer", zap.String("topic", c.reader.Config().Topic))

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("push consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				c.logger.Error("error reading message", zap.Error(err))
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				// a failed push is not retried; the alert has already fired
				c.logger.Error("error processing message",
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *PushConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var req models.PushRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return fmt.Errorf("failed to unmarshal push request: %w", err)
	}

	if req.EventType != models.EventPushRequested {
		c.logger.Debug("ignoring event type", zap.String("event_type", req.EventType))
		return nil
	}
	if req.DeviceToken == "" {
		return fmt.Errorf("push request %s has no device token", req.EventID)
	}

	sctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.notifier.Send(sctx, req.DeviceToken, notify.Message{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to deliver push %s: %w", req.EventID, err)
	}

	c.logger.Info("push delivered", zap.String("event_id", req.EventID))
	return nil
}

// Close closes the Kafka consumer
func (c *PushConsumer) Close() error {
	return c.reader.Close()
}
