// Package notify delivers alert notifications to devices.
package notify

import (
	"context"

	"go.uber.org/zap"
)

// Message is a push notification
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Notifier sends a message to one device token
type Notifier interface {
	Send(ctx context.Context, token string, msg Message) error
}

// LogNotifier only logs messages. Used when no push backend is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs msg
func (n *LogNotifier) Send(ctx context.Context, token string, msg Message) error {
	n.logger.Info("notification",
		zap.String("token", redact(token)),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
		zap.Any("data", msg.Data),
	)
	return nil
}

// redact keeps only the tail of a device token for logs
func redact(token string) string {
	if len(token) <= 6 {
		return "***"
	}
	return "***" + token[len(token)-6:]
}
