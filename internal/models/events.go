package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event type constants
const (
	EventPriceUpdated   = "PRICE_UPDATED"
	EventAlertTriggered = "ALERT_TRIGGERED"
	EventPushRequested  = "PUSH_REQUESTED"
)

// PriceEvent represents a Kafka event for price and alert changes
type PriceEvent struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Metal     string          `json:"metal"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency,omitempty"`
	AlertID   int64           `json:"alert_id,omitempty"`
	Direction string          `json:"direction,omitempty"`
	Target    decimal.Decimal `json:"target_price,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// PushRequest asks the push worker to deliver one notification
type PushRequest struct {
	EventID     string            `json:"event_id"`
	EventType   string            `json:"event_type"`
	DeviceToken string            `json:"device_token"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}
