package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction constants
const (
	DirectionAbove = "ABOVE"
	DirectionBelow = "BELOW"
)

// User is a device owner, identified by its push token
type User struct {
	ID          int64     `json:"id"`
	DeviceToken string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// Alert is a one-shot price threshold subscription.
// Once Triggered is set the alert is terminal and Active stays false.
type Alert struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"-"`
	Metal       string          `json:"metal"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Direction   string          `json:"direction"`
	Active      bool            `json:"active"`
	Triggered   bool            `json:"triggered"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ShouldTrigger reports whether price satisfies the alert threshold
func (a *Alert) ShouldTrigger(price decimal.Decimal) bool {
	switch a.Direction {
	case DirectionAbove:
		return price.GreaterThanOrEqual(a.TargetPrice)
	case DirectionBelow:
		return price.LessThanOrEqual(a.TargetPrice)
	default:
		return false
	}
}

// PendingAlert is an untriggered alert joined with its owner's device token
type PendingAlert struct {
	Alert
	DeviceToken string
}

// AlertTrigger is the audit record of an alert firing
type AlertTrigger struct {
	ID             int64           `json:"id"`
	AlertID        int64           `json:"alert_id"`
	TriggeredPrice decimal.Decimal `json:"triggered_price"`
	TriggeredAt    time.Time       `json:"triggered_at"`
}
