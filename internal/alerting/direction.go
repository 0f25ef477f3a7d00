// Package alerting evaluates price alerts and manages their lifecycle.
package alerting

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/gold-price-alerts/internal/models"
	"github.com/trogers1052/gold-price-alerts/internal/notify"
)

// NotificationTitle is the title of every alert notification
const NotificationTitle = "Gold Price Alert"

// DirectionFor derives an alert direction from its target and the current
// price. An unknown current price yields BELOW.
func DirectionFor(target decimal.Decimal, current *decimal.Decimal) string {
	if current == nil {
		return models.DirectionBelow
	}
	if target.GreaterThan(*current) {
		return models.DirectionAbove
	}
	return models.DirectionBelow
}

// BuildMessage formats the notification for an alert firing at price
func BuildMessage(a *models.Alert, price decimal.Decimal) notify.Message {
	verb := "dropped below"
	if a.Direction == models.DirectionAbove {
		verb = "risen to"
	}
	return notify.Message{
		Title: NotificationTitle,
		Body:  fmt.Sprintf("Gold price has %s ₹%s. Current: ₹%s", verb, a.TargetPrice.String(), price.StringFixed(2)),
		Data: map[string]string{
			"alert_id":     strconv.FormatInt(a.ID, 10),
			"direction":    a.Direction,
			"target_price": a.TargetPrice.String(),
			"price":        price.StringFixed(2),
		},
	}
}
