package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/gold-price-alerts/internal/models"
)

// CreateAlert inserts a new pending alert for a user.
// Returns ErrAlertExists when the user already has an active, untriggered alert.
func (db *DB) CreateAlert(ctx context.Context, a *models.Alert) error {
	var exists bool
	err := db.conn.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM alerts
			WHERE user_id = $1 AND active = true AND triggered = false
		)
	`, a.UserID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check existing alerts: %w", err)
	}
	if exists {
		return ErrAlertExists
	}

	query := `
		INSERT INTO alerts (user_id, metal, target_price, direction, active, triggered, created_at)
		VALUES ($1, $2, $3, $4, true, false, $5)
		RETURNING id
	`
	now := time.Now()
	err = db.conn.QueryRowContext(ctx, query,
		a.UserID, a.Metal, a.TargetPrice, a.Direction, now,
	).Scan(&a.ID)
	if isUniqueViolation(err) {
		// lost a race against a concurrent create for the same user
		return ErrAlertExists
	}
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	a.Active = true
	a.Triggered = false
	a.CreatedAt = now
	return nil
}

// GetAlertByID retrieves an alert by ID. Deleted alerts are not found.
func (db *DB) GetAlertByID(ctx context.Context, id int64) (*models.Alert, error) {
	query := `
		SELECT id, user_id, metal, target_price, direction, active, triggered, created_at
		FROM alerts
		WHERE id = $1 AND deleted_at IS NULL
	`
	var a models.Alert
	err := db.conn.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.UserID, &a.Metal, &a.TargetPrice, &a.Direction, &a.Active, &a.Triggered, &a.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("alert %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return &a, nil
}

// GetAlertsByUser retrieves all alerts for a user, newest first
func (db *DB) GetAlertsByUser(ctx context.Context, userID int64) ([]*models.Alert, error) {
	query := `
		SELECT id, user_id, metal, target_price, direction, active, triggered, created_at
		FROM alerts
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
	`
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.Alert{}
	for rows.Next() {
		var a models.Alert
		err := rows.Scan(
			&a.ID, &a.UserID, &a.Metal, &a.TargetPrice, &a.Direction, &a.Active, &a.Triggered, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

// GetPendingAlerts retrieves active, untriggered alerts for a metal with their owners' device tokens
func (db *DB) GetPendingAlerts(ctx context.Context, metal string) ([]*models.PendingAlert, error) {
	query := `
		SELECT a.id, a.user_id, a.metal, a.target_price, a.direction, a.active, a.triggered,
		       a.created_at, u.device_token
		FROM alerts a
		JOIN users u ON u.id = a.user_id
		WHERE a.active = true AND a.triggered = false AND a.metal = $1
		ORDER BY a.id
	`
	rows, err := db.conn.QueryContext(ctx, query, metal)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending alerts: %w", err)
	}
	defer rows.Close()

	var pending []*models.PendingAlert
	for rows.Next() {
		var p models.PendingAlert
		err := rows.Scan(
			&p.ID, &p.UserID, &p.Metal, &p.TargetPrice, &p.Direction, &p.Active, &p.Triggered,
			&p.CreatedAt, &p.DeviceToken,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending alert: %w", err)
		}
		pending = append(pending, &p)
	}
	return pending, rows.Err()
}

// TriggerAlert flips a pending alert to triggered and records the audit row.
// The update is guarded by active = true AND triggered = false, so among
// concurrent callers only one observes an affected row and gets true; everyone
// else gets false. Deleted alerts are inactive and never trigger.
func (db *DB) TriggerAlert(ctx context.Context, alertID int64, price decimal.Decimal) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		UPDATE alerts
		SET triggered = true, active = false
		WHERE id = $1 AND active = true AND triggered = false
		RETURNING id
	`, alertID).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to mark alert triggered: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO alert_triggers (alert_id, triggered_price, triggered_at)
		VALUES ($1, $2, $3)
	`, alertID, price, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to create alert trigger: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// GetAlertTriggers retrieves the trigger records of an alert
func (db *DB) GetAlertTriggers(ctx context.Context, alertID int64) ([]*models.AlertTrigger, error) {
	query := `
		SELECT id, alert_id, triggered_price, triggered_at
		FROM alert_triggers
		WHERE alert_id = $1
		ORDER BY triggered_at
	`
	rows, err := db.conn.QueryContext(ctx, query, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to query alert triggers: %w", err)
	}
	defer rows.Close()

	var triggers []*models.AlertTrigger
	for rows.Next() {
		var t models.AlertTrigger
		if err := rows.Scan(&t.ID, &t.AlertID, &t.TriggeredPrice, &t.TriggeredAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert trigger: %w", err)
		}
		triggers = append(triggers, &t)
	}
	return triggers, rows.Err()
}

// DeleteAlert soft-deletes an alert owned by userID; its trigger record is kept.
// A missing alert and someone else's alert both yield ErrNotFound.
func (db *DB) DeleteAlert(ctx context.Context, alertID, userID int64) error {
	query := `
		UPDATE alerts
		SET active = false, deleted_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`
	result, err := db.conn.ExecContext(ctx, query, alertID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("alert %d: %w", alertID, ErrNotFound)
	}
	return nil
}
