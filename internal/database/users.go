package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trogers1052/gold-price-alerts/internal/models"
)

// GetOrCreateUser returns the user owning deviceToken, creating it on first contact
func (db *DB) GetOrCreateUser(ctx context.Context, deviceToken string) (*models.User, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	query := `
		INSERT INTO users (device_token)
		VALUES ($1)
		ON CONFLICT (device_token) DO UPDATE SET device_token = EXCLUDED.device_token
		RETURNING id, device_token, created_at
	`
	var u models.User
	err := db.conn.QueryRowContext(ctx, query, deviceToken).Scan(&u.ID, &u.DeviceToken, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}
	return &u, nil
}

// GetUserByID retrieves a user by ID
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, device_token, created_at FROM users WHERE id = $1`

	var u models.User
	err := db.conn.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.DeviceToken, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// GetUserByDeviceToken retrieves a user by device token without creating it
func (db *DB) GetUserByDeviceToken(ctx context.Context, deviceToken string) (*models.User, error) {
	query := `SELECT id, device_token, created_at FROM users WHERE device_token = $1`

	var u models.User
	err := db.conn.QueryRowContext(ctx, query, deviceToken).Scan(&u.ID, &u.DeviceToken, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user with token: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
