package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/gold-price-alerts/internal/models"
)

// CreatePriceSnapshot appends a price snapshot.
// An empty PriceType is stored as digital gold.
func (db *DB) CreatePriceSnapshot(ctx context.Context, s *models.PriceSnapshot) error {
	query := `
		INSERT INTO price_snapshots (metal, price, price_type, fetched_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	if s.FetchedAt.IsZero() {
		s.FetchedAt = time.Now()
	}
	if s.PriceType == "" {
		s.PriceType = models.PriceTypeDigitalGold
	}

	err := db.conn.QueryRowContext(ctx, query, s.Metal, s.Price, s.PriceType, s.FetchedAt).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to create price snapshot: %w", err)
	}
	return nil
}

// GetLatestPriceSnapshot retrieves the most recent snapshot for a metal
func (db *DB) GetLatestPriceSnapshot(ctx context.Context, metal string) (*models.PriceSnapshot, error) {
	query := `
		SELECT id, metal, price, price_type, fetched_at
		FROM price_snapshots
		WHERE metal = $1
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`
	var s models.PriceSnapshot
	err := db.conn.QueryRowContext(ctx, query, metal).Scan(&s.ID, &s.Metal, &s.Price, &s.PriceType, &s.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no price snapshot for %s: %w", metal, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price snapshot: %w", err)
	}
	return &s, nil
}

// GetPriceSnapshots retrieves recent snapshots for a metal, newest first
func (db *DB) GetPriceSnapshots(ctx context.Context, metal string, limit int) ([]*models.PriceSnapshot, error) {
	query := `
		SELECT id, metal, price, price_type, fetched_at
		FROM price_snapshots
		WHERE metal = $1
		ORDER BY fetched_at DESC, id DESC
		LIMIT $2
	`
	rows, err := db.conn.QueryContext(ctx, query, metal, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.PriceSnapshot
	for rows.Next() {
		var s models.PriceSnapshot
		if err := rows.Scan(&s.ID, &s.Metal, &s.Price, &s.PriceType, &s.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price snapshot: %w", err)
		}
		snapshots = append(snapshots, &s)
	}
	return snapshots, rows.Err()
}
