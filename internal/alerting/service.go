package alerting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/gold-price-alerts/internal/database"
	"github.com/trogers1052/gold-price-alerts/internal/models"
)

// ErrInvalidAlert is returned for malformed create requests
var ErrInvalidAlert = errors.New("invalid alert")

// Repository is the alert and owner persistence used by Service
type Repository interface {
	GetOrCreateUser(ctx context.Context, deviceToken string) (*models.User, error)
	GetUserByDeviceToken(ctx context.Context, deviceToken string) (*models.User, error)
	CreateAlert(ctx context.Context, a *models.Alert) error
	GetAlertsByUser(ctx context.Context, userID int64) ([]*models.Alert, error)
	DeleteAlert(ctx context.Context, alertID, userID int64) error
	GetLatestPriceSnapshot(ctx context.Context, metal string) (*models.PriceSnapshot, error)
}

// PriceSource returns the most recent computed price, if known
type PriceSource interface {
	Get() (models.LivePrice, bool)
}

// Service exposes owner-scoped alert operations keyed by device token
type Service struct {
	repo  Repository
	live  PriceSource
	metal string
}

// NewService creates a Service. live may be nil.
func NewService(repo Repository, live PriceSource, metal string) *Service {
	return &Service{repo: repo, live: live, metal: metal}
}

// CreateAlert registers a one-shot alert at target for the device owner.
// The direction is derived from the current price.
func (s *Service) CreateAlert(ctx context.Context, deviceToken string, target decimal.Decimal) (*models.Alert, error) {
	deviceToken = strings.TrimSpace(deviceToken)
	if deviceToken == "" {
		return nil, fmt.Errorf("%w: device token is required", ErrInvalidAlert)
	}
	if !target.IsPositive() {
		return nil, fmt.Errorf("%w: target price must be positive", ErrInvalidAlert)
	}

	user, err := s.repo.GetOrCreateUser(ctx, deviceToken)
	if err != nil {
		return nil, err
	}

	current, err := s.CurrentPrice(ctx)
	if err != nil {
		return nil, err
	}

	a := &models.Alert{
		UserID:      user.ID,
		Metal:       s.metal,
		TargetPrice: target,
		Direction:   DirectionFor(target, current),
	}
	if err := s.repo.CreateAlert(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAlerts returns the device owner's alerts, newest first. Unknown
// devices have no alerts.
func (s *Service) ListAlerts(ctx context.Context, deviceToken string) ([]*models.Alert, error) {
	user, err := s.repo.GetUserByDeviceToken(ctx, deviceToken)
	if errors.Is(err, database.ErrNotFound) {
		return []*models.Alert{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.repo.GetAlertsByUser(ctx, user.ID)
}

// DeleteAlert removes an alert owned by the device. Alerts that do not
// exist and alerts owned by someone else both yield database.ErrNotFound.
func (s *Service) DeleteAlert(ctx context.Context, deviceToken string, alertID int64) error {
	user, err := s.repo.GetUserByDeviceToken(ctx, deviceToken)
	if err != nil {
		return err
	}
	return s.repo.DeleteAlert(ctx, alertID, user.ID)
}

// CurrentPrice returns the live price, falling back to the latest snapshot.
// A nil result means no price has ever been recorded.
func (s *Service) CurrentPrice(ctx context.Context) (*decimal.Decimal, error) {
	if s.live != nil {
		if p, ok := s.live.Get(); ok {
			return &p.Price, nil
		}
	}

	snap, err := s.repo.GetLatestPriceSnapshot(ctx, s.metal)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current price: %w", err)
	}
	return &snap.Price, nil
}
