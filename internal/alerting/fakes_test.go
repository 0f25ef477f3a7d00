package alerting

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/gold-price-alerts/internal/database"
	"github.com/trogers1052/gold-price-alerts/internal/models"
	"github.com/trogers1052/gold-price-alerts/internal/notify"
)

// memStore is an in-memory Repository and AlertStore with the same
// conditional-update semantics as the database.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	alerts   map[int64]*models.Alert
	triggers []models.AlertTrigger
	snapshot *models.PriceSnapshot
	nextID   int64
	pendErr  error
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[string]*models.User),
		alerts: make(map[int64]*models.Alert),
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) GetOrCreateUser(ctx context.Context, token string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[token]; ok {
		return u, nil
	}
	u := &models.User{ID: m.id(), DeviceToken: token, CreatedAt: time.Now()}
	m.users[token] = u
	return u, nil
}

func (m *memStore) GetUserByDeviceToken(ctx context.Context, token string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[token]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user with token: %w", database.ErrNotFound)
}

func (m *memStore) CreateAlert(ctx context.Context, a *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.alerts {
		if existing.UserID == a.UserID && existing.Active && !existing.Triggered {
			return database.ErrAlertExists
		}
	}
	a.ID = m.id()
	a.Active = true
	a.CreatedAt = time.Now().Add(time.Duration(a.ID) * time.Millisecond)
	stored := *a
	m.alerts[a.ID] = &stored
	return nil
}

func (m *memStore) GetAlertsByUser(ctx context.Context, userID int64) ([]*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Alert{}
	for _, a := range m.alerts {
		if a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) DeleteAlert(ctx context.Context, alertID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok || a.UserID != userID {
		return fmt.Errorf("alert %d: %w", alertID, database.ErrNotFound)
	}
	delete(m.alerts, alertID)
	return nil
}

func (m *memStore) GetLatestPriceSnapshot(ctx context.Context, metal string) (*models.PriceSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return nil, fmt.Errorf("no snapshot: %w", database.ErrNotFound)
	}
	return m.snapshot, nil
}

func (m *memStore) GetPendingAlerts(ctx context.Context, metal string) ([]*models.PendingAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendErr != nil {
		return nil, m.pendErr
	}
	tokens := make(map[int64]string)
	for token, u := range m.users {
		tokens[u.ID] = token
	}
	var out []*models.PendingAlert
	for _, a := range m.alerts {
		if a.Metal == metal && a.Active && !a.Triggered {
			out = append(out, &models.PendingAlert{Alert: *a, DeviceToken: tokens[a.UserID]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) TriggerAlert(ctx context.Context, alertID int64, price decimal.Decimal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[alertID]
	if !ok || a.Triggered {
		return false, nil
	}
	a.Triggered = true
	a.Active = false
	m.triggers = append(m.triggers, models.AlertTrigger{AlertID: alertID, TriggeredPrice: price, TriggeredAt: time.Now()})
	return true, nil
}

func (m *memStore) addAlert(token string, target int64, direction string) *models.Alert {
	u, _ := m.GetOrCreateUser(context.Background(), token)
	a := &models.Alert{
		UserID:      u.ID,
		Metal:       models.MetalGold,
		TargetPrice: decimal.NewFromInt(target),
		Direction:   direction,
	}
	if err := m.CreateAlert(context.Background(), a); err != nil {
		panic(err)
	}
	return a
}

func (m *memStore) triggerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.triggers)
}

type sent struct {
	token string
	msg   notify.Message
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (n *recordingNotifier) Send(ctx context.Context, token string, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sent{token: token, msg: msg})
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type recordingEvents struct {
	mu     sync.Mutex
	alerts []int64
}

func (e *recordingEvents) PublishAlertTriggered(ctx context.Context, a *models.Alert, price decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts = append(e.alerts, a.ID)
	return nil
}

type stuckEvents struct {
	mu       sync.Mutex
	deadline bool
	calls    int
}

func (e *stuckEvents) PublishAlertTriggered(ctx context.Context, a *models.Alert, price decimal.Decimal) error {
	e.mu.Lock()
	e.calls++
	_, e.deadline = ctx.Deadline()
	e.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}
