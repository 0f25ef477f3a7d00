package database

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/gold-price-alerts/internal/models"
)

func TestAlertsRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)
	ctx := context.Background()

	createUser := func(t *testing.T, token string) *models.User {
		u, err := testDB.GetOrCreateUser(ctx, token)
		require.NoError(t, err)
		return u
	}

	createAlert := func(t *testing.T, userID int64, target, direction string) *models.Alert {
		a := &models.Alert{
			UserID:      userID,
			Metal:       models.MetalGold,
			TargetPrice: decimal.RequireFromString(target),
			Direction:   direction,
		}
		require.NoError(t, testDB.CreateAlert(ctx, a))
		return a
	}

	t.Run("GetOrCreateUser is idempotent per token", func(t *testing.T) {
		testDB.TruncateAll(t)

		first := createUser(t, "device-a")
		second := createUser(t, "device-a")
		other := createUser(t, "device-b")

		assert.Equal(t, first.ID, second.ID)
		assert.NotEqual(t, first.ID, other.ID)

		byID, err := testDB.GetUserByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "device-a", byID.DeviceToken)

		byToken, err := testDB.GetUserByDeviceToken(ctx, "device-b")
		require.NoError(t, err)
		assert.Equal(t, other.ID, byToken.ID)

		_, err = testDB.GetUserByDeviceToken(ctx, "device-z")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("CreateAlert creates pending alert", func(t *testing.T) {
		testDB.TruncateAll(t)
		u := createUser(t, "device-a")

		a := createAlert(t, u.ID, "7500", models.DirectionAbove)
		assert.NotZero(t, a.ID)
		assert.True(t, a.Active)
		assert.False(t, a.Triggered)

		got, err := testDB.GetAlertByID(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(7500).Equal(got.TargetPrice))
		assert.Equal(t, models.DirectionAbove, got.Direction)
	})

	t.Run("CreateAlert rejects second pending alert for user", func(t *testing.T) {
		testDB.TruncateAll(t)
		u := createUser(t, "device-a")
		createAlert(t, u.ID, "7500", models.DirectionAbove)

		dup := &models.Alert{UserID: u.ID, Metal: models.MetalGold, TargetPrice: decimal.NewFromInt(6500), Direction: models.DirectionBelow}
		assert.ErrorIs(t, testDB.CreateAlert(ctx, dup), ErrAlertExists)
	})

	t.Run("CreateAlert allowed again after trigger", func(t *testing.T) {
		testDB.TruncateAll(t)
		u := createUser(t, "device-a")
		a := createAlert(t, u.ID, "6000", models.DirectionBelow)

		ok, err := testDB.TriggerAlert(ctx, a.ID, decimal.NewFromInt(5990))
		require.NoError(t, err)
		require.True(t, ok)

		createAlert(t, u.ID, "5500", models.DirectionBelow)
	})

	t.Run("GetAlertsByUser returns newest first", func(t *testing.T) {
		testDB.TruncateAll(t)
		u := createUser(t, "device-a")

		first := createAlert(t, u.ID, "6000", models.DirectionBelow)
		_, err := testDB.TriggerAlert(ctx, first.ID, decimal.NewFromInt(5900))
		require.NoError(t, err)
		second := createAlert(t, u.ID, "7000", models.DirectionAbove)

		alerts, err := testDB.GetAlertsByUser(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, alerts, 2)
		assert.Equal(t, second.ID, alerts[0].ID)
		assert.Equal(t, first.ID, alerts[1].ID)
		assert.True(t, alerts[1].Triggered)
		assert.False(t, alerts[1].Active)
	})

	t.Run("GetPendingAlerts joins device tokens", func(t *testing.T) {
		testDB.TruncateAll(t)
		a := createUser(t, "device-a")
		b := createUser(t, "device-b")
		createAlert(t, a.ID, "6000", models.DirectionBelow)
		done := createAlert(t, b.ID, "7000", models.DirectionAbove)
		_, err := testDB.TriggerAlert(ctx, done.ID, decimal.NewFromInt(7100))
		require.NoError(t, err)

		pending, err := testDB.GetPendingAlerts(ctx, models.MetalGold)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, "device-a", pending[0].DeviceToken)
	})

	t.Run("TriggerAlert succeeds exactly once", func(t *testing.T) {
		testDB.TruncateAll(t)
		u := createUser(t, "device-a")
		a := createAlert(t, u.ID, "6000", models.DirectionBelow)

		ok, err := testDB.TriggerAlert(ctx, a.ID, decimal.NewFromInt(6000))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = testDB.TriggerAlert(ctx, a.ID, decimal.NewFromInt(5999))
		require.NoError(t, err)
		assert.False(t, ok)

		triggers, err := testDB.GetAlertTriggers(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, triggers, 1)
		assert.True(t, decimal.NewFromInt(6000).Equal(triggers[0].TriggeredPrice))
	})

	t.Run("TriggerAlert under concurrency writes one trigger", func(t *testing.T) {
		testDB.TruncateAll(t)
		u := createUser(t, "device-a")
		a := createAlert(t, u.ID, "6000", models.DirectionBelow)

		const workers = 8
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := testDB.TriggerAlert(ctx, a.ID, decimal.NewFromInt(5950))
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
		triggers, err := testDB.GetAlertTriggers(ctx, a.ID)
		require.NoError(t, err)
		assert.Len(t, triggers, 1)
	})

	t.Run("DeleteAlert is scoped to owner", func(t *testing.T) {
		testDB.TruncateAll(t)
		owner := createUser(t, "device-a")
		stranger := createUser(t, "device-b")
		a := createAlert(t, owner.ID, "6000", models.DirectionBelow)

		assert.ErrorIs(t, testDB.DeleteAlert(ctx, a.ID, stranger.ID), ErrNotFound)
		assert.ErrorIs(t, testDB.DeleteAlert(ctx, a.ID+1000, owner.ID), ErrNotFound)

		require.NoError(t, testDB.DeleteAlert(ctx, a.ID, owner.ID))
		_, err := testDB.GetAlertByID(ctx, a.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, testDB.DeleteAlert(ctx, a.ID, owner.ID), ErrNotFound)

		won, err := testDB.TriggerAlert(ctx, a.ID, decimal.NewFromInt(5000))
		require.NoError(t, err)
		assert.False(t, won, "deleted alert must not trigger")
	})

	t.Run("DeleteAlert keeps trigger audit", func(t *testing.T) {
		testDB.TruncateAll(t)
		owner := createUser(t, "device-a")
		a := createAlert(t, owner.ID, "6000", models.DirectionBelow)

		won, err := testDB.TriggerAlert(ctx, a.ID, decimal.NewFromInt(5990))
		require.NoError(t, err)
		require.True(t, won)

		require.NoError(t, testDB.DeleteAlert(ctx, a.ID, owner.ID))

		alerts, err := testDB.GetAlertsByUser(ctx, owner.ID)
		require.NoError(t, err)
		assert.Empty(t, alerts)

		triggers, err := testDB.GetAlertTriggers(ctx, a.ID)
		require.NoError(t, err)
		require.Len(t, triggers, 1)
		assert.True(t, triggers[0].TriggeredPrice.Equal(decimal.NewFromInt(5990)))

		_, err = testDB.GetRawConn().Exec(`DELETE FROM alerts WHERE id = $1`, a.ID)
		assert.Error(t, err, "hard delete of a triggered alert is restricted")
	})
}
