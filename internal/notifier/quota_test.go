package notifier

import (
	"context"
	"testing"
	"time"

	"licensetracker/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func successRows(n int, at time.Time) []*models.NotificationLog {
	rows := make([]*models.NotificationLog, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, &models.NotificationLog{
			ID:               uuid.New(),
			LicenseID:        uuid.New(),
			NotificationType: models.TierNinetyDay,
			Status:           models.NotificationSuccess,
			SentAt:           at,
		})
	}
	return rows
}

func TestMonthStart(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*3600)
	// still February in UTC, already March in Bangkok
	now := time.Date(2025, 2, 28, 18, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, bangkok), MonthStart(now, bangkok))
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), MonthStart(now, time.UTC))
}

func TestQuotaGuard(t *testing.T) {
	now := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store := &memoryLogStore{}
	store.entries = append(store.entries, successRows(3, now.AddDate(0, 0, -5))...)
	// last month, not counted
	store.entries = append(store.entries, successRows(4, time.Date(2025, 4, 30, 23, 0, 0, 0, time.UTC))...)
	// failed rows never count
	store.entries = append(store.entries, &models.NotificationLog{Status: models.NotificationFailed, SentAt: now})

	guard := NewQuotaGuard(store, 5, time.UTC)

	used, err := guard.Used(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 3, used)

	remaining, err := guard.Remaining(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)

	exhausted, err := guard.IsExhausted(ctx, now)
	require.NoError(t, err)
	assert.False(t, exhausted)

	store.entries = append(store.entries, successRows(2, now)...)
	exhausted, err = guard.IsExhausted(ctx, now)
	require.NoError(t, err)
	assert.True(t, exhausted)

	remaining, err = guard.Remaining(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestQuotaGuardDefaults(t *testing.T) {
	guard := NewQuotaGuard(&memoryLogStore{}, 0, nil)
	assert.Equal(t, DefaultQuotaLimit, guard.Limit())
	assert.Equal(t, 0, guard.remainingAfter(DefaultQuotaLimit+20))
}
