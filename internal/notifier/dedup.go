package notifier

import (
	"context"
	"time"

	"licensetracker/internal/models"
	"licensetracker/internal/repositories"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultDedupWindow is the lookback applied to every tier
const DefaultDedupWindow = 15 * 24 * time.Hour

// DedupFilter suppresses a reminder when the same license and tier
// already had a successful send inside the window.
type DedupFilter struct {
	logs   repositories.NotificationLogRepository
	window time.Duration
}

func NewDedupFilter(logs repositories.NotificationLogRepository, window time.Duration) *DedupFilter {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &DedupFilter{logs: logs, window: window}
}

func (d *DedupFilter) ShouldNotify(ctx context.Context, licenseID uuid.UUID, tier models.NotificationTier, now time.Time) (bool, error) {
	count, err := d.logs.Count(ctx, models.NotificationLogFilter{
		SentAfter:        now.Add(-d.window),
		Status:           models.NotificationSuccess,
		LicenseID:        &licenseID,
		NotificationType: &tier,
	})
	if err != nil {
		return false, errors.Wrapf(err, "dedup lookup for license %s", licenseID)
	}
	return count == 0, nil
}
