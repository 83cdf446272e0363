package notifier

import (
	"context"
	"time"

	"licensetracker/internal/models"
	"licensetracker/internal/repositories"

	"github.com/pkg/errors"
)

const DefaultQuotaLimit = 300

// QuotaGuard counts successful sends in the current calendar month of loc.
// It is consulted once before a run; sends inside a run are not re-checked.
type QuotaGuard struct {
	logs  repositories.NotificationLogRepository
	limit int
	loc   *time.Location
}

func NewQuotaGuard(logs repositories.NotificationLogRepository, limit int, loc *time.Location) *QuotaGuard {
	if limit <= 0 {
		limit = DefaultQuotaLimit
	}
	if loc == nil {
		loc = time.UTC
	}
	return &QuotaGuard{logs: logs, limit: limit, loc: loc}
}

func (q *QuotaGuard) Limit() int {
	return q.limit
}

// MonthStart is 00:00 on the first day of now's month in loc
func MonthStart(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
}

func (q *QuotaGuard) Used(ctx context.Context, now time.Time) (int, error) {
	used, err := q.logs.Count(ctx, models.NotificationLogFilter{
		SentAfter: MonthStart(now, q.loc),
		Status:    models.NotificationSuccess,
	})
	if err != nil {
		return 0, errors.Wrap(err, "count monthly sends")
	}
	return used, nil
}

func (q *QuotaGuard) Remaining(ctx context.Context, now time.Time) (int, error) {
	used, err := q.Used(ctx, now)
	if err != nil {
		return 0, err
	}
	return q.remainingAfter(used), nil
}

func (q *QuotaGuard) IsExhausted(ctx context.Context, now time.Time) (bool, error) {
	used, err := q.Used(ctx, now)
	if err != nil {
		return false, err
	}
	return used >= q.limit, nil
}

func (q *QuotaGuard) remainingAfter(used int) int {
	if used >= q.limit {
		return 0
	}
	return q.limit - used
}
