package repositories

import (
	"context"
	"fmt"

	"licensetracker/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

type NotificationLogRepository interface {
	// Count returns the number of log rows matching the filter
	Count(ctx context.Context, filter models.NotificationLogFilter) (int, error)

	// InsertBatch writes all entries in a single COPY; entries are never updated afterwards
	InsertBatch(ctx context.Context, entries []*models.NotificationLog) error

	// ListByLicense returns the most recent attempts for a license
	ListByLicense(ctx context.Context, licenseID uuid.UUID, limit int) ([]*models.NotificationLog, error)
}

type notificationLogRepo struct {
	db Database
}

func NewNotificationLogRepo(db Database) NotificationLogRepository {
	return &notificationLogRepo{db: db}
}

var notificationLogColumns = []string{
	"id", "license_id", "notification_type", "sent_at", "status", "message_preview", "error_message",
}

func (r *notificationLogRepo) Count(ctx context.Context, filter models.NotificationLogFilter) (int, error) {
	query := `SELECT COUNT(*) FROM notification_logs WHERE status = $1 AND sent_at >= $2`
	args := []any{string(filter.Status), filter.SentAfter}
	argIdx := 2

	if filter.LicenseID != nil {
		argIdx++
		query += fmt.Sprintf(" AND license_id = $%d", argIdx)
		args = append(args, *filter.LicenseID)
	}

	if filter.NotificationType != nil {
		argIdx++
		query += fmt.Sprintf(" AND notification_type = $%d", argIdx)
		args = append(args, string(*filter.NotificationType))
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count notification logs")
	}
	return count, nil
}

func (r *notificationLogRepo) InsertBatch(ctx context.Context, entries []*models.NotificationLog) error {
	if len(entries) == 0 {
		return nil
	}

	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
	}

	copied, err := r.db.CopyFrom(ctx,
		pgx.Identifier{"notification_logs"},
		notificationLogColumns,
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			return []any{
				e.ID,
				e.LicenseID,
				string(e.NotificationType),
				e.SentAt,
				string(e.Status),
				e.MessagePreview,
				e.ErrorMessage,
			}, nil
		}),
	)
	if err != nil {
		return errors.Wrap(err, "insert notification logs")
	}
	if int(copied) != len(entries) {
		return errors.Errorf("insert notification logs: copied %d of %d rows", copied, len(entries))
	}
	return nil
}

func (r *notificationLogRepo) ListByLicense(ctx context.Context, licenseID uuid.UUID, limit int) ([]*models.NotificationLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, license_id, notification_type, sent_at, status, message_preview, error_message
		FROM notification_logs
		WHERE license_id = $1
		ORDER BY sent_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, licenseID, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "list notification logs for license %s", licenseID)
	}
	defer rows.Close()

	var logs []*models.NotificationLog
	for rows.Next() {
		entry := &models.NotificationLog{}
		var notificationType, status string
		if err := rows.Scan(
			&entry.ID,
			&entry.LicenseID,
			&notificationType,
			&entry.SentAt,
			&status,
			&entry.MessagePreview,
			&entry.ErrorMessage,
		); err != nil {
			return nil, errors.Wrap(err, "scan notification log")
		}
		entry.NotificationType = models.NotificationTier(notificationType)
		entry.Status = models.NotificationOutcome(status)
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate notification logs")
	}
	return logs, nil
}
