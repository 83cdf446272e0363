package services

import (
	"context"
	"time"

	"licensetracker/internal/caching"
	"licensetracker/internal/metrics"
	"licensetracker/internal/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ErrRunInProgress is returned when another notification run holds the lock
var ErrRunInProgress = errors.New("notification run already in progress")

const defaultRunLockTTL = 10 * time.Minute

// ExpiryRunner performs a single notification pass
type ExpiryRunner interface {
	Run(ctx context.Context) (*models.RunSummary, error)
}

// ExpiryCheckService wraps a notification pass with run coordination,
// metrics and last-run bookkeeping. It is shared by the HTTP trigger and
// the in-process schedule.
type ExpiryCheckService interface {
	Execute(ctx context.Context, trigger string) (*models.RunSummary, error)
	LastRun(ctx context.Context) (*models.RunSummary, error)
}

type expiryCheckService struct {
	runner  ExpiryRunner
	store   caching.RunStore
	lockTTL time.Duration
	logger  *zap.Logger
}

func NewExpiryCheckService(runner ExpiryRunner, store caching.RunStore, lockTTL time.Duration, logger *zap.Logger) ExpiryCheckService {
	if lockTTL <= 0 {
		lockTTL = defaultRunLockTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &expiryCheckService{
		runner:  runner,
		store:   store,
		lockTTL: lockTTL,
		logger:  logger,
	}
}

func (s *expiryCheckService) Execute(ctx context.Context, trigger string) (*models.RunSummary, error) {
	log := s.logger.With(zap.String("trigger", trigger))

	release, ok, err := s.store.AcquireRunLock(ctx, s.lockTTL)
	switch {
	case err != nil:
		// coordination is best effort; a Redis outage must not stop reminders
		log.Warn("run lock unavailable, continuing without it", zap.Error(err))
	case !ok:
		log.Info("skipping notification run, another run holds the lock")
		metrics.Runs.WithLabelValues("skipped").Inc()
		return nil, ErrRunInProgress
	default:
		defer release()
	}

	start := time.Now()
	summary, err := s.runner.Run(ctx)
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Runs.WithLabelValues("error").Inc()
		log.Error("notification run failed", zap.Error(err))
		return nil, err
	}

	metrics.Runs.WithLabelValues(string(summary.Status)).Inc()
	if summary.Status == models.RunQuotaExceeded {
		metrics.QuotaRemaining.Set(0)
	} else {
		metrics.QuotaRemaining.Set(float64(summary.QuotaRemaining))
	}

	if err := s.store.SaveLastRun(ctx, summary); err != nil {
		log.Warn("failed to store run summary", zap.Error(err))
	}

	log.Info("notification run finished",
		zap.String("status", string(summary.Status)),
		zap.Int("processed", summary.Processed),
		zap.Int("messages_sent", summary.MessagesSent),
		zap.Duration("elapsed", time.Since(start)),
	)
	return summary, nil
}

func (s *expiryCheckService) LastRun(ctx context.Context) (*models.RunSummary, error) {
	return s.store.GetLastRun(ctx)
}
