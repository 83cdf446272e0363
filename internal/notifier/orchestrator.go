package notifier

import (
	"context"
	"time"

	"licensetracker/internal/models"
	"licensetracker/internal/repositories"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultLookupConcurrency = 5

// Config tunes a notification run. Zero values fall back to DefaultConfig.
type Config struct {
	QuotaLimit        int
	DedupWindow       time.Duration
	Thresholds        Thresholds
	Location          *time.Location
	Statuses          []models.LicenseStatus
	LookupConcurrency int
	SendConcurrency   int
	Now               func() time.Time
}

func DefaultConfig() Config {
	return Config{
		QuotaLimit:        DefaultQuotaLimit,
		DedupWindow:       DefaultDedupWindow,
		Thresholds:        DefaultThresholds,
		Location:          time.UTC,
		Statuses:          []models.LicenseStatus{models.LicenseStatusActive},
		LookupConcurrency: defaultLookupConcurrency,
		SendConcurrency:   defaultSendConcurrency,
		Now:               time.Now,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.QuotaLimit <= 0 {
		c.QuotaLimit = def.QuotaLimit
	}
	if c.DedupWindow <= 0 {
		c.DedupWindow = def.DedupWindow
	}
	if c.Thresholds == (Thresholds{}) {
		c.Thresholds = def.Thresholds
	}
	if c.Location == nil {
		c.Location = def.Location
	}
	if len(c.Statuses) == 0 {
		c.Statuses = def.Statuses
	}
	if c.LookupConcurrency <= 0 {
		c.LookupConcurrency = def.LookupConcurrency
	}
	if c.SendConcurrency <= 0 {
		c.SendConcurrency = def.SendConcurrency
	}
	if c.Now == nil {
		c.Now = def.Now
	}
	return c
}

// ExpiryNotifier runs one pass of the reminder pipeline:
// quota check, fetch, enrich, filter, dispatch, persist.
type ExpiryNotifier struct {
	licenses   repositories.LicenseRepository
	logs       repositories.NotificationLogRepository
	quota      *QuotaGuard
	dedup      *DedupFilter
	dispatcher *Dispatcher
	cfg        Config
	logger     *zap.Logger
}

func NewExpiryNotifier(
	licenses repositories.LicenseRepository,
	logs repositories.NotificationLogRepository,
	channel Channel,
	cfg Config,
	logger *zap.Logger,
) *ExpiryNotifier {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := NewDispatcher(channel, logger, cfg.Now, cfg.SendConcurrency)
	dispatcher.thresholds = cfg.Thresholds

	return &ExpiryNotifier{
		licenses:   licenses,
		logs:       logs,
		quota:      NewQuotaGuard(logs, cfg.QuotaLimit, cfg.Location),
		dedup:      NewDedupFilter(logs, cfg.DedupWindow),
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run executes a single notification pass. Quota exhaustion and an empty
// eligible set are reported through the summary; repository failures are
// returned as errors and nothing is persisted.
func (n *ExpiryNotifier) Run(ctx context.Context) (*models.RunSummary, error) {
	startedAt := n.cfg.Now()
	summary := &models.RunSummary{StartedAt: startedAt}

	used, err := n.quota.Used(ctx, startedAt)
	if err != nil {
		return nil, err
	}
	if used >= n.quota.Limit() {
		n.logger.Warn("monthly quota exhausted, skipping run",
			zap.Int("quota_used", used),
			zap.Int("quota_limit", n.quota.Limit()),
		)
		summary.Status = models.RunQuotaExceeded
		summary.Error = string(models.RunQuotaExceeded)
		summary.QuotaUsed = used
		summary.QuotaLimit = n.quota.Limit()
		summary.FinishedAt = n.cfg.Now()
		return summary, nil
	}

	horizon := n.cfg.Thresholds.Horizon()
	bound := Today(startedAt, n.cfg.Location).AddDate(0, 0, horizon)
	fetched, err := n.licenses.ListExpiring(ctx, models.LicenseFilter{
		ValidUntilBefore: &bound,
		StatusOneOf:      n.cfg.Statuses,
	})
	if err != nil {
		return nil, errors.Wrap(err, "fetch expiring licenses")
	}
	summary.Processed = len(fetched)

	enriched, err := n.enrich(ctx, fetched, startedAt)
	if err != nil {
		return nil, err
	}

	var eligible []models.EnrichedLicense
	for _, l := range enriched {
		if l.DaysRemaining < 1 || l.DaysRemaining > horizon {
			summary.OutOfRange++
		}
		if l.ShouldNotify {
			eligible = append(eligible, l)
		}
	}

	if len(eligible) == 0 {
		n.logger.Info("no licenses eligible for notification", zap.Int("processed", summary.Processed))
		summary.Success = true
		summary.Status = models.RunNothingToSend
		summary.QuotaRemaining = n.quota.remainingAfter(used)
		summary.Licenses = perLicenseResults(enriched, nil, horizon)
		summary.FinishedAt = n.cfg.Now()
		return summary, nil
	}

	dispatched, err := n.dispatcher.Run(ctx, eligible)
	if err != nil {
		return nil, errors.Wrap(err, "dispatch notifications")
	}

	if err := n.logs.InsertBatch(ctx, dispatched.Logs); err != nil {
		return nil, errors.Wrap(err, "persist notification logs")
	}

	successRows := 0
	outcomes := make(map[uuid.UUID]models.NotificationOutcome, len(dispatched.Logs))
	for _, entry := range dispatched.Logs {
		if entry.Status == models.NotificationSuccess {
			successRows++
		}
		outcomes[entry.LicenseID] = entry.Status
	}

	summary.Success = true
	summary.Status = models.RunCompleted
	summary.MessagesSent = dispatched.MessagesSent
	summary.QuotaRemaining = n.quota.remainingAfter(used + successRows)
	summary.Licenses = perLicenseResults(enriched, outcomes, horizon)
	summary.FinishedAt = n.cfg.Now()

	n.logger.Info("notification run completed",
		zap.Int("processed", summary.Processed),
		zap.Int("out_of_range", summary.OutOfRange),
		zap.Int("eligible", len(eligible)),
		zap.Int("messages_sent", summary.MessagesSent),
		zap.Int("quota_remaining", summary.QuotaRemaining),
	)
	return summary, nil
}

// enrich computes days remaining and tier for every license and looks up
// dedup eligibility for the in-range ones with bounded concurrency.
func (n *ExpiryNotifier) enrich(ctx context.Context, fetched []*models.License, now time.Time) ([]models.EnrichedLicense, error) {
	horizon := n.cfg.Thresholds.Horizon()
	enriched := make([]models.EnrichedLicense, len(fetched))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.cfg.LookupConcurrency)

	for i, l := range fetched {
		days := DaysRemaining(l.ValidUntil, now, n.cfg.Location)
		enriched[i] = models.EnrichedLicense{
			LicenseID:      l.ID,
			RegistrationNo: l.RegistrationNo,
			CompanyName:    deref(l.CompanyName),
			TagName:        deref(l.TagName),
			ValidUntil:     l.ValidUntil,
			DaysRemaining:  days,
			Tier:           n.cfg.Thresholds.Classify(days),
		}
		if days < 1 || days > horizon {
			continue
		}

		g.Go(func() error {
			ok, err := n.dedup.ShouldNotify(gctx, enriched[i].LicenseID, enriched[i].Tier, now)
			if err != nil {
				return err
			}
			enriched[i].ShouldNotify = ok
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return enriched, nil
}

func perLicenseResults(enriched []models.EnrichedLicense, sent map[uuid.UUID]models.NotificationOutcome, horizon int) []models.LicenseRunResult {
	results := make([]models.LicenseRunResult, 0, len(enriched))
	for _, l := range enriched {
		outcome := models.OutcomeDeduplicated
		switch {
		case l.DaysRemaining < 1 || l.DaysRemaining > horizon:
			outcome = models.OutcomeOutOfRange
		case sent[l.LicenseID] == models.NotificationSuccess:
			outcome = models.OutcomeSent
		case sent[l.LicenseID] == models.NotificationFailed:
			outcome = models.OutcomeFailed
		}
		results = append(results, models.LicenseRunResult{
			LicenseID:      l.LicenseID,
			RegistrationNo: l.RegistrationNo,
			DaysRemaining:  l.DaysRemaining,
			Tier:           l.Tier,
			Outcome:        outcome,
		})
	}
	return results
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
