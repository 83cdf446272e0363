package notifier

import (
	"context"
	"time"

	"licensetracker/internal/metrics"
	"licensetracker/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	previewLength          = 100
	defaultSendConcurrency = 4
)

// Channel is the single outbound messaging channel
type Channel interface {
	Name() string
	// Send delivers text; a nil error means the channel accepted it
	Send(ctx context.Context, text string) error
}

// DispatchResult is what one dispatch pass produced. Logs are not persisted yet.
type DispatchResult struct {
	MessagesSent int
	Logs         []*models.NotificationLog
}

// Dispatcher groups eligible licenses by tier and sends them: one message per
// urgent license, one batched message per other tier.
type Dispatcher struct {
	channel         Channel
	logger          *zap.Logger
	now             func() time.Time
	sendConcurrency int
	thresholds      Thresholds
}

func NewDispatcher(channel Channel, logger *zap.Logger, now func() time.Time, sendConcurrency int) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	if sendConcurrency <= 0 {
		sendConcurrency = defaultSendConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		channel:         channel,
		logger:          logger,
		now:             now,
		sendConcurrency: sendConcurrency,
		thresholds:      DefaultThresholds,
	}
}

type sendResult struct {
	logs    []*models.NotificationLog
	success bool
}

func (d *Dispatcher) Run(ctx context.Context, eligible []models.EnrichedLicense) (*DispatchResult, error) {
	byTier := make(map[models.NotificationTier][]models.EnrichedLicense)
	for _, l := range eligible {
		byTier[l.Tier] = append(byTier[l.Tier], l)
	}

	urgent := byTier[models.TierUrgent]
	urgentResults := make([]sendResult, len(urgent))

	// Each goroutine writes only its own slot; the slice is read after Wait.
	var g errgroup.Group
	g.SetLimit(d.sendConcurrency)
	for i, l := range urgent {
		g.Go(func() error {
			res, err := d.send(ctx, models.TierUrgent, []models.EnrichedLicense{l})
			if err != nil {
				return err
			}
			urgentResults[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := urgentResults
	for _, tier := range models.BatchedTiers {
		batch := byTier[tier]
		if len(batch) == 0 {
			continue
		}
		res, err := d.send(ctx, tier, batch)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	out := &DispatchResult{}
	for _, res := range results {
		if res.success {
			out.MessagesSent++
		}
		out.Logs = append(out.Logs, res.logs...)
	}
	return out, nil
}

// send makes one channel call and records one log entry per license it covered
func (d *Dispatcher) send(ctx context.Context, tier models.NotificationTier, batch []models.EnrichedLicense) (sendResult, error) {
	text, err := FormatMessage(batch, tier, d.thresholds)
	if err != nil {
		return sendResult{}, err
	}

	sentAt := d.now()
	sendErr := d.channel.Send(ctx, text)

	status := models.NotificationSuccess
	var errorDetail *string
	if sendErr != nil {
		status = models.NotificationFailed
		detail := sendErr.Error()
		errorDetail = &detail
		d.logger.Warn("notification send failed",
			zap.String("channel", d.channel.Name()),
			zap.String("tier", string(tier)),
			zap.Int("licenses", len(batch)),
			zap.Error(sendErr),
		)
	} else {
		d.logger.Info("notification sent",
			zap.String("channel", d.channel.Name()),
			zap.String("tier", string(tier)),
			zap.Int("licenses", len(batch)),
		)
	}
	metrics.MessagesSent.WithLabelValues(string(tier), string(status)).Inc()

	preview := truncate(text, previewLength)
	logs := make([]*models.NotificationLog, 0, len(batch))
	for _, l := range batch {
		logs = append(logs, &models.NotificationLog{
			LicenseID:        l.LicenseID,
			NotificationType: tier,
			SentAt:           sentAt,
			Status:           status,
			MessagePreview:   preview,
			ErrorMessage:     errorDetail,
		})
	}

	return sendResult{logs: logs, success: sendErr == nil}, nil
}
