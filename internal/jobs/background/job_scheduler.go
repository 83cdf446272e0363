package background

import (
	"context"
	"sync"
	"time"

	"licensetracker/internal/models"
	"licensetracker/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	expiryCheckJobName = "license-expiry-check"
	scheduledRunBudget = 10 * time.Minute
	scheduleTrigger    = "schedule"
)

// ExpiryExecutor is the part of the expiry check service the scheduler needs
type ExpiryExecutor interface {
	Execute(ctx context.Context, trigger string) (*models.RunSummary, error)
}

// JobScheduler runs the expiry check on a cron schedule inside the process
type JobScheduler struct {
	scheduler gocron.Scheduler
	executor  ExpiryExecutor
	logger    *zap.Logger
	jobs      map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler creates a scheduler in loc. An empty schedule registers no
// job, leaving runs to the external HTTP trigger.
func NewJobScheduler(executor ExpiryExecutor, schedule string, loc *time.Location, logger *zap.Logger) (*JobScheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create scheduler")
	}

	js := &JobScheduler{
		scheduler: scheduler,
		executor:  executor,
		logger:    logger,
		jobs:      make(map[string]gocron.Job),
	}

	if schedule != "" {
		if err := js.registerExpiryCheck(schedule); err != nil {
			_ = scheduler.Shutdown()
			return nil, err
		}
	}

	return js, nil
}

// Start starts the job scheduler
func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler", zap.Int("jobs", js.JobCount()))
	js.scheduler.Start()
}

// Stop waits for running jobs and stops the scheduler
func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) JobCount() int {
	js.mu.RLock()
	defer js.mu.RUnlock()
	return len(js.jobs)
}

// NextRun reports when the expiry check fires next
func (js *JobScheduler) NextRun() (time.Time, bool) {
	js.mu.RLock()
	job, ok := js.jobs[expiryCheckJobName]
	js.mu.RUnlock()
	if !ok {
		return time.Time{}, false
	}

	next, err := job.NextRun()
	if err != nil {
		return time.Time{}, false
	}
	return next, true
}

func (js *JobScheduler) registerExpiryCheck(schedule string) error {
	job, err := js.scheduler.NewJob(
		gocron.CronJob(schedule, false),
		gocron.NewTask(js.runExpiryCheck),
		gocron.WithName(expiryCheckJobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return errors.Wrapf(err, "invalid expiry check schedule %q", schedule)
	}

	js.mu.Lock()
	js.jobs[expiryCheckJobName] = job
	js.mu.Unlock()

	js.logger.Info("registered expiry check job", zap.String("schedule", schedule))
	return nil
}

func (js *JobScheduler) runExpiryCheck() {
	ctx, cancel := context.WithTimeout(context.Background(), scheduledRunBudget)
	defer cancel()

	summary, err := js.executor.Execute(ctx, scheduleTrigger)
	if errors.Is(err, services.ErrRunInProgress) {
		js.logger.Info("scheduled expiry check skipped, run in progress")
		return
	}
	if err != nil {
		js.logger.Error("scheduled expiry check failed", zap.Error(err))
		return
	}

	js.logger.Info("scheduled expiry check done",
		zap.String("status", string(summary.Status)),
		zap.Int("messages_sent", summary.MessagesSent),
	)
}
