package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationTier represents the urgency bucket of an expiry reminder.
// The string value is what gets persisted as notification_type.
type NotificationTier string

const (
	TierUrgent       NotificationTier = "15_days"
	TierThirtyDay    NotificationTier = "30_days"
	TierFortyFiveDay NotificationTier = "45_days"
	TierNinetyDay    NotificationTier = "90_days"
	TierManual       NotificationTier = "manual"
)

// BatchedTiers lists the tiers delivered as one message per tier, in send order
var BatchedTiers = []NotificationTier{TierThirtyDay, TierFortyFiveDay, TierNinetyDay}

// NotificationOutcome represents the result of a send attempt
type NotificationOutcome string

const (
	NotificationSuccess NotificationOutcome = "success"
	NotificationFailed  NotificationOutcome = "failed"
)

// NotificationLog represents one send attempt for one license
type NotificationLog struct {
	ID               uuid.UUID           `json:"id" db:"id"`
	LicenseID        uuid.UUID           `json:"license_id" db:"license_id"`
	NotificationType NotificationTier    `json:"notification_type" db:"notification_type"`
	SentAt           time.Time           `json:"sent_at" db:"sent_at"`
	Status           NotificationOutcome `json:"status" db:"status"`
	MessagePreview   string              `json:"message_preview" db:"message_preview"`
	ErrorMessage     *string             `json:"error_message" db:"error_message"`
}

// NotificationLogFilter narrows notification history counts
type NotificationLogFilter struct {
	SentAfter        time.Time
	Status           NotificationOutcome
	LicenseID        *uuid.UUID
	NotificationType *NotificationTier
}

// EnrichedLicense is a license as seen by a single notification run
type EnrichedLicense struct {
	LicenseID      uuid.UUID        `json:"license_id"`
	RegistrationNo string           `json:"registration_no"`
	CompanyName    string           `json:"company_name"`
	TagName        string           `json:"tag_name"`
	ValidUntil     time.Time        `json:"valid_until"`
	DaysRemaining  int              `json:"days_remaining"`
	Tier           NotificationTier `json:"tier"`
	ShouldNotify   bool             `json:"should_notify"`
}

// RunStatus is the terminal state of a notification run
type RunStatus string

const (
	RunCompleted     RunStatus = "completed"
	RunNothingToSend RunStatus = "nothing_to_send"
	RunQuotaExceeded RunStatus = "quota_exceeded"
)

// LicenseOutcome describes what happened to one fetched license during a run
type LicenseOutcome string

const (
	OutcomeSent         LicenseOutcome = "sent"
	OutcomeFailed       LicenseOutcome = "failed"
	OutcomeDeduplicated LicenseOutcome = "deduplicated"
	OutcomeOutOfRange   LicenseOutcome = "out_of_range"
)

type LicenseRunResult struct {
	LicenseID      uuid.UUID        `json:"licenseId"`
	RegistrationNo string           `json:"registrationNo"`
	DaysRemaining  int              `json:"daysRemaining"`
	Tier           NotificationTier `json:"tier"`
	Outcome        LicenseOutcome   `json:"outcome"`
}

// RunSummary is returned by every notification run, including early exits
type RunSummary struct {
	Success        bool               `json:"success"`
	Status         RunStatus          `json:"status"`
	Error          string             `json:"error,omitempty"`
	Processed      int                `json:"processed"`
	OutOfRange     int                `json:"outOfRange"` // fetched but expired, due today or past the horizon
	MessagesSent   int                `json:"messagesSent"`
	QuotaRemaining int                `json:"quotaRemaining"`
	QuotaUsed      int                `json:"quotaUsed,omitempty"`
	QuotaLimit     int                `json:"quotaLimit,omitempty"`
	Licenses       []LicenseRunResult `json:"licenses,omitempty"`
	StartedAt      time.Time          `json:"startedAt"`
	FinishedAt     time.Time          `json:"finishedAt"`
}
