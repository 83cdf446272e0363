package notifier

import (
	"math"
	"time"

	"licensetracker/internal/models"

	"github.com/pkg/errors"
)

// Thresholds are the inclusive upper bounds, in days remaining, of each tier
type Thresholds struct {
	Urgent       int `toml:"urgent"`
	ThirtyDay    int `toml:"thirty_day"`
	FortyFiveDay int `toml:"forty_five_day"`
	NinetyDay    int `toml:"ninety_day"`
}

var DefaultThresholds = Thresholds{
	Urgent:       15,
	ThirtyDay:    30,
	FortyFiveDay: 45,
	NinetyDay:    90,
}

// Classify maps days remaining to a tier; the first threshold that holds wins
func (t Thresholds) Classify(daysRemaining int) models.NotificationTier {
	switch {
	case daysRemaining <= t.Urgent:
		return models.TierUrgent
	case daysRemaining <= t.ThirtyDay:
		return models.TierThirtyDay
	case daysRemaining <= t.FortyFiveDay:
		return models.TierFortyFiveDay
	case daysRemaining <= t.NinetyDay:
		return models.TierNinetyDay
	default:
		return models.TierManual
	}
}

// Horizon is the furthest days-remaining value that still gets a reminder
func (t Thresholds) Horizon() int {
	return t.NinetyDay
}

// UpperBound is the inclusive days-remaining ceiling of tier. Manual has none.
func (t Thresholds) UpperBound(tier models.NotificationTier) (int, bool) {
	switch tier {
	case models.TierUrgent:
		return t.Urgent, true
	case models.TierThirtyDay:
		return t.ThirtyDay, true
	case models.TierFortyFiveDay:
		return t.FortyFiveDay, true
	case models.TierNinetyDay:
		return t.NinetyDay, true
	}
	return 0, false
}

func (t Thresholds) Validate() error {
	if t.Urgent < 1 {
		return errors.Errorf("urgent threshold must be at least 1, got %d", t.Urgent)
	}
	if !(t.Urgent < t.ThirtyDay && t.ThirtyDay < t.FortyFiveDay && t.FortyFiveDay < t.NinetyDay) {
		return errors.Errorf("tier thresholds must be strictly ascending, got %d/%d/%d/%d",
			t.Urgent, t.ThirtyDay, t.FortyFiveDay, t.NinetyDay)
	}
	return nil
}

// Classify uses DefaultThresholds
func Classify(daysRemaining int) models.NotificationTier {
	return DefaultThresholds.Classify(daysRemaining)
}

// DaysRemaining counts whole calendar days from today (in loc) to validUntil.
// validUntil is a calendar date: its year, month and day are used as stored.
func DaysRemaining(validUntil, now time.Time, loc *time.Location) int {
	target := civilDate(validUntil)
	today := civilDate(now.In(loc))
	return int(math.Ceil(target.Sub(today).Hours() / 24))
}

// Today returns the calendar date of now in loc, at UTC midnight
func Today(now time.Time, loc *time.Location) time.Time {
	return civilDate(now.In(loc))
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
