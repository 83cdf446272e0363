package notifier

import (
	"context"
	"strings"
	"testing"
	"time"

	"licensetracker/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type ExpiryNotifierTestSuite struct {
	suite.Suite
	licenses *MockLicenseRepository
	logs     *memoryLogStore
	channel  *recordingChannel
	notifier *ExpiryNotifier
	now      time.Time
	ctx      context.Context
}

func (suite *ExpiryNotifierTestSuite) SetupTest() {
	suite.licenses = new(MockLicenseRepository)
	suite.logs = &memoryLogStore{}
	suite.channel = &recordingChannel{}
	suite.now = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	suite.ctx = context.Background()

	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return suite.now }
	suite.notifier = NewExpiryNotifier(suite.licenses, suite.logs, suite.channel, cfg, zap.NewNop())
}

func (suite *ExpiryNotifierTestSuite) TearDownTest() {
	suite.licenses.AssertExpectations(suite.T())
}

func (suite *ExpiryNotifierTestSuite) license(reg string, daysOut int) *models.License {
	company := "Siam Foods Co., Ltd."
	tag := "Food Safety"
	return &models.License{
		ID:             uuid.New(),
		RegistrationNo: reg,
		ValidUntil:     Today(suite.now, time.UTC).AddDate(0, 0, daysOut),
		Status:         models.LicenseStatusActive,
		CompanyName:    &company,
		TagName:        &tag,
	}
}

func (suite *ExpiryNotifierTestSuite) expectFetch(result []*models.License) {
	bound := Today(suite.now, time.UTC).AddDate(0, 0, 90)
	suite.licenses.On("ListExpiring", mock.Anything, mock.MatchedBy(func(f models.LicenseFilter) bool {
		return f.ValidUntilBefore != nil && f.ValidUntilBefore.Equal(bound) &&
			len(f.StatusOneOf) == 1 && f.StatusOneOf[0] == models.LicenseStatusActive
	})).Return(result, nil)
}

func (suite *ExpiryNotifierTestSuite) TestQuotaExhaustedSkipsEverything() {
	suite.logs.entries = successRows(300, suite.now.AddDate(0, 0, -2))

	summary, err := suite.notifier.Run(suite.ctx)

	suite.NoError(err)
	suite.False(summary.Success)
	suite.Equal(models.RunQuotaExceeded, summary.Status)
	suite.Equal("quota_exceeded", summary.Error)
	suite.Equal(300, summary.QuotaUsed)
	suite.Equal(300, summary.QuotaLimit)
	suite.Zero(suite.channel.calls())
	suite.Zero(suite.logs.insertCalls)
	suite.licenses.AssertNotCalled(suite.T(), "ListExpiring", mock.Anything, mock.Anything)
}

func (suite *ExpiryNotifierTestSuite) TestQuotaGateIsPreRunOnly() {
	suite.logs.entries = successRows(299, suite.now.AddDate(0, 0, -2))
	suite.expectFetch([]*models.License{
		suite.license("TH-001", 3),
		suite.license("TH-002", 7),
		suite.license("TH-003", 11),
		suite.license("TH-004", 13),
		suite.license("TH-005", 15),
	})

	summary, err := suite.notifier.Run(suite.ctx)

	suite.NoError(err)
	suite.True(summary.Success)
	suite.Equal(5, suite.channel.calls())
	suite.Equal(5, summary.MessagesSent)
	suite.Zero(summary.QuotaRemaining)
	suite.Equal(304, suite.logs.len())
}

func (suite *ExpiryNotifierTestSuite) TestUrgentLicenseEndToEnd() {
	l := suite.license("TH-012", 12)
	suite.expectFetch([]*models.License{l})

	summary, err := suite.notifier.Run(suite.ctx)

	suite.NoError(err)
	suite.True(summary.Success)
	suite.Equal(models.RunCompleted, summary.Status)
	suite.Equal(1, summary.Processed)
	suite.Zero(summary.OutOfRange)
	suite.Equal(1, summary.MessagesSent)
	suite.Equal(299, summary.QuotaRemaining)

	suite.Require().Len(suite.logs.entries, 1)
	row := suite.logs.entries[0]
	suite.Equal(l.ID, row.LicenseID)
	suite.Equal(models.TierUrgent, row.NotificationType)
	suite.Equal("15_days", string(row.NotificationType))
	suite.Equal(models.NotificationSuccess, row.Status)

	suite.Require().Len(summary.Licenses, 1)
	suite.Equal(models.OutcomeSent, summary.Licenses[0].Outcome)
	suite.Equal(12, summary.Licenses[0].DaysRemaining)
}

func (suite *ExpiryNotifierTestSuite) TestSecondRunSameDayIsDeduplicated() {
	suite.expectFetch([]*models.License{
		suite.license("TH-020", 20),
		suite.license("TH-021", 60),
	})

	first, err := suite.notifier.Run(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(2, first.MessagesSent)

	second, err := suite.notifier.Run(suite.ctx)
	suite.Require().NoError(err)

	suite.True(second.Success)
	suite.Equal(models.RunNothingToSend, second.Status)
	suite.Equal(2, second.Processed)
	suite.Zero(second.MessagesSent)
	suite.Equal(2, suite.channel.calls())
	suite.Equal(1, suite.logs.insertCalls)
	for _, r := range second.Licenses {
		suite.Equal(models.OutcomeDeduplicated, r.Outcome)
	}
}

func (suite *ExpiryNotifierTestSuite) TestFarFutureLicenseIsNotFetched() {
	// the repository applies the bound; a license at today+120 never comes back
	suite.expectFetch([]*models.License{})

	summary, err := suite.notifier.Run(suite.ctx)

	suite.NoError(err)
	suite.Equal(models.RunNothingToSend, summary.Status)
	suite.Zero(summary.Processed)
	suite.Zero(suite.channel.calls())
}

func (suite *ExpiryNotifierTestSuite) TestExpiredAndDueTodayAreOutOfRange() {
	suite.expectFetch([]*models.License{
		suite.license("TH-OLD", -3),
		suite.license("TH-NOW", 0),
	})

	summary, err := suite.notifier.Run(suite.ctx)

	suite.NoError(err)
	suite.Equal(models.RunNothingToSend, summary.Status)
	suite.Equal(2, summary.Processed)
	suite.Equal(2, summary.OutOfRange)
	suite.Zero(suite.channel.calls())
	for _, r := range summary.Licenses {
		suite.Equal(models.OutcomeOutOfRange, r.Outcome)
	}
}

func (suite *ExpiryNotifierTestSuite) TestChannelFailureIsRecordedNotFatal() {
	suite.channel.failAll = true
	suite.expectFetch([]*models.License{
		suite.license("TH-001", 5),
		suite.license("TH-030", 25),
		suite.license("TH-031", 28),
	})

	summary, err := suite.notifier.Run(suite.ctx)

	suite.NoError(err)
	suite.True(summary.Success)
	suite.Zero(summary.MessagesSent)
	suite.Equal(300, summary.QuotaRemaining)
	suite.Equal(2, suite.channel.calls())
	suite.Len(suite.logs.entries, 3)
	for _, r := range summary.Licenses {
		suite.Equal(models.OutcomeFailed, r.Outcome)
	}
}

func (suite *ExpiryNotifierTestSuite) TestFetchErrorFailsRun() {
	suite.licenses.On("ListExpiring", mock.Anything, mock.Anything).
		Return(nil, errors.New("relation \"licenses\" does not exist"))

	summary, err := suite.notifier.Run(suite.ctx)

	suite.Error(err)
	suite.Nil(summary)
	suite.Zero(suite.logs.insertCalls)
}

func (suite *ExpiryNotifierTestSuite) TestQuotaLookupErrorFailsRun() {
	suite.logs.countErr = errors.New("connection refused")

	summary, err := suite.notifier.Run(suite.ctx)

	suite.ErrorContains(err, "connection refused")
	suite.Nil(summary)
	suite.licenses.AssertNotCalled(suite.T(), "ListExpiring", mock.Anything, mock.Anything)
}

func (suite *ExpiryNotifierTestSuite) TestInsertErrorFailsRun() {
	suite.logs.insertErr = errors.New("copy failed")
	suite.expectFetch([]*models.License{suite.license("TH-001", 5)})

	summary, err := suite.notifier.Run(suite.ctx)

	suite.ErrorContains(err, "persist notification logs")
	suite.Nil(summary)
	suite.Equal(1, suite.channel.calls())
}

func (suite *ExpiryNotifierTestSuite) TestConfiguredThresholdsReachMessages() {
	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return suite.now }
	cfg.Thresholds = Thresholds{Urgent: 7, ThirtyDay: 14, FortyFiveDay: 21, NinetyDay: 60}
	n := NewExpiryNotifier(suite.licenses, suite.logs, suite.channel, cfg, zap.NewNop())

	bound := Today(suite.now, time.UTC).AddDate(0, 0, 60)
	suite.licenses.On("ListExpiring", mock.Anything, mock.MatchedBy(func(f models.LicenseFilter) bool {
		return f.ValidUntilBefore != nil && f.ValidUntilBefore.Equal(bound)
	})).Return([]*models.License{suite.license("TH-005", 5)}, nil)

	summary, err := n.Run(suite.ctx)

	suite.Require().NoError(err)
	suite.Equal(1, summary.MessagesSent)
	suite.Require().Len(suite.channel.sent, 1)
	suite.True(strings.HasPrefix(suite.channel.sent[0], "🚨 URGENT: License expires within 7 days"))
}

func TestExpiryNotifierTestSuite(t *testing.T) {
	suite.Run(t, new(ExpiryNotifierTestSuite))
}
