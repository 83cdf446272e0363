package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"licensetracker/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
)

// MockExpiryCheckService mocks services.ExpiryCheckService for testing
type MockExpiryCheckService struct {
	mock.Mock
}

func (m *MockExpiryCheckService) Execute(ctx context.Context, trigger string) (*models.RunSummary, error) {
	args := m.Called(ctx, trigger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RunSummary), args.Error(1)
}

func (m *MockExpiryCheckService) LastRun(ctx context.Context) (*models.RunSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RunSummary), args.Error(1)
}

// MockLicenseRepository mocks repositories.LicenseRepository for testing
type MockLicenseRepository struct {
	mock.Mock
}

func (m *MockLicenseRepository) Create(ctx context.Context, license *models.License) error {
	args := m.Called(ctx, license)
	return args.Error(0)
}

func (m *MockLicenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.License, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.License), args.Error(1)
}

func (m *MockLicenseRepository) Update(ctx context.Context, license *models.License) error {
	args := m.Called(ctx, license)
	return args.Error(0)
}

func (m *MockLicenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLicenseRepository) List(ctx context.Context, filter *models.LicenseFilter) ([]*models.License, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.License), args.Error(1)
}

func (m *MockLicenseRepository) ListExpiring(ctx context.Context, filter models.LicenseFilter) ([]*models.License, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.License), args.Error(1)
}

// MockNotificationLogRepository mocks repositories.NotificationLogRepository for testing
type MockNotificationLogRepository struct {
	mock.Mock
}

func (m *MockNotificationLogRepository) Count(ctx context.Context, filter models.NotificationLogFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationLogRepository) InsertBatch(ctx context.Context, entries []*models.NotificationLog) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockNotificationLogRepository) ListByLicense(ctx context.Context, licenseID uuid.UUID, limit int) ([]*models.NotificationLog, error) {
	args := m.Called(ctx, licenseID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.NotificationLog), args.Error(1)
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	return e
}

func newRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return req
}

// MockMasterDataRepository mocks repositories.MasterDataRepository for testing
type MockMasterDataRepository struct {
	mock.Mock
}

func (m *MockMasterDataRepository) CreateCompany(ctx context.Context, company *models.Company) error {
	return m.Called(ctx, company).Error(0)
}

func (m *MockMasterDataRepository) ListCompanies(ctx context.Context) ([]*models.Company, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Company), args.Error(1)
}

func (m *MockMasterDataRepository) UpdateCompany(ctx context.Context, company *models.Company) error {
	return m.Called(ctx, company).Error(0)
}

func (m *MockMasterDataRepository) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMasterDataRepository) CreateTag(ctx context.Context, tag *models.Tag) error {
	return m.Called(ctx, tag).Error(0)
}

func (m *MockMasterDataRepository) ListTags(ctx context.Context) ([]*models.Tag, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Tag), args.Error(1)
}

func (m *MockMasterDataRepository) UpdateTag(ctx context.Context, tag *models.Tag) error {
	return m.Called(ctx, tag).Error(0)
}

func (m *MockMasterDataRepository) DeleteTag(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMasterDataRepository) CreateScope(ctx context.Context, scope *models.Scope) error {
	return m.Called(ctx, scope).Error(0)
}

func (m *MockMasterDataRepository) ListScopes(ctx context.Context) ([]*models.Scope, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Scope), args.Error(1)
}

func (m *MockMasterDataRepository) UpdateScope(ctx context.Context, scope *models.Scope) error {
	return m.Called(ctx, scope).Error(0)
}

func (m *MockMasterDataRepository) DeleteScope(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}
