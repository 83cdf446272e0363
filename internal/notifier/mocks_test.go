package notifier

import (
	"context"
	"sync"

	"licensetracker/internal/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
)

// MockLicenseRepository mocks the LicenseRepository interface for testing
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

// memoryLogStore is a NotificationLogRepository that evaluates filters in memory
type memoryLogStore struct {
	mu          sync.Mutex
	entries     []*models.NotificationLog
	countErr    error
	insertErr   error
	insertCalls int
}

func (s *memoryLogStore) Count(_ context.Context, filter models.NotificationLogFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}

	n := 0
	for _, e := range s.entries {
		if e.Status != filter.Status || e.SentAt.Before(filter.SentAfter) {
			continue
		}
		if filter.LicenseID != nil && e.LicenseID != *filter.LicenseID {
			continue
		}
		if filter.NotificationType != nil && e.NotificationType != *filter.NotificationType {
			continue
		}
		n++
	}
	return n, nil
}

func (s *memoryLogStore) InsertBatch(_ context.Context, entries []*models.NotificationLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
	}
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *memoryLogStore) ListByLicense(_ context.Context, licenseID uuid.UUID, _ int) ([]*models.NotificationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.NotificationLog
	for _, e := range s.entries {
		if e.LicenseID == licenseID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memoryLogStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// recordingChannel captures every text it is asked to send
type recordingChannel struct {
	mu      sync.Mutex
	sent    []string
	failAll bool
}

var errChannelDown = errors.New("broadcast failed: status 500")

func (c *recordingChannel) Name() string { return "recording" }

func (c *recordingChannel) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	if c.failAll {
		return errChannelDown
	}
	return nil
}

func (c *recordingChannel) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}
