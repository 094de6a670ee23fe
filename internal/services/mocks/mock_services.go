package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"recurring-patterns-system/internal/models"
)

// MockTransactionService является моком для services.TransactionService
type MockTransactionService struct {
	mock.Mock
}

// IngestTransaction мок для IngestTransaction
func (m *MockTransactionService) IngestTransaction(req *models.Transaction) (*models.IngestResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IngestResponse), args.Error(1)
}

// GetTransaction мок для GetTransaction
func (m *MockTransactionService) GetTransaction(id string) (*models.Transaction, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

// MockPatternService является моком для services.PatternService
type MockPatternService struct {
	mock.Mock
}

// Discover мок для Discover
func (m *MockPatternService) Discover(userID string, req *models.DiscoverRequest) (*models.DiscoverResponse, error) {
	args := m.Called(userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DiscoverResponse), args.Error(1)
}

// GetPattern мок для GetPattern
func (m *MockPatternService) GetPattern(id string) (*models.PatternResponse, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PatternResponse), args.Error(1)
}

// ListPatterns мок для ListPatterns
func (m *MockPatternService) ListPatterns(userID string, statuses []string) ([]*models.Pattern, error) {
	args := m.Called(userID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Pattern), args.Error(1)
}

// UpdatePattern мок для UpdatePattern
func (m *MockPatternService) UpdatePattern(id string, action string) (*models.Pattern, error) {
	args := m.Called(id, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pattern), args.Error(1)
}

// DeletePattern мок для DeletePattern
func (m *MockPatternService) DeletePattern(id string, confirm bool) error {
	args := m.Called(id, confirm)
	return args.Error(0)
}

// ListObligations мок для ListObligations
func (m *MockPatternService) ListObligations(patternID string, statuses []string, from, to *time.Time) ([]*models.Obligation, error) {
	args := m.Called(patternID, statuses, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Obligation), args.Error(1)
}

// ListUpcoming мок для ListUpcoming
func (m *MockPatternService) ListUpcoming(userID string, from, to time.Time) ([]*models.UpcomingObligation, error) {
	args := m.Called(userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UpcomingObligation), args.Error(1)
}

// GetRun мок для GetRun
func (m *MockPatternService) GetRun(id string) (*models.DiscoveryRun, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DiscoveryRun), args.Error(1)
}
