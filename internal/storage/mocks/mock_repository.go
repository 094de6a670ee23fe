package mocks

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"recurring-patterns-system/internal/models"
)

// MockTransactionRepository является моком для storage.TransactionRepository интерфейса
type MockTransactionRepository struct {
	mock.Mock
}

// SaveTransaction мок для SaveTransaction
func (m *MockTransactionRepository) SaveTransaction(tx *models.Transaction) error {
	args := m.Called(tx)
	return args.Error(0)
}

// GetTransactionByID мок для GetTransactionByID
func (m *MockTransactionRepository) GetTransactionByID(id string) (*models.Transaction, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

// GetTransactionBySourceMessageID мок для GetTransactionBySourceMessageID
func (m *MockTransactionRepository) GetTransactionBySourceMessageID(sourceMessageID string) (*models.Transaction, error) {
	args := m.Called(sourceMessageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

// GetTransactionsByKey мок для GetTransactionsByKey
func (m *MockTransactionRepository) GetTransactionsByKey(key models.GroupKey) ([]*models.Transaction, error) {
	args := m.Called(key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

// ListCandidateGroups мок для ListCandidateGroups
func (m *MockTransactionRepository) ListCandidateGroups(userID string, minCount int) ([]*models.CandidateGroup, error) {
	args := m.Called(userID, minCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CandidateGroup), args.Error(1)
}

// FlagTransaction мок для FlagTransaction
func (m *MockTransactionRepository) FlagTransaction(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockPatternRepository является моком для storage.PatternRepository интерфейса
type MockPatternRepository struct {
	mock.Mock
}

// UpsertPattern мок для UpsertPattern
func (m *MockPatternRepository) UpsertPattern(c *models.PatternCandidate, newObligation func(p *models.Pattern) *models.Obligation) (*models.UpsertResult, error) {
	args := m.Called(c, newObligation)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UpsertResult), args.Error(1)
}

// GetPattern мок для GetPattern
func (m *MockPatternRepository) GetPattern(id string) (*models.Pattern, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pattern), args.Error(1)
}

// ListPatterns мок для ListPatterns
func (m *MockPatternRepository) ListPatterns(userID string, statuses []string) ([]*models.Pattern, error) {
	args := m.Called(userID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Pattern), args.Error(1)
}

// ListPatternsByKey мок для ListPatternsByKey
func (m *MockPatternRepository) ListPatternsByKey(key models.GroupKey, statuses []string) ([]*models.Pattern, error) {
	args := m.Called(key, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Pattern), args.Error(1)
}

// UpdatePatternStatus мок для UpdatePatternStatus
func (m *MockPatternRepository) UpdatePatternStatus(id, status string) error {
	args := m.Called(id, status)
	return args.Error(0)
}

// UpdatePatternSummary мок для UpdatePatternSummary
func (m *MockPatternRepository) UpdatePatternSummary(id, summary string) error {
	args := m.Called(id, summary)
	return args.Error(0)
}

// TouchPattern мок для TouchPattern
func (m *MockPatternRepository) TouchPattern(id string, evaluatedAt time.Time) error {
	args := m.Called(id, evaluatedAt)
	return args.Error(0)
}

// GetStreak мок для GetStreak
func (m *MockPatternRepository) GetStreak(patternID string) (*models.PatternStreak, error) {
	args := m.Called(patternID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PatternStreak), args.Error(1)
}

// GetExpectedObligation мок для GetExpectedObligation
func (m *MockPatternRepository) GetExpectedObligation(patternID string) (*models.Obligation, error) {
	args := m.Called(patternID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Obligation), args.Error(1)
}

// ListObligations мок для ListObligations
func (m *MockPatternRepository) ListObligations(patternID string, limit int) ([]*models.Obligation, error) {
	args := m.Called(patternID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Obligation), args.Error(1)
}

// ListObligationsFiltered мок для ListObligationsFiltered
func (m *MockPatternRepository) ListObligationsFiltered(patternID string, statuses []string, from, to *time.Time) ([]*models.Obligation, error) {
	args := m.Called(patternID, statuses, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Obligation), args.Error(1)
}

// ListUpcomingObligations мок для ListUpcomingObligations
func (m *MockPatternRepository) ListUpcomingObligations(userID string, from, to time.Time) ([]*models.UpcomingObligation, error) {
	args := m.Called(userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UpcomingObligation), args.Error(1)
}

// SaveObligation мок для SaveObligation
func (m *MockPatternRepository) SaveObligation(o *models.Obligation) error {
	args := m.Called(o)
	return args.Error(0)
}

// CancelExpectedObligation мок для CancelExpectedObligation
func (m *MockPatternRepository) CancelExpectedObligation(patternID string) error {
	args := m.Called(patternID)
	return args.Error(0)
}

// RecentFulfilledAmounts мок для RecentFulfilledAmounts
func (m *MockPatternRepository) RecentFulfilledAmounts(patternID string, limit int) ([]decimal.Decimal, error) {
	args := m.Called(patternID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]decimal.Decimal), args.Error(1)
}

// LinkedTransactionIDs мок для LinkedTransactionIDs
func (m *MockPatternRepository) LinkedTransactionIDs(patternID string) ([]string, error) {
	args := m.Called(patternID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// ApplyFulfillment мок для ApplyFulfillment
func (m *MockPatternRepository) ApplyFulfillment(o *models.Obligation, streak *models.PatternStreak, patternStatus string, link *models.PatternTransactionLink, next *models.Obligation) error {
	args := m.Called(o, streak, patternStatus, link, next)
	return args.Error(0)
}

// ApplyMiss мок для ApplyMiss
func (m *MockPatternRepository) ApplyMiss(o *models.Obligation, streak *models.PatternStreak, patternStatus string, next *models.Obligation) error {
	args := m.Called(o, streak, patternStatus, next)
	return args.Error(0)
}

// DeletePattern мок для DeletePattern
func (m *MockPatternRepository) DeletePattern(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// CreateRun мок для CreateRun
func (m *MockPatternRepository) CreateRun(run *models.DiscoveryRun) error {
	args := m.Called(run)
	return args.Error(0)
}

// FinishRun мок для FinishRun
func (m *MockPatternRepository) FinishRun(run *models.DiscoveryRun) error {
	args := m.Called(run)
	return args.Error(0)
}

// GetRun мок для GetRun
func (m *MockPatternRepository) GetRun(id string) (*models.DiscoveryRun, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DiscoveryRun), args.Error(1)
}
