package mocks

import (
	"github.com/stretchr/testify/mock"

	"recurring-patterns-system/internal/models"
)

// MockRedisClient является моком для redis.ClientInterface
type MockRedisClient struct {
	mock.Mock
}

// AcquireDiscoveryLock мок для AcquireDiscoveryLock
func (m *MockRedisClient) AcquireDiscoveryLock(userID string) (bool, error) {
	args := m.Called(userID)
	return args.Bool(0), args.Error(1)
}

// ReleaseDiscoveryLock мок для ReleaseDiscoveryLock
func (m *MockRedisClient) ReleaseDiscoveryLock(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

// AcquireKeyLease мок для AcquireKeyLease
func (m *MockRedisClient) AcquireKeyLease(partitionKey string) (bool, error) {
	args := m.Called(partitionKey)
	return args.Bool(0), args.Error(1)
}

// ReleaseKeyLease мок для ReleaseKeyLease
func (m *MockRedisClient) ReleaseKeyLease(partitionKey string) error {
	args := m.Called(partitionKey)
	return args.Error(0)
}

// SavePatternSnapshot мок для SavePatternSnapshot
func (m *MockRedisClient) SavePatternSnapshot(userID string, patterns []*models.Pattern) error {
	args := m.Called(userID, patterns)
	return args.Error(0)
}

// GetPatternSnapshot мок для GetPatternSnapshot
func (m *MockRedisClient) GetPatternSnapshot(userID string) ([]*models.Pattern, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Pattern), args.Error(1)
}

// InvalidatePatternSnapshot мок для InvalidatePatternSnapshot
func (m *MockRedisClient) InvalidatePatternSnapshot(userID string) error {
	args := m.Called(userID)
	return args.Error(0)
}

// IncrementMatchStats мок для IncrementMatchStats
func (m *MockRedisClient) IncrementMatchStats(outcome string) error {
	args := m.Called(outcome)
	return args.Error(0)
}

// GetMatchStats мок для GetMatchStats
func (m *MockRedisClient) GetMatchStats(outcome string) (int64, error) {
	args := m.Called(outcome)
	return args.Get(0).(int64), args.Error(1)
}

// ClearPatternData мок для ClearPatternData
func (m *MockRedisClient) ClearPatternData() error {
	args := m.Called()
	return args.Error(0)
}

// Close мок для Close
func (m *MockRedisClient) Close() error {
	args := m.Called()
	return args.Error(0)
}
