package mocks

import (
	"github.com/stretchr/testify/mock"

	"recurring-patterns-system/internal/models"
)

// MockProducer является моком для kafka.Producer интерфейса
type MockProducer struct {
	mock.Mock
}

// SendTransactionEvent мок для SendTransactionEvent
func (m *MockProducer) SendTransactionEvent(event *models.TransactionEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

// SendToDeadLetter мок для SendToDeadLetter
func (m *MockProducer) SendToDeadLetter(event *models.TransactionEvent, reason string) error {
	args := m.Called(event, reason)
	return args.Error(0)
}

// Close мок для Close
func (m *MockProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}
