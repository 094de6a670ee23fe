package redis

import (
	"recurring-patterns-system/internal/models"
)

// ClientInterface определяет интерфейс для работы с Redis
// Это позволяет легко создавать моки для тестирования
// Реализуется типом Client
type ClientInterface interface {
	// AcquireDiscoveryLock берет эксклюзивную блокировку discovery пользователя
	AcquireDiscoveryLock(userID string) (bool, error)

	// ReleaseDiscoveryLock снимает блокировку discovery
	ReleaseDiscoveryLock(userID string) error

	// AcquireKeyLease берет короткую аренду ключа группировки
	AcquireKeyLease(partitionKey string) (bool, error)

	// ReleaseKeyLease снимает аренду ключа группировки
	ReleaseKeyLease(partitionKey string) error

	// SavePatternSnapshot кеширует снимок паттернов пользователя
	SavePatternSnapshot(userID string, patterns []*models.Pattern) error

	// GetPatternSnapshot получает кешированный снимок паттернов
	GetPatternSnapshot(userID string) ([]*models.Pattern, error)

	// InvalidatePatternSnapshot сбрасывает кеш паттернов пользователя
	InvalidatePatternSnapshot(userID string) error

	// IncrementMatchStats увеличивает счетчик исходов сопоставления
	IncrementMatchStats(outcome string) error

	// GetMatchStats получает счетчик исходов сопоставления
	GetMatchStats(outcome string) (int64, error)

	// ClearPatternData очищает рабочие данные паттернов из Redis
	ClearPatternData() error

	// Close закрывает соединение с Redis
	Close() error
}

// Убеждаемся, что Client реализует ClientInterface
var _ ClientInterface = (*Client)(nil)
