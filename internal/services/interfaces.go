package services

import (
	"time"

	"recurring-patterns-system/internal/models"
)

// TransactionService определяет интерфейс приема транзакций
type TransactionService interface {
	// IngestTransaction принимает транзакцию: сохраняет, публикует событие
	// и идемпотентно обрабатывает повторы по source_message_id
	IngestTransaction(req *models.Transaction) (*models.IngestResponse, error)

	// GetTransaction возвращает транзакцию по id
	GetTransaction(id string) (*models.Transaction, error)
}

// PatternService определяет интерфейс управления паттернами
type PatternService interface {
	// Discover запускает полный прогон discovery для пользователя
	Discover(userID string, req *models.DiscoverRequest) (*models.DiscoverResponse, error)

	// GetPattern возвращает паттерн вместе со стриком и обязательствами
	GetPattern(id string) (*models.PatternResponse, error)

	// ListPatterns возвращает паттерны пользователя
	ListPatterns(userID string, statuses []string) ([]*models.Pattern, error)

	// UpdatePattern применяет пользовательское действие: pause, resume, archive
	UpdatePattern(id string, action string) (*models.Pattern, error)

	// DeletePattern удаляет паттерн. Без подтверждения — мягко (archived),
	// с подтверждением — безвозвратно вместе со стриком, обязательствами
	// и связями
	DeletePattern(id string, confirm bool) error

	// ListObligations возвращает обязательства паттерна с фильтром по
	// статусам и диапазону ожидаемых дат
	ListObligations(patternID string, statuses []string, from, to *time.Time) ([]*models.Obligation, error)

	// ListUpcoming возвращает ожидаемые обязательства пользователя в диапазоне дат
	ListUpcoming(userID string, from, to time.Time) ([]*models.UpcomingObligation, error)

	// GetRun возвращает запуск discovery
	GetRun(id string) (*models.DiscoveryRun, error)
}
