package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"recurring-patterns-system/internal/models"
)

// TransactionRepository определяет интерфейс для работы с транзакциями в хранилище
type TransactionRepository interface {
	// SaveTransaction сохраняет транзакцию; повтор по source_message_id
	// возвращает models.ErrConflict
	SaveTransaction(tx *models.Transaction) error

	// GetTransactionByID получает транзакцию по id
	GetTransactionByID(id string) (*models.Transaction, error)

	// GetTransactionBySourceMessageID получает транзакцию по идентификатору
	// исходного сообщения (ключ идемпотентности приема)
	GetTransactionBySourceMessageID(sourceMessageID string) (*models.Transaction, error)

	// GetTransactionsByKey получает транзакции одного ключа группировки,
	// еще не привязанные к паттернам этого ключа, отсортированные по дате
	GetTransactionsByKey(key models.GroupKey) ([]*models.Transaction, error)

	// ListCandidateGroups возвращает ключи групп пользователя с числом
	// транзакций не меньше minCount
	ListCandidateGroups(userID string, minCount int) ([]*models.CandidateGroup, error)

	// FlagTransaction помечает транзакцию аномальной (дата в будущем и т.п.)
	FlagTransaction(id string) error
}

// PatternRepository определяет интерфейс для работы с паттернами,
// стриками, обязательствами и связями
type PatternRepository interface {
	// UpsertPattern идемпотентно сохраняет кандидата: совпадение по
	// естественному ключу обновляет существующий паттерн (id стабилен),
	// иначе создается новый вместе со стриком и стартовым обязательством
	// из newObligation. Все в одной транзакции БД.
	UpsertPattern(c *models.PatternCandidate, newObligation func(p *models.Pattern) *models.Obligation) (*models.UpsertResult, error)

	// GetPattern получает паттерн по id
	GetPattern(id string) (*models.Pattern, error)

	// ListPatterns возвращает паттерны пользователя в указанных статусах
	// (пустой список статусов — все, кроме archived)
	ListPatterns(userID string, statuses []string) ([]*models.Pattern, error)

	// ListPatternsByKey возвращает паттерны одного ключа группировки
	ListPatternsByKey(key models.GroupKey, statuses []string) ([]*models.Pattern, error)

	// UpdatePatternStatus меняет статус паттерна
	UpdatePatternStatus(id, status string) error

	// UpdatePatternSummary записывает сводку паттерна (необязательное поле)
	UpdatePatternSummary(id, summary string) error

	// TouchPattern обновляет отметку последней оценки паттерна
	TouchPattern(id string, evaluatedAt time.Time) error

	// GetStreak получает стрик паттерна
	GetStreak(patternID string) (*models.PatternStreak, error)

	// GetExpectedObligation возвращает текущее ожидаемое обязательство
	// паттерна или models.ErrNotFound
	GetExpectedObligation(patternID string) (*models.Obligation, error)

	// ListObligations возвращает последние обязательства паттерна
	ListObligations(patternID string, limit int) ([]*models.Obligation, error)

	// ListObligationsFiltered возвращает обязательства паттерна с фильтром
	// по статусам и диапазону ожидаемых дат (nil — без ограничения)
	ListObligationsFiltered(patternID string, statuses []string, from, to *time.Time) ([]*models.Obligation, error)

	// ListUpcomingObligations возвращает ожидаемые обязательства пользователя
	// в диапазоне дат вместе с паттернами
	ListUpcomingObligations(userID string, from, to time.Time) ([]*models.UpcomingObligation, error)

	// SaveObligation вставляет новое обязательство
	SaveObligation(o *models.Obligation) error

	// CancelExpectedObligation переводит ожидаемое обязательство паттерна
	// в cancelled (архивирование, пауза)
	CancelExpectedObligation(patternID string) error

	// RecentFulfilledAmounts возвращает суммы последних исполнений паттерна
	// (новые первыми) для пересчета ожидаемой полосы
	RecentFulfilledAmounts(patternID string, limit int) ([]decimal.Decimal, error)

	// LinkedTransactionIDs возвращает id транзакций, привязанных к паттерну
	LinkedTransactionIDs(patternID string) ([]string, error)

	// ApplyFulfillment атомарно применяет исполнение: обновляет обязательство
	// и стрик, статус паттерна, добавляет связь и следующее ожидание
	ApplyFulfillment(o *models.Obligation, streak *models.PatternStreak, patternStatus string, link *models.PatternTransactionLink, next *models.Obligation) error

	// ApplyMiss атомарно применяет пропуск: обязательство в missed,
	// деградация стрика и статуса, следующее ожидание
	ApplyMiss(o *models.Obligation, streak *models.PatternStreak, patternStatus string, next *models.Obligation) error

	// DeletePattern безвозвратно удаляет паттерн вместе со стриком,
	// обязательствами и связями. Одна транзакция БД.
	DeletePattern(id string) error

	// CreateRun фиксирует запуск discovery
	CreateRun(run *models.DiscoveryRun) error

	// FinishRun записывает итоги запуска discovery
	FinishRun(run *models.DiscoveryRun) error

	// GetRun получает запуск discovery по id
	GetRun(id string) (*models.DiscoveryRun, error)
}
