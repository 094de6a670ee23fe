package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Классификация интервала паттерна
const (
	CaseFixedMonthly    = "fixed_monthly"
	CaseVariableMonthly = "variable_monthly"
	CaseFlexibleMonthly = "flexible_monthly"
	CaseBiMonthly       = "bi_monthly"
	CaseQuarterly       = "quarterly"
	CaseCustomInterval  = "custom_interval"
)

// Классификация поведения суммы
const (
	AmountFixed          = "fixed"
	AmountVariable       = "variable"
	AmountHighlyVariable = "highly_variable"
)

// Статусы паттерна
const (
	PatternActive   = "active"
	PatternPaused   = "paused"
	PatternBroken   = "broken"
	PatternArchived = "archived"
)

// Pattern представляет обнаруженную повторяющуюся серию транзакций.
// У одного получателя может быть несколько независимых паттернов
// (разные полосы сумм и/или окна дня месяца); id стабилен между
// повторными запусками discovery.
type Pattern struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"user_id"`
	PayeeID              string          `json:"payee_id"`
	Direction            string          `json:"direction"`
	CurrencyID           string          `json:"currency_id"`
	IntervalDays         int             `json:"interval_days"`
	PatternCase          string          `json:"pattern_case"`
	AmountBehavior       string          `json:"amount_behavior"`
	RepresentativeAmount decimal.Decimal `json:"representative_amount"`
	AmountMin            decimal.Decimal `json:"amount_min"`
	AmountMax            decimal.Decimal `json:"amount_max"`
	DayOfMonthHint       *int            `json:"day_of_month_hint,omitempty"`
	Status               string          `json:"status"`
	Confidence           float64         `json:"confidence"`
	Summary              string          `json:"summary,omitempty"`
	DetectionVersion     int             `json:"detection_version"`
	DetectedAt           time.Time       `json:"detected_at"`
	LastEvaluatedAt      time.Time       `json:"last_evaluated_at"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// Key возвращает ключ семейства паттерна
func (p *Pattern) Key() GroupKey {
	return GroupKey{
		UserID:     p.UserID,
		PayeeID:    p.PayeeID,
		Direction:  p.Direction,
		CurrencyID: p.CurrencyID,
	}
}

// PatternStreak представляет быстро меняющееся состояние паттерна.
// Состояние авторитетно: никогда не пересчитывается из истории.
type PatternStreak struct {
	PatternID            string     `json:"pattern_id"`
	CurrentStreak        int        `json:"current_streak"`
	LongestStreak        int        `json:"longest_streak"`
	MissedCount          int        `json:"missed_count"`
	LastActualDate       *time.Time `json:"last_actual_date,omitempty"`
	LastExpectedDate     *time.Time `json:"last_expected_date,omitempty"`
	ConfidenceMultiplier float64    `json:"confidence_multiplier"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// PatternTransactionLink связывает транзакцию с паттерном.
// Append-only: однажды созданная связь никогда не удаляется discovery-путем.
type PatternTransactionLink struct {
	PatternID     string    `json:"pattern_id"`
	TransactionID string    `json:"transaction_id"`
	LinkedAt      time.Time `json:"linked_at"`
}

// PatternCandidate — результат работы движка discovery для одного кластера.
// Еще не сохранен; персистентность и стабильный id дает UpsertPattern.
type PatternCandidate struct {
	Key                  GroupKey
	Transactions         []*Transaction
	IntervalDays         int
	PatternCase          string
	AmountBehavior       string
	RepresentativeAmount decimal.Decimal
	AmountMin            decimal.Decimal
	AmountMax            decimal.Decimal
	DayOfMonthHint       *int
	Confidence           float64
	IntervalCV           float64
	AmountCV             float64
	OutlierIDs           []string
}

// UpsertResult — итог идемпотентного сохранения кандидата
type UpsertResult struct {
	Pattern *Pattern `json:"pattern"`
	Created bool     `json:"created"`
}

// PatternResponse — паттерн вместе со стриком и последними обязательствами
type PatternResponse struct {
	Pattern     *Pattern       `json:"pattern"`
	Streak      *PatternStreak `json:"streak,omitempty"`
	Obligations []*Obligation  `json:"obligations,omitempty"`
}

// UpdatePatternRequest — пользовательское управление паттерном
type UpdatePatternRequest struct {
	Action string `json:"action" binding:"required,oneof=pause resume archive"`
}

// DiscoverRequest — параметры запуска discovery
type DiscoverRequest struct {
	PayeeID   string `json:"payee_id"`
	Direction string `json:"direction" binding:"omitempty,oneof=debit credit"`
}

// Статусы запуска discovery
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Коды причин отбраковки групп и кластеров
const (
	ReasonTooFewTransactions = "too_few_transactions"
	ReasonTooFrequent        = "too_frequent"
	ReasonUnstableInterval   = "unstable_interval"
	ReasonNoInlierBand       = "no_inlier_band"
	ReasonLowConfidence      = "low_confidence"
)

// DiscoveryRun фиксирует прогон discovery: счетчики и причины отказов
type DiscoveryRun struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Status          string     `json:"status"`
	GroupsTotal     int        `json:"groups_total"`
	GroupsSkipped   int        `json:"groups_skipped"`
	ClustersTotal   int        `json:"clusters_total"`
	PatternsCreated int        `json:"patterns_created"`
	PatternsUpdated int        `json:"patterns_updated"`
	ClustersDropped int        `json:"clusters_dropped"`
	DropReasons     []string   `json:"drop_reasons,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
}

// DiscoverResponse — результат команды Discover
type DiscoverResponse struct {
	Run      *DiscoveryRun   `json:"run"`
	Patterns []*UpsertResult `json:"patterns"`
}
