package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Статусы обязательства
const (
	ObligationExpected  = "expected"
	ObligationFulfilled = "fulfilled"
	ObligationMissed    = "missed"
	ObligationCancelled = "cancelled"
)

// Obligation представляет ожидаемое будущее исполнение паттерна.
// В установившемся режиме у активного паттерна ровно одно обязательство
// в статусе expected; терминальные состояния хранятся для истории.
type Obligation struct {
	ID                       string          `json:"id"`
	PatternID                string          `json:"pattern_id"`
	ExpectedDate             time.Time       `json:"expected_date"`
	ToleranceDays            int             `json:"tolerance_days"`
	ExpectedMinAmount        decimal.Decimal `json:"expected_min_amount"`
	ExpectedMaxAmount        decimal.Decimal `json:"expected_max_amount"`
	Status                   string          `json:"status"`
	FulfilledByTransactionID *string         `json:"fulfilled_by_transaction_id,omitempty"`
	FulfilledAt              *time.Time      `json:"fulfilled_at,omitempty"`
	DaysEarly                *int            `json:"days_early,omitempty"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

// WindowStart возвращает начало окна допуска (включительно, целые дни)
func (o *Obligation) WindowStart() time.Time {
	return o.ExpectedDate.AddDate(0, 0, -o.ToleranceDays)
}

// WindowEnd возвращает конец окна допуска (включительно)
func (o *Obligation) WindowEnd() time.Time {
	return o.ExpectedDate.AddDate(0, 0, o.ToleranceDays)
}

// UpcomingObligation — обязательство вместе с паттерном для выдачи ListUpcoming
type UpcomingObligation struct {
	Obligation *Obligation `json:"obligation"`
	Pattern    *Pattern    `json:"pattern"`
}

// MatchResult — итог обработки одной транзакции runtime-матчером
type MatchResult struct {
	TransactionID  string   `json:"transaction_id"`
	Matched        bool     `json:"matched"`
	PatternID      string   `json:"pattern_id,omitempty"`
	ObligationID   string   `json:"obligation_id,omitempty"`
	MissesDetected int      `json:"misses_detected"`
	Repaired       bool     `json:"repaired"`
	Reason         string   `json:"reason,omitempty"`
	CheckedPattern []string `json:"checked_patterns,omitempty"`
}
