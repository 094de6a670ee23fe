package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Направления транзакций
const (
	DirectionDebit  = "debit"
	DirectionCredit = "credit"
)

// Transaction представляет неизменяемую транзакцию пользователя.
// Записывается внешним продюсером (ingestion pipeline), далее только читается.
type Transaction struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id" binding:"required"`
	PayeeID         string          `json:"payee_id" binding:"required"`
	Direction       string          `json:"direction" binding:"required,oneof=debit credit"`
	CurrencyID      string          `json:"currency_id" binding:"required"`
	OccurredAt      time.Time       `json:"occurred_at" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	SourceMessageID string          `json:"source_message_id" binding:"required"`
	Description     string          `json:"description"`
	Flagged         bool            `json:"flagged"`
	CreatedAt       time.Time       `json:"created_at"`
}

// IngestRequest представляет запрос на прием транзакции
type IngestRequest struct {
	Transaction
}

// IngestResponse представляет ответ на прием транзакции
type IngestResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// GroupKey идентифицирует семейство паттернов: валюты и направления
// никогда не смешиваются между группами
type GroupKey struct {
	UserID     string `json:"user_id"`
	PayeeID    string `json:"payee_id"`
	Direction  string `json:"direction"`
	CurrencyID string `json:"currency_id"`
}

// CandidateGroup — группа транзакций одного ключа, кандидат на discovery
type CandidateGroup struct {
	Key   GroupKey `json:"key"`
	Count int      `json:"count"`
}

// TransactionEvent представляет событие транзакции в Kafka
type TransactionEvent struct {
	EventID   string               `json:"event_id"`
	EventType string               `json:"event_type"`
	Timestamp time.Time            `json:"timestamp"`
	Attempt   int                  `json:"attempt"`
	Data      TransactionEventData `json:"data"`
}

// TransactionEventData представляет данные транзакции в событии Kafka
type TransactionEventData struct {
	TransactionID string          `json:"transaction_id"`
	UserID        string          `json:"user_id"`
	PayeeID       string          `json:"payee_id"`
	Direction     string          `json:"direction"`
	CurrencyID    string          `json:"currency_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Amount        decimal.Decimal `json:"amount"`
}

// PartitionKey возвращает ключ партиционирования Kafka: все события одного
// семейства паттернов попадают в одну партицию и обрабатываются строго по очереди
func (d TransactionEventData) PartitionKey() string {
	return d.UserID + "|" + d.PayeeID + "|" + d.Direction + "|" + d.CurrencyID
}
