package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"recurring-patterns-system/internal/kafka"
	"recurring-patterns-system/internal/logger"
	"recurring-patterns-system/internal/models"
	"recurring-patterns-system/internal/storage"
)

// maxClockSkew — допустимое опережение часов источника. Дата дальше в
// будущем помечает транзакцию аномальной: она сохраняется, но discovery
// и матчер её игнорируют.
const maxClockSkew = 24 * time.Hour

// TransactionServiceImpl реализует интерфейс TransactionService
type TransactionServiceImpl struct {
	repo     storage.TransactionRepository
	producer kafka.Producer
}

// NewTransactionService создает новый сервис транзакций
func NewTransactionService(repo storage.TransactionRepository, producer kafka.Producer) TransactionService {
	return &TransactionServiceImpl{
		repo:     repo,
		producer: producer,
	}
}

// IngestTransaction принимает транзакцию. Повтор по source_message_id
// возвращает существующую запись без побочных эффектов: прием идемпотентен.
func (s *TransactionServiceImpl) IngestTransaction(req *models.Transaction) (*models.IngestResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %w", models.ErrInvalid)
	}
	if req.Direction != models.DirectionDebit && req.Direction != models.DirectionCredit {
		return nil, fmt.Errorf("unknown direction %q: %w", req.Direction, models.ErrInvalid)
	}

	tx := *req
	tx.ID = "txn_" + uuid.New().String()
	tx.CreatedAt = time.Now().UTC()

	if tx.OccurredAt.After(time.Now().Add(maxClockSkew)) {
		tx.Flagged = true
		logger.LogEvent(logger.EventAnomalyFlagged, "pattern-service", "ingest", map[string]interface{}{
			"transaction_id": tx.ID,
			"occurred_at":    tx.OccurredAt.Format(time.RFC3339),
			"reason":         "occurred_at in the future",
		})
	}

	if err := s.repo.SaveTransaction(&tx); err != nil {
		if errors.Is(err, models.ErrConflict) {
			existing, getErr := s.repo.GetTransactionBySourceMessageID(tx.SourceMessageID)
			if getErr != nil {
				return nil, getErr
			}
			return &models.IngestResponse{
				TransactionID: existing.ID,
				Status:        "duplicate",
				Message:       "Transaction with this source_message_id already ingested",
			}, nil
		}
		return nil, err
	}

	logger.LogEvent(logger.EventTransactionSaved, "pattern-service", "sqlite", map[string]interface{}{
		"transaction_id": tx.ID,
		"user_id":        tx.UserID,
		"payee_id":       tx.PayeeID,
	})

	// Аномальные транзакции не публикуются: матчеру нечего с ними делать
	if !tx.Flagged {
		event := &models.TransactionEvent{
			EventID:   "evt_" + uuid.New().String(),
			EventType: "transaction_created",
			Timestamp: time.Now(),
			Data: models.TransactionEventData{
				TransactionID: tx.ID,
				UserID:        tx.UserID,
				PayeeID:       tx.PayeeID,
				Direction:     tx.Direction,
				CurrencyID:    tx.CurrencyID,
				OccurredAt:    tx.OccurredAt,
				Amount:        tx.Amount,
			},
		}
		if err := s.producer.SendTransactionEvent(event); err != nil {
			return nil, err
		}
	}

	return &models.IngestResponse{
		TransactionID: tx.ID,
		Status:        "accepted",
		Message:       "Transaction accepted",
	}, nil
}

// GetTransaction возвращает транзакцию по id
func (s *TransactionServiceImpl) GetTransaction(id string) (*models.Transaction, error) {
	return s.repo.GetTransactionByID(id)
}
