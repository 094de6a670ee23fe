package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"recurring-patterns-system/internal/models"
)

const (
	writeRetries    = 5
	writeRetryDelay = 50 * time.Millisecond
)

// SaveTransaction сохраняет транзакцию. Повтор по source_message_id
// возвращает models.ErrConflict: прием идемпотентен.
func (s *SQLiteStorage) SaveTransaction(tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, user_id, payee_id, direction, currency_id,
			occurred_at, amount, source_message_id, description, flagged
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	return retryOperation(func() error {
		_, err := s.DB.Exec(
			query,
			tx.ID, tx.UserID, tx.PayeeID, tx.Direction, tx.CurrencyID,
			tx.OccurredAt.UTC(), tx.Amount.String(), tx.SourceMessageID,
			tx.Description, boolToInt(tx.Flagged),
		)
		if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("duplicate source_message_id %s: %w", tx.SourceMessageID, models.ErrConflict)
		}
		return err
	}, writeRetries, writeRetryDelay)
}

// GetTransactionByID получает транзакцию по id
func (s *SQLiteStorage) GetTransactionByID(id string) (*models.Transaction, error) {
	return s.getTransaction("id = ?", id)
}

// GetTransactionBySourceMessageID получает транзакцию по исходному сообщению
func (s *SQLiteStorage) GetTransactionBySourceMessageID(sourceMessageID string) (*models.Transaction, error) {
	return s.getTransaction("source_message_id = ?", sourceMessageID)
}

func (s *SQLiteStorage) getTransaction(where string, arg interface{}) (*models.Transaction, error) {
	query := `
		SELECT id, user_id, payee_id, direction, currency_id,
		       occurred_at, amount, source_message_id, description, flagged, created_at
		FROM transactions
		WHERE ` + where

	row := s.DB.QueryRow(query, arg)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// GetTransactionsByKey получает транзакции одного ключа группировки,
// еще не привязанные ни к одному паттерну этого ключа, в порядке
// возрастания даты. Привязанная транзакция уже объяснена паттерном
// и в повторное discovery не попадает.
func (s *SQLiteStorage) GetTransactionsByKey(key models.GroupKey) ([]*models.Transaction, error) {
	query := `
		SELECT id, user_id, payee_id, direction, currency_id,
		       occurred_at, amount, source_message_id, description, flagged, created_at
		FROM transactions t
		WHERE t.user_id = ? AND t.payee_id = ? AND t.direction = ? AND t.currency_id = ?
		  AND NOT EXISTS (
			SELECT 1
			FROM pattern_transactions pt
			JOIN patterns p ON p.id = pt.pattern_id
			WHERE pt.transaction_id = t.id
			  AND p.user_id = t.user_id AND p.payee_id = t.payee_id
			  AND p.direction = t.direction AND p.currency_id = t.currency_id
		  )
		ORDER BY t.occurred_at ASC
	`

	rows, err := s.DB.Query(query, key.UserID, key.PayeeID, key.Direction, key.CurrencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// ListCandidateGroups возвращает ключи групп пользователя с числом
// транзакций не меньше minCount
func (s *SQLiteStorage) ListCandidateGroups(userID string, minCount int) ([]*models.CandidateGroup, error) {
	query := `
		SELECT user_id, payee_id, direction, currency_id, COUNT(*) AS cnt
		FROM transactions
		WHERE user_id = ?
		GROUP BY user_id, payee_id, direction, currency_id
		HAVING cnt >= ?
		ORDER BY payee_id, direction, currency_id
	`

	rows, err := s.DB.Query(query, userID, minCount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*models.CandidateGroup
	for rows.Next() {
		var g models.CandidateGroup
		if err := rows.Scan(&g.Key.UserID, &g.Key.PayeeID, &g.Key.Direction, &g.Key.CurrencyID, &g.Count); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

// FlagTransaction помечает транзакцию аномальной
func (s *SQLiteStorage) FlagTransaction(id string) error {
	return retryOperation(func() error {
		res, err := s.DB.Exec(`UPDATE transactions SET flagged = 1 WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return models.ErrNotFound
		}
		return nil
	}, writeRetries, writeRetryDelay)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var amount string
	var flagged int
	var description sql.NullString

	err := row.Scan(
		&tx.ID, &tx.UserID, &tx.PayeeID, &tx.Direction, &tx.CurrencyID,
		&tx.OccurredAt, &amount, &tx.SourceMessageID, &description, &flagged, &tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in row %s: %w", tx.ID, err)
	}
	tx.Description = description.String
	tx.Flagged = flagged != 0
	return &tx, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
