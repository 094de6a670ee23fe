package sqlite

import (
	"github.com/shopspring/decimal"
)

// LinkedTransactionIDs возвращает id транзакций, привязанных к паттерну
func (s *SQLiteStorage) LinkedTransactionIDs(patternID string) ([]string, error) {
	rows, err := s.DB.Query(`
		SELECT transaction_id FROM pattern_transactions
		WHERE pattern_id = ?
		ORDER BY linked_at ASC, transaction_id ASC`, patternID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecentFulfilledAmounts возвращает суммы последних исполнений паттерна,
// новые первыми. Источник — транзакции, закрывшие обязательства, поэтому
// выбросы, не попадавшие в окна, сюда не попадают.
func (s *SQLiteStorage) RecentFulfilledAmounts(patternID string, limit int) ([]decimal.Decimal, error) {
	rows, err := s.DB.Query(`
		SELECT t.amount
		FROM pattern_obligations o
		JOIN transactions t ON t.id = o.fulfilled_by_transaction_id
		WHERE o.pattern_id = ? AND o.status = 'fulfilled'
		ORDER BY o.expected_date DESC
		LIMIT ?`, patternID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var amounts []decimal.Decimal
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, amount)
	}
	return amounts, rows.Err()
}
