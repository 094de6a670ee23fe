package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"recurring-patterns-system/internal/models"
)

const obligationColumns = `id, pattern_id, expected_date, tolerance_days,
	expected_min_amount, expected_max_amount, status,
	fulfilled_by_transaction_id, fulfilled_at, days_early, created_at, updated_at`

// SaveObligation вставляет новое обязательство
func (s *SQLiteStorage) SaveObligation(o *models.Obligation) error {
	return retryOperation(func() error {
		return insertObligationExec(s.DB, o)
	}, writeRetries, writeRetryDelay)
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func insertObligation(tx *sql.Tx, o *models.Obligation) error {
	return insertObligationExec(tx, o)
}

func insertObligationExec(db execer, o *models.Obligation) error {
	_, err := db.Exec(`
		INSERT INTO pattern_obligations (
			id, pattern_id, expected_date, tolerance_days,
			expected_min_amount, expected_max_amount, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.PatternID, o.ExpectedDate.UTC(), o.ToleranceDays,
		o.ExpectedMinAmount.String(), o.ExpectedMaxAmount.String(),
		o.Status, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

// CancelExpectedObligation переводит ожидаемое обязательство паттерна
// в cancelled. Отсутствие ожидаемого обязательства не ошибка.
func (s *SQLiteStorage) CancelExpectedObligation(patternID string) error {
	return retryOperation(func() error {
		_, err := s.DB.Exec(`
			UPDATE pattern_obligations SET status = 'cancelled', updated_at = ?
			WHERE pattern_id = ? AND status = 'expected'`,
			time.Now().UTC(), patternID)
		return err
	}, writeRetries, writeRetryDelay)
}

// GetExpectedObligation возвращает текущее ожидаемое обязательство паттерна
func (s *SQLiteStorage) GetExpectedObligation(patternID string) (*models.Obligation, error) {
	row := s.DB.QueryRow(`
		SELECT `+obligationColumns+`
		FROM pattern_obligations
		WHERE pattern_id = ? AND status = 'expected'`, patternID)

	o, err := scanObligation(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ListObligations возвращает последние обязательства паттерна, новые первыми
func (s *SQLiteStorage) ListObligations(patternID string, limit int) ([]*models.Obligation, error) {
	rows, err := s.DB.Query(`
		SELECT `+obligationColumns+`
		FROM pattern_obligations
		WHERE pattern_id = ?
		ORDER BY expected_date DESC
		LIMIT ?`, patternID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var obligations []*models.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		obligations = append(obligations, o)
	}
	return obligations, rows.Err()
}

// ListObligationsFiltered возвращает обязательства паттерна с фильтром
// по статусам и диапазону ожидаемых дат
func (s *SQLiteStorage) ListObligationsFiltered(patternID string, statuses []string, from, to *time.Time) ([]*models.Obligation, error) {
	query := `SELECT ` + obligationColumns + ` FROM pattern_obligations WHERE pattern_id = ?`
	args := []interface{}{patternID}
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, st := range statuses {
			placeholders[i] = "?"
			args = append(args, st)
		}
		query += ` AND status IN (` + joinColumns(placeholders) + `)`
	}
	if from != nil {
		query += ` AND expected_date >= ?`
		args = append(args, from.UTC())
	}
	if to != nil {
		query += ` AND expected_date <= ?`
		args = append(args, to.UTC())
	}
	query += ` ORDER BY expected_date DESC`

	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var obligations []*models.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		obligations = append(obligations, o)
	}
	return obligations, rows.Err()
}

// ListUpcomingObligations возвращает ожидаемые обязательства пользователя
// в диапазоне дат вместе с паттернами
func (s *SQLiteStorage) ListUpcomingObligations(userID string, from, to time.Time) ([]*models.UpcomingObligation, error) {
	query := `
		SELECT ` + prefixColumns("o", obligationColumns) + `, ` + prefixColumns("p", patternColumns) + `
		FROM pattern_obligations o
		JOIN patterns p ON p.id = o.pattern_id
		WHERE p.user_id = ? AND o.status = 'expected'
		  AND o.expected_date >= ? AND o.expected_date <= ?
		ORDER BY o.expected_date ASC
	`

	rows, err := s.DB.Query(query, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var upcoming []*models.UpcomingObligation
	for rows.Next() {
		o := &models.Obligation{}
		p := &models.Pattern{}
		var oMin, oMax, pRepr, pMin, pMax string
		var fulfilledBy sql.NullString
		var fulfilledAt sql.NullTime
		var daysEarly, hint sql.NullInt64
		var summary sql.NullString

		err := rows.Scan(
			&o.ID, &o.PatternID, &o.ExpectedDate, &o.ToleranceDays,
			&oMin, &oMax, &o.Status,
			&fulfilledBy, &fulfilledAt, &daysEarly, &o.CreatedAt, &o.UpdatedAt,
			&p.ID, &p.UserID, &p.PayeeID, &p.Direction, &p.CurrencyID,
			&p.IntervalDays, &p.PatternCase, &p.AmountBehavior,
			&pRepr, &pMin, &pMax,
			&hint, &p.Status, &p.Confidence, &summary, &p.DetectionVersion,
			&p.DetectedAt, &p.LastEvaluatedAt, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if o.ExpectedMinAmount, err = decimal.NewFromString(oMin); err != nil {
			return nil, err
		}
		if o.ExpectedMaxAmount, err = decimal.NewFromString(oMax); err != nil {
			return nil, err
		}
		if p.RepresentativeAmount, err = decimal.NewFromString(pRepr); err != nil {
			return nil, err
		}
		if p.AmountMin, err = decimal.NewFromString(pMin); err != nil {
			return nil, err
		}
		if p.AmountMax, err = decimal.NewFromString(pMax); err != nil {
			return nil, err
		}
		if hint.Valid {
			v := int(hint.Int64)
			p.DayOfMonthHint = &v
		}
		p.Summary = summary.String

		upcoming = append(upcoming, &models.UpcomingObligation{Obligation: o, Pattern: p})
	}
	return upcoming, rows.Err()
}

// ApplyFulfillment атомарно применяет исполнение обязательства:
// обязательство, стрик, статус паттерна, связь и следующее ожидание —
// одна транзакция, частичных состояний не бывает
func (s *SQLiteStorage) ApplyFulfillment(o *models.Obligation, streak *models.PatternStreak, patternStatus string, link *models.PatternTransactionLink, next *models.Obligation) error {
	return retryOperation(func() error {
		tx, err := s.DB.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			UPDATE pattern_obligations
			SET status = ?, fulfilled_by_transaction_id = ?, fulfilled_at = ?, days_early = ?, updated_at = ?
			WHERE id = ? AND status = 'expected'`,
			o.Status, o.FulfilledByTransactionID, o.FulfilledAt, o.DaysEarly, o.UpdatedAt, o.ID,
		)
		if err != nil {
			return err
		}

		if err := updateStreakTx(tx, streak); err != nil {
			return err
		}

		_, err = tx.Exec(`UPDATE patterns SET status = ?, last_evaluated_at = ?, updated_at = ? WHERE id = ?`,
			patternStatus, time.Now().UTC(), time.Now().UTC(), o.PatternID)
		if err != nil {
			return err
		}

		if link != nil {
			_, err = tx.Exec(`
				INSERT OR IGNORE INTO pattern_transactions (pattern_id, transaction_id, linked_at)
				VALUES (?, ?, ?)`,
				link.PatternID, link.TransactionID, link.LinkedAt)
			if err != nil {
				return err
			}
		}

		if next != nil {
			if err := insertObligation(tx, next); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, writeRetries, writeRetryDelay)
}

// ApplyMiss атомарно применяет пропуск обязательства
func (s *SQLiteStorage) ApplyMiss(o *models.Obligation, streak *models.PatternStreak, patternStatus string, next *models.Obligation) error {
	return retryOperation(func() error {
		tx, err := s.DB.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			UPDATE pattern_obligations SET status = ?, updated_at = ?
			WHERE id = ? AND status = 'expected'`,
			o.Status, o.UpdatedAt, o.ID,
		)
		if err != nil {
			return err
		}

		if err := updateStreakTx(tx, streak); err != nil {
			return err
		}

		_, err = tx.Exec(`UPDATE patterns SET status = ?, last_evaluated_at = ?, updated_at = ? WHERE id = ?`,
			patternStatus, time.Now().UTC(), time.Now().UTC(), o.PatternID)
		if err != nil {
			return err
		}

		if next != nil {
			if err := insertObligation(tx, next); err != nil {
				return err
			}
		}

		return tx.Commit()
	}, writeRetries, writeRetryDelay)
}

func scanObligation(row rowScanner) (*models.Obligation, error) {
	var o models.Obligation
	var minAmount, maxAmount string
	var fulfilledBy sql.NullString
	var fulfilledAt sql.NullTime
	var daysEarly sql.NullInt64

	err := row.Scan(
		&o.ID, &o.PatternID, &o.ExpectedDate, &o.ToleranceDays,
		&minAmount, &maxAmount, &o.Status,
		&fulfilledBy, &fulfilledAt, &daysEarly, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if o.ExpectedMinAmount, err = decimal.NewFromString(minAmount); err != nil {
		return nil, fmt.Errorf("invalid expected_min_amount for %s: %w", o.ID, err)
	}
	if o.ExpectedMaxAmount, err = decimal.NewFromString(maxAmount); err != nil {
		return nil, fmt.Errorf("invalid expected_max_amount for %s: %w", o.ID, err)
	}
	if fulfilledBy.Valid {
		o.FulfilledByTransactionID = &fulfilledBy.String
	}
	if fulfilledAt.Valid {
		t := fulfilledAt.Time
		o.FulfilledAt = &t
	}
	if daysEarly.Valid {
		v := int(daysEarly.Int64)
		o.DaysEarly = &v
	}
	return &o, nil
}

// prefixColumns добавляет алиас таблицы к списку колонок
func prefixColumns(alias, columns string) string {
	parts := splitColumns(columns)
	for i, c := range parts {
		parts[i] = alias + "." + c
	}
	return joinColumns(parts)
}
