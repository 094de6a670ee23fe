package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"recurring-patterns-system/internal/models"
)

// UpsertPattern идемпотентно сохраняет кандидата discovery.
//
// Совпадение ищется по естественному ключу: (user, payee, direction, currency)
// плюс перекрытие полос сумм плюс близость подсказки дня месяца. Повторный
// запуск discovery по тем же данным обновляет существующую строку и никогда
// не плодит дубликат: id паттерна стабилен, стрик не сбрасывается, связи
// только добавляются.
func (s *SQLiteStorage) UpsertPattern(c *models.PatternCandidate, newObligation func(p *models.Pattern) *models.Obligation) (*models.UpsertResult, error) {
	var result *models.UpsertResult

	err := retryOperation(func() error {
		tx, err := s.DB.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		existing, err := findMatchingPattern(tx, c)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if existing != nil {
			result, err = updatePattern(tx, existing, c, now)
		} else {
			result, err = insertPattern(tx, c, now)
		}
		if err != nil {
			return err
		}

		if err := linkTransactions(tx, result.Pattern.ID, c, now); err != nil {
			return err
		}

		// Стартовое обязательство — только для нового паттерна и строго
		// последним перед коммитом: паттерн, стрик, связи, обязательство
		if result.Created && newObligation != nil {
			if err := insertObligation(tx, newObligation(result.Pattern)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, writeRetries, writeRetryDelay)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// findMatchingPattern ищет существующий паттерн того же естественного ключа.
// Полосы сумм должны перекрываться; подсказки дня месяца, когда обе заданы,
// должны лежать в пределах 5 дней (с переносом через границу месяца).
func findMatchingPattern(tx *sql.Tx, c *models.PatternCandidate) (*models.Pattern, error) {
	query := `
		SELECT ` + patternColumns + `
		FROM patterns
		WHERE user_id = ? AND payee_id = ? AND direction = ? AND currency_id = ?
		  AND status != 'archived'
		ORDER BY id
	`

	rows, err := tx.Query(query, c.Key.UserID, c.Key.PayeeID, c.Key.Direction, c.Key.CurrencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		if !bandsOverlap(p.AmountMin, p.AmountMax, c.AmountMin, c.AmountMax) {
			continue
		}
		if p.DayOfMonthHint != nil && c.DayOfMonthHint != nil &&
			circularDayDistance(*p.DayOfMonthHint, *c.DayOfMonthHint) > 5 {
			continue
		}
		return p, rows.Err()
	}
	return nil, rows.Err()
}

func bandsOverlap(aMin, aMax, bMin, bMax decimal.Decimal) bool {
	return aMin.LessThanOrEqual(bMax) && bMin.LessThanOrEqual(aMax)
}

func circularDayDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if 30-d < d {
		d = 30 - d
	}
	return d
}

// updatePattern переписывает параметры существующего паттерна свежими
// данными кандидата. Статус и стрик не трогаются: состояние авторитетно.
func updatePattern(tx *sql.Tx, existing *models.Pattern, c *models.PatternCandidate, now time.Time) (*models.UpsertResult, error) {
	query := `
		UPDATE patterns SET
			interval_days = ?, pattern_case = ?, amount_behavior = ?,
			representative_amount = ?, amount_min = ?, amount_max = ?,
			day_of_month_hint = ?, confidence = ?,
			detection_version = detection_version + 1,
			last_evaluated_at = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := tx.Exec(
		query,
		c.IntervalDays, c.PatternCase, c.AmountBehavior,
		c.RepresentativeAmount.String(), c.AmountMin.String(), c.AmountMax.String(),
		intPtrToNull(c.DayOfMonthHint), c.Confidence,
		now, now, existing.ID,
	)
	if err != nil {
		return nil, err
	}

	existing.IntervalDays = c.IntervalDays
	existing.PatternCase = c.PatternCase
	existing.AmountBehavior = c.AmountBehavior
	existing.RepresentativeAmount = c.RepresentativeAmount
	existing.AmountMin = c.AmountMin
	existing.AmountMax = c.AmountMax
	existing.DayOfMonthHint = c.DayOfMonthHint
	existing.Confidence = c.Confidence
	existing.DetectionVersion++
	existing.LastEvaluatedAt = now
	existing.UpdatedAt = now

	return &models.UpsertResult{Pattern: existing, Created: false}, nil
}

// insertPattern создает паттерн вместе со стриком. Связи и стартовое
// обязательство добавляет вызывающий в той же транзакции, после стрика.
//
// Стрик засевается историей серии: обнаруженные транзакции — это уже
// состоявшиеся исполнения подряд, а дата последней из них становится
// опорой для восстановления ожидания.
func insertPattern(tx *sql.Tx, c *models.PatternCandidate, now time.Time) (*models.UpsertResult, error) {
	p := &models.Pattern{
		ID:                   "pat_" + uuid.New().String(),
		UserID:               c.Key.UserID,
		PayeeID:              c.Key.PayeeID,
		Direction:            c.Key.Direction,
		CurrencyID:           c.Key.CurrencyID,
		IntervalDays:         c.IntervalDays,
		PatternCase:          c.PatternCase,
		AmountBehavior:       c.AmountBehavior,
		RepresentativeAmount: c.RepresentativeAmount,
		AmountMin:            c.AmountMin,
		AmountMax:            c.AmountMax,
		DayOfMonthHint:       c.DayOfMonthHint,
		Status:               models.PatternActive,
		Confidence:           c.Confidence,
		DetectionVersion:     1,
		DetectedAt:           now,
		LastEvaluatedAt:      now,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	_, err := tx.Exec(`
		INSERT INTO patterns (
			id, user_id, payee_id, direction, currency_id,
			interval_days, pattern_case, amount_behavior,
			representative_amount, amount_min, amount_max,
			day_of_month_hint, status, confidence, detection_version,
			detected_at, last_evaluated_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.PayeeID, p.Direction, p.CurrencyID,
		p.IntervalDays, p.PatternCase, p.AmountBehavior,
		p.RepresentativeAmount.String(), p.AmountMin.String(), p.AmountMax.String(),
		intPtrToNull(p.DayOfMonthHint), p.Status, p.Confidence, p.DetectionVersion,
		p.DetectedAt, p.LastEvaluatedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	seen := len(c.Transactions)
	var lastActual interface{}
	if seen > 0 {
		lastActual = c.Transactions[seen-1].OccurredAt.UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO pattern_streaks (pattern_id, current_streak, longest_streak, missed_count, last_actual_date, confidence_multiplier, updated_at)
		VALUES (?, ?, ?, 0, ?, 1.0, ?)`,
		p.ID, seen, seen, lastActual, now,
	)
	if err != nil {
		return nil, err
	}

	return &models.UpsertResult{Pattern: p, Created: true}, nil
}

// linkTransactions добавляет связи паттерн-транзакция. INSERT OR IGNORE:
// связи append-only, повторный запуск не создает дубликатов и ничего не удаляет.
func linkTransactions(tx *sql.Tx, patternID string, c *models.PatternCandidate, now time.Time) error {
	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO pattern_transactions (pattern_id, transaction_id, linked_at)
		VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range c.Transactions {
		if _, err := stmt.Exec(patternID, t.ID, now); err != nil {
			return err
		}
	}
	return nil
}

const patternColumns = `id, user_id, payee_id, direction, currency_id,
	interval_days, pattern_case, amount_behavior,
	representative_amount, amount_min, amount_max,
	day_of_month_hint, status, confidence, summary, detection_version,
	detected_at, last_evaluated_at, created_at, updated_at`

// GetPattern получает паттерн по id
func (s *SQLiteStorage) GetPattern(id string) (*models.Pattern, error) {
	row := s.DB.QueryRow(`SELECT `+patternColumns+` FROM patterns WHERE id = ?`, id)
	p, err := scanPattern(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListPatterns возвращает паттерны пользователя в указанных статусах.
// Пустой список статусов означает все, кроме archived.
func (s *SQLiteStorage) ListPatterns(userID string, statuses []string) ([]*models.Pattern, error) {
	query := `SELECT ` + patternColumns + ` FROM patterns WHERE user_id = ?`
	args := []interface{}{userID}
	query += statusClause(statuses, &args)
	query += ` ORDER BY detected_at DESC`
	return s.queryPatterns(query, args...)
}

// ListPatternsByKey возвращает паттерны одного ключа группировки
func (s *SQLiteStorage) ListPatternsByKey(key models.GroupKey, statuses []string) ([]*models.Pattern, error) {
	query := `SELECT ` + patternColumns + ` FROM patterns
		WHERE user_id = ? AND payee_id = ? AND direction = ? AND currency_id = ?`
	args := []interface{}{key.UserID, key.PayeeID, key.Direction, key.CurrencyID}
	query += statusClause(statuses, &args)
	query += ` ORDER BY id`
	return s.queryPatterns(query, args...)
}

func statusClause(statuses []string, args *[]interface{}) string {
	if len(statuses) == 0 {
		return ` AND status != 'archived'`
	}
	placeholders := make([]string, len(statuses))
	for i, st := range statuses {
		placeholders[i] = "?"
		*args = append(*args, st)
	}
	return ` AND status IN (` + strings.Join(placeholders, ", ") + `)`
}

func (s *SQLiteStorage) queryPatterns(query string, args ...interface{}) ([]*models.Pattern, error) {
	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var patterns []*models.Pattern
	for rows.Next() {
		p, err := scanPattern(rows)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}

// UpdatePatternStatus меняет статус паттерна
func (s *SQLiteStorage) UpdatePatternStatus(id, status string) error {
	return s.execPattern(`UPDATE patterns SET status = ?, updated_at = ? WHERE id = ?`, status, time.Now().UTC(), id)
}

// UpdatePatternSummary записывает сводку паттерна
func (s *SQLiteStorage) UpdatePatternSummary(id, summary string) error {
	return s.execPattern(`UPDATE patterns SET summary = ?, updated_at = ? WHERE id = ?`, summary, time.Now().UTC(), id)
}

// TouchPattern обновляет отметку последней оценки
func (s *SQLiteStorage) TouchPattern(id string, evaluatedAt time.Time) error {
	return s.execPattern(`UPDATE patterns SET last_evaluated_at = ? WHERE id = ?`, evaluatedAt.UTC(), id)
}

func (s *SQLiteStorage) execPattern(query string, args ...interface{}) error {
	return retryOperation(func() error {
		res, err := s.DB.Exec(query, args...)
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

// DeletePattern безвозвратно удаляет паттерн вместе со стриком,
// обязательствами и связями. Каскад руками: порядок от зависимых таблиц
// к основной, одна транзакция.
func (s *SQLiteStorage) DeletePattern(id string) error {
	return retryOperation(func() error {
		tx, err := s.DB.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		for _, query := range []string{
			`DELETE FROM pattern_obligations WHERE pattern_id = ?`,
			`DELETE FROM pattern_transactions WHERE pattern_id = ?`,
			`DELETE FROM pattern_streaks WHERE pattern_id = ?`,
		} {
			if _, err := tx.Exec(query, id); err != nil {
				return err
			}
		}

		res, err := tx.Exec(`DELETE FROM patterns WHERE id = ?`, id)
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
		return tx.Commit()
	}, writeRetries, writeRetryDelay)
}

func scanPattern(row rowScanner) (*models.Pattern, error) {
	var p models.Pattern
	var repr, amin, amax string
	var hint sql.NullInt64
	var summary sql.NullString

	err := row.Scan(
		&p.ID, &p.UserID, &p.PayeeID, &p.Direction, &p.CurrencyID,
		&p.IntervalDays, &p.PatternCase, &p.AmountBehavior,
		&repr, &amin, &amax,
		&hint, &p.Status, &p.Confidence, &summary, &p.DetectionVersion,
		&p.DetectedAt, &p.LastEvaluatedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if p.RepresentativeAmount, err = decimal.NewFromString(repr); err != nil {
		return nil, fmt.Errorf("invalid representative_amount for %s: %w", p.ID, err)
	}
	if p.AmountMin, err = decimal.NewFromString(amin); err != nil {
		return nil, fmt.Errorf("invalid amount_min for %s: %w", p.ID, err)
	}
	if p.AmountMax, err = decimal.NewFromString(amax); err != nil {
		return nil, fmt.Errorf("invalid amount_max for %s: %w", p.ID, err)
	}
	if hint.Valid {
		v := int(hint.Int64)
		p.DayOfMonthHint = &v
	}
	p.Summary = summary.String
	return &p, nil
}

func intPtrToNull(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
