package sqlite

import (
	"database/sql"
	"time"

	"recurring-patterns-system/internal/models"
)

// GetStreak получает стрик паттерна
func (s *SQLiteStorage) GetStreak(patternID string) (*models.PatternStreak, error) {
	row := s.DB.QueryRow(`
		SELECT pattern_id, current_streak, longest_streak, missed_count,
		       last_actual_date, last_expected_date, confidence_multiplier, updated_at
		FROM pattern_streaks
		WHERE pattern_id = ?`, patternID)

	var st models.PatternStreak
	var lastActual, lastExpected sql.NullTime
	err := row.Scan(
		&st.PatternID, &st.CurrentStreak, &st.LongestStreak, &st.MissedCount,
		&lastActual, &lastExpected, &st.ConfidenceMultiplier, &st.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if lastActual.Valid {
		t := lastActual.Time
		st.LastActualDate = &t
	}
	if lastExpected.Valid {
		t := lastExpected.Time
		st.LastExpectedDate = &t
	}
	return &st, nil
}

func updateStreakTx(tx *sql.Tx, st *models.PatternStreak) error {
	_, err := tx.Exec(`
		UPDATE pattern_streaks
		SET current_streak = ?, longest_streak = ?, missed_count = ?,
		    last_actual_date = ?, last_expected_date = ?,
		    confidence_multiplier = ?, updated_at = ?
		WHERE pattern_id = ?`,
		st.CurrentStreak, st.LongestStreak, st.MissedCount,
		timePtrToNull(st.LastActualDate), timePtrToNull(st.LastExpectedDate),
		st.ConfidenceMultiplier, st.UpdatedAt, st.PatternID,
	)
	return err
}

func timePtrToNull(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
