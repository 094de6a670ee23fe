package sqlite

import (
	"database/sql"
	"strings"

	"recurring-patterns-system/internal/models"
)

// CreateRun фиксирует запуск discovery
func (s *SQLiteStorage) CreateRun(run *models.DiscoveryRun) error {
	return retryOperation(func() error {
		_, err := s.DB.Exec(`
			INSERT INTO discovery_runs (id, user_id, status, started_at)
			VALUES (?, ?, ?, ?)`,
			run.ID, run.UserID, run.Status, run.StartedAt.UTC(),
		)
		return err
	}, writeRetries, writeRetryDelay)
}

// FinishRun записывает итоги запуска discovery
func (s *SQLiteStorage) FinishRun(run *models.DiscoveryRun) error {
	return retryOperation(func() error {
		_, err := s.DB.Exec(`
			UPDATE discovery_runs SET
				status = ?, groups_total = ?, groups_skipped = ?,
				clusters_total = ?, patterns_created = ?, patterns_updated = ?,
				clusters_dropped = ?, drop_reasons = ?, error_message = ?, finished_at = ?
			WHERE id = ?`,
			run.Status, run.GroupsTotal, run.GroupsSkipped,
			run.ClustersTotal, run.PatternsCreated, run.PatternsUpdated,
			run.ClustersDropped, strings.Join(run.DropReasons, ","),
			run.ErrorMessage, run.FinishedAt, run.ID,
		)
		return err
	}, writeRetries, writeRetryDelay)
}

// GetRun получает запуск discovery по id
func (s *SQLiteStorage) GetRun(id string) (*models.DiscoveryRun, error) {
	row := s.DB.QueryRow(`
		SELECT id, user_id, status, groups_total, groups_skipped,
		       clusters_total, patterns_created, patterns_updated,
		       clusters_dropped, drop_reasons, error_message, started_at, finished_at
		FROM discovery_runs
		WHERE id = ?`, id)

	var run models.DiscoveryRun
	var reasons, errMsg sql.NullString
	var finished sql.NullTime
	err := row.Scan(
		&run.ID, &run.UserID, &run.Status, &run.GroupsTotal, &run.GroupsSkipped,
		&run.ClustersTotal, &run.PatternsCreated, &run.PatternsUpdated,
		&run.ClustersDropped, &reasons, &errMsg, &run.StartedAt, &finished,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if reasons.Valid && reasons.String != "" {
		run.DropReasons = strings.Split(reasons.String, ",")
	}
	run.ErrorMessage = errMsg.String
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}
