package sqlite

// initSchema инициализирует схему БД.
// Все денежные суммы хранятся как TEXT (десятичные строки): REAL-колонки
// для денег запрещены, точность сумм не обсуждается.
func (s *SQLiteStorage) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		payee_id TEXT NOT NULL,
		direction TEXT NOT NULL,
		currency_id TEXT NOT NULL,
		occurred_at DATETIME NOT NULL,
		amount TEXT NOT NULL,
		source_message_id TEXT UNIQUE NOT NULL,
		description TEXT,
		flagged INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_tx_group_key ON transactions(user_id, payee_id, direction, currency_id, occurred_at);
	CREATE INDEX IF NOT EXISTS idx_tx_source_message ON transactions(source_message_id);

	CREATE TABLE IF NOT EXISTS patterns (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		payee_id TEXT NOT NULL,
		direction TEXT NOT NULL,
		currency_id TEXT NOT NULL,
		interval_days INTEGER NOT NULL,
		pattern_case TEXT NOT NULL,
		amount_behavior TEXT NOT NULL,
		representative_amount TEXT NOT NULL,
		amount_min TEXT NOT NULL,
		amount_max TEXT NOT NULL,
		day_of_month_hint INTEGER,
		status TEXT NOT NULL DEFAULT 'active',
		confidence REAL NOT NULL,
		summary TEXT,
		detection_version INTEGER NOT NULL DEFAULT 1,
		detected_at DATETIME NOT NULL,
		last_evaluated_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_pattern_key ON patterns(user_id, payee_id, direction, currency_id);
	CREATE INDEX IF NOT EXISTS idx_pattern_status ON patterns(status);

	CREATE TABLE IF NOT EXISTS pattern_streaks (
		pattern_id TEXT PRIMARY KEY REFERENCES patterns(id),
		current_streak INTEGER NOT NULL DEFAULT 0,
		longest_streak INTEGER NOT NULL DEFAULT 0,
		missed_count INTEGER NOT NULL DEFAULT 0,
		last_actual_date DATETIME,
		last_expected_date DATETIME,
		confidence_multiplier REAL NOT NULL DEFAULT 1.0,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS pattern_obligations (
		id TEXT PRIMARY KEY,
		pattern_id TEXT NOT NULL REFERENCES patterns(id),
		expected_date DATETIME NOT NULL,
		tolerance_days INTEGER NOT NULL,
		expected_min_amount TEXT NOT NULL,
		expected_max_amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'expected',
		fulfilled_by_transaction_id TEXT,
		fulfilled_at DATETIME,
		days_early INTEGER,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_obligation_pattern ON pattern_obligations(pattern_id, status);
	CREATE INDEX IF NOT EXISTS idx_obligation_expected_date ON pattern_obligations(expected_date);
	-- У паттерна не больше одного ожидаемого обязательства
	CREATE UNIQUE INDEX IF NOT EXISTS idx_obligation_single_expected
		ON pattern_obligations(pattern_id) WHERE status = 'expected';

	CREATE TABLE IF NOT EXISTS pattern_transactions (
		pattern_id TEXT NOT NULL REFERENCES patterns(id),
		transaction_id TEXT NOT NULL REFERENCES transactions(id),
		linked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (pattern_id, transaction_id)
	);

	CREATE TABLE IF NOT EXISTS discovery_runs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		groups_total INTEGER NOT NULL DEFAULT 0,
		groups_skipped INTEGER NOT NULL DEFAULT 0,
		clusters_total INTEGER NOT NULL DEFAULT 0,
		patterns_created INTEGER NOT NULL DEFAULT 0,
		patterns_updated INTEGER NOT NULL DEFAULT 0,
		clusters_dropped INTEGER NOT NULL DEFAULT 0,
		drop_reasons TEXT,
		error_message TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_run_user ON discovery_runs(user_id, started_at);
	`

	_, err := s.DB.Exec(query)
	return err
}
