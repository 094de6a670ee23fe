package sqlite

import (
	"recurring-patterns-system/internal/storage"
)

// Проверка соответствия интерфейсам хранилища
var (
	_ storage.TransactionRepository = (*SQLiteStorage)(nil)
	_ storage.PatternRepository     = (*SQLiteStorage)(nil)
)

// NewTransactionRepository возвращает SQLite-реализацию TransactionRepository
func NewTransactionRepository(s *SQLiteStorage) storage.TransactionRepository {
	return s
}

// NewPatternRepository возвращает SQLite-реализацию PatternRepository
func NewPatternRepository(s *SQLiteStorage) storage.PatternRepository {
	return s
}
