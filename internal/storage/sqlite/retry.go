package sqlite

import (
	"fmt"
	"strings"
	"time"

	"recurring-patterns-system/internal/models"
)

// isBusyError распознает блокировку SQLite (SQLITE_BUSY, SQLITE_LOCKED).
// Хранилище паттернов живет на одном writer-соединении в WAL, поэтому
// занятая база — ожидаемое короткоживущее состояние, а не поломка.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "locked")
}

// retryOperation повторяет запись при занятой базе с нарастающей задержкой.
// Любая другая ошибка возвращается сразу. Исчерпание попыток оборачивается
// в models.ErrRetryable: вызывающий (REST-хендлер или обработчик событий)
// сам решает, повторять ли операцию целиком.
func retryOperation(operation func() error, maxRetries int, delay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isBusyError(err) {
			return err
		}
		if attempt < maxRetries-1 {
			time.Sleep(delay * time.Duration(attempt+1))
		}
	}
	return fmt.Errorf("store busy after %d attempts: %v: %w", maxRetries, lastErr, models.ErrRetryable)
}
