package models

import "errors"

// Таксономия ошибок ядра (§ обработка ошибок).
// Хендлеры REST транслируют их в HTTP-статусы через errors.Is.
var (
	// ErrNotFound — неизвестный паттерн/транзакция/обязательство
	ErrNotFound = errors.New("not found")

	// ErrConflict — конкурирующий discovery для того же пользователя
	ErrConflict = errors.New("conflict: discovery already in flight")

	// ErrInvalid — некорректный запрос или фильтр
	ErrInvalid = errors.New("invalid request")

	// ErrRetryable — временная ошибка хранилища, имеет смысл повторить
	ErrRetryable = errors.New("retryable storage error")

	// ErrFatal — нарушен инвариант ядра (например, активный паттерн
	// без expected-обязательства, не поддающийся ремонту)
	ErrFatal = errors.New("fatal: core invariant violated")
)
