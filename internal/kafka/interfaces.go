package kafka

import (
	"context"

	"recurring-patterns-system/internal/models"
)

// Producer определяет интерфейс отправки событий транзакций
type Producer interface {
	// SendTransactionEvent публикует событие с ключом партиционирования
	// семейства паттернов
	SendTransactionEvent(event *models.TransactionEvent) error

	// SendToDeadLetter публикует событие в dead-letter топик после
	// исчерпания бюджета повторов
	SendToDeadLetter(event *models.TransactionEvent, reason string) error

	// Close закрывает продюсера
	Close() error
}

// Consumer определяет интерфейс потребления событий транзакций
type Consumer interface {
	// Start запускает цикл потребления до отмены контекста
	Start(ctx context.Context) error

	// Close закрывает потребителя
	Close() error
}
