package matcher

import (
	"errors"
	"log"
	"time"

	"recurring-patterns-system/internal/config"
	"recurring-patterns-system/internal/kafka"
	matcherpkg "recurring-patterns-system/internal/matcher"
	"recurring-patterns-system/internal/models"
)

// retryBaseDelay — базовая задержка между попытками обработки события
const retryBaseDelay = 200 * time.Millisecond

// processEvent обрабатывает событие транзакции с бюджетом повторов.
// Повторяются только временные сбои (models.ErrRetryable); исчерпание
// бюджета и фатальные ошибки отправляют событие в dead-letter. Сама
// обработка идемпотентна, поэтому повтор после частичного успеха безопасен.
func processEvent(
	event *models.TransactionEvent,
	m *matcherpkg.Matcher,
	producer kafka.Producer,
	cfg config.MatcherConfig,
) error {
	var lastErr error

	for attempt := 1; attempt <= cfg.RetryBudget; attempt++ {
		event.Attempt = attempt

		result, err := m.Process(event)
		if err == nil {
			log.Printf("Event %s processed: matched=%v pattern=%s misses=%d",
				event.EventID, result.Matched, result.PatternID, result.MissesDetected)
			return nil
		}

		lastErr = err
		if !errors.Is(err, models.ErrRetryable) {
			log.Printf("Fatal error processing event %s: %v", event.EventID, err)
			return producer.SendToDeadLetter(event, err.Error())
		}

		log.Printf("Retryable error processing event %s (attempt %d/%d): %v",
			event.EventID, attempt, cfg.RetryBudget, err)
		if attempt < cfg.RetryBudget {
			time.Sleep(retryBaseDelay * time.Duration(attempt))
		}
	}

	log.Printf("Retry budget exhausted for event %s: %v", event.EventID, lastErr)
	return producer.SendToDeadLetter(event, lastErr.Error())
}
