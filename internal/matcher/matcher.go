package matcher

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"recurring-patterns-system/internal/config"
	"recurring-patterns-system/internal/logger"
	"recurring-patterns-system/internal/models"
	"recurring-patterns-system/internal/obligation"
	"recurring-patterns-system/internal/redis"
	"recurring-patterns-system/internal/storage"
)

// recentAmountsForWindow — сколько последних сумм участвует в пересчете
// ожидаемой полосы следующего обязательства
const recentAmountsForWindow = 3

// Matcher сопоставляет входящие транзакции с ожидаемыми обязательствами.
// Состояние паттернов меняется только здесь и только атомарно: частично
// примененных исполнений и пропусков не бывает.
type Matcher struct {
	patternRepo storage.PatternRepository
	redisClient redis.ClientInterface
	obligations *obligation.Manager
	cfg         config.MatcherConfig
}

func NewMatcher(patternRepo storage.PatternRepository, redisClient redis.ClientInterface, cfg config.MatcherConfig) *Matcher {
	return &Matcher{
		patternRepo: patternRepo,
		redisClient: redisClient,
		obligations: obligation.NewManager(),
		cfg:         cfg,
	}
}

// Process обрабатывает одно событие транзакции: лениво разворачивает
// накопившиеся пропуски всех паттернов ключа, затем ищет лучшее ожидаемое
// обязательство для исполнения.
//
// Ошибка с models.ErrRetryable внутри означает временный сбой: событие
// можно повторить без риска двойного применения.
func (m *Matcher) Process(event *models.TransactionEvent) (*models.MatchResult, error) {
	key := models.GroupKey{
		UserID:     event.Data.UserID,
		PayeeID:    event.Data.PayeeID,
		Direction:  event.Data.Direction,
		CurrencyID: event.Data.CurrencyID,
	}

	// Аренда ключа: Kafka уже сериализует события внутри партиции,
	// аренда защищает от гонки с параллельным discovery
	acquired, err := m.redisClient.AcquireKeyLease(event.Data.PartitionKey())
	if err != nil {
		return nil, fmt.Errorf("key lease: %v: %w", err, models.ErrRetryable)
	}
	if !acquired {
		return nil, fmt.Errorf("key %s is busy: %w", event.Data.PartitionKey(), models.ErrRetryable)
	}
	defer func() {
		if err := m.redisClient.ReleaseKeyLease(event.Data.PartitionKey()); err != nil {
			log.Printf("Failed to release key lease %s: %v", event.Data.PartitionKey(), err)
		}
	}()

	// Сломанные паттерны тоже в выборке: пришедшее исполнение
	// возвращает их в строй
	patterns, err := m.patternRepo.ListPatternsByKey(key, []string{
		models.PatternActive, models.PatternPaused, models.PatternBroken,
	})
	if err != nil {
		return nil, err
	}

	result := &models.MatchResult{TransactionID: event.Data.TransactionID}
	if len(patterns) == 0 {
		result.Reason = "no patterns for key"
		return result, nil
	}

	type candidate struct {
		pattern    *models.Pattern
		obligation *models.Obligation
		score      float64
	}
	var candidates []candidate

	for _, p := range patterns {
		result.CheckedPattern = append(result.CheckedPattern, p.ID)

		expected, misses, repaired, err := m.prepareExpected(p, event.Data.OccurredAt)
		if err != nil {
			return nil, err
		}
		result.MissesDetected += misses
		result.Repaired = result.Repaired || repaired
		if expected == nil {
			continue
		}

		if !m.obligations.WithinWindow(expected, event.Data.OccurredAt) {
			continue
		}
		if m.cfg.MatchAmountStrict && !amountInBand(expected, event) {
			continue
		}

		candidates = append(candidates, candidate{
			pattern:    p,
			obligation: expected,
			score:      m.obligations.MatchScore(expected, event.Data.OccurredAt, event.Data.Amount),
		})
	}

	if len(candidates) == 0 {
		result.Reason = "no obligation window matched"
		if err := m.redisClient.IncrementMatchStats("unmatched"); err != nil {
			log.Printf("Failed to increment match stats: %v", err)
		}
		return result, nil
	}

	// Лучший кандидат: минимальный счет, при равенстве — меньший id паттерна
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score < candidates[j].score
		}
		return candidates[i].pattern.ID < candidates[j].pattern.ID
	})

	toFulfill := candidates[:1]
	if m.cfg.MultiPatternFulfill {
		toFulfill = candidates
	}

	for _, c := range toFulfill {
		if err := m.fulfill(c.pattern, c.obligation, event); err != nil {
			return nil, err
		}
	}

	result.Matched = true
	result.PatternID = toFulfill[0].pattern.ID
	result.ObligationID = toFulfill[0].obligation.ID
	return result, nil
}

// prepareExpected приводит паттерн к актуальному состоянию на момент даты
// транзакции: чинит отсутствующее ожидание и лениво фиксирует пропуски,
// чьи окна закрылись до этой даты. Возвращает актуальное ожидаемое
// обязательство (nil, если паттерн деградировал без ожидания).
func (m *Matcher) prepareExpected(p *models.Pattern, occurredAt time.Time) (*models.Obligation, int, bool, error) {
	repaired := false

	expected, err := m.patternRepo.GetExpectedObligation(p.ID)
	if errors.Is(err, models.ErrNotFound) {
		streak, serr := m.patternRepo.GetStreak(p.ID)
		if serr != nil {
			return nil, 0, false, serr
		}
		minAmount, maxAmount := m.amountWindow(p)
		expected, err = m.obligations.RepairObligation(p, streak, minAmount, maxAmount)
		if err != nil {
			// Чинить не от чего: у паттерна нет ни одной опорной даты.
			// Такой паттерн уходит в паузу до следующего discovery,
			// который пересоберет его ожидание с нуля
			log.Printf("Cannot repair obligation for %s, pausing pattern: %v", p.ID, err)
			if uerr := m.patternRepo.UpdatePatternStatus(p.ID, models.PatternPaused); uerr != nil {
				return nil, 0, false, uerr
			}
			p.Status = models.PatternPaused
			logger.LogEvent(logger.EventPatternStateChanged, "matcher-service", "matcher", map[string]interface{}{
				"pattern_id": p.ID,
				"new_status": models.PatternPaused,
				"reason":     "no anchor date, re-discovery required",
			})
			return nil, 0, false, nil
		}
		if err := m.patternRepo.SaveObligation(expected); err != nil {
			return nil, 0, false, err
		}
		repaired = true
		logger.LogEvent(logger.EventPatternRepaired, "matcher-service", "matcher", map[string]interface{}{
			"pattern_id":    p.ID,
			"obligation_id": expected.ID,
		})
	} else if err != nil {
		return nil, 0, false, err
	}

	// Ленивая развертка пропусков: окна, закрывшиеся до даты транзакции,
	// фиксируются как missed, каждое порождает следующее ожидание
	misses := 0
	for misses < obligation.MaxLazySweepCycles && m.obligations.IsOverdue(expected, occurredAt) {
		streak, err := m.patternRepo.GetStreak(p.ID)
		if err != nil {
			return nil, misses, repaired, err
		}

		missResult := m.obligations.Miss(expected, streak)
		minAmount, maxAmount := m.amountWindow(p)
		next := m.obligations.NewObligation(p,
			m.obligations.NextExpectedDate(expected.ExpectedDate, p.IntervalDays),
			minAmount, maxAmount)

		if err := m.patternRepo.ApplyMiss(missResult.Obligation, missResult.Streak, missResult.NewStatus, next); err != nil {
			return nil, misses, repaired, err
		}
		misses++

		logger.LogEvent(logger.EventObligationMissed, "matcher-service", "matcher", map[string]interface{}{
			"pattern_id":     p.ID,
			"obligation_id":  expected.ID,
			"missed_count":   missResult.Streak.MissedCount,
			"pattern_status": missResult.NewStatus,
		})
		if err := m.redisClient.IncrementMatchStats("missed"); err != nil {
			log.Printf("Failed to increment match stats: %v", err)
		}

		p.Status = missResult.NewStatus
		expected = next
	}

	return expected, misses, repaired, nil
}

func (m *Matcher) fulfill(p *models.Pattern, o *models.Obligation, event *models.TransactionEvent) error {
	streak, err := m.patternRepo.GetStreak(p.ID)
	if err != nil {
		return err
	}

	tx := &models.Transaction{
		ID:         event.Data.TransactionID,
		OccurredAt: event.Data.OccurredAt,
		Amount:     event.Data.Amount,
	}
	fulfillResult := m.obligations.Fulfill(o, streak, tx)

	// Полоса следующего ожидания учитывает только что пришедшую сумму
	recent, err := m.patternRepo.RecentFulfilledAmounts(p.ID, recentAmountsForWindow-1)
	if err != nil {
		return err
	}
	recent = append(recent, event.Data.Amount)
	minAmount, maxAmount := m.obligations.EstimateAmountWindow(p, recent)

	next := m.obligations.NewObligation(p,
		m.obligations.NextExpectedDate(o.ExpectedDate, p.IntervalDays),
		minAmount, maxAmount)

	link := &models.PatternTransactionLink{
		PatternID:     p.ID,
		TransactionID: event.Data.TransactionID,
		LinkedAt:      time.Now().UTC(),
	}

	if err := m.patternRepo.ApplyFulfillment(fulfillResult.Obligation, fulfillResult.Streak, fulfillResult.NewStatus, link, next); err != nil {
		return err
	}

	logger.LogEvent(logger.EventObligationFulfilled, "matcher-service", "matcher", map[string]interface{}{
		"pattern_id":     p.ID,
		"obligation_id":  o.ID,
		"transaction_id": event.Data.TransactionID,
		"streak":         fulfillResult.Streak.CurrentStreak,
	})
	if err := m.redisClient.IncrementMatchStats("fulfilled"); err != nil {
		log.Printf("Failed to increment match stats: %v", err)
	}
	return nil
}

// amountWindow возвращает ожидаемую полосу сумм по истории исполнений
// или полосу паттерна, если истории еще нет
func (m *Matcher) amountWindow(p *models.Pattern) (decimal.Decimal, decimal.Decimal) {
	recent, err := m.patternRepo.RecentFulfilledAmounts(p.ID, recentAmountsForWindow)
	if err != nil {
		log.Printf("Failed to load recent amounts for %s: %v", p.ID, err)
		recent = nil
	}
	return m.obligations.EstimateAmountWindow(p, recent)
}

func amountInBand(o *models.Obligation, event *models.TransactionEvent) bool {
	return event.Data.Amount.GreaterThanOrEqual(o.ExpectedMinAmount) &&
		event.Data.Amount.LessThanOrEqual(o.ExpectedMaxAmount)
}
