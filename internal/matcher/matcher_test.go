package matcher

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"recurring-patterns-system/internal/config"
	"recurring-patterns-system/internal/models"
	redismocks "recurring-patterns-system/internal/redis/mocks"
	storagemocks "recurring-patterns-system/internal/storage/mocks"
)

func newTestMatcher(cfg config.MatcherConfig) (*Matcher, *storagemocks.MockPatternRepository, *redismocks.MockRedisClient) {
	patternRepo := new(storagemocks.MockPatternRepository)
	redisClient := new(redismocks.MockRedisClient)
	return NewMatcher(patternRepo, redisClient, cfg), patternRepo, redisClient
}

func matcherPattern(id string) *models.Pattern {
	return &models.Pattern{
		ID:                   id,
		UserID:               "user-1",
		PayeeID:              "payee-1",
		Direction:            models.DirectionDebit,
		CurrencyID:           "INR",
		IntervalDays:         30,
		PatternCase:          models.CaseFixedMonthly,
		AmountBehavior:       models.AmountFixed,
		RepresentativeAmount: decimal.NewFromInt(5000),
		AmountMin:            decimal.NewFromInt(5000),
		AmountMax:            decimal.NewFromInt(5000),
		Status:               models.PatternActive,
	}
}

func matcherObligation(patternID string, expected time.Time) *models.Obligation {
	return &models.Obligation{
		ID:                "obl_" + patternID,
		PatternID:         patternID,
		ExpectedDate:      expected,
		ToleranceDays:     3,
		ExpectedMinAmount: decimal.NewFromInt(5000),
		ExpectedMaxAmount: decimal.NewFromInt(5000),
		Status:            models.ObligationExpected,
	}
}

func matcherEvent(occurredAt time.Time, amount int64) *models.TransactionEvent {
	return &models.TransactionEvent{
		EventID:   "evt-1",
		EventType: "transaction.created",
		Timestamp: occurredAt,
		Data: models.TransactionEventData{
			TransactionID: "txn_1",
			UserID:        "user-1",
			PayeeID:       "payee-1",
			Direction:     models.DirectionDebit,
			CurrencyID:    "INR",
			OccurredAt:    occurredAt,
			Amount:        decimal.NewFromInt(amount),
		},
	}
}

func expectLease(redisClient *redismocks.MockRedisClient, event *models.TransactionEvent) {
	redisClient.On("AcquireKeyLease", event.Data.PartitionKey()).Return(true, nil)
	redisClient.On("ReleaseKeyLease", event.Data.PartitionKey()).Return(nil)
}

func TestProcess_FulfillsExpectedObligation(t *testing.T) {
	m, patternRepo, redisClient := newTestMatcher(config.MatcherConfig{})

	expected := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)
	event := matcherEvent(expected.AddDate(0, 0, -1), 5000)
	p := matcherPattern("pat_1")
	o := matcherObligation("pat_1", expected)

	expectLease(redisClient, event)
	patternRepo.On("ListPatternsByKey", p.Key(), []string{
		models.PatternActive, models.PatternPaused, models.PatternBroken,
	}).Return([]*models.Pattern{p}, nil)
	patternRepo.On("GetExpectedObligation", "pat_1").Return(o, nil)
	patternRepo.On("GetStreak", "pat_1").Return(&models.PatternStreak{
		PatternID:            "pat_1",
		ConfidenceMultiplier: 1.0,
	}, nil)
	patternRepo.On("RecentFulfilledAmounts", "pat_1", 2).
		Return([]decimal.Decimal{decimal.NewFromInt(5000)}, nil)
	patternRepo.On("ApplyFulfillment",
		mock.AnythingOfType("*models.Obligation"),
		mock.AnythingOfType("*models.PatternStreak"),
		models.PatternActive,
		mock.AnythingOfType("*models.PatternTransactionLink"),
		mock.AnythingOfType("*models.Obligation"),
	).Return(nil)
	redisClient.On("IncrementMatchStats", "fulfilled").Return(nil)

	result, err := m.Process(event)
	require.NoError(t, err)

	assert.True(t, result.Matched)
	assert.Equal(t, "pat_1", result.PatternID)
	assert.Equal(t, o.ID, result.ObligationID)
	assert.Equal(t, 0, result.MissesDetected)

	// Следующее обязательство отсчитано от ожидаемой даты, не от фактической
	nextCall := patternRepo.Calls[len(patternRepo.Calls)-1]
	next := nextCall.Arguments.Get(4).(*models.Obligation)
	assert.Equal(t, expected.AddDate(0, 0, 30), next.ExpectedDate)
	assert.Equal(t, models.ObligationExpected, next.Status)

	patternRepo.AssertExpectations(t)
	redisClient.AssertExpectations(t)
}

// Транзакция после долгого простоя: закрывшиеся окна фиксируются как missed
// перед сопоставлением, каждое порождает следующее ожидание
func TestProcess_LazyMissSweep(t *testing.T) {
	m, patternRepo, redisClient := newTestMatcher(config.MatcherConfig{})

	// Ожидание 29 января, транзакция пришла через два цикла — 28 марта
	expected := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)
	occurred := time.Date(2026, 3, 28, 0, 0, 0, 0, time.UTC)
	event := matcherEvent(occurred, 5000)
	p := matcherPattern("pat_1")
	o := matcherObligation("pat_1", expected)

	expectLease(redisClient, event)
	patternRepo.On("ListPatternsByKey", p.Key(), mock.Anything).
		Return([]*models.Pattern{p}, nil)
	patternRepo.On("GetExpectedObligation", "pat_1").Return(o, nil)
	patternRepo.On("GetStreak", "pat_1").Return(&models.PatternStreak{
		PatternID:            "pat_1",
		CurrentStreak:        4,
		ConfidenceMultiplier: 1.0,
	}, nil)
	patternRepo.On("RecentFulfilledAmounts", "pat_1", mock.Anything).
		Return([]decimal.Decimal{decimal.NewFromInt(5000)}, nil)
	patternRepo.On("ApplyMiss",
		mock.AnythingOfType("*models.Obligation"),
		mock.AnythingOfType("*models.PatternStreak"),
		mock.AnythingOfType("string"),
		mock.AnythingOfType("*models.Obligation"),
	).Return(nil)
	patternRepo.On("ApplyFulfillment",
		mock.Anything, mock.Anything, models.PatternActive, mock.Anything, mock.Anything,
	).Return(nil)
	redisClient.On("IncrementMatchStats", "missed").Return(nil)
	redisClient.On("IncrementMatchStats", "fulfilled").Return(nil)

	result, err := m.Process(event)
	require.NoError(t, err)

	// Пропущены циклы 29 января и 28 февраля, окно 30 марта поймало транзакцию
	assert.Equal(t, 2, result.MissesDetected)
	assert.True(t, result.Matched)
	patternRepo.AssertNumberOfCalls(t, "ApplyMiss", 2)
	patternRepo.AssertNumberOfCalls(t, "ApplyFulfillment", 1)
}

func TestProcess_NoPatternsForKey(t *testing.T) {
	m, patternRepo, redisClient := newTestMatcher(config.MatcherConfig{})

	event := matcherEvent(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 700)
	expectLease(redisClient, event)
	patternRepo.On("ListPatternsByKey", mock.Anything, mock.Anything).
		Return([]*models.Pattern{}, nil)

	result, err := m.Process(event)
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "no patterns for key", result.Reason)
}

func TestProcess_OutsideWindowUnmatched(t *testing.T) {
	m, patternRepo, redisClient := newTestMatcher(config.MatcherConfig{})

	expected := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)
	// За пределами допуска, но окно еще не закрылось — не пропуск и не матч
	event := matcherEvent(expected.AddDate(0, 0, -10), 5000)
	p := matcherPattern("pat_1")

	expectLease(redisClient, event)
	patternRepo.On("ListPatternsByKey", mock.Anything, mock.Anything).
		Return([]*models.Pattern{p}, nil)
	patternRepo.On("GetExpectedObligation", "pat_1").
		Return(matcherObligation("pat_1", expected), nil)
	redisClient.On("IncrementMatchStats", "unmatched").Return(nil)

	result, err := m.Process(event)
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, 0, result.MissesDetected)
	patternRepo.AssertNotCalled(t, "ApplyFulfillment",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// Занятая аренда ключа — временный сбой, событие уходит на повтор
func TestProcess_LeaseBusyRetryable(t *testing.T) {
	m, _, redisClient := newTestMatcher(config.MatcherConfig{})

	event := matcherEvent(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), 700)
	redisClient.On("AcquireKeyLease", event.Data.PartitionKey()).Return(false, nil)

	_, err := m.Process(event)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRetryable))
}

// Исполнение возвращает сломанный паттерн в выборку и в статус active
func TestProcess_BrokenPatternRecovers(t *testing.T) {
	m, patternRepo, redisClient := newTestMatcher(config.MatcherConfig{})

	expected := time.Date(2026, 6, 29, 0, 0, 0, 0, time.UTC)
	event := matcherEvent(expected, 5000)
	p := matcherPattern("pat_broken")
	p.Status = models.PatternBroken

	expectLease(redisClient, event)
	patternRepo.On("ListPatternsByKey", mock.Anything, mock.Anything).
		Return([]*models.Pattern{p}, nil)
	patternRepo.On("GetExpectedObligation", "pat_broken").
		Return(matcherObligation("pat_broken", expected), nil)
	patternRepo.On("GetStreak", "pat_broken").Return(&models.PatternStreak{
		PatternID:            "pat_broken",
		MissedCount:          4,
		ConfidenceMultiplier: 0.4,
	}, nil)
	patternRepo.On("RecentFulfilledAmounts", "pat_broken", mock.Anything).
		Return([]decimal.Decimal{}, nil)
	patternRepo.On("ApplyFulfillment",
		mock.Anything, mock.Anything, models.PatternActive, mock.Anything, mock.Anything,
	).Return(nil)
	redisClient.On("IncrementMatchStats", "fulfilled").Return(nil)

	result, err := m.Process(event)
	require.NoError(t, err)
	assert.True(t, result.Matched)
	patternRepo.AssertExpectations(t)
}

// Отсутствующее ожидание чинится на месте от последней известной даты
func TestProcess_RepairsMissingObligation(t *testing.T) {
	m, patternRepo, redisClient := newTestMatcher(config.MatcherConfig{})

	lastExpected := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)
	// Починенное ожидание: 28 февраля; транзакция внутри допуска
	event := matcherEvent(lastExpected.AddDate(0, 0, 30), 5000)
	p := matcherPattern("pat_1")

	expectLease(redisClient, event)
	patternRepo.On("ListPatternsByKey", mock.Anything, mock.Anything).
		Return([]*models.Pattern{p}, nil)
	patternRepo.On("GetExpectedObligation", "pat_1").Return(nil, models.ErrNotFound)
	patternRepo.On("GetStreak", "pat_1").Return(&models.PatternStreak{
		PatternID:            "pat_1",
		LastExpectedDate:     &lastExpected,
		ConfidenceMultiplier: 1.0,
	}, nil)
	patternRepo.On("RecentFulfilledAmounts", "pat_1", mock.Anything).
		Return([]decimal.Decimal{decimal.NewFromInt(5000)}, nil)
	patternRepo.On("SaveObligation", mock.AnythingOfType("*models.Obligation")).Return(nil)
	patternRepo.On("ApplyFulfillment",
		mock.Anything, mock.Anything, models.PatternActive, mock.Anything, mock.Anything,
	).Return(nil)
	redisClient.On("IncrementMatchStats", "fulfilled").Return(nil)

	result, err := m.Process(event)
	require.NoError(t, err)
	assert.True(t, result.Repaired)
	assert.True(t, result.Matched)
}

// Паттерн без единой опорной даты чинить не от чего: он уходит в паузу
// до следующего discovery, событие остается несопоставленным
func TestProcess_UnrepairablePatternPaused(t *testing.T) {
	m, patternRepo, redisClient := newTestMatcher(config.MatcherConfig{})

	event := matcherEvent(time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC), 5000)
	p := matcherPattern("pat_1")

	expectLease(redisClient, event)
	patternRepo.On("ListPatternsByKey", mock.Anything, mock.Anything).
		Return([]*models.Pattern{p}, nil)
	patternRepo.On("GetExpectedObligation", "pat_1").Return(nil, models.ErrNotFound)
	patternRepo.On("GetStreak", "pat_1").Return(&models.PatternStreak{
		PatternID:            "pat_1",
		ConfidenceMultiplier: 1.0,
	}, nil)
	patternRepo.On("RecentFulfilledAmounts", "pat_1", mock.Anything).
		Return([]decimal.Decimal{}, nil)
	patternRepo.On("UpdatePatternStatus", "pat_1", models.PatternPaused).Return(nil)
	redisClient.On("IncrementMatchStats", "unmatched").Return(nil)

	result, err := m.Process(event)
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, models.PatternPaused, p.Status)
	patternRepo.AssertCalled(t, "UpdatePatternStatus", "pat_1", models.PatternPaused)
	patternRepo.AssertNotCalled(t, "SaveObligation", mock.Anything)
}

// При двух подходящих паттернах без MultiPatternFulfill закрывается один —
// с меньшим счетом, при равенстве с меньшим id
func TestProcess_FirstMatchWins(t *testing.T) {
	m, patternRepo, redisClient := newTestMatcher(config.MatcherConfig{})

	expected := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)
	event := matcherEvent(expected, 5000)
	p1 := matcherPattern("pat_a")
	p2 := matcherPattern("pat_b")

	expectLease(redisClient, event)
	patternRepo.On("ListPatternsByKey", mock.Anything, mock.Anything).
		Return([]*models.Pattern{p2, p1}, nil)
	patternRepo.On("GetExpectedObligation", "pat_a").
		Return(matcherObligation("pat_a", expected), nil)
	patternRepo.On("GetExpectedObligation", "pat_b").
		Return(matcherObligation("pat_b", expected), nil)
	patternRepo.On("GetStreak", "pat_a").Return(&models.PatternStreak{
		PatternID: "pat_a", ConfidenceMultiplier: 1.0,
	}, nil)
	patternRepo.On("RecentFulfilledAmounts", "pat_a", mock.Anything).
		Return([]decimal.Decimal{}, nil)
	patternRepo.On("ApplyFulfillment",
		mock.Anything, mock.Anything, models.PatternActive, mock.Anything, mock.Anything,
	).Return(nil)
	redisClient.On("IncrementMatchStats", "fulfilled").Return(nil)

	result, err := m.Process(event)
	require.NoError(t, err)
	assert.Equal(t, "pat_a", result.PatternID)
	patternRepo.AssertNumberOfCalls(t, "ApplyFulfillment", 1)
}

// Строгая проверка суммы отсекает транзакцию вне ожидаемой полосы
func TestProcess_StrictAmountRejects(t *testing.T) {
	m, patternRepo, redisClient := newTestMatcher(config.MatcherConfig{MatchAmountStrict: true})

	expected := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)
	event := matcherEvent(expected, 9000)
	p := matcherPattern("pat_1")

	expectLease(redisClient, event)
	patternRepo.On("ListPatternsByKey", mock.Anything, mock.Anything).
		Return([]*models.Pattern{p}, nil)
	patternRepo.On("GetExpectedObligation", "pat_1").
		Return(matcherObligation("pat_1", expected), nil)
	redisClient.On("IncrementMatchStats", "unmatched").Return(nil)

	result, err := m.Process(event)
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

// Чит-взнос пропускает январский цикл: февральская транзакция сначала
// фиксирует один пропуск (стрик обнулен, штраф к множителю, статус
// остается active), затем закрывает февральское окно
func TestProcess_MissedChitCycleThenFulfils(t *testing.T) {
	m, patternRepo, redisClient := newTestMatcher(config.MatcherConfig{})

	p := matcherPattern("pat_chit")
	p.IntervalDays = 31
	p.RepresentativeAmount = decimal.NewFromInt(4300)
	p.AmountMin = decimal.NewFromInt(4250)
	p.AmountMax = decimal.NewFromInt(4350)

	o := matcherObligation("pat_chit", time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC))
	o.ExpectedMinAmount = decimal.NewFromInt(4250)
	o.ExpectedMaxAmount = decimal.NewFromInt(4350)

	event := matcherEvent(time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC), 4300)

	expectLease(redisClient, event)
	patternRepo.On("ListPatternsByKey", mock.Anything, mock.Anything).
		Return([]*models.Pattern{p}, nil)
	patternRepo.On("GetExpectedObligation", "pat_chit").Return(o, nil)
	patternRepo.On("GetStreak", "pat_chit").Return(&models.PatternStreak{
		PatternID:            "pat_chit",
		CurrentStreak:        3,
		LongestStreak:        3,
		ConfidenceMultiplier: 1.0,
	}, nil)
	patternRepo.On("RecentFulfilledAmounts", "pat_chit", mock.Anything).
		Return([]decimal.Decimal{decimal.NewFromInt(4300)}, nil)
	patternRepo.On("ApplyMiss",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything,
	).Run(func(args mock.Arguments) {
		streak := args.Get(1).(*models.PatternStreak)
		assert.Equal(t, 0, streak.CurrentStreak)
		assert.Equal(t, 1, streak.MissedCount)
		assert.InDelta(t, 0.85, streak.ConfidenceMultiplier, 1e-9)
		assert.Equal(t, models.PatternActive, args.Get(2).(string))
	}).Return(nil)
	patternRepo.On("ApplyFulfillment",
		mock.Anything, mock.Anything, models.PatternActive, mock.Anything, mock.Anything,
	).Run(func(args mock.Arguments) {
		streak := args.Get(1).(*models.PatternStreak)
		assert.Equal(t, 1, streak.CurrentStreak)
		assert.Equal(t, 0, streak.MissedCount)
		assert.InDelta(t, 0.90, streak.ConfidenceMultiplier, 1e-9)
		next := args.Get(4).(*models.Obligation)
		assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), next.ExpectedDate)
	}).Return(nil)
	redisClient.On("IncrementMatchStats", "missed").Return(nil)
	redisClient.On("IncrementMatchStats", "fulfilled").Return(nil)

	result, err := m.Process(event)
	require.NoError(t, err)
	assert.Equal(t, 1, result.MissesDetected)
	assert.True(t, result.Matched)
	patternRepo.AssertNumberOfCalls(t, "ApplyMiss", 1)
	patternRepo.AssertNumberOfCalls(t, "ApplyFulfillment", 1)
}
