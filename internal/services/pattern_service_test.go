package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"recurring-patterns-system/internal/models"
	redismocks "recurring-patterns-system/internal/redis/mocks"
	storagemocks "recurring-patterns-system/internal/storage/mocks"
	"recurring-patterns-system/internal/summary"
)

func newTestPatternService() (PatternService, *storagemocks.MockTransactionRepository, *storagemocks.MockPatternRepository, *redismocks.MockRedisClient) {
	txRepo := new(storagemocks.MockTransactionRepository)
	patternRepo := new(storagemocks.MockPatternRepository)
	redisClient := new(redismocks.MockRedisClient)
	service := NewPatternService(txRepo, patternRepo, redisClient, summary.NewTemplateSummarizer())
	return service, txRepo, patternRepo, redisClient
}

func discoveryTransactions() []*models.Transaction {
	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	txns := make([]*models.Transaction, 4)
	for i := range txns {
		txns[i] = &models.Transaction{
			ID:         "txn_" + string(rune('a'+i)),
			UserID:     "user-1",
			PayeeID:    "payee-1",
			Direction:  models.DirectionDebit,
			CurrencyID: "INR",
			OccurredAt: start.AddDate(0, 0, i*30),
			Amount:     decimal.NewFromInt(50000),
		}
	}
	return txns
}

func servicePattern(id string) *models.Pattern {
	return &models.Pattern{
		ID:                   id,
		UserID:               "user-1",
		PayeeID:              "payee-1",
		Direction:            models.DirectionDebit,
		CurrencyID:           "INR",
		IntervalDays:         30,
		PatternCase:          models.CaseFixedMonthly,
		AmountBehavior:       models.AmountFixed,
		RepresentativeAmount: decimal.NewFromInt(50000),
		AmountMin:            decimal.NewFromInt(50000),
		AmountMax:            decimal.NewFromInt(50000),
		Status:               models.PatternActive,
		Confidence:           0.9,
	}
}

// Параллельный запуск discovery для того же пользователя получает конфликт
func TestDiscover_LockBusy(t *testing.T) {
	service, _, _, redisClient := newTestPatternService()

	redisClient.On("AcquireDiscoveryLock", "user-1").Return(false, nil)

	_, err := service.Discover("user-1", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConflict))
}

func TestDiscover_CreatesPattern(t *testing.T) {
	service, txRepo, patternRepo, redisClient := newTestPatternService()

	key := models.GroupKey{
		UserID: "user-1", PayeeID: "payee-1",
		Direction: models.DirectionDebit, CurrencyID: "INR",
	}
	txns := discoveryTransactions()

	redisClient.On("AcquireDiscoveryLock", "user-1").Return(true, nil)
	redisClient.On("ReleaseDiscoveryLock", "user-1").Return(nil)
	redisClient.On("InvalidatePatternSnapshot", "user-1").Return(nil)

	patternRepo.On("CreateRun", mock.AnythingOfType("*models.DiscoveryRun")).Return(nil)
	patternRepo.On("FinishRun", mock.AnythingOfType("*models.DiscoveryRun")).Return(nil)
	txRepo.On("ListCandidateGroups", "user-1", mock.AnythingOfType("int")).
		Return([]*models.CandidateGroup{{Key: key, Count: len(txns)}}, nil)
	txRepo.On("GetTransactionsByKey", key).Return(txns, nil)

	created := servicePattern("pat_new")
	patternRepo.On("UpsertPattern",
		mock.AnythingOfType("*models.PatternCandidate"),
		mock.AnythingOfType("func(*models.Pattern) *models.Obligation"),
	).Return(&models.UpsertResult{Pattern: created, Created: true}, nil)
	patternRepo.On("UpdatePatternSummary", "pat_new", mock.AnythingOfType("string")).Return(nil)

	resp, err := service.Discover("user-1", nil)
	require.NoError(t, err)

	assert.Equal(t, models.RunCompleted, resp.Run.Status)
	assert.Equal(t, 1, resp.Run.GroupsTotal)
	assert.Equal(t, 1, resp.Run.PatternsCreated)
	assert.Equal(t, 0, resp.Run.ClustersDropped)
	require.Len(t, resp.Patterns, 1)
	assert.True(t, resp.Patterns[0].Created)
	assert.NotEmpty(t, resp.Patterns[0].Pattern.Summary)

	// Колбэк стартового обязательства: отсчет от последней транзакции серии
	upsertCall := patternRepo.Calls[1]
	newObligation := upsertCall.Arguments.Get(1).(func(*models.Pattern) *models.Obligation)
	o := newObligation(created)
	assert.Equal(t, models.ObligationExpected, o.Status)
	lastDate := txns[len(txns)-1].OccurredAt
	assert.Equal(t, lastDate.AddDate(0, 0, 30), o.ExpectedDate)

	patternRepo.AssertExpectations(t)
}

// Помеченные аномальными транзакции не участвуют в discovery
func TestDiscover_SkipsFlaggedTransactions(t *testing.T) {
	service, txRepo, patternRepo, redisClient := newTestPatternService()

	key := models.GroupKey{
		UserID: "user-1", PayeeID: "payee-1",
		Direction: models.DirectionDebit, CurrencyID: "INR",
	}
	txns := discoveryTransactions()
	txns[1].Flagged = true
	txns[3].Flagged = true

	redisClient.On("AcquireDiscoveryLock", "user-1").Return(true, nil)
	redisClient.On("ReleaseDiscoveryLock", "user-1").Return(nil)
	redisClient.On("InvalidatePatternSnapshot", "user-1").Return(nil)
	patternRepo.On("CreateRun", mock.Anything).Return(nil)
	patternRepo.On("FinishRun", mock.Anything).Return(nil)
	txRepo.On("ListCandidateGroups", "user-1", mock.Anything).
		Return([]*models.CandidateGroup{{Key: key, Count: len(txns)}}, nil)
	txRepo.On("GetTransactionsByKey", key).Return(txns, nil)

	resp, err := service.Discover("user-1", nil)
	require.NoError(t, err)

	// Осталось две транзакции — меньше минимума кластера
	assert.Equal(t, 1, resp.Run.GroupsSkipped)
	assert.Empty(t, resp.Patterns)
	patternRepo.AssertNotCalled(t, "UpsertPattern", mock.Anything, mock.Anything)
}

func TestDiscover_PayeeFilter(t *testing.T) {
	service, txRepo, patternRepo, redisClient := newTestPatternService()

	otherKey := models.GroupKey{
		UserID: "user-1", PayeeID: "payee-other",
		Direction: models.DirectionDebit, CurrencyID: "INR",
	}

	redisClient.On("AcquireDiscoveryLock", "user-1").Return(true, nil)
	redisClient.On("ReleaseDiscoveryLock", "user-1").Return(nil)
	redisClient.On("InvalidatePatternSnapshot", "user-1").Return(nil)
	patternRepo.On("CreateRun", mock.Anything).Return(nil)
	patternRepo.On("FinishRun", mock.Anything).Return(nil)
	txRepo.On("ListCandidateGroups", "user-1", mock.Anything).
		Return([]*models.CandidateGroup{{Key: otherKey, Count: 5}}, nil)

	resp, err := service.Discover("user-1", &models.DiscoverRequest{PayeeID: "payee-1"})
	require.NoError(t, err)

	assert.Equal(t, 0, resp.Run.GroupsTotal)
	txRepo.AssertNotCalled(t, "GetTransactionsByKey", mock.Anything)
}

// Десять платежей одному получателю в двух валютах: по паттерну на валюту,
// кандидаты никогда не смешивают транзакции разных валют
func TestDiscover_CurrencySplit(t *testing.T) {
	service, txRepo, patternRepo, redisClient := newTestPatternService()

	inrKey := models.GroupKey{
		UserID: "user-1", PayeeID: "payee-1",
		Direction: models.DirectionDebit, CurrencyID: "INR",
	}
	usdKey := inrKey
	usdKey.CurrencyID = "USD"

	start := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	series := func(key models.GroupKey, prefix string, amount int64) []*models.Transaction {
		txns := make([]*models.Transaction, 5)
		for i := range txns {
			txns[i] = &models.Transaction{
				ID:         prefix + "_" + string(rune('a'+i)),
				UserID:     key.UserID,
				PayeeID:    key.PayeeID,
				Direction:  key.Direction,
				CurrencyID: key.CurrencyID,
				OccurredAt: start.AddDate(0, 0, i*30),
				Amount:     decimal.NewFromInt(amount),
			}
		}
		return txns
	}

	redisClient.On("AcquireDiscoveryLock", "user-1").Return(true, nil)
	redisClient.On("ReleaseDiscoveryLock", "user-1").Return(nil)
	redisClient.On("InvalidatePatternSnapshot", "user-1").Return(nil)
	patternRepo.On("CreateRun", mock.Anything).Return(nil)
	patternRepo.On("FinishRun", mock.Anything).Return(nil)
	txRepo.On("ListCandidateGroups", "user-1", mock.Anything).
		Return([]*models.CandidateGroup{
			{Key: inrKey, Count: 5},
			{Key: usdKey, Count: 5},
		}, nil)
	txRepo.On("GetTransactionsByKey", inrKey).Return(series(inrKey, "txn_inr", 2000), nil)
	txRepo.On("GetTransactionsByKey", usdKey).Return(series(usdKey, "txn_usd", 75), nil)
	patternRepo.On("UpsertPattern", mock.Anything, mock.Anything).
		Return(&models.UpsertResult{Pattern: servicePattern("pat_cur"), Created: true}, nil)
	patternRepo.On("UpdatePatternSummary", "pat_cur", mock.Anything).Return(nil)

	resp, err := service.Discover("user-1", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Run.GroupsTotal)
	assert.Equal(t, 2, resp.Run.PatternsCreated)

	upserts := 0
	for _, call := range patternRepo.Calls {
		if call.Method != "UpsertPattern" {
			continue
		}
		upserts++
		candidate := call.Arguments.Get(0).(*models.PatternCandidate)
		require.NotEmpty(t, candidate.Transactions)
		for _, tx := range candidate.Transactions {
			assert.Equal(t, candidate.Key.CurrencyID, tx.CurrencyID)
		}
	}
	assert.Equal(t, 2, upserts)
}

func TestGetPattern_WithHistory(t *testing.T) {
	service, _, patternRepo, _ := newTestPatternService()

	p := servicePattern("pat_1")
	patternRepo.On("GetPattern", "pat_1").Return(p, nil)
	patternRepo.On("GetStreak", "pat_1").Return(&models.PatternStreak{
		PatternID: "pat_1", CurrentStreak: 3,
	}, nil)
	patternRepo.On("ListObligations", "pat_1", obligationHistoryLimit).
		Return([]*models.Obligation{{ID: "obl_1", PatternID: "pat_1"}}, nil)

	resp, err := service.GetPattern("pat_1")
	require.NoError(t, err)
	assert.Equal(t, "pat_1", resp.Pattern.ID)
	assert.Equal(t, 3, resp.Streak.CurrentStreak)
	assert.Len(t, resp.Obligations, 1)
}

func TestListPatterns_UsesCacheOnlyWithoutFilter(t *testing.T) {
	service, _, patternRepo, redisClient := newTestPatternService()

	cached := []*models.Pattern{servicePattern("pat_cached")}
	redisClient.On("GetPatternSnapshot", "user-1").Return(cached, nil)

	patterns, err := service.ListPatterns("user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "pat_cached", patterns[0].ID)
	patternRepo.AssertNotCalled(t, "ListPatterns", mock.Anything, mock.Anything)

	// С фильтром статусов кеш не участвует
	fromDB := []*models.Pattern{servicePattern("pat_db")}
	patternRepo.On("ListPatterns", "user-1", []string{models.PatternPaused}).Return(fromDB, nil)

	patterns, err = service.ListPatterns("user-1", []string{models.PatternPaused})
	require.NoError(t, err)
	assert.Equal(t, "pat_db", patterns[0].ID)
}

// Архивация отменяет текущее ожидание паттерна
func TestUpdatePattern_ArchiveCancelsObligation(t *testing.T) {
	service, _, patternRepo, redisClient := newTestPatternService()

	patternRepo.On("GetPattern", "pat_1").Return(servicePattern("pat_1"), nil)
	patternRepo.On("UpdatePatternStatus", "pat_1", models.PatternArchived).Return(nil)
	patternRepo.On("CancelExpectedObligation", "pat_1").Return(nil)
	redisClient.On("InvalidatePatternSnapshot", "user-1").Return(nil)

	updated, err := service.UpdatePattern("pat_1", "archive")
	require.NoError(t, err)
	assert.Equal(t, models.PatternArchived, updated.Status)
	patternRepo.AssertExpectations(t)
}

// Возобновление чинит отсутствующее ожидание по последним исполнениям
func TestUpdatePattern_ResumeRepairsObligation(t *testing.T) {
	service, _, patternRepo, redisClient := newTestPatternService()

	p := servicePattern("pat_1")
	p.Status = models.PatternPaused
	lastExpected := time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)

	patternRepo.On("GetPattern", "pat_1").Return(p, nil)
	patternRepo.On("UpdatePatternStatus", "pat_1", models.PatternActive).Return(nil)
	patternRepo.On("RecentFulfilledAmounts", "pat_1", recentAmountsForWindow).
		Return([]decimal.Decimal{decimal.NewFromInt(50000)}, nil)
	patternRepo.On("GetExpectedObligation", "pat_1").Return(nil, models.ErrNotFound)
	patternRepo.On("GetStreak", "pat_1").Return(&models.PatternStreak{
		PatternID:        "pat_1",
		LastExpectedDate: &lastExpected,
	}, nil)
	patternRepo.On("SaveObligation", mock.AnythingOfType("*models.Obligation")).Return(nil)
	redisClient.On("InvalidatePatternSnapshot", "user-1").Return(nil)

	updated, err := service.UpdatePattern("pat_1", "resume")
	require.NoError(t, err)
	assert.Equal(t, models.PatternActive, updated.Status)

	saved := patternRepo.Calls[len(patternRepo.Calls)-1].Arguments.Get(0).(*models.Obligation)
	assert.Equal(t, lastExpected.AddDate(0, 0, 30), saved.ExpectedDate)
}

// Архивный паттерн управляется только через resume
func TestUpdatePattern_ArchivedBlocksOtherActions(t *testing.T) {
	service, _, patternRepo, _ := newTestPatternService()

	p := servicePattern("pat_1")
	p.Status = models.PatternArchived
	patternRepo.On("GetPattern", "pat_1").Return(p, nil)

	_, err := service.UpdatePattern("pat_1", "pause")
	assert.True(t, errors.Is(err, models.ErrConflict))
}

// Удаление без подтверждения — мягкое: archived плюс отмена ожидания
func TestDeletePattern_SoftWithoutConfirm(t *testing.T) {
	service, _, patternRepo, redisClient := newTestPatternService()

	patternRepo.On("GetPattern", "pat_1").Return(servicePattern("pat_1"), nil)
	patternRepo.On("UpdatePatternStatus", "pat_1", models.PatternArchived).Return(nil)
	patternRepo.On("CancelExpectedObligation", "pat_1").Return(nil)
	redisClient.On("InvalidatePatternSnapshot", "user-1").Return(nil)

	require.NoError(t, service.DeletePattern("pat_1", false))
	patternRepo.AssertNotCalled(t, "DeletePattern", mock.Anything)
}

func TestDeletePattern_HardWithConfirm(t *testing.T) {
	service, _, patternRepo, redisClient := newTestPatternService()

	patternRepo.On("GetPattern", "pat_1").Return(servicePattern("pat_1"), nil)
	patternRepo.On("DeletePattern", "pat_1").Return(nil)
	redisClient.On("InvalidatePatternSnapshot", "user-1").Return(nil)

	require.NoError(t, service.DeletePattern("pat_1", true))
	patternRepo.AssertCalled(t, "DeletePattern", "pat_1")
	patternRepo.AssertNotCalled(t, "UpdatePatternStatus", mock.Anything, mock.Anything)
}

func TestListObligations_PatternMustExist(t *testing.T) {
	service, _, patternRepo, _ := newTestPatternService()

	patternRepo.On("GetPattern", "missing").Return(nil, models.ErrNotFound)

	_, err := service.ListObligations("missing", nil, nil, nil)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	patternRepo.On("GetPattern", "pat_1").Return(servicePattern("pat_1"), nil)
	patternRepo.On("ListObligationsFiltered", "pat_1", []string{models.ObligationMissed},
		(*time.Time)(nil), (*time.Time)(nil)).
		Return([]*models.Obligation{{ID: "obl_1"}}, nil)

	obligations, err := service.ListObligations("pat_1", []string{models.ObligationMissed}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, obligations, 1)
}

func TestUpdatePattern_UnknownAction(t *testing.T) {
	service, _, patternRepo, _ := newTestPatternService()

	patternRepo.On("GetPattern", "pat_1").Return(servicePattern("pat_1"), nil)
	_, err := service.UpdatePattern("pat_1", "delete")
	assert.True(t, errors.Is(err, models.ErrInvalid))
}
