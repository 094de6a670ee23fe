package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"recurring-patterns-system/internal/discovery"
	"recurring-patterns-system/internal/logger"
	"recurring-patterns-system/internal/models"
	"recurring-patterns-system/internal/obligation"
	"recurring-patterns-system/internal/redis"
	"recurring-patterns-system/internal/storage"
	"recurring-patterns-system/internal/summary"
)

// obligationHistoryLimit — сколько последних обязательств отдается
// вместе с паттерном
const obligationHistoryLimit = 6

// recentAmountsForWindow — сколько последних сумм участвует в пересчете
// ожидаемой полосы
const recentAmountsForWindow = 3

// PatternServiceImpl реализует интерфейс PatternService
type PatternServiceImpl struct {
	txRepo      storage.TransactionRepository
	patternRepo storage.PatternRepository
	redisClient redis.ClientInterface
	engine      *discovery.Engine
	obligations *obligation.Manager
	summarizer  summary.Summarizer
}

// NewPatternService создает новый сервис паттернов
func NewPatternService(
	txRepo storage.TransactionRepository,
	patternRepo storage.PatternRepository,
	redisClient redis.ClientInterface,
	summarizer summary.Summarizer,
) PatternService {
	return &PatternServiceImpl{
		txRepo:      txRepo,
		patternRepo: patternRepo,
		redisClient: redisClient,
		engine:      discovery.NewEngine(),
		obligations: obligation.NewManager(),
		summarizer:  summarizer,
	}
}

// Discover запускает полный прогон discovery для пользователя.
// Прогон эксклюзивен на пользователя: параллельный запрос получает
// models.ErrConflict. Повторный прогон по тем же данным идемпотентен.
func (s *PatternServiceImpl) Discover(userID string, req *models.DiscoverRequest) (*models.DiscoverResponse, error) {
	acquired, err := s.redisClient.AcquireDiscoveryLock(userID)
	if err != nil {
		return nil, fmt.Errorf("discovery lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("discovery already running for user %s: %w", userID, models.ErrConflict)
	}
	defer func() {
		if err := s.redisClient.ReleaseDiscoveryLock(userID); err != nil {
			log.Printf("Failed to release discovery lock for %s: %v", userID, err)
		}
	}()

	run := &models.DiscoveryRun{
		ID:        "run_" + uuid.New().String(),
		UserID:    userID,
		Status:    models.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.patternRepo.CreateRun(run); err != nil {
		return nil, err
	}

	logger.LogEvent(logger.EventDiscoveryStarted, "pattern-service", "discovery", map[string]interface{}{
		"run_id":  run.ID,
		"user_id": userID,
	})

	results, runErr := s.runDiscovery(userID, req, run)

	now := time.Now().UTC()
	run.FinishedAt = &now
	if runErr != nil {
		run.Status = models.RunFailed
		run.ErrorMessage = runErr.Error()
	} else {
		run.Status = models.RunCompleted
	}
	if err := s.patternRepo.FinishRun(run); err != nil {
		log.Printf("Failed to finish discovery run %s: %v", run.ID, err)
	}
	if runErr != nil {
		return nil, runErr
	}

	if err := s.redisClient.InvalidatePatternSnapshot(userID); err != nil {
		log.Printf("Failed to invalidate pattern snapshot for %s: %v", userID, err)
	}

	logger.LogEvent(logger.EventDiscoveryCompleted, "pattern-service", "discovery", map[string]interface{}{
		"run_id":           run.ID,
		"groups_total":     run.GroupsTotal,
		"patterns_created": run.PatternsCreated,
		"patterns_updated": run.PatternsUpdated,
		"clusters_dropped": run.ClustersDropped,
	})

	return &models.DiscoverResponse{Run: run, Patterns: results}, nil
}

func (s *PatternServiceImpl) runDiscovery(userID string, req *models.DiscoverRequest, run *models.DiscoveryRun) ([]*models.UpsertResult, error) {
	groups, err := s.txRepo.ListCandidateGroups(userID, discovery.MinClusterSize)
	if err != nil {
		return nil, err
	}

	var results []*models.UpsertResult
	for _, group := range groups {
		if req != nil && req.PayeeID != "" && group.Key.PayeeID != req.PayeeID {
			continue
		}
		if req != nil && req.Direction != "" && group.Key.Direction != req.Direction {
			continue
		}
		run.GroupsTotal++

		transactions, err := s.txRepo.GetTransactionsByKey(group.Key)
		if err != nil {
			return nil, err
		}
		transactions = dropFlagged(transactions)
		if len(transactions) < discovery.MinClusterSize {
			run.GroupsSkipped++
			continue
		}

		clusters := discovery.Split(transactions)
		run.ClustersTotal += len(clusters)
		if len(clusters) == 0 {
			run.GroupsSkipped++
		}

		for _, cluster := range clusters {
			candidate, reason := s.engine.Discover(group.Key, cluster)
			if candidate == nil {
				run.ClustersDropped++
				run.DropReasons = append(run.DropReasons, reason)
				continue
			}

			result, err := s.persistCandidate(candidate)
			if err != nil {
				return nil, err
			}
			if result.Created {
				run.PatternsCreated++
			} else {
				run.PatternsUpdated++
			}
			results = append(results, result)
		}
	}
	return results, nil
}

// persistCandidate сохраняет кандидата и достраивает вокруг него состояние:
// стартовое обязательство для нового паттерна, починку ожидания для
// существующего, совещательную сводку
func (s *PatternServiceImpl) persistCandidate(candidate *models.PatternCandidate) (*models.UpsertResult, error) {
	recent := recentInlierAmounts(candidate, recentAmountsForWindow)

	result, err := s.patternRepo.UpsertPattern(candidate, func(p *models.Pattern) *models.Obligation {
		anchor := candidate.Transactions[len(candidate.Transactions)-1].OccurredAt
		next := s.obligations.NextExpectedDate(anchor, p.IntervalDays)
		minAmount, maxAmount := s.obligations.EstimateAmountWindow(p, recent)
		return s.obligations.NewObligation(p, next, minAmount, maxAmount)
	})
	if err != nil {
		return nil, err
	}

	eventType := logger.EventPatternUpdated
	if result.Created {
		eventType = logger.EventPatternDiscovered
	}
	logger.LogEvent(eventType, "pattern-service", "discovery", map[string]interface{}{
		"pattern_id":   result.Pattern.ID,
		"pattern_case": result.Pattern.PatternCase,
		"confidence":   result.Pattern.Confidence,
	})

	// У обновленного паттерна ожидаемое обязательство могло потеряться
	// (сбой между записями в прошлом) — чиним на месте
	if !result.Created && result.Pattern.Status != models.PatternArchived {
		if err := s.ensureExpectedObligation(result.Pattern, recent); err != nil {
			return nil, err
		}
	}

	// Сводка совещательная: её ошибка не валит discovery
	if text, err := s.summarizer.Summarize(result.Pattern); err == nil {
		if err := s.patternRepo.UpdatePatternSummary(result.Pattern.ID, text); err != nil {
			log.Printf("Failed to save summary for %s: %v", result.Pattern.ID, err)
		} else {
			result.Pattern.Summary = text
		}
	} else {
		log.Printf("Summarizer failed for %s: %v", result.Pattern.ID, err)
	}

	return result, nil
}

func (s *PatternServiceImpl) ensureExpectedObligation(p *models.Pattern, recent []decimal.Decimal) error {
	_, err := s.patternRepo.GetExpectedObligation(p.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	streak, err := s.patternRepo.GetStreak(p.ID)
	if err != nil {
		return err
	}

	minAmount, maxAmount := s.obligations.EstimateAmountWindow(p, recent)
	repaired, err := s.obligations.RepairObligation(p, streak, minAmount, maxAmount)
	if err != nil {
		return err
	}
	if err := s.patternRepo.SaveObligation(repaired); err != nil {
		return err
	}

	logger.LogEvent(logger.EventPatternRepaired, "pattern-service", "discovery", map[string]interface{}{
		"pattern_id":    p.ID,
		"obligation_id": repaired.ID,
		"expected_date": repaired.ExpectedDate.Format("2006-01-02"),
	})
	return nil
}

// GetPattern возвращает паттерн вместе со стриком и последними обязательствами
func (s *PatternServiceImpl) GetPattern(id string) (*models.PatternResponse, error) {
	pattern, err := s.patternRepo.GetPattern(id)
	if err != nil {
		return nil, err
	}

	streak, err := s.patternRepo.GetStreak(id)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	obligations, err := s.patternRepo.ListObligations(id, obligationHistoryLimit)
	if err != nil {
		return nil, err
	}

	return &models.PatternResponse{
		Pattern:     pattern,
		Streak:      streak,
		Obligations: obligations,
	}, nil
}

// ListPatterns возвращает паттерны пользователя, через кеш при его наличии
func (s *PatternServiceImpl) ListPatterns(userID string, statuses []string) ([]*models.Pattern, error) {
	// Снимок кешируется только для запроса без фильтра
	if len(statuses) == 0 {
		if cached, err := s.redisClient.GetPatternSnapshot(userID); err == nil && cached != nil {
			return cached, nil
		}
	}

	patterns, err := s.patternRepo.ListPatterns(userID, statuses)
	if err != nil {
		return nil, err
	}

	if len(statuses) == 0 {
		if err := s.redisClient.SavePatternSnapshot(userID, patterns); err != nil {
			log.Printf("Failed to cache pattern snapshot for %s: %v", userID, err)
		}
	}
	return patterns, nil
}

// UpdatePattern применяет пользовательское действие над паттерном.
// pause замораживает сопоставление, resume возвращает в active и чинит
// ожидание, archive скрывает паттерн и отменяет текущее ожидание.
func (s *PatternServiceImpl) UpdatePattern(id string, action string) (*models.Pattern, error) {
	pattern, err := s.patternRepo.GetPattern(id)
	if err != nil {
		return nil, err
	}

	oldStatus := pattern.Status

	var newStatus string
	switch action {
	case "pause":
		newStatus = models.PatternPaused
	case "resume":
		newStatus = models.PatternActive
	case "archive":
		newStatus = models.PatternArchived
	default:
		return nil, fmt.Errorf("unknown action %q: %w", action, models.ErrInvalid)
	}

	if pattern.Status == models.PatternArchived && action != "resume" {
		return nil, fmt.Errorf("pattern %s is archived: %w", id, models.ErrConflict)
	}

	if err := s.patternRepo.UpdatePatternStatus(id, newStatus); err != nil {
		return nil, err
	}

	switch action {
	case "archive":
		if err := s.patternRepo.CancelExpectedObligation(id); err != nil {
			return nil, err
		}
	case "resume":
		recent, err := s.patternRepo.RecentFulfilledAmounts(id, recentAmountsForWindow)
		if err != nil {
			return nil, err
		}
		pattern.Status = newStatus
		if err := s.ensureExpectedObligation(pattern, recent); err != nil {
			return nil, err
		}
	}

	logger.LogEvent(logger.EventPatternStateChanged, "pattern-service", "patterns", map[string]interface{}{
		"pattern_id": id,
		"action":     action,
		"old_status": oldStatus,
		"new_status": newStatus,
	})

	if err := s.redisClient.InvalidatePatternSnapshot(pattern.UserID); err != nil {
		log.Printf("Failed to invalidate pattern snapshot for %s: %v", pattern.UserID, err)
	}

	pattern.Status = newStatus
	return pattern, nil
}

// DeletePattern удаляет паттерн. Без подтверждения удаление мягкое:
// паттерн уходит в archived, текущее ожидание отменяется, история остается.
// С подтверждением — безвозвратный каскад: стрик, обязательства, связи.
func (s *PatternServiceImpl) DeletePattern(id string, confirm bool) error {
	pattern, err := s.patternRepo.GetPattern(id)
	if err != nil {
		return err
	}

	if !confirm {
		_, err := s.UpdatePattern(id, "archive")
		return err
	}

	if err := s.patternRepo.DeletePattern(id); err != nil {
		return err
	}

	logger.LogEvent(logger.EventPatternDeleted, "pattern-service", "patterns", map[string]interface{}{
		"pattern_id": id,
		"user_id":    pattern.UserID,
	})

	if err := s.redisClient.InvalidatePatternSnapshot(pattern.UserID); err != nil {
		log.Printf("Failed to invalidate pattern snapshot for %s: %v", pattern.UserID, err)
	}
	return nil
}

// ListObligations возвращает обязательства паттерна с фильтром по статусам
// и диапазону ожидаемых дат
func (s *PatternServiceImpl) ListObligations(patternID string, statuses []string, from, to *time.Time) ([]*models.Obligation, error) {
	if _, err := s.patternRepo.GetPattern(patternID); err != nil {
		return nil, err
	}
	return s.patternRepo.ListObligationsFiltered(patternID, statuses, from, to)
}

// ListUpcoming возвращает ожидаемые обязательства пользователя в диапазоне дат
func (s *PatternServiceImpl) ListUpcoming(userID string, from, to time.Time) ([]*models.UpcomingObligation, error) {
	return s.patternRepo.ListUpcomingObligations(userID, from, to)
}

// GetRun возвращает запуск discovery
func (s *PatternServiceImpl) GetRun(id string) (*models.DiscoveryRun, error) {
	return s.patternRepo.GetRun(id)
}

func dropFlagged(transactions []*models.Transaction) []*models.Transaction {
	out := transactions[:0]
	for _, tx := range transactions {
		if !tx.Flagged {
			out = append(out, tx)
		}
	}
	return out
}

// recentInlierAmounts возвращает суммы последних по дате транзакций
// кандидата, исключая выбросы
func recentInlierAmounts(candidate *models.PatternCandidate, limit int) []decimal.Decimal {
	outliers := make(map[string]bool, len(candidate.OutlierIDs))
	for _, id := range candidate.OutlierIDs {
		outliers[id] = true
	}

	var amounts []decimal.Decimal
	for i := len(candidate.Transactions) - 1; i >= 0 && len(amounts) < limit; i-- {
		tx := candidate.Transactions[i]
		if outliers[tx.ID] {
			continue
		}
		amounts = append(amounts, tx.Amount)
	}
	return amounts
}
