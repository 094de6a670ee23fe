package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"recurring-patterns-system/internal/generator"
	"recurring-patterns-system/internal/logger"
	"recurring-patterns-system/internal/models"
	"recurring-patterns-system/internal/services"
)

type Handlers struct {
	transactionService services.TransactionService
	patternService     services.PatternService
}

// Создает новые обработчики REST API
func NewHandlers(transactionService services.TransactionService, patternService services.PatternService) *Handlers {
	return &Handlers{
		transactionService: transactionService,
		patternService:     patternService,
	}
}

// statusFromError переводит ошибку доменного слоя в HTTP-статус
func statusFromError(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrRetryable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFromError(err), gin.H{"error": err.Error()})
}

// HandleIngest обрабатывает POST запрос на прием транзакции
// @Summary Принять транзакцию
// @Description Принимает транзакцию пользователя, сохраняет её и публикует событие в Kafka для сопоставления с паттернами. Повтор по source_message_id идемпотентен.
// @Tags transactions
// @Accept json
// @Produce json
// @Param transaction body models.Transaction true "Данные транзакции"
// @Success 201 {object} models.IngestResponse "Транзакция принята"
// @Success 200 {object} models.IngestResponse "Повтор: транзакция уже принята"
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /transactions [post]
func (h *Handlers) HandleIngest(c *gin.Context) {
	var req models.Transaction
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logger.LogEvent(logger.EventTransactionReceived, "pattern-service", "api", map[string]interface{}{
		"user_id":           req.UserID,
		"payee_id":          req.PayeeID,
		"source_message_id": req.SourceMessageID,
	})

	response, err := h.transactionService.IngestTransaction(&req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if response.Status == "duplicate" {
		status = http.StatusOK
	}
	c.JSON(status, response)
}

// GetTransaction обрабатывает GET запрос транзакции по id
// @Summary Получить транзакцию
// @Tags transactions
// @Produce json
// @Param id path string true "ID транзакции"
// @Success 200 {object} models.Transaction
// @Failure 404 {object} map[string]string "Not Found"
// @Router /transactions/{id} [get]
func (h *Handlers) GetTransaction(c *gin.Context) {
	tx, err := h.transactionService.GetTransaction(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// GenerateTransactions создает синтетическую повторяющуюся серию
// @Summary Сгенерировать синтетические транзакции
// @Description Принимает серию синтетических транзакций выбранного профиля (salary, rent, chit, recharge) через обычный путь приема
// @Tags transactions
// @Produce json
// @Param user_id query string true "ID пользователя"
// @Param profile query string false "Профиль серии" default(salary)
// @Param count query int false "Число транзакций" default(4)
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /transactions/generate [post]
func (h *Handlers) GenerateTransactions(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	profile := generator.Salary
	switch c.DefaultQuery("profile", "salary") {
	case "salary":
		profile = generator.Salary
	case "rent":
		profile = generator.Rent
	case "chit":
		profile = generator.ChitFund
	case "recharge":
		profile = generator.Recharge
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown profile"})
		return
	}

	count := 4
	if parsed, err := strconv.Atoi(c.DefaultQuery("count", "4")); err == nil && parsed > 0 && parsed <= 36 {
		count = parsed
	}

	start := time.Now().UTC().AddDate(0, 0, -profile.IntervalDays*count)
	series := generator.New(time.Now().UnixNano()).Series(userID, profile, start, count)

	ingested := make([]string, 0, count)
	for _, tx := range series {
		resp, err := h.transactionService.IngestTransaction(tx)
		if err != nil {
			abortWithError(c, err)
			return
		}
		ingested = append(ingested, resp.TransactionID)
	}

	c.JSON(http.StatusCreated, gin.H{
		"profile":         profile.Name,
		"count":           len(ingested),
		"transaction_ids": ingested,
	})
}

// HandleDiscover запускает discovery для пользователя
// @Summary Запустить обнаружение паттернов
// @Description Запускает детерминированный конвейер discovery по всем транзакциям пользователя. Прогон эксклюзивен: параллельный запрос получает 409.
// @Tags patterns
// @Accept json
// @Produce json
// @Param user_id query string true "ID пользователя"
// @Param request body models.DiscoverRequest false "Фильтры discovery"
// @Success 200 {object} models.DiscoverResponse
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 409 {object} map[string]string "Discovery уже запущен"
// @Router /patterns/discover [post]
func (h *Handlers) HandleDiscover(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	var req models.DiscoverRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	response, err := h.patternService.Discover(userID, &req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// ListPatterns возвращает паттерны пользователя
// @Summary Список паттернов пользователя
// @Tags patterns
// @Produce json
// @Param user_id query string true "ID пользователя"
// @Param status query string false "Фильтр статусов через запятую (active,paused,broken,archived)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /patterns [get]
func (h *Handlers) ListPatterns(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	var statuses []string
	if raw := c.Query("status"); raw != "" {
		statuses = strings.Split(raw, ",")
	}

	patterns, err := h.patternService.ListPatterns(userID, statuses)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"patterns": patterns, "count": len(patterns)})
}

// GetPattern возвращает паттерн со стриком и обязательствами
// @Summary Получить паттерн
// @Tags patterns
// @Produce json
// @Param id path string true "ID паттерна"
// @Success 200 {object} models.PatternResponse
// @Failure 404 {object} map[string]string "Not Found"
// @Router /patterns/{id} [get]
func (h *Handlers) GetPattern(c *gin.Context) {
	response, err := h.patternService.GetPattern(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// UpdatePattern применяет действие над паттерном
// @Summary Управление паттерном
// @Description Применяет пользовательское действие: pause, resume или archive
// @Tags patterns
// @Accept json
// @Produce json
// @Param id path string true "ID паттерна"
// @Param request body models.UpdatePatternRequest true "Действие"
// @Success 200 {object} models.Pattern
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 409 {object} map[string]string "Conflict"
// @Router /patterns/{id} [patch]
func (h *Handlers) UpdatePattern(c *gin.Context) {
	var req models.UpdatePatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pattern, err := h.patternService.UpdatePattern(c.Param("id"), req.Action)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pattern)
}

// DeletePattern удаляет паттерн
// @Summary Удалить паттерн
// @Description Без confirm=true удаление мягкое (паттерн уходит в archived), с подтверждением — безвозвратное вместе со стриком, обязательствами и связями
// @Tags patterns
// @Produce json
// @Param id path string true "ID паттерна"
// @Param confirm query bool false "Подтверждение безвозвратного удаления" default(false)
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "Not Found"
// @Failure 409 {object} map[string]string "Conflict"
// @Router /patterns/{id} [delete]
func (h *Handlers) DeletePattern(c *gin.Context) {
	confirm := c.Query("confirm") == "true"

	if err := h.patternService.DeletePattern(c.Param("id"), confirm); err != nil {
		abortWithError(c, err)
		return
	}

	status := "archived"
	if confirm {
		status = "deleted"
	}
	c.JSON(http.StatusOK, gin.H{"pattern_id": c.Param("id"), "status": status})
}

// GetObligations возвращает обязательства паттерна
// @Summary Обязательства паттерна
// @Description Возвращает обязательства паттерна, новые первыми, с фильтром по статусам и диапазону ожидаемых дат
// @Tags obligations
// @Produce json
// @Param id path string true "ID паттерна"
// @Param status query string false "Фильтр статусов через запятую (expected,fulfilled,missed,cancelled)"
// @Param from query string false "Начало диапазона (RFC3339 или YYYY-MM-DD)"
// @Param to query string false "Конец диапазона"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /patterns/{id}/obligations [get]
func (h *Handlers) GetObligations(c *gin.Context) {
	var statuses []string
	if raw := c.Query("status"); raw != "" {
		statuses = strings.Split(raw, ",")
	}

	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		from = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return
		}
		to = &parsed
	}

	obligations, err := h.patternService.ListObligations(c.Param("id"), statuses, from, to)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"obligations": obligations, "count": len(obligations)})
}

// ListUpcoming возвращает ожидаемые обязательства пользователя
// @Summary Предстоящие обязательства
// @Description Возвращает ожидаемые обязательства пользователя в диапазоне дат (по умолчанию ближайшие 30 дней)
// @Tags obligations
// @Produce json
// @Param user_id query string true "ID пользователя"
// @Param days query int false "Горизонт в днях от текущего момента" default(30)
// @Param from query string false "Начало диапазона (RFC3339 или YYYY-MM-DD)"
// @Param to query string false "Конец диапазона"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /obligations/upcoming [get]
func (h *Handlers) ListUpcoming(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	days := 30
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid days"})
			return
		}
		days = parsed
	}

	from := time.Now().UTC()
	to := from.AddDate(0, 0, days)

	if raw := c.Query("from"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
			return
		}
		to = parsed
	}

	upcoming, err := h.patternService.ListUpcoming(userID, from, to)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upcoming": upcoming, "count": len(upcoming)})
}

// GetRun возвращает запуск discovery
// @Summary Получить запуск discovery
// @Tags patterns
// @Produce json
// @Param id path string true "ID запуска"
// @Success 200 {object} models.DiscoveryRun
// @Failure 404 {object} map[string]string "Not Found"
// @Router /runs/{id} [get]
func (h *Handlers) GetRun(c *gin.Context) {
	run, err := h.patternService.GetRun(c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
