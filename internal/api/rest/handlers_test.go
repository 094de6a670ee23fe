package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"recurring-patterns-system/internal/models"
	servicemocks "recurring-patterns-system/internal/services/mocks"
)

func setupTestRouter() (*gin.Engine, *servicemocks.MockTransactionService, *servicemocks.MockPatternService) {
	gin.SetMode(gin.TestMode)

	txService := new(servicemocks.MockTransactionService)
	patternService := new(servicemocks.MockPatternService)
	handlers := NewHandlers(txService, patternService)

	router := gin.New()
	api := router.Group("/api/v1")
	api.POST("/transactions", handlers.HandleIngest)
	api.GET("/transactions/:id", handlers.GetTransaction)
	api.POST("/patterns/discover", handlers.HandleDiscover)
	api.GET("/patterns", handlers.ListPatterns)
	api.GET("/patterns/:id", handlers.GetPattern)
	api.PATCH("/patterns/:id", handlers.UpdatePattern)
	api.DELETE("/patterns/:id", handlers.DeletePattern)
	api.GET("/patterns/:id/obligations", handlers.GetObligations)
	api.GET("/obligations/upcoming", handlers.ListUpcoming)
	api.GET("/runs/:id", handlers.GetRun)

	return router, txService, patternService
}

func ingestBody() []byte {
	body, _ := json.Marshal(gin.H{
		"user_id":           "user-1",
		"payee_id":          "payee-1",
		"direction":         "debit",
		"currency_id":       "INR",
		"occurred_at":       "2026-01-29T00:00:00Z",
		"amount":            "5000",
		"source_message_id": "src-1",
	})
	return body
}

func TestHandleIngest_Created(t *testing.T) {
	router, txService, _ := setupTestRouter()

	txService.On("IngestTransaction", mock.AnythingOfType("*models.Transaction")).
		Return(&models.IngestResponse{TransactionID: "txn_1", Status: "accepted"}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewReader(ingestBody()))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp models.IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "txn_1", resp.TransactionID)
}

// Повтор по source_message_id отвечает 200, а не 201
func TestHandleIngest_Duplicate(t *testing.T) {
	router, txService, _ := setupTestRouter()

	txService.On("IngestTransaction", mock.Anything).
		Return(&models.IngestResponse{TransactionID: "txn_1", Status: "duplicate"}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewReader(ingestBody()))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleIngest_MissingFields(t *testing.T) {
	router, txService, _ := setupTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions",
		bytes.NewReader([]byte(`{"user_id": "user-1"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	txService.AssertNotCalled(t, "IngestTransaction", mock.Anything)
}

func TestHandleIngest_ServiceErrorMapping(t *testing.T) {
	router, txService, _ := setupTestRouter()

	txService.On("IngestTransaction", mock.Anything).
		Return(nil, errors.New("bad amount: "+models.ErrInvalid.Error())).Once()
	txService.On("IngestTransaction", mock.Anything).
		Return(nil, models.ErrInvalid).Once()

	// Обернутая доменная ошибка без errors.Is-цепочки — это 500
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewReader(ingestBody()))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/transactions", bytes.NewReader(ingestBody()))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTransaction_NotFound(t *testing.T) {
	router, txService, _ := setupTestRouter()

	txService.On("GetTransaction", "missing").Return(nil, models.ErrNotFound)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleDiscover_Success(t *testing.T) {
	router, _, patternService := setupTestRouter()

	patternService.On("Discover", "user-1", mock.AnythingOfType("*models.DiscoverRequest")).
		Return(&models.DiscoverResponse{
			Run: &models.DiscoveryRun{ID: "run_1", Status: models.RunCompleted},
		}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patterns/discover?user_id=user-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.DiscoverResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "run_1", resp.Run.ID)
}

func TestHandleDiscover_RequiresUserID(t *testing.T) {
	router, _, patternService := setupTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patterns/discover", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	patternService.AssertNotCalled(t, "Discover", mock.Anything, mock.Anything)
}

// Параллельный прогон discovery отвечает 409
func TestHandleDiscover_Conflict(t *testing.T) {
	router, _, patternService := setupTestRouter()

	patternService.On("Discover", "user-1", mock.Anything).
		Return(nil, models.ErrConflict)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patterns/discover?user_id=user-1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListPatterns_StatusFilterParsed(t *testing.T) {
	router, _, patternService := setupTestRouter()

	patternService.On("ListPatterns", "user-1", []string{"active", "paused"}).
		Return([]*models.Pattern{{ID: "pat_1"}}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patterns?user_id=user-1&status=active,paused", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	patternService.AssertExpectations(t)
}

func TestUpdatePattern_Actions(t *testing.T) {
	router, _, patternService := setupTestRouter()

	patternService.On("UpdatePattern", "pat_1", "pause").
		Return(&models.Pattern{ID: "pat_1", Status: models.PatternPaused}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/patterns/pat_1",
		bytes.NewReader([]byte(`{"action": "pause"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// Неизвестное действие режется валидацией до сервиса
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/api/v1/patterns/pat_1",
		bytes.NewReader([]byte(`{"action": "explode"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	patternService.AssertNotCalled(t, "UpdatePattern", "pat_1", "explode")
}

func TestDeletePattern_ConfirmFlag(t *testing.T) {
	router, _, patternService := setupTestRouter()

	patternService.On("DeletePattern", "pat_1", false).Return(nil).Once()
	patternService.On("DeletePattern", "pat_1", true).Return(nil).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/patterns/pat_1", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "archived")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/patterns/pat_1?confirm=true", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "deleted")

	patternService.AssertExpectations(t)
}

func TestGetObligations_StatusFilter(t *testing.T) {
	router, _, patternService := setupTestRouter()

	patternService.On("ListObligations", "pat_1", []string{"missed"}, mock.Anything, mock.Anything).
		Return([]*models.Obligation{{ID: "obl_1"}}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patterns/pat_1/obligations?status=missed", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "obl_1")
}

func TestListUpcoming_DaysHorizon(t *testing.T) {
	router, _, patternService := setupTestRouter()

	patternService.On("ListUpcoming", "user-1", mock.Anything, mock.Anything).
		Return([]*models.UpcomingObligation{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/obligations/upcoming?user_id=user-1&days=7", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/obligations/upcoming?user_id=user-1&days=-1", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListUpcoming_DateParsing(t *testing.T) {
	router, _, patternService := setupTestRouter()

	patternService.On("ListUpcoming", "user-1", mock.Anything, mock.Anything).
		Return([]*models.UpcomingObligation{}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/obligations/upcoming?user_id=user-1&from=2026-02-01&to=2026-03-01", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet,
		"/api/v1/obligations/upcoming?user_id=user-1&from=not-a-date", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRun(t *testing.T) {
	router, _, patternService := setupTestRouter()

	patternService.On("GetRun", "run_1").
		Return(&models.DiscoveryRun{ID: "run_1", Status: models.RunCompleted}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/run_1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
