package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"recurring-patterns-system/internal/logger"
	"recurring-patterns-system/internal/redis"
)

// CORSMiddleware возвращает middleware для обработки CORS
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// SetupCommonEndpoints добавляет общие endpoints (health, events, stats) к роутеру
func SetupCommonEndpoints(router *gin.Engine) {
	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Events endpoint
	router.GET("/api/v1/events", func(c *gin.Context) {
		limit := 100
		if limitStr := c.Query("limit"); limitStr != "" {
			if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 500 {
				limit = parsed
			}
		}
		events := logger.GetEvents(limit)
		c.JSON(http.StatusOK, gin.H{"events": events})
	})

	// Stats endpoint
	router.GET("/api/v1/stats", func(c *gin.Context) {
		stats := logger.GetStats()
		c.JSON(http.StatusOK, stats)
	})
}

// SetupRouter настраивает маршруты REST API pattern-сервиса
func SetupRouter(handlers *Handlers) *gin.Engine {
	router := gin.Default()

	router.Use(CORSMiddleware())
	router.Use(gin.Logger(), gin.Recovery())

	// Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	api := router.Group("/api/v1")
	{
		api.POST("/transactions", handlers.HandleIngest)
		api.GET("/transactions/:id", handlers.GetTransaction)
		api.POST("/transactions/generate", handlers.GenerateTransactions)

		api.POST("/patterns/discover", handlers.HandleDiscover)
		api.GET("/patterns", handlers.ListPatterns)
		api.GET("/patterns/:id", handlers.GetPattern)
		api.PATCH("/patterns/:id", handlers.UpdatePattern)
		api.DELETE("/patterns/:id", handlers.DeletePattern)
		api.GET("/patterns/:id/obligations", handlers.GetObligations)

		api.GET("/obligations/upcoming", handlers.ListUpcoming)
		api.GET("/runs/:id", handlers.GetRun)
	}

	SetupCommonEndpoints(router)

	return router
}

// SetupMatcherRouter настраивает небольшой read-only API matcher-сервиса
func SetupMatcherRouter(redisClient redis.ClientInterface) *gin.Engine {
	router := gin.Default()

	router.Use(CORSMiddleware())
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/api/v1/match-stats", func(c *gin.Context) {
		stats := make(map[string]int64)
		for _, outcome := range []string{"fulfilled", "missed", "unmatched"} {
			count, err := redisClient.GetMatchStats(outcome)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			stats[outcome] = count
		}
		c.JSON(http.StatusOK, stats)
	})

	SetupCommonEndpoints(router)

	return router
}
