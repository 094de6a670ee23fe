package pattern

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "recurring-patterns-system/docs" // Swagger docs
	"recurring-patterns-system/internal/api/rest"
	"recurring-patterns-system/internal/config"
)

// StartPatternService запускает сервис приема транзакций и discovery
func StartPatternService() {
	cfg := config.Load()

	deps, err := InitializeDependencies(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependencies: %v", err)
	}
	defer deps.Close()

	handlers := rest.NewHandlers(deps.TransactionService, deps.PatternService)
	router := rest.SetupRouter(handlers)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.PatternServicePort),
		Handler: router,
	}

	go func() {
		log.Printf("Pattern Service starting on port %d", cfg.Server.PatternServicePort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
