package matcher

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recurring-patterns-system/internal/api/rest"
	"recurring-patterns-system/internal/config"
	"recurring-patterns-system/internal/kafka"
	"recurring-patterns-system/internal/models"
)

// StartMatcherService запускает сервис сопоставления обязательств
func StartMatcherService() {
	cfg := config.Load()

	deps, err := InitializeDependencies(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependencies: %v", err)
	}
	defer deps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Потребитель Kafka: каждое событие проходит через бюджет повторов
	consumer, err := kafka.NewConsumer(cfg, func(event *models.TransactionEvent) error {
		return processEvent(event, deps.Matcher, deps.KafkaProducer, cfg.Matcher)
	})
	if err != nil {
		log.Fatalf("Failed to create Kafka consumer: %v", err)
	}

	go func() {
		log.Println("Starting Kafka consumer...")
		if err := consumer.Start(ctx); err != nil {
			log.Printf("Consumer stopped: %v", err)
		}
	}()

	// Небольшой read-only API: health, events, match-stats
	router := rest.SetupMatcherRouter(deps.RedisClient)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MatcherServicePort),
		Handler: router,
	}

	go func() {
		log.Printf("Matcher Service starting on port %d", cfg.Server.MatcherServicePort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down matcher service...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Matcher service exited")
}
