package pattern

import (
	"log"

	"recurring-patterns-system/internal/config"
	"recurring-patterns-system/internal/kafka"
	"recurring-patterns-system/internal/redis"
	"recurring-patterns-system/internal/services"
	"recurring-patterns-system/internal/storage"
	"recurring-patterns-system/internal/storage/sqlite"
	"recurring-patterns-system/internal/summary"
)

// Dependencies содержит все зависимости pattern-сервиса
type Dependencies struct {
	StorageConn        *sqlite.SQLiteStorage
	TransactionRepo    storage.TransactionRepository
	PatternRepo        storage.PatternRepository
	KafkaProducer      kafka.Producer
	RedisClient        *redis.Client
	TransactionService services.TransactionService
	PatternService     services.PatternService
}

// InitializeDependencies инициализирует все зависимости pattern-сервиса
func InitializeDependencies(cfg *config.Config) (*Dependencies, error) {
	storageConn, err := sqlite.NewConnection(cfg)
	if err != nil {
		return nil, err
	}

	transactionRepo := sqlite.NewTransactionRepository(storageConn)
	patternRepo := sqlite.NewPatternRepository(storageConn)

	log.Println("Connecting to Kafka...")
	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Kafka producer connected successfully")

	log.Println("Connecting to Redis...")
	redisClient, err := redis.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Redis connection established")

	transactionService := services.NewTransactionService(transactionRepo, producer)
	patternService := services.NewPatternService(
		transactionRepo, patternRepo, redisClient, summary.NewTemplateSummarizer())

	return &Dependencies{
		StorageConn:        storageConn,
		TransactionRepo:    transactionRepo,
		PatternRepo:        patternRepo,
		KafkaProducer:      producer,
		RedisClient:        redisClient,
		TransactionService: transactionService,
		PatternService:     patternService,
	}, nil
}

// Close закрывает все соединения
func (d *Dependencies) Close() error {
	if d.KafkaProducer != nil {
		if err := d.KafkaProducer.Close(); err != nil {
			return err
		}
	}
	if d.RedisClient != nil {
		if err := d.RedisClient.Close(); err != nil {
			return err
		}
	}
	if d.StorageConn != nil {
		if err := d.StorageConn.Close(); err != nil {
			return err
		}
	}
	return nil
}
