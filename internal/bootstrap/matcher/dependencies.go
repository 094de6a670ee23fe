package matcher

import (
	"log"

	"recurring-patterns-system/internal/config"
	"recurring-patterns-system/internal/kafka"
	matcherpkg "recurring-patterns-system/internal/matcher"
	"recurring-patterns-system/internal/redis"
	"recurring-patterns-system/internal/storage"
	"recurring-patterns-system/internal/storage/sqlite"
)

// Dependencies содержит все зависимости matcher-сервиса
type Dependencies struct {
	StorageConn   *sqlite.SQLiteStorage
	PatternRepo   storage.PatternRepository
	RedisClient   *redis.Client
	KafkaProducer kafka.Producer
	Matcher       *matcherpkg.Matcher
}

// InitializeDependencies инициализирует все зависимости matcher-сервиса
func InitializeDependencies(cfg *config.Config) (*Dependencies, error) {
	storageConn, err := sqlite.NewConnection(cfg)
	if err != nil {
		return nil, err
	}

	patternRepo := sqlite.NewPatternRepository(storageConn)

	log.Println("Connecting to Redis...")
	redisClient, err := redis.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Redis connection established")

	// Продюсер здесь только для dead-letter топика
	log.Println("Connecting to Kafka...")
	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Kafka producer connected successfully")

	m := matcherpkg.NewMatcher(patternRepo, redisClient, cfg.Matcher)

	return &Dependencies{
		StorageConn:   storageConn,
		PatternRepo:   patternRepo,
		RedisClient:   redisClient,
		KafkaProducer: producer,
		Matcher:       m,
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
