package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DB      DBConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Server  ServerConfig
	Matcher MatcherConfig
}

type DBConfig struct {
	DBPath string // Путь к файлу SQLite
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

type KafkaConfig struct {
	Brokers          []string
	TransactionTopic string
	DeadLetterTopic  string
	ConsumerGroupID  string
}

type ServerConfig struct {
	PatternServicePort int
	MatcherServicePort int
}

type MatcherConfig struct {
	// MatchAmountStrict включает проверку суммы при сопоставлении
	// (по умолчанию сопоставление только по дате)
	MatchAmountStrict bool
	// MultiPatternFulfill разрешает одной транзакции закрывать
	// обязательства нескольких паттернов (по умолчанию first-match-wins)
	MultiPatternFulfill bool
	// RetryBudget — число попыток обработки события до dead-letter
	RetryBudget int
}

func Load() *Config {
	// Загружаем .env файл, если он существует
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		DB: DBConfig{
			DBPath: getEnv("DB_PATH", "./data/recurring_patterns.db"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Kafka: KafkaConfig{
			Brokers:          []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			TransactionTopic: getEnv("KAFKA_TRANSACTION_TOPIC", "finance.transactions.created"),
			DeadLetterTopic:  getEnv("KAFKA_DEAD_LETTER_TOPIC", "finance.transactions.dead-letter"),
			ConsumerGroupID:  getEnv("KAFKA_CONSUMER_GROUP", "pattern-matcher-group"),
		},
		Server: ServerConfig{
			PatternServicePort: getEnvAsInt("PATTERN_SERVICE_PORT", 8080),
			MatcherServicePort: getEnvAsInt("MATCHER_SERVICE_PORT", 8081),
		},
		Matcher: MatcherConfig{
			MatchAmountStrict:   getEnvAsBool("MATCH_AMOUNT_STRICT", false),
			MultiPatternFulfill: getEnvAsBool("MATCH_MULTI_PATTERN", false),
			RetryBudget:         getEnvAsInt("MATCHER_RETRY_BUDGET", 5),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
