package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"recurring-patterns-system/internal/config"
	"recurring-patterns-system/internal/models"
)

// TTL блокировок и кешей
const (
	// DiscoveryLockTTL — страховка от зависшего discovery: блокировка
	// снимается сама, если процесс умер, не освободив её
	DiscoveryLockTTL = 10 * time.Minute

	// KeyLeaseTTL — аренда ключа группировки матчером
	KeyLeaseTTL = 30 * time.Second

	// PatternCacheTTL — кеш снимка паттернов пользователя
	PatternCacheTTL = time.Hour
)

type Client struct {
	rdb *redisv9.Client
}

func NewClient(cfg *config.Config) (*Client, error) {
	rdb := redisv9.NewClient(&redisv9.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx := context.Background()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// AcquireDiscoveryLock берет эксклюзивную блокировку discovery для пользователя.
// Возвращает false, если discovery уже идет: два одновременных прогона по
// одним данным — прямой путь к дублям паттернов.
func (c *Client) AcquireDiscoveryLock(userID string) (bool, error) {
	ctx := context.Background()
	key := fmt.Sprintf("discovery:lock:user:%s", userID)
	return c.rdb.SetNX(ctx, key, time.Now().Format(time.RFC3339), DiscoveryLockTTL).Result()
}

// ReleaseDiscoveryLock снимает блокировку discovery
func (c *Client) ReleaseDiscoveryLock(userID string) error {
	ctx := context.Background()
	key := fmt.Sprintf("discovery:lock:user:%s", userID)
	return c.rdb.Del(ctx, key).Err()
}

// AcquireKeyLease берет короткую аренду ключа группировки перед обработкой
// события матчером. Kafka уже сериализует события ключа внутри партиции;
// аренда защищает от гонки с discovery по тому же ключу.
func (c *Client) AcquireKeyLease(partitionKey string) (bool, error) {
	ctx := context.Background()
	key := fmt.Sprintf("lease:key:%s", partitionKey)
	return c.rdb.SetNX(ctx, key, time.Now().Format(time.RFC3339), KeyLeaseTTL).Result()
}

// ReleaseKeyLease снимает аренду ключа группировки
func (c *Client) ReleaseKeyLease(partitionKey string) error {
	ctx := context.Background()
	key := fmt.Sprintf("lease:key:%s", partitionKey)
	return c.rdb.Del(ctx, key).Err()
}

// SavePatternSnapshot кеширует снимок паттернов пользователя с TTL 1 час
func (c *Client) SavePatternSnapshot(userID string, patterns []*models.Pattern) error {
	ctx := context.Background()
	key := fmt.Sprintf("patterns:user:%s:snapshot", userID)

	data, err := json.Marshal(patterns)
	if err != nil {
		return fmt.Errorf("failed to marshal pattern snapshot: %w", err)
	}

	return c.rdb.Set(ctx, key, data, PatternCacheTTL).Err()
}

// GetPatternSnapshot получает кешированный снимок паттернов пользователя.
// Промах кеша возвращает nil без ошибки.
func (c *Client) GetPatternSnapshot(userID string) ([]*models.Pattern, error) {
	ctx := context.Background()
	key := fmt.Sprintf("patterns:user:%s:snapshot", userID)

	data, err := c.rdb.Get(ctx, key).Result()
	if err == redisv9.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern snapshot: %w", err)
	}

	var patterns []*models.Pattern
	if err := json.Unmarshal([]byte(data), &patterns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pattern snapshot: %w", err)
	}
	return patterns, nil
}

// InvalidatePatternSnapshot сбрасывает кеш после изменения паттернов
func (c *Client) InvalidatePatternSnapshot(userID string) error {
	ctx := context.Background()
	key := fmt.Sprintf("patterns:user:%s:snapshot", userID)
	return c.rdb.Del(ctx, key).Err()
}

// IncrementMatchStats увеличивает счетчик исходов сопоставления
// (fulfilled, missed, unmatched)
func (c *Client) IncrementMatchStats(outcome string) error {
	ctx := context.Background()
	key := fmt.Sprintf("match_stats:%s", outcome)
	return c.rdb.Incr(ctx, key).Err()
}

// GetMatchStats получает счетчик исходов сопоставления
func (c *Client) GetMatchStats(outcome string) (int64, error) {
	ctx := context.Background()
	key := fmt.Sprintf("match_stats:%s", outcome)
	count, err := c.rdb.Get(ctx, key).Int64()
	if err == redisv9.Nil {
		return 0, nil
	}
	return count, err
}
