package redis

import (
	"context"
	"fmt"
)

// ClearPatternData очищает рабочие данные паттернов из Redis
// (кеши, счетчики и блокировки)
func (c *Client) ClearPatternData() error {
	ctx := context.Background()

	patterns := []string{
		"patterns:user:*",
		"match_stats:*",
		"discovery:lock:*",
		"lease:key:*",
	}

	for _, pattern := range patterns {
		iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			c.rdb.Del(ctx, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to clear pattern %s: %w", pattern, err)
		}
	}

	return nil
}
