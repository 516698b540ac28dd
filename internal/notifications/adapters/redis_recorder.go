package adapters

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"user-lifecycle/internal/notifications/domain"
)

// DefaultStatsKey is the hash holding one counter per outcome
const DefaultStatsKey = "notifications:deliveries"

// RedisRecorder implements DeliveryRecorder with HINCRBY on a single hash
type RedisRecorder struct {
	client *redis.Client
	key    string
}

// NewRedisRecorder creates a recorder writing to key (DefaultStatsKey if empty)
func NewRedisRecorder(client *redis.Client, key string) *RedisRecorder {
	if key == "" {
		key = DefaultStatsKey
	}
	return &RedisRecorder{client: client, key: key}
}

// Record increments the counter of outcome
func (r *RedisRecorder) Record(ctx context.Context, outcome domain.Outcome) error {
	if err := r.client.HIncrBy(ctx, r.key, string(outcome), 1).Err(); err != nil {
		return fmt.Errorf("failed to record %s: %w", outcome, err)
	}
	return nil
}

// Stats reads every counter. Missing counters are zero.
func (r *RedisRecorder) Stats(ctx context.Context) (domain.DeliveryStats, error) {
	values, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return domain.DeliveryStats{}, fmt.Errorf("failed to read delivery stats: %w", err)
	}

	var stats domain.DeliveryStats
	for _, outcome := range domain.Outcomes {
		raw, ok := values[string(outcome)]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.DeliveryStats{}, fmt.Errorf("invalid counter %s=%q: %w", outcome, raw, err)
		}
		stats.Set(outcome, n)
	}
	return stats, nil
}
