package reactions

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aura-webinar/live-engine/internal/models"
)

const keyPrefix = "reactions:"

// RedisCounter shares counts across server instances with one hash per webinar.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter creates a Redis-backed counter.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func counterKey(webinarID uuid.UUID) string {
	return keyPrefix + webinarID.String()
}

func (r *RedisCounter) Incr(ctx context.Context, webinarID uuid.UUID, kind models.ReactionKind) error {
	return r.client.HIncrBy(ctx, counterKey(webinarID), string(kind), 1).Err()
}

func (r *RedisCounter) Counts(ctx context.Context, webinarID uuid.UUID) (models.ReactionCounts, error) {
	raw, err := r.client.HGetAll(ctx, counterKey(webinarID)).Result()
	if err != nil {
		return nil, err
	}
	counts := models.NewReactionCounts()
	for field, value := range raw {
		kind, err := models.ParseReactionKind(field)
		if err != nil {
			continue
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		counts[kind] = n
	}
	return counts, nil
}

func (r *RedisCounter) Reset(ctx context.Context, webinarID uuid.UUID) error {
	return r.client.Del(ctx, counterKey(webinarID)).Err()
}
