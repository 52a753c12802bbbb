package reactions

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/live-engine/internal/models"
)

func TestRedisCounter(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	ctx := context.Background()
	require.NoError(t, client.Ping(ctx).Err())

	counter := NewRedisCounter(client)
	webinarID := uuid.New()
	t.Cleanup(func() { counter.Reset(ctx, webinarID) })

	require.NoError(t, counter.Incr(ctx, webinarID, models.ReactionRepeat))
	require.NoError(t, counter.Incr(ctx, webinarID, models.ReactionRepeat))

	counts, err := counter.Counts(ctx, webinarID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.ReactionRepeat])
	assert.Equal(t, int64(0), counts[models.ReactionExcellent])

	require.NoError(t, counter.Reset(ctx, webinarID))
	counts, err = counter.Counts(ctx, webinarID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts[models.ReactionRepeat])
}
