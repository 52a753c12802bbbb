package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/internal/webinars"
	"github.com/aura-webinar/live-engine/pkg/database"
)

// Postgres connects to TEST_DATABASE_URL and applies the migrations. The test is
// skipped when the variable is unset. Tests share the database, so each one works
// under fresh webinar ids.
func Postgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, database.Migrate(ctx, pool))
	return pool
}

// PostgresLiveWebinar registers a webinar row and starts it.
func PostgresLiveWebinar(t *testing.T, pool *pgxpool.Pool, allowLate bool) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	repo := webinars.NewRepository(pool)
	w := &models.Webinar{HostID: uuid.New(), AllowLateResponses: allowLate}
	require.NoError(t, repo.Create(ctx, w))
	_, err := repo.Transition(ctx, w.ID, []models.WebinarStatus{models.WebinarScheduled}, models.WebinarLive, time.Now())
	require.NoError(t, err)
	return w.ID
}
