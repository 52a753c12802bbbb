package responses

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/live-engine/internal/interactions"
	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/internal/testutil"
)

// pgActivePoll creates and activates a poll in a fresh live webinar.
func pgActivePoll(t *testing.T, pool *pgxpool.Pool) (*interactions.Repository, *models.Interaction) {
	t.Helper()
	ctx := context.Background()
	irepo := interactions.NewRepository(pool)
	webinarID := testutil.PostgresLiveWebinar(t, pool, false)
	settings, err := models.ParseSettings(models.VariantPoll, nil, models.BaseSettings{})
	require.NoError(t, err)
	i, err := models.NewDraft(webinarID, models.VariantPoll, "Pick one", "",
		[]models.OptionInput{{Text: "Red"}, {Text: "Blue"}}, settings)
	require.NoError(t, err)
	require.NoError(t, irepo.Create(ctx, i))
	i, _, err = irepo.Activate(ctx, i.ID, time.Now())
	require.NoError(t, err)
	return irepo, i
}

func pgResponse(interactionID, participantID uuid.UUID, option string) *models.Response {
	return &models.Response{
		InteractionID: interactionID,
		ParticipantID: participantID,
		Answer:        models.Answer{OptionID: option},
		SubmittedAt:   time.Now().UTC(),
	}
}

func TestRepositoryInsertKeepsFirstAnswer(t *testing.T) {
	pool := testutil.Postgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	_, i := pgActivePoll(t, pool)
	pid := uuid.New()

	stored, inserted, err := repo.Insert(ctx, pgResponse(i.ID, pid, "A"), true)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "A", stored.Answer.OptionID)

	stored, inserted, err = repo.Insert(ctx, pgResponse(i.ID, pid, "B"), true)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, "A", stored.Answer.OptionID)
}

func TestRepositoryUpsertOverwritesWhileActive(t *testing.T) {
	pool := testutil.Postgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	_, i := pgActivePoll(t, pool)
	pid := uuid.New()

	_, err := repo.Upsert(ctx, pgResponse(i.ID, pid, "A"))
	require.NoError(t, err)
	stored, err := repo.Upsert(ctx, pgResponse(i.ID, pid, "B"))
	require.NoError(t, err)
	assert.Equal(t, "B", stored.Answer.OptionID)

	list, err := repo.List(ctx, i.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRepositoryGuardedWritesAfterEnd(t *testing.T) {
	pool := testutil.Postgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	irepo, i := pgActivePoll(t, pool)
	answered, fresh, late := uuid.New(), uuid.New(), uuid.New()

	_, err := repo.Upsert(ctx, pgResponse(i.ID, answered, "A"))
	require.NoError(t, err)
	_, err = irepo.End(ctx, i.ID, time.Now())
	require.NoError(t, err)

	_, err = repo.Upsert(ctx, pgResponse(i.ID, answered, "B"))
	assert.ErrorIs(t, err, models.ErrConflict)
	stored, err := repo.Get(ctx, i.ID, answered)
	require.NoError(t, err)
	assert.Equal(t, "A", stored.Answer.OptionID, "ended interactions keep the last answer")

	_, err = repo.Upsert(ctx, pgResponse(i.ID, fresh, "B"))
	assert.ErrorIs(t, err, models.ErrConflict)
	_, _, err = repo.Insert(ctx, pgResponse(i.ID, fresh, "B"), true)
	assert.ErrorIs(t, err, models.ErrConflict)
	_, err = repo.Get(ctx, i.ID, fresh)
	assert.ErrorIs(t, err, models.ErrNotFound)

	stored, inserted, err := repo.Insert(ctx, pgResponse(i.ID, late, "B"), false)
	require.NoError(t, err)
	assert.True(t, inserted, "unguarded inserts record late answers")
	assert.Equal(t, "B", stored.Answer.OptionID)

	_, inserted, err = repo.Insert(ctx, pgResponse(i.ID, answered, "B"), false)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestRepositoryConcurrentInsertsStoreOne(t *testing.T) {
	pool := testutil.Postgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	_, i := pgActivePoll(t, pool)
	pid := uuid.New()

	const n = 10
	var wg sync.WaitGroup
	results := make(chan bool, n)
	for k := 0; k < n; k++ {
		wg.Add(1)
		go func(option string) {
			defer wg.Done()
			_, inserted, err := repo.Insert(ctx, pgResponse(i.ID, pid, option), true)
			assert.NoError(t, err)
			results <- inserted
		}([]string{"A", "B"}[k%2])
	}
	wg.Wait()
	close(results)

	inserted := 0
	for ok := range results {
		if ok {
			inserted++
		}
	}
	assert.Equal(t, 1, inserted)
	list, err := repo.List(ctx, i.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
