package questions

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/internal/testutil"
)

func pgQuestion(t *testing.T, repo *Repository, webinarID uuid.UUID, text string) *models.Question {
	t.Helper()
	q := &models.Question{WebinarID: webinarID, Text: text}
	require.NoError(t, repo.Create(context.Background(), q))
	return q
}

func TestRepositoryConcurrentUpvotesCountOncePerParticipant(t *testing.T) {
	pool := testutil.Postgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	q := pgQuestion(t, repo, testutil.PostgresLiveWebinar(t, pool, false), "What is next?")

	p1, p2 := uuid.New(), uuid.New()
	voters := []uuid.UUID{p1, p2, p1}
	var wg sync.WaitGroup
	added := make(chan bool, len(voters))
	for _, pid := range voters {
		wg.Add(1)
		go func(pid uuid.UUID) {
			defer wg.Done()
			_, ok, err := repo.Upvote(ctx, q.ID, pid)
			assert.NoError(t, err)
			added <- ok
		}(pid)
	}
	wg.Wait()
	close(added)

	count := 0
	for ok := range added {
		if ok {
			count++
		}
	}
	assert.Equal(t, 2, count)
	got, err := repo.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Upvotes)

	_, _, err = repo.Upvote(ctx, uuid.New(), p1)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRepositoryHighlightIsExclusive(t *testing.T) {
	pool := testutil.Postgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	webinarID := testutil.PostgresLiveWebinar(t, pool, false)
	a := pgQuestion(t, repo, webinarID, "First")
	b := pgQuestion(t, repo, webinarID, "Second")

	got, cleared, err := repo.Highlight(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.Highlighted)
	assert.Nil(t, cleared)

	got, cleared, err = repo.Highlight(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.Highlighted)
	require.NotNil(t, cleared)
	assert.Equal(t, a.ID, cleared.ID)

	got, err = repo.SetStatus(ctx, b.ID, models.QuestionAnswered)
	require.NoError(t, err)
	assert.False(t, got.Highlighted)
	assert.Equal(t, models.QuestionAnswered, got.Status)

	_, _, err = repo.Highlight(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRepositoryConcurrentHighlightsLeaveOne(t *testing.T) {
	pool := testutil.Postgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	webinarID := testutil.PostgresLiveWebinar(t, pool, false)

	const n = 6
	ids := make([]uuid.UUID, n)
	for k := range ids {
		ids[k] = pgQuestion(t, repo, webinarID, "Question").ID
	}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, _, err := repo.Highlight(ctx, id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	list, err := repo.List(ctx, webinarID)
	require.NoError(t, err)
	highlighted := 0
	for _, q := range list {
		if q.Highlighted {
			highlighted++
		}
	}
	assert.Equal(t, 1, highlighted)
}
