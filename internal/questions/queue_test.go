package questions

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/internal/realtime"
	"github.com/aura-webinar/live-engine/internal/testutil"
	"github.com/aura-webinar/live-engine/internal/webinars"
)

func newQueue(t *testing.T) (*Queue, *testutil.Publisher, uuid.UUID) {
	t.Helper()
	ws := webinars.NewMemory(false)
	pub := &testutil.Publisher{}
	webinarID := testutil.LiveWebinar(t, ws, false)
	return NewQueue(NewMemory(), ws, pub, nil), pub, webinarID
}

func TestAsk(t *testing.T) {
	q, pub, webinarID := newQueue(t)
	ctx := context.Background()
	author := uuid.New()

	question, err := q.Ask(ctx, webinarID, &author, "  How does it scale?  ")
	require.NoError(t, err)
	assert.Equal(t, "How does it scale?", question.Text)
	assert.Equal(t, models.QuestionPending, question.Status)
	assert.Zero(t, question.Upvotes)

	ev, ok := pub.Last(realtime.EventQuestionAdded, realtime.AudienceParticipants)
	require.True(t, ok)
	assert.Nil(t, ev.Data.(realtime.QuestionPayload).Question.AuthorID)
	ev, ok = pub.Last(realtime.EventQuestionAdded, realtime.AudienceHosts)
	require.True(t, ok)
	assert.Equal(t, &author, ev.Data.(realtime.QuestionPayload).Question.AuthorID)

	_, err = q.Ask(ctx, webinarID, nil, "   ")
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = q.Ask(ctx, webinarID, nil, strings.Repeat("é", models.MaxQuestionLength+1))
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = q.Ask(ctx, webinarID, nil, strings.Repeat("é", models.MaxQuestionLength))
	assert.NoError(t, err)
	_, err = q.Ask(ctx, uuid.New(), nil, "anyone?")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestConcurrentUpvotesCountOncePerParticipant(t *testing.T) {
	q, _, webinarID := newQueue(t)
	ctx := context.Background()
	question, err := q.Ask(ctx, webinarID, nil, "Is it recorded?")
	require.NoError(t, err)

	alice, bob := uuid.New(), uuid.New()
	var wg sync.WaitGroup
	for _, voter := range []uuid.UUID{alice, bob, alice} {
		wg.Add(1)
		go func(p uuid.UUID) {
			defer wg.Done()
			_, err := q.Upvote(ctx, question.ID, p)
			assert.NoError(t, err)
		}(voter)
	}
	wg.Wait()

	list, err := q.List(ctx, webinarID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Upvotes)
}

func TestUpvoteUnknownQuestion(t *testing.T) {
	q, _, _ := newQueue(t)
	_, err := q.Upvote(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestListOrder(t *testing.T) {
	q, _, webinarID := newQueue(t)
	ctx := context.Background()

	first, err := q.Ask(ctx, webinarID, nil, "first")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, err := q.Ask(ctx, webinarID, nil, "second")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	third, err := q.Ask(ctx, webinarID, nil, "third")
	require.NoError(t, err)

	_, err = q.Upvote(ctx, third.ID, uuid.New())
	require.NoError(t, err)

	list, err := q.List(ctx, webinarID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, third.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID, "ties go to the oldest question")
	assert.Equal(t, second.ID, list[2].ID)
}

func TestHighlightIsExclusive(t *testing.T) {
	q, pub, webinarID := newQueue(t)
	ctx := context.Background()
	a, err := q.Ask(ctx, webinarID, nil, "a")
	require.NoError(t, err)
	b, err := q.Ask(ctx, webinarID, nil, "b")
	require.NoError(t, err)

	_, err = q.Highlight(ctx, a.ID)
	require.NoError(t, err)
	pub.Reset()
	_, err = q.Highlight(ctx, b.ID)
	require.NoError(t, err)

	list, err := q.List(ctx, webinarID)
	require.NoError(t, err)
	highlighted := 0
	for _, question := range list {
		if question.Highlighted {
			highlighted++
			assert.Equal(t, b.ID, question.ID)
		}
	}
	assert.Equal(t, 1, highlighted)
	assert.Len(t, pub.Events(), 4, "cleared and new highlight, each to hosts and participants")
}

func TestConcurrentHighlights(t *testing.T) {
	q, _, webinarID := newQueue(t)
	ctx := context.Background()
	var ids []uuid.UUID
	for i := 0; i < 10; i++ {
		question, err := q.Ask(ctx, webinarID, nil, "q")
		require.NoError(t, err)
		ids = append(ids, question.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID) {
			defer wg.Done()
			_, err := q.Highlight(ctx, id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	list, err := q.List(ctx, webinarID)
	require.NoError(t, err)
	highlighted := 0
	for _, question := range list {
		if question.Highlighted {
			highlighted++
		}
	}
	assert.Equal(t, 1, highlighted)
}

func TestModeration(t *testing.T) {
	q, pub, webinarID := newQueue(t)
	ctx := context.Background()
	author := uuid.New()
	question, err := q.Ask(ctx, webinarID, &author, "rude")
	require.NoError(t, err)
	kept, err := q.Ask(ctx, webinarID, &author, "fine")
	require.NoError(t, err)

	_, err = q.Highlight(ctx, question.ID)
	require.NoError(t, err)
	hidden, err := q.Hide(ctx, question.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionHidden, hidden.Status)
	assert.False(t, hidden.Highlighted)

	ev, ok := pub.Last(realtime.EventQuestionUpdated, realtime.AudienceParticipants)
	require.True(t, ok)
	assert.Empty(t, ev.Data.(realtime.QuestionPayload).Question.Text)

	visible, err := q.ListVisible(ctx, webinarID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, kept.ID, visible[0].ID)
	assert.Nil(t, visible[0].AuthorID)

	all, err := q.List(ctx, webinarID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = q.Highlight(ctx, question.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
	_, err = q.Upvote(ctx, question.ID, uuid.New())
	assert.ErrorIs(t, err, models.ErrInvalidState)

	answered, err := q.MarkAnswered(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuestionAnswered, answered.Status)

	pub.Reset()
	_, err = q.MarkAnswered(ctx, kept.ID)
	require.NoError(t, err)
	assert.Empty(t, pub.Events(), "repeating a moderation action emits nothing")

	_, err = q.MarkAnswered(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}
