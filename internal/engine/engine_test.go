package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-webinar/live-engine/internal/interactions"
	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/internal/presence"
	"github.com/aura-webinar/live-engine/internal/questions"
	"github.com/aura-webinar/live-engine/internal/reactions"
	"github.com/aura-webinar/live-engine/internal/realtime"
	"github.com/aura-webinar/live-engine/internal/responses"
	"github.com/aura-webinar/live-engine/internal/testutil"
	"github.com/aura-webinar/live-engine/internal/webinars"
	"github.com/aura-webinar/live-engine/pkg/retry"
)

type recordingScheduler struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (r *recordingScheduler) Schedule(_ context.Context, i *models.Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, i.ID)
	return nil
}

func (r *recordingScheduler) scheduled() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uuid.UUID(nil), r.ids...)
}

// flakyGetter fails the first `failures` reads with a transient error.
type flakyGetter struct {
	responses.InteractionGetter
	mu       sync.Mutex
	failures int
}

func (f *flakyGetter) Get(ctx context.Context, id uuid.UUID) (*models.Interaction, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return nil, errors.New("connection reset by peer")
	}
	f.mu.Unlock()
	return f.InteractionGetter.Get(ctx, id)
}

type harness struct {
	engine    *Engine
	pub       *testutil.Publisher
	sched     *recordingScheduler
	flaky     *flakyGetter
	webinarID uuid.UUID
}

// harnessStores overrides the memory stores a harness is built on.
type harnessStores struct {
	interactions interactions.Store
	responses    responses.Store
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, harnessStores{})
}

func newHarnessWith(t *testing.T, st harnessStores) *harness {
	t.Helper()
	if st.interactions == nil {
		st.interactions = interactions.NewMemory()
	}
	if st.responses == nil {
		st.responses = responses.NewMemory()
	}
	pub := &testutil.Publisher{}
	ws := webinars.NewMemory(false)
	ctrl := interactions.NewController(st.interactions, ws, pub, nil)
	flaky := &flakyGetter{InteractionGetter: ctrl}
	sessions := presence.NewMemorySessionLog()
	tracker := presence.NewTracker(0, presence.NewHooks(pub, sessions, nil))
	t.Cleanup(tracker.Close)
	sched := &recordingScheduler{}
	e := New(Components{
		Webinars:     ws,
		Interactions: ctrl,
		Responses:    responses.NewAggregator(st.responses, flaky, pub, nil),
		Questions:    questions.NewQueue(questions.NewMemory(), ws, pub, nil),
		Reactions:    reactions.NewService(reactions.NewMemoryCounter(), nil, pub, nil),
		Presence:     tracker,
		Sessions:     sessions,
		Snapshots:    sched,
	}, retry.Policy{Attempts: 3, Backoff: time.Millisecond}, nil)

	w, err := e.Host.RegisterWebinar(context.Background(), uuid.New(), uuid.Nil, false)
	require.NoError(t, err)
	_, err = e.Host.StartWebinar(context.Background(), w.ID)
	require.NoError(t, err)
	return &harness{engine: e, pub: pub, sched: sched, flaky: flaky, webinarID: w.ID}
}

func (h *harness) poll(t *testing.T) *models.Interaction {
	t.Helper()
	i, err := h.engine.Host.CreateInteraction(context.Background(), interactions.CreateParams{
		WebinarID: h.webinarID,
		Variant:   models.VariantPoll,
		Title:     "Ready?",
		Options:   []models.OptionInput{{Text: "Yes"}, {Text: "No"}},
	})
	require.NoError(t, err)
	return i
}

func TestPollEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	host, participant := h.engine.Host, h.engine.Participant

	poll := h.poll(t)
	_, err := host.ActivateInteraction(ctx, poll.ID)
	require.NoError(t, err)

	active, err := participant.ActiveInteraction(ctx, h.webinarID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, poll.ID, active.ID)

	for _, answer := range []string{"A", "A", "B"} {
		_, err := participant.SubmitResponse(ctx, poll.ID, uuid.New(), models.Answer{OptionID: answer})
		require.NoError(t, err)
	}

	_, err = participant.VisibleTally(ctx, poll.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)
	tally, err := host.Tally(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 67, tally.Percentages["A"])

	h.pub.Reset()
	_, err = host.EndInteraction(ctx, poll.ID)
	require.NoError(t, err)
	ev, ok := h.pub.Last(realtime.EventTallyUpdated, realtime.AudienceParticipants)
	require.True(t, ok, "final tally goes to participants on end")
	assert.Equal(t, models.StatusEnded, ev.Data.(responses.TallyPayload).Tally.Status)
	assert.Equal(t, []uuid.UUID{poll.ID}, h.sched.scheduled())

	_, err = host.EndInteraction(ctx, poll.ID)
	require.NoError(t, err)
	assert.Len(t, h.sched.scheduled(), 1, "ending twice schedules one snapshot")

	visible, err := participant.VisibleTally(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, visible.Total)
}

func TestImplicitEndSchedulesSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	x, y := h.poll(t), h.poll(t)

	_, err := h.engine.Host.ActivateInteraction(ctx, x.ID)
	require.NoError(t, err)
	_, err = h.engine.Host.ActivateInteraction(ctx, y.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{x.ID}, h.sched.scheduled())

	_, err = h.engine.Host.EndWebinar(ctx, h.webinarID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{x.ID, y.ID}, h.sched.scheduled())

	active, err := h.engine.Participant.ActiveInteraction(ctx, h.webinarID)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestTransientErrorsAreRetried(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	poll := h.poll(t)
	_, err := h.engine.Host.ActivateInteraction(ctx, poll.ID)
	require.NoError(t, err)

	h.flaky.failures = 2
	_, err = h.engine.Participant.SubmitResponse(ctx, poll.ID, uuid.New(), models.Answer{OptionID: "A"})
	require.NoError(t, err)

	h.flaky.failures = 5
	_, err = h.engine.Participant.SubmitResponse(ctx, poll.ID, uuid.New(), models.Answer{OptionID: "A"})
	assert.Error(t, err)
	assert.False(t, models.IsDomainError(err))
}

// lostAck commits writes but reports a transient failure for the first ones.
type lostAck struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (l *lostAck) fail() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.failures > 0 {
		l.failures--
		return true
	}
	return false
}

type lostAckResponses struct {
	*responses.Memory
	lostAck
}

func (l *lostAckResponses) Insert(ctx context.Context, r *models.Response, requireActive bool) (*models.Response, bool, error) {
	stored, inserted, err := l.Memory.Insert(ctx, r, requireActive)
	if err == nil && l.fail() {
		return nil, false, errors.New("connection reset by peer")
	}
	return stored, inserted, err
}

type lostAckInteractions struct {
	*interactions.Memory
	lostAck
}

func (l *lostAckInteractions) Create(ctx context.Context, i *models.Interaction) error {
	if err := l.Memory.Create(ctx, i); err != nil {
		return err
	}
	if l.fail() {
		return errors.New("connection reset by peer")
	}
	return nil
}

func TestCommittedWritesAreNotRetried(t *testing.T) {
	ctx := context.Background()

	t.Run("quiz answer", func(t *testing.T) {
		store := &lostAckResponses{Memory: responses.NewMemory()}
		h := newHarnessWith(t, harnessStores{responses: store})
		quiz, err := h.engine.Host.CreateInteraction(ctx, interactions.CreateParams{
			WebinarID: h.webinarID,
			Variant:   models.VariantQuiz,
			Title:     "2+2",
			Options:   []models.OptionInput{{Text: "4", IsCorrect: true}, {Text: "5"}},
		})
		require.NoError(t, err)
		_, err = h.engine.Host.ActivateInteraction(ctx, quiz.ID)
		require.NoError(t, err)

		store.failures = 1
		p := uuid.New()
		_, err = h.engine.Participant.SubmitResponse(ctx, quiz.ID, p, models.Answer{OptionID: "A"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, models.ErrAlreadyAnswered)
		assert.Equal(t, 1, store.calls)

		stored, err := h.engine.c.Responses.Response(ctx, quiz.ID, p)
		require.NoError(t, err)
		assert.Equal(t, "A", stored.Answer.OptionID)
	})

	t.Run("create interaction", func(t *testing.T) {
		store := &lostAckInteractions{Memory: interactions.NewMemory()}
		h := newHarnessWith(t, harnessStores{interactions: store})
		store.failures = 1
		_, err := h.engine.Host.CreateInteraction(ctx, interactions.CreateParams{
			WebinarID: h.webinarID,
			Variant:   models.VariantCheckin,
			Title:     "Here?",
		})
		require.Error(t, err)

		list, err := h.engine.Host.ListInteractions(ctx, h.webinarID)
		require.NoError(t, err)
		assert.Len(t, list, 1, "no duplicate draft")
	})
}

func TestPolicyErrorsAreNotRetried(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	quiz, err := h.engine.Host.CreateInteraction(ctx, interactions.CreateParams{
		WebinarID: h.webinarID,
		Variant:   models.VariantQuiz,
		Title:     "2+2",
		Options:   []models.OptionInput{{Text: "4", IsCorrect: true}, {Text: "5"}},
	})
	require.NoError(t, err)
	_, err = h.engine.Host.ActivateInteraction(ctx, quiz.ID)
	require.NoError(t, err)

	p := uuid.New()
	_, err = h.engine.Participant.SubmitResponse(ctx, quiz.ID, p, models.Answer{OptionID: "A"})
	require.NoError(t, err)
	start := time.Now()
	_, err = h.engine.Participant.SubmitResponse(ctx, quiz.ID, p, models.Answer{OptionID: "B"})
	assert.ErrorIs(t, err, models.ErrAlreadyAnswered)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestQuestionsThroughParticipantAPI(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p1, p2 := uuid.New(), uuid.New()

	q, err := h.engine.Participant.AskQuestion(ctx, h.webinarID, p1, "Slides?", true)
	require.NoError(t, err)
	assert.Nil(t, q.AuthorID)

	_, err = h.engine.Participant.UpvoteQuestion(ctx, q.ID, p1)
	require.NoError(t, err)
	_, err = h.engine.Participant.UpvoteQuestion(ctx, q.ID, p2)
	require.NoError(t, err)
	up, err := h.engine.Participant.UpvoteQuestion(ctx, q.ID, p2)
	require.NoError(t, err)
	assert.Equal(t, 2, up.Upvotes)

	_, err = h.engine.Host.Hide(ctx, q.ID)
	require.NoError(t, err)
	visible, err := h.engine.Participant.ListQuestions(ctx, h.webinarID)
	require.NoError(t, err)
	assert.Empty(t, visible)
	all, err := h.engine.Host.ListQuestions(ctx, h.webinarID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSnapshotByRole(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	quiz, err := h.engine.Host.CreateInteraction(ctx, interactions.CreateParams{
		WebinarID: h.webinarID,
		Variant:   models.VariantQuiz,
		Title:     "2+2",
		Options:   []models.OptionInput{{Text: "4", IsCorrect: true}, {Text: "5"}},
	})
	require.NoError(t, err)
	_, err = h.engine.Host.ActivateInteraction(ctx, quiz.ID)
	require.NoError(t, err)
	require.NoError(t, h.engine.Participant.SendReaction(ctx, h.webinarID, uuid.New(), "excellent"))
	h.engine.c.Presence.Connect(h.webinarID, uuid.New())

	raw, err := h.engine.Snapshot(ctx, h.webinarID, realtime.RoleParticipant)
	require.NoError(t, err)
	snap := raw.(StateSnapshot)
	require.NotNil(t, snap.Active)
	assert.False(t, snap.Active.Options[0].IsCorrect)
	assert.Nil(t, snap.Tally, "results are hidden while the quiz runs")
	assert.Equal(t, int64(1), snap.Reactions[models.ReactionExcellent])
	assert.Equal(t, 1, snap.Presence)

	raw, err = h.engine.Snapshot(ctx, h.webinarID, realtime.RoleHost)
	require.NoError(t, err)
	snap = raw.(StateSnapshot)
	assert.True(t, snap.Active.Options[0].IsCorrect)
	assert.NotNil(t, snap.Tally)
}

func TestHandleInbound(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := &realtime.Subscriber{WebinarID: h.webinarID, ParticipantID: uuid.New(), Role: realtime.RoleParticipant}

	require.NoError(t, h.engine.HandleInbound(ctx, s, EventSendReaction, json.RawMessage(`{"kind":"understood"}`)))
	counts, err := h.engine.Host.ReactionCounts(ctx, h.webinarID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.ReactionUnderstood])

	err = h.engine.HandleInbound(ctx, s, EventSendReaction, json.RawMessage(`{"kind":"boo"}`))
	assert.ErrorIs(t, err, models.ErrValidation)
	err = h.engine.HandleInbound(ctx, s, "launch_poll", nil)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestPresenceInfo(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	h.engine.c.Presence.Connect(h.webinarID, a)
	h.engine.c.Presence.Connect(h.webinarID, b)
	h.engine.c.Presence.Disconnect(h.webinarID, b)
	h.engine.c.Presence.Connect(h.webinarID, b)

	require.Eventually(t, func() bool {
		info, err := h.engine.Host.Presence(ctx, h.webinarID)
		return err == nil && len(info.Sessions) == 3
	}, time.Second, 5*time.Millisecond)
	info, err := h.engine.Host.Presence(ctx, h.webinarID)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Count)
	assert.Equal(t, 2, info.Peak)
	assert.Equal(t, 2, info.UniqueParticipants)
}

func TestEndWebinarClosesPresence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	h.engine.c.Presence.Connect(h.webinarID, a)
	h.engine.c.Presence.Connect(h.webinarID, b)

	_, err := h.engine.Host.EndWebinar(ctx, h.webinarID)
	require.NoError(t, err)
	assert.Zero(t, h.engine.c.Presence.Count(h.webinarID))
	ev, ok := h.pub.Last(realtime.EventPresenceUpdated, realtime.AudienceAll)
	require.True(t, ok)
	assert.Equal(t, 0, ev.Data.(realtime.PresencePayload).Count)

	require.Eventually(t, func() bool {
		info, err := h.engine.Host.Presence(ctx, h.webinarID)
		if err != nil || len(info.Sessions) != 2 {
			return false
		}
		for _, s := range info.Sessions {
			if s.DisconnectedAt == nil {
				return false
			}
		}
		return true
	}, time.Second, 5*time.Millisecond, "every session is closed when the webinar ends")

	// A late disconnect from a socket that outlived the webinar changes nothing.
	h.engine.c.Presence.Disconnect(h.webinarID, a)
	assert.Zero(t, h.engine.c.Presence.Count(h.webinarID))
}

func TestReactionsNeedLiveWebinar(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := uuid.New()

	err := h.engine.Participant.SendReaction(ctx, uuid.New(), p, "excellent")
	assert.ErrorIs(t, err, models.ErrNotFound)

	scheduled, err := h.engine.Host.RegisterWebinar(ctx, uuid.New(), uuid.Nil, false)
	require.NoError(t, err)
	err = h.engine.Participant.SendReaction(ctx, scheduled.ID, p, "excellent")
	assert.ErrorIs(t, err, models.ErrInvalidState)

	require.NoError(t, h.engine.Participant.SendReaction(ctx, h.webinarID, p, "excellent"))
	_, err = h.engine.Host.EndWebinar(ctx, h.webinarID)
	require.NoError(t, err)
	err = h.engine.Participant.SendReaction(ctx, h.webinarID, p, "excellent")
	assert.ErrorIs(t, err, models.ErrInvalidState)

	counts, err := h.engine.Host.ReactionCounts(ctx, h.webinarID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.ReactionExcellent], "counts stay readable after the webinar ends")
}
