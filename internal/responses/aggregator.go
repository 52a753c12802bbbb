package responses

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/internal/realtime"
	"github.com/aura-webinar/live-engine/pkg/retry"
)

// TallyPayload is sent with tallyUpdated.
type TallyPayload struct {
	WebinarID     uuid.UUID `json:"webinar_id"`
	InteractionID uuid.UUID `json:"interaction_id"`
	Tally         *Tally    `json:"tally"`
}

// Aggregator admits responses and keeps subscribers' tallies current.
type Aggregator struct {
	store        Store
	interactions InteractionGetter
	pub          realtime.Publisher
	logger       *zap.Logger
	now          func() time.Time

	// tallies orders tally broadcasts per interaction.
	tallyMu sync.Mutex
	tallies map[uuid.UUID]*tallyRevision
}

// tallyRevision tracks the last revision handed out and the last one published.
type tallyRevision struct {
	next      uint64
	published uint64
}

// NewAggregator creates a response aggregator.
func NewAggregator(store Store, interactions InteractionGetter, pub realtime.Publisher, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		store:        store,
		interactions: interactions,
		pub:          pub,
		logger:       logger,
		now:          time.Now,
		tallies:      make(map[uuid.UUID]*tallyRevision),
	}
}

// SetClock overrides the time source.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// Submit admits one response. Checks run in order: draft, late, then the per-variant
// resubmission rule. A stored response is returned; acknowledgement variants return
// the first response unchanged on resubmission.
//
// The status check and the write happen under the webinar's status hold, so an
// interaction cannot end between them.
func (a *Aggregator) Submit(ctx context.Context, interactionID, participantID uuid.UUID, answer models.Answer) (*models.Response, error) {
	i, err := a.interactions.Get(ctx, interactionID)
	if err != nil {
		return nil, err
	}
	release := a.interactions.HoldStatus(i.WebinarID)
	stored, recorded, err := a.admit(ctx, interactionID, participantID, answer)
	// A guarded write lost to a transition made elsewhere; judge again on the new status.
	if errors.Is(err, models.ErrConflict) {
		stored, recorded, err = a.admit(ctx, interactionID, participantID, answer)
	}
	release()
	if err != nil || !recorded {
		return stored, err
	}

	a.logger.Debug("response recorded",
		zap.String("interaction_id", interactionID.String()),
		zap.String("participant_id", participantID.String()))

	if err := a.PublishTally(ctx, i); err != nil {
		a.logger.Warn("tally publish failed", zap.String("interaction_id", interactionID.String()), zap.Error(err))
	}
	return stored, nil
}

// admit re-reads the interaction and applies the admission rules. recorded is false
// when an acknowledgement resubmission left the store untouched.
func (a *Aggregator) admit(ctx context.Context, interactionID, participantID uuid.UUID, answer models.Answer) (stored *models.Response, recorded bool, err error) {
	i, err := a.interactions.Get(ctx, interactionID)
	if err != nil {
		return nil, false, err
	}
	switch i.Status {
	case models.StatusDraft:
		return nil, false, models.ErrNotAcceptingResponses
	case models.StatusEnded:
		if !i.Settings.Common().AllowLate {
			return nil, false, models.ErrLateSubmission
		}
	}

	normalized, err := models.NormalizeAnswer(i, answer)
	if err != nil {
		return nil, false, err
	}
	r := &models.Response{
		InteractionID: interactionID,
		ParticipantID: participantID,
		Answer:        normalized,
		SubmittedAt:   a.now(),
	}
	active := i.Status == models.StatusActive

	var inserted bool
	switch i.Variant {
	case models.VariantPoll, models.VariantScale, models.VariantTask:
		if active {
			stored, err = a.store.Upsert(ctx, r)
			return stored, err == nil, err
		}
		stored, inserted, err = a.store.Insert(ctx, r, false)
		if err == nil && !inserted {
			return nil, false, fmt.Errorf("%w: answers are final once the interaction has ended", models.ErrAlreadyAnswered)
		}
	case models.VariantQuiz:
		scoreQuiz(i, r)
		stored, inserted, err = a.store.Insert(ctx, r, active)
		if err == nil && !inserted {
			return nil, false, fmt.Errorf("%w: quiz answers are final", models.ErrAlreadyAnswered)
		}
	default:
		stored, inserted, err = a.store.Insert(ctx, r, active)
	}
	if err != nil && !errors.Is(err, models.ErrConflict) {
		// The insert may have committed; a second attempt would see it as a resubmission.
		return nil, false, retry.Permanent(err)
	}
	if err != nil {
		return nil, false, err
	}
	return stored, inserted, nil
}

// Response returns a participant's own response.
func (a *Aggregator) Response(ctx context.Context, interactionID, participantID uuid.UUID) (*models.Response, error) {
	return a.store.Get(ctx, interactionID, participantID)
}

// Tally returns the full tally, as hosts see it.
func (a *Aggregator) Tally(ctx context.Context, interactionID uuid.UUID) (*Tally, error) {
	i, err := a.interactions.Get(ctx, interactionID)
	if err != nil {
		return nil, err
	}
	return a.tallyOf(ctx, i)
}

// ParticipantTally applies the visibility rule: results are shown once the interaction
// has ended, or immediately when the host enabled it.
func (a *Aggregator) ParticipantTally(ctx context.Context, interactionID uuid.UUID) (*Tally, error) {
	i, err := a.interactions.Get(ctx, interactionID)
	if err != nil {
		return nil, err
	}
	if !i.ResultsVisibleToParticipants() {
		return nil, fmt.Errorf("%w: results are hidden until the interaction ends", models.ErrInvalidState)
	}
	t, err := a.tallyOf(ctx, i)
	if err != nil {
		return nil, err
	}
	return t.Public(), nil
}

// VisibleTally returns the tally a subscriber with role may see, or nil.
func (a *Aggregator) VisibleTally(ctx context.Context, i *models.Interaction, role realtime.Role) (*Tally, error) {
	if role != realtime.RoleHost && !i.ResultsVisibleToParticipants() {
		return nil, nil
	}
	t, err := a.tallyOf(ctx, i)
	if err != nil {
		return nil, err
	}
	if role != realtime.RoleHost {
		t = t.Public()
	}
	return t, nil
}

func (a *Aggregator) tallyOf(ctx context.Context, i *models.Interaction) (*Tally, error) {
	list, err := a.store.List(ctx, i.ID)
	if err != nil {
		return nil, err
	}
	return ComputeTally(i, list), nil
}

// PublishTally pushes the current tally: always to hosts, and to participants when
// visible to them. Called after every accepted response and when an interaction ends.
//
// Each call takes a revision, then reads the interaction and its responses. A tally
// read under a lower revision than one already published is older than it and is
// dropped, so the last tally subscribers receive is never stale.
func (a *Aggregator) PublishTally(ctx context.Context, i *models.Interaction) error {
	a.tallyMu.Lock()
	rev, ok := a.tallies[i.ID]
	if !ok {
		rev = &tallyRevision{}
		a.tallies[i.ID] = rev
	}
	rev.next++
	revision := rev.next
	a.tallyMu.Unlock()

	i, err := a.interactions.Get(ctx, i.ID)
	if err != nil {
		return err
	}
	t, err := a.tallyOf(ctx, i)
	if err != nil {
		return err
	}

	a.tallyMu.Lock()
	defer a.tallyMu.Unlock()
	if revision < rev.published {
		a.logger.Debug("stale tally dropped",
			zap.String("interaction_id", i.ID.String()),
			zap.Uint64("revision", revision))
		return nil
	}
	rev.published = revision
	a.pub.Publish(i.WebinarID, realtime.Event{
		Name:     realtime.EventTallyUpdated,
		Audience: realtime.AudienceHosts,
		Data:     TallyPayload{WebinarID: i.WebinarID, InteractionID: i.ID, Tally: t},
	})
	if i.ResultsVisibleToParticipants() {
		a.pub.Publish(i.WebinarID, realtime.Event{
			Name:     realtime.EventTallyUpdated,
			Audience: realtime.AudienceParticipants,
			Data:     TallyPayload{WebinarID: i.WebinarID, InteractionID: i.ID, Tally: t.Public()},
		})
	}
	return nil
}

// Snapshot returns the persisted final tally of an ended interaction.
func (a *Aggregator) Snapshot(ctx context.Context, interactionID uuid.UUID) (*models.TallySnapshot, error) {
	return a.store.GetSnapshot(ctx, interactionID)
}

// SaveSnapshot stores the final tally. Interactions that have not ended are refused.
func (a *Aggregator) SaveSnapshot(ctx context.Context, interactionID uuid.UUID) (*models.TallySnapshot, error) {
	i, err := a.interactions.Get(ctx, interactionID)
	if err != nil {
		return nil, err
	}
	if i.Status != models.StatusEnded {
		return nil, fmt.Errorf("%w: interaction is %s", models.ErrInvalidState, i.Status)
	}
	t, err := a.tallyOf(ctx, i)
	if err != nil {
		return nil, err
	}
	raw, err := marshalTally(t)
	if err != nil {
		return nil, err
	}
	s := &models.TallySnapshot{InteractionID: i.ID, WebinarID: i.WebinarID, Tally: raw, RecordedAt: a.now()}
	if err := a.store.SaveSnapshot(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}
