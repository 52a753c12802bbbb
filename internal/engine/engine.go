package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/live-engine/internal/interactions"
	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/internal/presence"
	"github.com/aura-webinar/live-engine/internal/questions"
	"github.com/aura-webinar/live-engine/internal/reactions"
	"github.com/aura-webinar/live-engine/internal/realtime"
	"github.com/aura-webinar/live-engine/internal/responses"
	"github.com/aura-webinar/live-engine/internal/webinars"
	"github.com/aura-webinar/live-engine/pkg/retry"
)

// Components are the engine's building blocks. Snapshots and Sessions may be nil.
type Components struct {
	Webinars     webinars.Store
	Interactions *interactions.Controller
	Responses    *responses.Aggregator
	Questions    *questions.Queue
	Reactions    *reactions.Service
	Presence     *presence.Tracker
	Sessions     presence.SessionStore
	Snapshots    SnapshotScheduler
}

// Engine exposes the host control and participant client services over one set of components.
type Engine struct {
	Host        *Host
	Participant *Participant

	c      Components
	policy retry.Policy
	logger *zap.Logger
}

// New wires the services.
func New(c Components, policy retry.Policy, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{c: c, policy: policy, logger: logger}
	e.Host = &Host{e: e}
	e.Participant = &Participant{e: e}
	return e
}

// retryable reports whether err is a transient infrastructure fault. Policy errors
// and cancellations are returned to the caller as they are.
func retryable(err error) bool {
	if models.IsDomainError(err) || errors.Is(err, models.ErrConflict) {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func call[T any](ctx context.Context, e *Engine, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := retry.Do(ctx, e.policy, retryable, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

func exec(ctx context.Context, e *Engine, fn func(context.Context) error) error {
	return retry.Do(ctx, e.policy, retryable, fn)
}

// afterEnd publishes the final tally to everyone and schedules its snapshot.
func (e *Engine) afterEnd(ctx context.Context, i *models.Interaction) {
	if err := e.c.Responses.PublishTally(ctx, i); err != nil {
		e.logger.Warn("final tally publish failed", zap.String("interaction_id", i.ID.String()), zap.Error(err))
	}
	if e.c.Snapshots == nil {
		return
	}
	if err := e.c.Snapshots.Schedule(ctx, i); err != nil {
		e.logger.Warn("snapshot scheduling failed", zap.String("interaction_id", i.ID.String()), zap.Error(err))
	}
}

// StateSnapshot is sent to a socket on connect so the client can resync.
type StateSnapshot struct {
	WebinarID uuid.UUID             `json:"webinar_id"`
	Active    *models.Interaction   `json:"active_interaction,omitempty"`
	Tally     *responses.Tally      `json:"tally,omitempty"`
	Reactions models.ReactionCounts `json:"reactions"`
	Presence  int                   `json:"presence"`
}

// Snapshot returns the current state of a webinar as the given role may see it.
func (e *Engine) Snapshot(ctx context.Context, webinarID uuid.UUID, role realtime.Role) (interface{}, error) {
	snap := StateSnapshot{WebinarID: webinarID, Presence: e.c.Presence.Count(webinarID)}
	active, err := e.c.Interactions.Active(ctx, webinarID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		snap.Tally, err = e.c.Responses.VisibleTally(ctx, active, role)
		if err != nil {
			return nil, err
		}
		if role != realtime.RoleHost {
			active = active.ForParticipant()
		}
		snap.Active = active
	}
	snap.Reactions, err = e.c.Reactions.Counts(ctx, webinarID)
	if err != nil {
		return nil, err
	}
	return snap, nil
}
