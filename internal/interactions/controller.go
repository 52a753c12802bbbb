package interactions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/internal/realtime"
	"github.com/aura-webinar/live-engine/internal/webinars"
)

// CreateParams is the host's create request.
type CreateParams struct {
	WebinarID uuid.UUID
	Variant   models.Variant
	Title     string
	Prompt    string
	Options   []models.OptionInput
	Settings  json.RawMessage
}

// Controller enforces the interaction state machine and the single-active invariant.
type Controller struct {
	store    Store
	webinars webinars.Store
	pub      realtime.Publisher
	logger   *zap.Logger
	now      func() time.Time
	gate     *statusGate
}

// NewController creates a lifecycle controller.
func NewController(store Store, webinarStore webinars.Store, pub realtime.Publisher, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{store: store, webinars: webinarStore, pub: pub, logger: logger, now: time.Now, gate: newStatusGate()}
}

// SetClock overrides the time source.
func (c *Controller) SetClock(now func() time.Time) {
	c.now = now
}

// Create validates and stores a draft interaction. A missing allow_late setting
// inherits the webinar's allow_late_responses default.
func (c *Controller) Create(ctx context.Context, p CreateParams) (*models.Interaction, error) {
	w, err := c.webinars.Get(ctx, p.WebinarID)
	if err != nil {
		return nil, fmt.Errorf("webinar %s: %w", p.WebinarID, err)
	}
	if w.Status == models.WebinarEnded {
		return nil, fmt.Errorf("%w: webinar has ended", models.ErrInvalidState)
	}
	settings, err := models.ParseSettings(p.Variant, p.Settings, models.BaseSettings{AllowLate: w.AllowLateResponses})
	if err != nil {
		return nil, err
	}
	i, err := models.NewDraft(p.WebinarID, p.Variant, p.Title, p.Prompt, p.Options, settings)
	if err != nil {
		return nil, err
	}
	if err := c.store.Create(ctx, i); err != nil {
		return nil, err
	}
	c.logger.Info("interaction created",
		zap.String("interaction_id", i.ID.String()),
		zap.String("webinar_id", i.WebinarID.String()),
		zap.String("variant", string(i.Variant)))
	return i, nil
}

// Get returns an interaction.
func (c *Controller) Get(ctx context.Context, id uuid.UUID) (*models.Interaction, error) {
	return c.store.Get(ctx, id)
}

// HoldStatus keeps every interaction of the webinar in its current status until
// release is called. Activate, End and EndWebinar wait for outstanding holds.
func (c *Controller) HoldStatus(webinarID uuid.UUID) (release func()) {
	return c.gate.shared(webinarID)
}

// List returns a webinar's interactions in order.
func (c *Controller) List(ctx context.Context, webinarID uuid.UUID) ([]*models.Interaction, error) {
	return c.store.ListByWebinar(ctx, webinarID)
}

// Active returns the webinar's active interaction or nil.
func (c *Controller) Active(ctx context.Context, webinarID uuid.UUID) (*models.Interaction, error) {
	return c.store.Active(ctx, webinarID)
}

// Activate makes a draft the webinar's active interaction, ending the previous one.
// Of two concurrent activations on one webinar, the loser observes ErrInvalidState.
func (c *Controller) Activate(ctx context.Context, id uuid.UUID) (activated, ended *models.Interaction, err error) {
	i, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if i.Status != models.StatusDraft {
		return nil, nil, fmt.Errorf("%w: interaction is %s, only drafts can be activated", models.ErrInvalidState, i.Status)
	}
	w, err := c.webinars.Get(ctx, i.WebinarID)
	if err != nil {
		return nil, nil, err
	}
	if w.Status == models.WebinarEnded {
		return nil, nil, fmt.Errorf("%w: webinar has ended", models.ErrInvalidState)
	}

	release := c.gate.exclusive(i.WebinarID)
	activated, ended, err = c.store.Activate(ctx, id, c.now())
	release()
	if errors.Is(err, models.ErrConflict) {
		current, getErr := c.store.Get(ctx, id)
		if getErr != nil {
			return nil, nil, getErr
		}
		return nil, nil, fmt.Errorf("%w: interaction is %s, only drafts can be activated", models.ErrInvalidState, current.Status)
	}
	if err != nil {
		return nil, nil, err
	}

	if ended != nil {
		c.publishStatus(realtime.EventInteractionEnded, ended)
	}
	c.publishStatus(realtime.EventInteractionActivated, activated)
	c.logger.Info("interaction activated",
		zap.String("interaction_id", activated.ID.String()),
		zap.String("webinar_id", activated.WebinarID.String()))
	return activated, ended, nil
}

// End closes an active interaction. Ending an ended interaction returns it with
// changed=false and emits nothing.
func (c *Controller) End(ctx context.Context, id uuid.UUID) (i *models.Interaction, changed bool, err error) {
	i, err = c.store.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	switch i.Status {
	case models.StatusEnded:
		return i, false, nil
	case models.StatusDraft:
		return nil, false, fmt.Errorf("%w: draft interactions cannot be ended", models.ErrInvalidState)
	}

	release := c.gate.exclusive(i.WebinarID)
	ended, err := c.store.End(ctx, id, c.now())
	release()
	if errors.Is(err, models.ErrConflict) {
		current, getErr := c.store.Get(ctx, id)
		if getErr != nil {
			return nil, false, getErr
		}
		if current.Status == models.StatusEnded {
			return current, false, nil
		}
		return nil, false, fmt.Errorf("%w: interaction is %s", models.ErrInvalidState, current.Status)
	}
	if err != nil {
		return nil, false, err
	}
	c.publishStatus(realtime.EventInteractionEnded, ended)
	c.logger.Info("interaction ended", zap.String("interaction_id", ended.ID.String()))
	return ended, true, nil
}

// Delete removes a draft. Active and ended interactions are kept for the timeline.
func (c *Controller) Delete(ctx context.Context, id uuid.UUID) error {
	i, err := c.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if i.Status != models.StatusDraft {
		return fmt.Errorf("%w: only drafts can be deleted", models.ErrInvalidState)
	}
	if err := c.store.DeleteDraft(ctx, id); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return fmt.Errorf("%w: only drafts can be deleted", models.ErrInvalidState)
		}
		return err
	}
	c.pub.Publish(i.WebinarID, realtime.Event{
		Name:     realtime.EventInteractionDeleted,
		Audience: realtime.AudienceHosts,
		Data:     realtime.InteractionPayload{WebinarID: i.WebinarID, InteractionID: i.ID, Status: i.Status},
	})
	return nil
}

// StartWebinar moves a scheduled webinar to live. Starting a live webinar is a no-op.
func (c *Controller) StartWebinar(ctx context.Context, webinarID uuid.UUID) (*models.Webinar, error) {
	w, err := c.webinars.Transition(ctx, webinarID,
		[]models.WebinarStatus{models.WebinarScheduled}, models.WebinarLive, c.now())
	if errors.Is(err, models.ErrConflict) {
		current, getErr := c.webinars.Get(ctx, webinarID)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == models.WebinarLive {
			return current, nil
		}
		return nil, fmt.Errorf("%w: webinar is %s", models.ErrInvalidState, current.Status)
	}
	if err != nil {
		return nil, err
	}
	c.logger.Info("webinar started", zap.String("webinar_id", webinarID.String()))
	return w, nil
}

// EndWebinar ends any active interaction, then ends the webinar. Idempotent.
func (c *Controller) EndWebinar(ctx context.Context, webinarID uuid.UUID) (w *models.Webinar, ended *models.Interaction, err error) {
	release := c.gate.exclusive(webinarID)
	ended, err = c.store.EndActive(ctx, webinarID, c.now())
	release()
	if err != nil {
		return nil, nil, err
	}
	if ended != nil {
		c.publishStatus(realtime.EventInteractionEnded, ended)
	}

	w, err = c.webinars.Transition(ctx, webinarID,
		[]models.WebinarStatus{models.WebinarScheduled, models.WebinarLive}, models.WebinarEnded, c.now())
	if errors.Is(err, models.ErrConflict) {
		w, err = c.webinars.Get(ctx, webinarID)
	}
	if err != nil {
		return nil, ended, err
	}
	c.logger.Info("webinar ended", zap.String("webinar_id", webinarID.String()))
	return w, ended, nil
}

func (c *Controller) publishStatus(event string, i *models.Interaction) {
	c.pub.Publish(i.WebinarID, realtime.Event{
		Name:     event,
		Audience: realtime.AudienceAll,
		Data: realtime.InteractionPayload{
			WebinarID:     i.WebinarID,
			InteractionID: i.ID,
			Status:        i.Status,
			Interaction:   i.ForParticipant(),
		},
	})
}
