package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/pkg/queue"
)

// SnapshotScheduler arranges for an ended interaction's final tally to be stored.
// Scheduling is best-effort; failures are logged by the caller.
type SnapshotScheduler interface {
	Schedule(ctx context.Context, i *models.Interaction) error
}

// QueueScheduler hands snapshots to the worker through the Redis job queue.
type QueueScheduler struct {
	Queue *queue.Queue
}

func (s QueueScheduler) Schedule(ctx context.Context, i *models.Interaction) error {
	return s.Queue.EnqueueTallySnapshot(ctx, queue.TallySnapshotPayload{InteractionID: i.ID, WebinarID: i.WebinarID})
}

// SnapshotSaver stores a final tally.
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, interactionID uuid.UUID) (*models.TallySnapshot, error)
}

// InlineScheduler saves snapshots in-process, for deployments without a worker.
type InlineScheduler struct {
	Saver  SnapshotSaver
	Logger *zap.Logger
}

func (s InlineScheduler) Schedule(_ context.Context, i *models.Interaction) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.Saver.SaveSnapshot(ctx, i.ID); err != nil && s.Logger != nil {
			s.Logger.Warn("inline snapshot failed", zap.String("interaction_id", i.ID.String()), zap.Error(err))
		}
	}()
	return nil
}
