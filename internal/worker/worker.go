package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/pkg/queue"
)

// SnapshotSaver computes and stores an ended interaction's final tally.
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, interactionID uuid.UUID) (*models.TallySnapshot, error)
}

// JobQueue is the part of the Redis queue the processor consumes.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, string, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// SnapshotProcessor persists final tallies so the timeline view survives restarts.
type SnapshotProcessor struct {
	saver  SnapshotSaver
	queue  JobQueue
	logger *zap.Logger
}

// NewSnapshotProcessor creates a tally snapshot processor.
func NewSnapshotProcessor(saver SnapshotSaver, q JobQueue, logger *zap.Logger) *SnapshotProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotProcessor{saver: saver, queue: q, logger: logger}
}

// Process executes one snapshot job. Unknown interactions are dropped, not retried.
func (p *SnapshotProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeTallySnapshot {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.TallySnapshotPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	snap, err := p.saver.SaveSnapshot(ctx, payload.InteractionID)
	if errors.Is(err, models.ErrNotFound) {
		p.logger.Warn("snapshot skipped, interaction not found", zap.String("interaction_id", payload.InteractionID.String()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	p.logger.Info("tally snapshot stored",
		zap.String("interaction_id", snap.InteractionID.String()),
		zap.String("webinar_id", snap.WebinarID.String()))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *SnapshotProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("snapshot worker stopping")
			return
		default:
		}

		job, _, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			sleep(ctx, queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			sleep(ctx, queue.RetryBackoff)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
