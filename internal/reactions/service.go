package reactions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/live-engine/internal/models"
	"github.com/aura-webinar/live-engine/internal/realtime"
)

// limiterIdle is how long a participant's bucket is kept after their last reaction.
const limiterIdle = 5 * time.Minute

// Service applies the rate limit, counts reactions and broadcasts coalesced counts.
type Service struct {
	counter Counter
	limiter *Limiter
	pub     realtime.Publisher
	logger  *zap.Logger

	mu    sync.Mutex
	dirty map[uuid.UUID]struct{}
}

// NewService creates a reaction service. limiter may be nil to accept every reaction.
func NewService(counter Counter, limiter *Limiter, pub realtime.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{counter: counter, limiter: limiter, pub: pub, logger: logger, dirty: make(map[uuid.UUID]struct{})}
}

// React counts one reaction. Participants may repeat a reaction; only the rate limit applies.
func (s *Service) React(ctx context.Context, webinarID, participantID uuid.UUID, kind string) error {
	k, err := models.ParseReactionKind(kind)
	if err != nil {
		return err
	}
	if s.limiter != nil && !s.limiter.Allow(webinarID, participantID) {
		return models.ErrRateLimited
	}
	if err := s.counter.Incr(ctx, webinarID, k); err != nil {
		return err
	}
	s.mu.Lock()
	s.dirty[webinarID] = struct{}{}
	s.mu.Unlock()
	return nil
}

// Counts returns the webinar's current counts.
func (s *Service) Counts(ctx context.Context, webinarID uuid.UUID) (models.ReactionCounts, error) {
	return s.counter.Counts(ctx, webinarID)
}

// Reset zeroes the counts between sessions and broadcasts the zeroed counts.
func (s *Service) Reset(ctx context.Context, webinarID uuid.UUID) error {
	if err := s.counter.Reset(ctx, webinarID); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.dirty, webinarID)
	s.mu.Unlock()
	s.publish(webinarID, models.NewReactionCounts())
	s.logger.Info("reactions reset", zap.String("webinar_id", webinarID.String()))
	return nil
}

// Flush broadcasts counts for every webinar that received reactions since the last flush.
func (s *Service) Flush(ctx context.Context) {
	s.mu.Lock()
	if len(s.dirty) == 0 {
		s.mu.Unlock()
		return
	}
	pending := s.dirty
	s.dirty = make(map[uuid.UUID]struct{})
	s.mu.Unlock()

	for webinarID := range pending {
		counts, err := s.counter.Counts(ctx, webinarID)
		if err != nil {
			s.logger.Warn("reaction counts read failed", zap.String("webinar_id", webinarID.String()), zap.Error(err))
			s.mu.Lock()
			s.dirty[webinarID] = struct{}{}
			s.mu.Unlock()
			continue
		}
		s.publish(webinarID, counts)
	}
}

// Run flushes every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	sweep := time.NewTicker(time.Minute)
	defer sweep.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Flush(context.Background())
			return
		case <-ticker.C:
			s.Flush(ctx)
		case <-sweep.C:
			if s.limiter != nil {
				if n := s.limiter.Sweep(limiterIdle); n > 0 {
					s.logger.Debug("reaction limiters evicted", zap.Int("count", n))
				}
			}
		}
	}
}

func (s *Service) publish(webinarID uuid.UUID, counts models.ReactionCounts) {
	s.pub.Publish(webinarID, realtime.Event{
		Name:     realtime.EventReactionCountsUpdated,
		Audience: realtime.AudienceAll,
		Data:     realtime.ReactionCountsPayload{WebinarID: webinarID, Counts: counts},
	})
}
