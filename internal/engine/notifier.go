// Package engine composes the interaction components into the host control and
// participant client services.
package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/live-engine/internal/realtime"
	"github.com/aura-webinar/live-engine/pkg/retry"
)

const notifierBuffer = 4096

// EventSink delivers one event to a webinar's subscribers.
type EventSink interface {
	PublishEvent(webinarID uuid.UUID, ev realtime.Event) error
}

type notification struct {
	webinarID uuid.UUID
	event     realtime.Event
}

// Notifier publishes events in order on a background goroutine so mutations never
// wait on fan-out. Failed publishes are retried, then logged; the mutation stands.
type Notifier struct {
	sink   EventSink
	policy retry.Policy
	logger *zap.Logger

	queue chan notification
	mu    sync.RWMutex
	done  chan struct{}
	stop  bool
}

// NewNotifier creates a notifier; call Run to start delivering.
func NewNotifier(sink EventSink, policy retry.Policy, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		sink:   sink,
		policy: policy,
		logger: logger,
		queue:  make(chan notification, notifierBuffer),
		done:   make(chan struct{}),
	}
}

// Publish implements realtime.Publisher. It never blocks: when the buffer is full
// the event is dropped and clients resync from snapshots.
func (n *Notifier) Publish(webinarID uuid.UUID, ev realtime.Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.stop {
		return
	}
	select {
	case n.queue <- notification{webinarID: webinarID, event: ev}:
	default:
		n.logger.Warn("notifier buffer full, dropping event",
			zap.String("webinar_id", webinarID.String()),
			zap.String("event", ev.Name))
	}
}

// Run delivers queued events until Close is called and the queue is drained.
func (n *Notifier) Run() {
	defer close(n.done)
	for item := range n.queue {
		err := retry.Do(context.Background(), n.policy, func(error) bool { return true }, func(context.Context) error {
			return n.sink.PublishEvent(item.webinarID, item.event)
		})
		if err != nil {
			n.logger.Warn("event publish failed",
				zap.String("webinar_id", item.webinarID.String()),
				zap.String("event", item.event.Name),
				zap.Error(err))
		}
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.stop {
		n.mu.Unlock()
		return
	}
	n.stop = true
	close(n.queue)
	n.mu.Unlock()
	<-n.done
}
