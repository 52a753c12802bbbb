package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60

	subscriberBuffer = 256
)

// PresenceHandler is called when a subscriber for a participant joins or leaves a webinar.
type PresenceHandler func(webinarID, participantID uuid.UUID)

// Subscriber is one consumer of a webinar's event stream.
type Subscriber struct {
	ID            string
	WebinarID     uuid.UUID
	ParticipantID uuid.UUID
	Role          Role
	send          chan WSMessage
}

// Events returns the subscriber's stream. It is closed on Unsubscribe.
func (s *Subscriber) Events() <-chan WSMessage {
	return s.send
}

// Hub maintains webinar_id -> set of subscribers and broadcasts events.
// With Redis configured, events are published to Redis only and every instance's
// subscription delivers them locally exactly once.
type Hub struct {
	webinars map[uuid.UUID]map[string]*Subscriber
	subs     map[uuid.UUID]func() // cancel Redis subscription per webinar
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
	onJoin   PresenceHandler
	onLeave  PresenceHandler
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishWebinarEvent(webinarID uuid.UUID, event string, audience Audience, payload []byte) error
}

// RedisSubscriber subscribes to webinar channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeWebinar(webinarID uuid.UUID, handler func(event string, audience Audience, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new hub. Pass nil Redis interfaces for a single-instance deployment.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		webinars: make(map[uuid.UUID]map[string]*Subscriber),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// SetPresenceHandlers sets the callbacks run after a subscriber joins or leaves.
func (h *Hub) SetPresenceHandlers(onJoin, onLeave PresenceHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onJoin = onJoin
	h.onLeave = onLeave
}

// Subscribe adds a subscriber to a webinar. Starts the Redis subscription for this
// webinar if it is the first local subscriber.
func (h *Hub) Subscribe(webinarID, participantID uuid.UUID, role Role) *Subscriber {
	s := &Subscriber{
		ID:            uuid.NewString(),
		WebinarID:     webinarID,
		ParticipantID: participantID,
		Role:          role,
		send:          make(chan WSMessage, subscriberBuffer),
	}

	h.mu.Lock()
	if h.webinars[webinarID] == nil {
		h.webinars[webinarID] = make(map[string]*Subscriber)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeWebinar(webinarID, func(event string, audience Audience, payload []byte) {
				h.deliver(webinarID, event, audience, payload)
			})
			if err != nil {
				h.logger.Warn("redis subscribe failed", zap.String("webinar_id", webinarID.String()), zap.Error(err))
			} else {
				h.subs[webinarID] = cancel
			}
		}
	}
	h.webinars[webinarID][s.ID] = s
	onJoin := h.onJoin
	h.mu.Unlock()

	if onJoin != nil && role == RoleParticipant {
		onJoin(webinarID, participantID)
	}
	h.logger.Debug("subscriber joined webinar", zap.String("subscriber_id", s.ID), zap.String("webinar_id", webinarID.String()))
	return s
}

// Unsubscribe removes a subscriber and closes its stream. Cancels the Redis
// subscription when the last local subscriber leaves.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	m, ok := h.webinars[s.WebinarID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, present := m[s.ID]; !present {
		h.mu.Unlock()
		return
	}
	delete(m, s.ID)
	close(s.send)
	if len(m) == 0 {
		delete(h.webinars, s.WebinarID)
		if cancel, ok := h.subs[s.WebinarID]; ok {
			cancel()
			delete(h.subs, s.WebinarID)
		}
	}
	onLeave := h.onLeave
	h.mu.Unlock()

	if onLeave != nil && s.Role == RoleParticipant {
		onLeave(s.WebinarID, s.ParticipantID)
	}
	h.logger.Debug("subscriber left webinar", zap.String("subscriber_id", s.ID), zap.String("webinar_id", s.WebinarID.String()))
}

// PublishEvent sends ev to every subscriber of the webinar whose role is in its audience.
func (h *Hub) PublishEvent(webinarID uuid.UUID, ev Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", ev.Name, err)
	}
	audience := ev.Audience
	if audience == "" {
		audience = AudienceAll
	}
	if h.redis != nil {
		return h.redis.PublishWebinarEvent(webinarID, ev.Name, audience, data)
	}
	h.deliver(webinarID, ev.Name, audience, data)
	return nil
}

// deliver fans out to local subscribers. Slow subscribers drop the event; clients
// resync from the snapshot on reconnect.
func (h *Hub) deliver(webinarID uuid.UUID, event string, audience Audience, data []byte) {
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.webinars[webinarID] {
		if !audience.includes(s.Role) {
			continue
		}
		select {
		case s.send <- msg:
		default:
			h.logger.Debug("subscriber buffer full, dropping event", zap.String("subscriber_id", s.ID), zap.String("event", event))
		}
	}
}

// SendTo sends a message to a single subscriber.
func (h *Hub) SendTo(s *Subscriber, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	msg := WSMessage{Event: event, Data: data}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.webinars[s.WebinarID][s.ID]; !ok {
		return
	}
	select {
	case s.send <- msg:
	default:
	}
}

// SubscriberCount returns the number of local subscribers of a webinar.
func (h *Hub) SubscriberCount(webinarID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.webinars[webinarID])
}
