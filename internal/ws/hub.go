package ws

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"collab-service/internal/models"
	"collab-service/internal/observability"
)

// DefaultQueueSize is the number of frames buffered per subscriber.
const DefaultQueueSize = 64

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Subscription is one connection's interest in one topic.
type Subscription struct {
	topic string
	kind  string
	conn  Conn
	info  ConnInfo
	queue chan []byte
	done  chan struct{}
	once  sync.Once
}

// Done is closed when the hub stops delivering to this subscription.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Hub fans published frames out to topic subscribers. Each subscriber has a
// buffered queue drained by its own writer goroutine, so a slow connection
// never blocks Publish.
type Hub struct {
	mu        sync.Mutex
	topics    map[string]map[*Subscription]struct{}
	queueSize int
	log       *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Hub{
		topics:    make(map[string]map[*Subscription]struct{}),
		queueSize: queueSize,
		log:       logger,
	}
}

// Subscribe registers conn on topic and starts its writer.
func (h *Hub) Subscribe(topic, kind string, conn Conn, info ConnInfo) *Subscription {
	sub := &Subscription{
		topic: topic,
		kind:  kind,
		conn:  conn,
		info:  info,
		queue: make(chan []byte, h.queueSize),
		done:  make(chan struct{}),
	}
	h.mu.Lock()
	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[*Subscription]struct{})
	}
	h.topics[topic][sub] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(sub)
	return sub
}

// Unsubscribe removes sub and stops its writer. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	h.removeLocked(sub)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(sub *Subscription) {
	if subs, ok := h.topics[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.topics, sub.topic)
		}
	}
	sub.once.Do(func() {
		close(sub.done)
	})
}

// Publish enqueues one frame for every subscriber of topic. Frames are
// enqueued under the hub lock so each subscriber sees a topic's frames in
// call order. A subscriber whose queue is full is dropped.
func (h *Hub) Publish(topic, event string, payload any) error {
	frame, err := json.Marshal(models.Frame{Event: event, Topic: topic, Payload: payload})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.topics[topic] {
		select {
		case sub.queue <- frame:
			observability.IncWSEvent(sub.kind, event)
		default:
			h.log.Warn("websocket subscriber queue full, dropping",
				zap.String("topic", topic), zap.String("conn_id", sub.info.ConnID), zap.String("user_id", sub.info.UserID))
			observability.IncWSDropped("queue_full")
			h.removeLocked(sub)
			go sub.conn.Close()
		}
	}
	return nil
}

// Subscribers returns the number of subscribers on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}

// Close drops every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, subs := range h.topics {
		for sub := range subs {
			h.removeLocked(sub)
			go sub.conn.Close()
		}
	}
}

func (h *Hub) writeLoop(sub *Subscription) {
	for {
		select {
		case <-sub.done:
			return
		case frame := <-sub.queue:
			if err := sub.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					h.log.Warn("websocket write error", zap.Error(err),
						zap.String("topic", sub.topic), zap.String("conn_id", sub.info.ConnID))
				}
				observability.IncWSDropped("write_error")
				h.Unsubscribe(sub)
				sub.conn.Close()
				return
			}
		}
	}
}
