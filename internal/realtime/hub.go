// Package realtime fans booking events out to websocket subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message is the frame written to subscribers.
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

// Conn is the part of *websocket.Conn the hub needs.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

type subscriber struct {
	mu   sync.Mutex
	conn Conn
}

func (s *subscriber) write(msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(msg)
}

// Hub tracks the subscribers connected to this process.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*subscriber]struct{}
	log    *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{topics: make(map[string]map[*subscriber]struct{}), log: log}
}

// Subscribe registers conn on topic and returns the function that removes it.
func (h *Hub) Subscribe(topic string, conn Conn) func() {
	sub := &subscriber{conn: conn}

	h.mu.Lock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*subscriber]struct{})
	}
	h.topics[topic][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(topic, sub) })
	}
}

func (h *Hub) remove(topic string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.topics[topic]
	if subs == nil {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
}

func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Deliver writes msg to every local subscriber of its topic. Subscribers that fail are dropped.
func (h *Hub) Deliver(msg Message) {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.topics[msg.Topic]))
	for s := range h.topics[msg.Topic] {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, s := range subs {
		if err := s.write(msg); err != nil {
			h.log.Debug("dropping realtime subscriber", zap.String("topic", msg.Topic), zap.Error(err))
			_ = s.conn.Close()
			h.remove(msg.Topic, s)
		}
	}
}

// Publish delivers to local subscribers only. It serves single-instance deployments and tests.
func (h *Hub) Publish(_ context.Context, topic, event string, payload any) error {
	msg, err := NewMessage(topic, event, payload)
	if err != nil {
		return err
	}
	h.Deliver(msg)
	return nil
}

func NewMessage(topic, event string, payload any) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode realtime payload: %w", err)
	}
	return Message{Topic: topic, Event: event, Payload: data, SentAt: time.Now().UTC()}, nil
}

func BookingTopic(bookingID string) string {
	return "booking:" + bookingID
}
