package realtime

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "realtime:"

// RedisBroadcaster relays events through Redis pub/sub so that every API instance
// reaches the subscribers connected to it.
type RedisBroadcaster struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisBroadcaster(client *redis.Client, log *zap.Logger) *RedisBroadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisBroadcaster{client: client, log: log}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, topic, event string, payload any) error {
	msg, err := NewMessage(topic, event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channelPrefix+topic, data).Err()
}

// Run forwards every relayed message to hub until ctx is cancelled.
func (b *RedisBroadcaster) Run(ctx context.Context, hub *Hub) error {
	ps := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return err
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := decodeMessage(m.Channel, m.Payload)
			if err != nil {
				b.log.Warn("discarding realtime message", zap.String("channel", m.Channel), zap.Error(err))
				continue
			}
			hub.Deliver(msg)
		}
	}
}

func decodeMessage(channel, payload string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return Message{}, err
	}
	if msg.Topic == "" {
		msg.Topic = strings.TrimPrefix(channel, channelPrefix)
	}
	return msg, nil
}
