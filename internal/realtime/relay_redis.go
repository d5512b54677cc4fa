package realtime

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"sessionboard-backend/internal/cache"
	"sessionboard-backend/internal/protocol"
)

const channelPrefix = "board:session:"

// Channel is the Redis channel carrying a session's events
func Channel(sessionID string) string {
	return channelPrefix + sessionID
}

// RedisRelay shares session events between server instances over Redis pub/sub
type RedisRelay struct {
	client     *cache.RedisClient
	instanceID string
	log        zerolog.Logger
}

// NewRedisRelay creates a relay tagging outgoing events with instanceID
func NewRedisRelay(client *cache.RedisClient, instanceID string, log zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		client:     client,
		instanceID: instanceID,
		log:        log.With().Str("component", "RedisRelay").Logger(),
	}
}

// Forward implements Relay
func (r *RedisRelay) Forward(ctx context.Context, sessionID string, ev protocol.Event) error {
	ev.Origin = r.instanceID
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, Channel(sessionID), data)
}

// Listen feeds events published by other instances into the hub until ctx ends
func (r *RedisRelay) Listen(ctx context.Context, hub *Hub) error {
	ps := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	r.log.Info().Str("instance", r.instanceID).Msg("listening")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(hub, msg.Channel, msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(hub *Hub, channel, payload string) {
	sessionID := strings.TrimPrefix(channel, channelPrefix)
	if sessionID == "" || sessionID == channel {
		return
	}

	var ev protocol.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		r.log.Warn().Err(err).Str("channel", channel).Msg("dropping malformed event")
		return
	}
	if ev.Origin == r.instanceID {
		return
	}
	hub.Deliver(sessionID, ev)
}
