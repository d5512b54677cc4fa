package presence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sessionboard-backend/internal/cache"
)

const sessionKeyPrefix = "presence:session:"

// RedisStore keeps one set of connections per session plus a heartbeat key per
// connection. A connection whose heartbeat key expired is gone.
type RedisStore struct {
	client *cache.RedisClient
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed presence store. Heartbeats default to a 60s TTL.
func NewRedisStore(client *cache.RedisClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func heartbeatKey(connID string) string {
	return fmt.Sprintf("presence:conn:%s", connID)
}

func (r *RedisStore) Add(ctx context.Context, sessionID string, e Entry) (int64, error) {
	if err := r.client.Set(ctx, heartbeatKey(e.ConnID), sessionID, r.ttl); err != nil {
		return 0, err
	}
	if _, err := r.client.SAdd(ctx, sessionKey(sessionID), e.member()); err != nil {
		return 0, err
	}
	return r.client.SCard(ctx, sessionKey(sessionID))
}

func (r *RedisStore) Remove(ctx context.Context, sessionID string, e Entry) (int64, bool, error) {
	removed, err := r.client.SRem(ctx, sessionKey(sessionID), e.member())
	if err != nil {
		return 0, false, err
	}
	if err := r.client.Del(ctx, heartbeatKey(e.ConnID)); err != nil {
		return 0, false, err
	}
	n, err := r.client.SCard(ctx, sessionKey(sessionID))
	return n, removed > 0, err
}

func (r *RedisStore) Count(ctx context.Context, sessionID string) (int64, error) {
	return r.client.SCard(ctx, sessionKey(sessionID))
}

// Touch refreshes the heartbeat TTL. A connection already swept from the set
// is added back.
func (r *RedisStore) Touch(ctx context.Context, sessionID string, e Entry) (bool, error) {
	ok, err := r.client.Expire(ctx, heartbeatKey(e.ConnID), r.ttl)
	if err != nil {
		return false, err
	}
	if !ok {
		if err := r.client.Set(ctx, heartbeatKey(e.ConnID), sessionID, r.ttl); err != nil {
			return false, err
		}
	}
	added, err := r.client.SAdd(ctx, sessionKey(sessionID), e.member())
	return added > 0, err
}

func (r *RedisStore) Sweep(ctx context.Context) (map[string][]Entry, error) {
	keys, err := r.client.Keys(ctx, sessionKeyPrefix+"*")
	if err != nil {
		return nil, err
	}

	expired := make(map[string][]Entry)
	for _, key := range keys {
		sessionID := strings.TrimPrefix(key, sessionKeyPrefix)
		members, err := r.client.SMembers(ctx, key)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			e, err := parseMember(m)
			if err != nil {
				r.client.SRem(ctx, key, m)
				continue
			}
			alive, err := r.client.Exists(ctx, heartbeatKey(e.ConnID))
			if err != nil {
				return nil, err
			}
			if alive {
				continue
			}
			if _, err := r.client.SRem(ctx, key, m); err != nil {
				return nil, err
			}
			expired[sessionID] = append(expired[sessionID], e)
		}
	}
	return expired, nil
}

var _ Store = (*RedisStore)(nil)
