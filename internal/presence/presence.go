// Package presence counts the live connections viewing each session.
package presence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"sessionboard-backend/internal/protocol"
)

// Entry is one live connection in a session
type Entry struct {
	ConnID   string
	UserID   int64
	Nickname string
}

func (e Entry) member() string {
	return e.ConnID + "|" + strconv.FormatInt(e.UserID, 10)
}

func parseMember(s string) (Entry, error) {
	conn, user, ok := strings.Cut(s, "|")
	if !ok {
		return Entry{}, fmt.Errorf("malformed presence member %q", s)
	}
	id, err := strconv.ParseInt(user, 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("malformed presence member %q: %w", s, err)
	}
	return Entry{ConnID: conn, UserID: id}, nil
}

// Store keeps the per-session connection sets.
// Counts are always recomputed from the set.
type Store interface {
	Add(ctx context.Context, sessionID string, e Entry) (int64, error)
	// Remove reports false when the connection was not present
	Remove(ctx context.Context, sessionID string, e Entry) (int64, bool, error)
	Count(ctx context.Context, sessionID string) (int64, error)
	// Touch extends the connection's lease, re-adding it if a sweep already
	// dropped it. Reports true when re-added.
	Touch(ctx context.Context, sessionID string, e Entry) (bool, error)
	// Sweep drops connections whose lease ran out, grouped by session
	Sweep(ctx context.Context) (map[string][]Entry, error)
}

// Publisher sends presence events to a session topic
type Publisher interface {
	Publish(sessionID string, ev protocol.Event)
}

// Tracker updates presence and announces changes to the session
type Tracker struct {
	store Store
	pub   Publisher
	log   zerolog.Logger
}

// NewTracker creates a tracker
func NewTracker(st Store, pub Publisher, log zerolog.Logger) *Tracker {
	return &Tracker{
		store: st,
		pub:   pub,
		log:   log.With().Str("component", "Presence").Logger(),
	}
}

// Join records the connection and emits viewer-count and user-joined
func (t *Tracker) Join(ctx context.Context, sessionID string, e Entry) (int64, error) {
	count, err := t.store.Add(ctx, sessionID, e)
	if err != nil {
		return 0, err
	}
	t.announce(sessionID, count)
	t.emit(sessionID, protocol.KindUserJoined, e)
	return count, nil
}

// Leave removes the connection and emits viewer-count and user-left.
// Leaving twice emits nothing the second time.
func (t *Tracker) Leave(ctx context.Context, sessionID string, e Entry) (int64, error) {
	count, removed, err := t.store.Remove(ctx, sessionID, e)
	if err != nil || !removed {
		return count, err
	}
	t.announce(sessionID, count)
	t.emit(sessionID, protocol.KindUserLeft, e)
	return count, nil
}

// Heartbeat extends a connection's lease. A live connection that was swept
// is counted again and announced like a join.
func (t *Tracker) Heartbeat(ctx context.Context, sessionID string, e Entry) error {
	readded, err := t.store.Touch(ctx, sessionID, e)
	if err != nil || !readded {
		return err
	}
	count, err := t.store.Count(ctx, sessionID)
	if err != nil {
		return err
	}
	t.announce(sessionID, count)
	t.emit(sessionID, protocol.KindUserJoined, e)
	t.log.Debug().Str("session", sessionID).Str("conn", e.ConnID).Msg("re-registered after sweep")
	return nil
}

// Count returns the live connection count of a session
func (t *Tracker) Count(ctx context.Context, sessionID string) (int64, error) {
	return t.store.Count(ctx, sessionID)
}

// Sweep removes expired connections and announces each affected session
func (t *Tracker) Sweep(ctx context.Context) error {
	expired, err := t.store.Sweep(ctx)
	if err != nil {
		return err
	}
	for sessionID, entries := range expired {
		count, err := t.store.Count(ctx, sessionID)
		if err != nil {
			t.log.Warn().Err(err).Str("session", sessionID).Msg("count after sweep failed")
			continue
		}
		t.announce(sessionID, count)
		for _, e := range entries {
			t.emit(sessionID, protocol.KindUserLeft, e)
		}
		t.log.Debug().Str("session", sessionID).Int("expired", len(entries)).Msg("swept")
	}
	return nil
}

// RunSweeper sweeps every interval until ctx ends
func (t *Tracker) RunSweeper(ctx context.Context, clk clock.Clock, interval time.Duration) {
	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.Sweep(ctx); err != nil {
				t.log.Warn().Err(err).Msg("sweep failed")
			}
		}
	}
}

func (t *Tracker) announce(sessionID string, count int64) {
	ev, err := protocol.NewEvent(protocol.KindViewerCount, "", sessionID, protocol.ViewerCountPayload{Count: count})
	if err != nil {
		return
	}
	t.pub.Publish(sessionID, ev)
}

func (t *Tracker) emit(sessionID, kind string, e Entry) {
	ev, err := protocol.NewEvent(kind, "", sessionID, protocol.PresencePayload{
		UserID:       e.UserID,
		Nickname:     e.Nickname,
		ConnectionID: e.ConnID,
	})
	if err != nil {
		return
	}
	t.pub.Publish(sessionID, ev)
}
