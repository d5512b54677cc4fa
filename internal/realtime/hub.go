// Package realtime fans board events out to the websocket connections joined
// to a session topic.
package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sessionboard-backend/internal/protocol"
)

var (
	ErrNotStarted = errors.New("hub is not running")
	ErrNotJoined  = errors.New("connection has not joined this session")
	ErrReadOnly   = errors.New("connection cannot write to this session")
	ErrBadKind    = errors.New("event kind cannot be relayed")
	ErrLocked     = errors.New("board is locked by the facilitator")
)

// Subscriber is one live connection
type Subscriber interface {
	ID() string
	UserID() int64
	Send(ev protocol.Event) error
}

// Grant is what a subscriber may do on a topic. Locked is the board lock
// as read when the grant was issued.
type Grant struct {
	CanWrite    bool
	Facilitator bool
	Locked      bool
}

// AuthorizeFunc re-checks session access when a connection joins
type AuthorizeFunc func(ctx context.Context, sessionID string, userID int64) (Grant, error)

// Relay forwards locally published events to other server instances
type Relay interface {
	Forward(ctx context.Context, sessionID string, ev protocol.Event) error
}

// Hub owns one topic per session with at least one subscriber
type Hub struct {
	authorize  AuthorizeFunc
	queueSize  int
	instanceID string
	log        zerolog.Logger

	mu      sync.RWMutex
	topics  map[string]*topic
	relay   Relay
	ctx     context.Context
	running bool
}

type topic struct {
	id    string
	queue chan protocol.Event
	done  chan struct{}

	mu      sync.RWMutex
	members map[string]*member

	// board lock, seeded on join and kept current by facilitator lock events
	locked bool
}

type member struct {
	sub   Subscriber
	grant Grant
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithQueueSize sets the per-topic buffer
func WithQueueSize(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

// WithInstanceID tags events published by this process
func WithInstanceID(id string) HubOption {
	return func(h *Hub) { h.instanceID = id }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) HubOption {
	return func(h *Hub) { h.log = l }
}

// NewHub creates a hub. It delivers nothing until Start is called.
func NewHub(authorize AuthorizeFunc, opts ...HubOption) *Hub {
	h := &Hub{
		authorize: authorize,
		queueSize: 256,
		topics:    make(map[string]*topic),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With().Str("component", "Hub").Logger()
	return h
}

// SetRelay attaches a cross-instance relay
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = r
}

// Start runs the hub until ctx is cancelled. All topics are closed on shutdown.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.ctx = ctx
	h.running = true
	h.mu.Unlock()

	h.log.Info().Str("instance", h.instanceID).Msg("started")

	go func() {
		<-ctx.Done()
		h.shutdown()
	}()
}

// Running reports whether Start was called and the hub is not shut down
func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, t := range h.topics {
		close(t.done)
		delete(h.topics, id)
	}
	h.running = false
	h.log.Info().Msg("stopped")
}

// Join verifies access and subscribes the connection to the session topic.
// Joining twice refreshes the grant.
func (h *Hub) Join(ctx context.Context, sessionID string, sub Subscriber) (Grant, error) {
	if !h.Running() {
		return Grant{}, ErrNotStarted
	}
	grant, err := h.authorize(ctx, sessionID, sub.UserID())
	if err != nil {
		return Grant{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return Grant{}, ErrNotStarted
	}

	t, ok := h.topics[sessionID]
	if !ok {
		t = &topic{
			id:      sessionID,
			queue:   make(chan protocol.Event, h.queueSize),
			done:    make(chan struct{}),
			members: make(map[string]*member),
		}
		h.topics[sessionID] = t
		go h.runTopic(t)
		h.log.Debug().Str("session", sessionID).Msg("topic opened")
	}

	t.mu.Lock()
	t.members[sub.ID()] = &member{sub: sub, grant: grant}
	t.locked = grant.Locked
	n := len(t.members)
	t.mu.Unlock()

	h.log.Debug().Str("session", sessionID).Str("conn", sub.ID()).Int("subscribers", n).Msg("joined")
	return grant, nil
}

// Leave unsubscribes a connection. Returns false if it wasn't joined.
func (h *Hub) Leave(sessionID, subID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.leaveLocked(sessionID, subID)
}

// LeaveAll drops a connection from every topic and returns the sessions it left
func (h *Hub) LeaveAll(subID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var left []string
	for id := range h.topics {
		if h.leaveLocked(id, subID) {
			left = append(left, id)
		}
	}
	return left
}

func (h *Hub) leaveLocked(sessionID, subID string) bool {
	t, ok := h.topics[sessionID]
	if !ok {
		return false
	}

	t.mu.Lock()
	_, joined := t.members[subID]
	delete(t.members, subID)
	empty := len(t.members) == 0
	t.mu.Unlock()

	if empty {
		close(t.done)
		delete(h.topics, sessionID)
		h.log.Debug().Str("session", sessionID).Msg("topic closed")
	}
	return joined
}

// Subscribers returns the number of connections joined to a session
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	t, ok := h.topics[sessionID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.members)
}

// Topics returns the number of open topics
func (h *Hub) Topics() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics)
}

// Publish delivers an event to every subscriber of the session, in publish order,
// and forwards it to the relay when one is attached.
func (h *Hub) Publish(sessionID string, ev protocol.Event) {
	ev.SessionID = sessionID
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	ev.Origin = h.instanceID

	h.enqueue(sessionID, ev)

	h.mu.RLock()
	relay, ctx := h.relay, h.ctx
	h.mu.RUnlock()
	if relay != nil && ctx != nil {
		if err := relay.Forward(ctx, sessionID, ev); err != nil {
			h.log.Warn().Err(err).Str("session", sessionID).Str("type", ev.Type).Msg("relay forward failed")
		}
	}
}

// Deliver hands an event received from another instance to local subscribers only
func (h *Hub) Deliver(sessionID string, ev protocol.Event) {
	if ev.Origin != "" && ev.Origin == h.instanceID {
		return
	}
	ev.SessionID = sessionID
	h.enqueue(sessionID, ev)
}

// Relay publishes a client-emitted event on behalf of a joined connection.
// Relayed events are not persisted.
func (h *Hub) Relay(sessionID, subID string, ev protocol.Event) error {
	if !protocol.IsRelayKind(ev.Type) {
		return ErrBadKind
	}

	h.mu.RLock()
	t, ok := h.topics[sessionID]
	h.mu.RUnlock()
	if !ok {
		return ErrNotJoined
	}
	t.mu.RLock()
	m, joined := t.members[subID]
	locked := t.locked
	t.mu.RUnlock()
	if !joined {
		return ErrNotJoined
	}
	if !m.grant.CanWrite {
		return ErrReadOnly
	}
	if ev.Type == protocol.KindFacilitator && !m.grant.Facilitator {
		return ErrReadOnly
	}
	if ev.Type == protocol.KindCanvas && locked && !m.grant.Facilitator {
		return ErrLocked
	}

	ev.At = time.Time{}
	h.Publish(sessionID, ev)
	return nil
}

func (h *Hub) enqueue(sessionID string, ev protocol.Event) {
	h.mu.RLock()
	t, ok := h.topics[sessionID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if ev.Type == protocol.KindFacilitator && (ev.Action == protocol.ActionLock || ev.Action == protocol.ActionUnlock) {
		t.mu.Lock()
		t.locked = ev.Action == protocol.ActionLock
		t.mu.Unlock()
	}

	select {
	case t.queue <- ev:
	case <-t.done:
	}
}

func (h *Hub) runTopic(t *topic) {
	for {
		select {
		case <-t.done:
			return
		case ev := <-t.queue:
			h.deliver(t, ev)
		}
	}
}

func (h *Hub) deliver(t *topic, ev protocol.Event) {
	t.mu.RLock()
	subs := make([]Subscriber, 0, len(t.members))
	for _, m := range t.members {
		subs = append(subs, m.sub)
	}
	t.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.Send(ev); err != nil {
			h.log.Warn().Err(err).Str("session", t.id).Str("conn", sub.ID()).Str("type", ev.Type).Msg("send failed")
		}
	}
}
