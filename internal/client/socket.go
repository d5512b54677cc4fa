package client

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"sessionboard-backend/internal/protocol"
)

// ErrDisconnected is returned by Emit while the socket is reconnecting
var ErrDisconnected = errors.New("socket is not connected")

// Channel is the publish side of the broadcast transport
type Channel interface {
	Emit(ev protocol.Event) error
}

// Socket keeps one board websocket joined to a session, reconnecting with
// exponential backoff when the connection drops.
type Socket struct {
	url       string
	sessionID string
	dialer    *websocket.Dialer
	pingEvery time.Duration
	log       zerolog.Logger

	onEvent     func(protocol.Event)
	onReconnect func()

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewSocket creates a socket for baseURL (http(s) or ws(s) scheme)
func NewSocket(baseURL, token, sessionID string, log zerolog.Logger) *Socket {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return &Socket{
		url:         u + "/ws/board?token=" + url.QueryEscape(token),
		sessionID:   sessionID,
		dialer:      websocket.DefaultDialer,
		pingEvery:   20 * time.Second,
		log:         log.With().Str("component", "Socket").Str("session", sessionID).Logger(),
		onEvent:     func(protocol.Event) {},
		onReconnect: func() {},
	}
}

// OnEvent sets the handler for every event received from the session topic
func (s *Socket) OnEvent(fn func(protocol.Event)) {
	if fn != nil {
		s.onEvent = fn
	}
}

// OnReconnect sets the handler called after every successful reconnect
func (s *Socket) OnReconnect(fn func()) {
	if fn != nil {
		s.onReconnect = fn
	}
}

// Emit sends an event on the session topic
func (s *Socket) Emit(ev protocol.Event) error {
	if ev.SessionID == "" {
		ev.SessionID = s.sessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrDisconnected
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return s.conn.WriteJSON(ev)
}

// Run connects, joins and reads until ctx is done
func (s *Socket) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0

	for attempt := 0; ; attempt++ {
		err := backoff.RetryNotify(func() error {
			return s.connect(ctx)
		}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
			s.log.Warn().Err(err).Dur("retry_in", wait).Msg("connect failed")
		})
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			s.close()
			return ctx.Err()
		}

		if attempt > 0 {
			s.log.Info().Int("attempt", attempt).Msg("reconnected")
			s.onReconnect()
		}
		s.read(ctx)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *Socket) connect(ctx context.Context) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	if err := s.Emit(protocol.Event{Type: protocol.TypeJoin}); err != nil {
		s.close()
		return err
	}
	return nil
}

func (s *Socket) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// read dispatches events until the connection breaks
func (s *Socket) read(ctx context.Context) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}

	done := make(chan struct{})
	defer close(done)
	go s.keepalive(ctx, done)

	for {
		var ev protocol.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() == nil {
				s.log.Warn().Err(err).Msg("connection lost")
			}
			s.close()
			return
		}
		switch ev.Type {
		case protocol.TypePong:
		case protocol.TypeError:
			s.log.Warn().Str("code", ev.Code).Msg(ev.Error)
			s.onEvent(ev)
		default:
			s.onEvent(ev)
		}
	}
}

// keepalive pings so the server refreshes presence, and closes the
// connection when ctx ends to unblock the reader
func (s *Socket) keepalive(ctx context.Context, done <-chan struct{}) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			s.close()
			return
		case <-ticker.C:
			if err := s.Emit(protocol.Event{Type: protocol.TypePing}); err != nil {
				s.log.Debug().Err(err).Msg("ping failed")
			}
		}
	}
}
