package presence

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type lease struct {
	entry   Entry
	expires time.Time
}

// MemoryStore keeps presence in process. Leases expire after ttl without a Touch.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]map[string]lease
	ttl      time.Duration
	clock    clock.Clock
}

// NewMemoryStore creates an in-process presence store
func NewMemoryStore(clk clock.Clock, ttl time.Duration) *MemoryStore {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryStore{
		sessions: make(map[string]map[string]lease),
		ttl:      ttl,
		clock:    clk,
	}
}

func (m *MemoryStore) Add(_ context.Context, sessionID string, e Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, ok := m.sessions[sessionID]
	if !ok {
		conns = make(map[string]lease)
		m.sessions[sessionID] = conns
	}
	conns[e.ConnID] = lease{entry: e, expires: m.clock.Now().Add(m.ttl)}
	return int64(len(conns)), nil
}

func (m *MemoryStore) Remove(_ context.Context, sessionID string, e Entry) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns := m.sessions[sessionID]
	_, ok := conns[e.ConnID]
	delete(conns, e.ConnID)
	n := int64(len(conns))
	if n == 0 {
		delete(m.sessions, sessionID)
	}
	return n, ok, nil
}

func (m *MemoryStore) Count(_ context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.sessions[sessionID])), nil
}

func (m *MemoryStore) Touch(_ context.Context, sessionID string, e Entry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, ok := m.sessions[sessionID]
	if !ok {
		conns = make(map[string]lease)
		m.sessions[sessionID] = conns
	}
	l, ok := conns[e.ConnID]
	if !ok {
		l.entry = e
	}
	l.expires = m.clock.Now().Add(m.ttl)
	conns[e.ConnID] = l
	return !ok, nil
}

func (m *MemoryStore) Sweep(_ context.Context) (map[string][]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	expired := make(map[string][]Entry)
	for sessionID, conns := range m.sessions {
		for id, l := range conns {
			if now.After(l.expires) {
				expired[sessionID] = append(expired[sessionID], l.entry)
				delete(conns, id)
			}
		}
		if len(conns) == 0 {
			delete(m.sessions, sessionID)
		}
	}
	return expired, nil
}

var _ Store = (*MemoryStore)(nil)
