package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"sessionboard-backend/internal/model"
)

// MemoryStore implements Store with in-process maps.
// Documents are cloned on the way in and out, so callers never share state with the store.
type MemoryStore struct {
	mu         sync.RWMutex
	seq        uint64
	order      map[string]uint64
	sessions   map[string]model.Session
	elements   map[string]model.CanvasElement
	messages   map[string]model.ChatMessage
	questions  map[string]model.Question
	ideas      map[string]model.Idea
	zones      map[string]model.PriorityZone
	activities []model.SessionActivity
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		order:     make(map[string]uint64),
		sessions:  make(map[string]model.Session),
		elements:  make(map[string]model.CanvasElement),
		messages:  make(map[string]model.ChatMessage),
		questions: make(map[string]model.Question),
		ideas:     make(map[string]model.Idea),
		zones:     make(map[string]model.PriorityZone),
	}
}

// track records insertion order for stable sorting; caller holds mu
func (m *MemoryStore) track(id string) {
	m.seq++
	m.order[id] = m.seq
}

// Sessions

func (m *MemoryStore) CreateSession(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ensureID(&s.ID)
	if _, exists := m.sessions[s.ID]; exists {
		return ErrConflict
	}
	stamp(&s.CreatedAt, &s.UpdatedAt)
	m.sessions[s.ID] = s.Clone()
	m.track(s.ID)
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := s.Clone()
	return &out, nil
}

func (m *MemoryStore) UpdateSession(_ context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	work := cur.Clone()
	if err := fn(&work); err != nil {
		return nil, err
	}
	stamp(nil, &work.UpdatedAt)
	m.sessions[id] = work.Clone()
	return &work, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	for k, e := range m.elements {
		if e.SessionID == id {
			delete(m.elements, k)
		}
	}
	for k, msg := range m.messages {
		if msg.SessionID == id {
			delete(m.messages, k)
		}
	}
	for k, q := range m.questions {
		if q.SessionID == id {
			delete(m.questions, k)
		}
	}
	for k, i := range m.ideas {
		if i.SessionID == id {
			delete(m.ideas, k)
		}
	}
	for k, z := range m.zones {
		if z.SessionID == id {
			delete(m.zones, k)
		}
	}
	m.activities = slices.DeleteFunc(m.activities, func(a model.SessionActivity) bool {
		return a.SessionID == id
	})
	return nil
}

func (m *MemoryStore) ListSessions(_ context.Context, f SessionFilter) ([]model.Session, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]model.Session, 0)
	for _, s := range m.sessions {
		if !s.IsMember(f.UserID) {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		matched = append(matched, s.Clone())
	}
	// newest first
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return m.order[a.ID] > m.order[b.ID]
	})

	total := int64(len(matched))
	return paginate(matched, f.Offset, f.Limit), total, nil
}

// Canvas elements

func (m *MemoryStore) CreateElement(_ context.Context, e *model.CanvasElement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ensureID(&e.ID)
	if _, exists := m.elements[e.ID]; exists {
		return ErrConflict
	}
	stamp(&e.CreatedAt, &e.UpdatedAt)
	m.elements[e.ID] = e.Clone()
	m.track(e.ID)
	return nil
}

func (m *MemoryStore) GetElement(_ context.Context, sessionID, id string) (*model.CanvasElement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.elements[id]
	if !ok || e.SessionID != sessionID {
		return nil, ErrNotFound
	}
	out := e.Clone()
	return &out, nil
}

func (m *MemoryStore) UpdateElement(_ context.Context, sessionID, id string, fn func(*model.CanvasElement) error) (*model.CanvasElement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.elements[id]
	if !ok || cur.SessionID != sessionID {
		return nil, ErrNotFound
	}
	work := cur.Clone()
	if err := fn(&work); err != nil {
		return nil, err
	}
	stamp(nil, &work.UpdatedAt)
	m.elements[id] = work.Clone()
	return &work, nil
}

func (m *MemoryStore) DeleteElement(_ context.Context, sessionID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.elements[id]
	if !ok || e.SessionID != sessionID {
		return ErrNotFound
	}
	delete(m.elements, id)
	return nil
}

func (m *MemoryStore) DeleteElements(_ context.Context, sessionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k, e := range m.elements {
		if e.SessionID == sessionID {
			delete(m.elements, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ListElements(_ context.Context, sessionID string) ([]model.CanvasElement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.CanvasElement, 0)
	for _, e := range m.elements {
		if e.SessionID == sessionID {
			out = append(out, e.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ZIndex != b.ZIndex {
			return a.ZIndex < b.ZIndex
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return m.order[a.ID] < m.order[b.ID]
	})
	return out, nil
}

// Chat

func (m *MemoryStore) CreateMessage(_ context.Context, msg *model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ensureID(&msg.ID)
	if _, exists := m.messages[msg.ID]; exists {
		return ErrConflict
	}
	stamp(&msg.CreatedAt, &msg.UpdatedAt)
	m.messages[msg.ID] = msg.Clone()
	m.track(msg.ID)
	return nil
}

func (m *MemoryStore) UpdateMessage(_ context.Context, sessionID, id string, fn func(*model.ChatMessage) error) (*model.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.messages[id]
	if !ok || cur.SessionID != sessionID {
		return nil, ErrNotFound
	}
	work := cur.Clone()
	if err := fn(&work); err != nil {
		return nil, err
	}
	stamp(nil, &work.UpdatedAt)
	m.messages[id] = work.Clone()
	return &work, nil
}

func (m *MemoryStore) ListMessages(_ context.Context, sessionID string) ([]model.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.ChatMessage, 0)
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return m.before(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

// Questions

func (m *MemoryStore) CreateQuestion(_ context.Context, q *model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ensureID(&q.ID)
	if _, exists := m.questions[q.ID]; exists {
		return ErrConflict
	}
	stamp(&q.CreatedAt, &q.UpdatedAt)
	m.questions[q.ID] = q.Clone()
	m.track(q.ID)
	return nil
}

func (m *MemoryStore) UpdateQuestion(_ context.Context, sessionID, id string, fn func(*model.Question) error) (*model.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.questions[id]
	if !ok || cur.SessionID != sessionID {
		return nil, ErrNotFound
	}
	work := cur.Clone()
	if err := fn(&work); err != nil {
		return nil, err
	}
	stamp(nil, &work.UpdatedAt)
	m.questions[id] = work.Clone()
	return &work, nil
}

func (m *MemoryStore) ListQuestions(_ context.Context, sessionID string) ([]model.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Question, 0)
	for _, q := range m.questions {
		if q.SessionID == sessionID {
			out = append(out, q.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return m.before(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

// Ideas

func (m *MemoryStore) CreateIdea(_ context.Context, i *model.Idea) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ensureID(&i.ID)
	if _, exists := m.ideas[i.ID]; exists {
		return ErrConflict
	}
	stamp(&i.CreatedAt, nil)
	m.ideas[i.ID] = *i
	m.track(i.ID)
	return nil
}

func (m *MemoryStore) ListIdeas(_ context.Context, sessionID string) ([]model.Idea, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Idea, 0)
	for _, i := range m.ideas {
		if i.SessionID == sessionID {
			out = append(out, i)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return m.before(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

// Priority zones

func (m *MemoryStore) CreateZone(_ context.Context, z *model.PriorityZone) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ensureID(&z.ID)
	if _, exists := m.zones[z.ID]; exists {
		return ErrConflict
	}
	stamp(&z.CreatedAt, nil)
	m.zones[z.ID] = *z
	m.track(z.ID)
	return nil
}

func (m *MemoryStore) DeleteZone(_ context.Context, sessionID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	z, ok := m.zones[id]
	if !ok || z.SessionID != sessionID {
		return ErrNotFound
	}
	delete(m.zones, id)
	return nil
}

func (m *MemoryStore) ListZones(_ context.Context, sessionID string) ([]model.PriorityZone, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.PriorityZone, 0)
	for _, z := range m.zones {
		if z.SessionID == sessionID {
			out = append(out, z)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return m.before(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

// Activity log

func (m *MemoryStore) AppendActivity(_ context.Context, a *model.SessionActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ensureID(&a.ID)
	stamp(&a.Timestamp, nil)
	m.activities = append(m.activities, *a)
	return nil
}

func (m *MemoryStore) ListActivities(_ context.Context, f ActivityFilter) ([]model.SessionActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.SessionActivity, 0)
	for _, a := range m.activities {
		if a.SessionID != f.SessionID {
			continue
		}
		if f.UserID != 0 && a.UserID != f.UserID {
			continue
		}
		if !f.Since.IsZero() && a.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && a.Timestamp.After(f.Until) {
			continue
		}
		if len(f.Actions) > 0 && !slices.Contains(f.Actions, a.Action) {
			continue
		}
		out = append(out, a)
	}
	// appended in order; sort only by timestamp
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if len(out) > f.limit() {
		out = out[:f.limit()]
	}
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

// before orders by creation time, then insertion order; caller holds mu
func (m *MemoryStore) before(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return m.order[idA] < m.order[idB]
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ Store = (*MemoryStore)(nil)
