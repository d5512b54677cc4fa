// Package store persists board documents: sessions, canvas elements, chat,
// questions, ideas, priority zones and the activity log.
//
// Every entity is one document. Updates rewrite the whole document, so the
// last write observed by the store wins.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"sessionboard-backend/internal/model"
)

var (
	// ErrNotFound is returned when a document doesn't exist (or belongs to another session)
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a create reuses an existing id
	ErrConflict = errors.New("record already exists")
)

// Store defines the persistence contract shared by the postgres and memory backends.
// All implementations must be safe for concurrent use.
//
// Update* methods run fn against the current document and persist the result
// atomically. If fn returns an error nothing is written and the error is
// returned unchanged.
type Store interface {
	CreateSession(ctx context.Context, s *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	UpdateSession(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context, f SessionFilter) ([]model.Session, int64, error)

	CreateElement(ctx context.Context, e *model.CanvasElement) error
	GetElement(ctx context.Context, sessionID, id string) (*model.CanvasElement, error)
	UpdateElement(ctx context.Context, sessionID, id string, fn func(*model.CanvasElement) error) (*model.CanvasElement, error)
	DeleteElement(ctx context.Context, sessionID, id string) error
	DeleteElements(ctx context.Context, sessionID string) (int64, error)
	ListElements(ctx context.Context, sessionID string) ([]model.CanvasElement, error)

	CreateMessage(ctx context.Context, m *model.ChatMessage) error
	UpdateMessage(ctx context.Context, sessionID, id string, fn func(*model.ChatMessage) error) (*model.ChatMessage, error)
	ListMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error)

	CreateQuestion(ctx context.Context, q *model.Question) error
	UpdateQuestion(ctx context.Context, sessionID, id string, fn func(*model.Question) error) (*model.Question, error)
	ListQuestions(ctx context.Context, sessionID string) ([]model.Question, error)

	CreateIdea(ctx context.Context, i *model.Idea) error
	ListIdeas(ctx context.Context, sessionID string) ([]model.Idea, error)

	CreateZone(ctx context.Context, z *model.PriorityZone) error
	DeleteZone(ctx context.Context, sessionID, id string) error
	ListZones(ctx context.Context, sessionID string) ([]model.PriorityZone, error)

	AppendActivity(ctx context.Context, a *model.SessionActivity) error
	ListActivities(ctx context.Context, f ActivityFilter) ([]model.SessionActivity, error)

	Ping(ctx context.Context) error
	Close() error
}

// SessionFilter selects sessions a user belongs to
type SessionFilter struct {
	UserID int64
	Status model.SessionStatus // empty = any
	Limit  int
	Offset int
}

// ActivityFilter selects a window of the activity log, oldest first
type ActivityFilter struct {
	SessionID string
	UserID    int64 // 0 = everyone
	Since     time.Time
	Until     time.Time
	Actions   []model.ActivityAction
	Limit     int
}

// DefaultActivityLimit caps timeline reads when no limit is given
const DefaultActivityLimit = 1000

func (f ActivityFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultActivityLimit
	}
	return f.Limit
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}
