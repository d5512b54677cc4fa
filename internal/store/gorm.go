package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sessionboard-backend/internal/model"
)

// GormStore implements Store on PostgreSQL through GORM.
// Nested values are jsonb columns, so each entity is still a single row document.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an opened (and migrated) connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Models lists every table the store needs, in migration order
func Models() []any {
	return []any{
		&model.Session{},
		&model.CanvasElement{},
		&model.ChatMessage{},
		&model.Question{},
		&model.Idea{},
		&model.PriorityZone{},
		&model.SessionActivity{},
	}
}

func (s *GormStore) getDB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// created maps unique violations (needs gorm.Config.TranslateError) to ErrConflict
func created(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

// lockedUpdate loads one row FOR UPDATE, applies fn and saves it in the same transaction
func lockedUpdate[T any](ctx context.Context, db *gorm.DB, where string, args []any, fn func(*T) error) (*T, error) {
	var out T
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(where, args...).First(&out).Error; err != nil {
			return notFound(err)
		}
		if err := fn(&out); err != nil {
			return err
		}
		return tx.Save(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Sessions

func (s *GormStore) CreateSession(ctx context.Context, sess *model.Session) error {
	ensureID(&sess.ID)
	return created(s.getDB(ctx).Create(sess).Error)
}

func (s *GormStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session
	if err := s.getDB(ctx).First(&sess, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &sess, nil
}

func (s *GormStore) UpdateSession(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	return lockedUpdate(ctx, s.db, "id = ?", []any{id}, fn)
}

// DeleteSession removes the session and every document scoped to it
func (s *GormStore) DeleteSession(ctx context.Context, id string) error {
	return s.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&model.Session{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		for _, m := range Models()[1:] {
			if err := tx.Where("session_id = ?", id).Delete(m).Error; err != nil {
				return fmt.Errorf("cascade %T: %w", m, err)
			}
		}
		return nil
	})
}

func (s *GormStore) ListSessions(ctx context.Context, f SessionFilter) ([]model.Session, int64, error) {
	q := s.getDB(ctx).Model(&model.Session{}).
		Where("creator_id = ? OR facilitators @> ?::jsonb OR participants @> ?::jsonb",
			f.UserID,
			fmt.Sprintf("[%d]", f.UserID),
			fmt.Sprintf(`[{"user_id": %d}]`, f.UserID),
		)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	sessions := make([]model.Session, 0)
	if err := q.Order("created_at DESC").Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// Canvas elements

func (s *GormStore) CreateElement(ctx context.Context, e *model.CanvasElement) error {
	ensureID(&e.ID)
	return created(s.getDB(ctx).Create(e).Error)
}

func (s *GormStore) GetElement(ctx context.Context, sessionID, id string) (*model.CanvasElement, error) {
	var e model.CanvasElement
	if err := s.getDB(ctx).First(&e, "id = ? AND session_id = ?", id, sessionID).Error; err != nil {
		return nil, notFound(err)
	}
	return &e, nil
}

func (s *GormStore) UpdateElement(ctx context.Context, sessionID, id string, fn func(*model.CanvasElement) error) (*model.CanvasElement, error) {
	return lockedUpdate(ctx, s.db, "id = ? AND session_id = ?", []any{id, sessionID}, fn)
}

func (s *GormStore) DeleteElement(ctx context.Context, sessionID, id string) error {
	res := s.getDB(ctx).Delete(&model.CanvasElement{}, "id = ? AND session_id = ?", id, sessionID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteElements(ctx context.Context, sessionID string) (int64, error) {
	res := s.getDB(ctx).Delete(&model.CanvasElement{}, "session_id = ?", sessionID)
	return res.RowsAffected, res.Error
}

func (s *GormStore) ListElements(ctx context.Context, sessionID string) ([]model.CanvasElement, error) {
	elements := make([]model.CanvasElement, 0)
	err := s.getDB(ctx).
		Where("session_id = ?", sessionID).
		Order("z_index ASC").Order("created_at ASC").
		Find(&elements).Error
	return elements, err
}

// Chat

func (s *GormStore) CreateMessage(ctx context.Context, m *model.ChatMessage) error {
	ensureID(&m.ID)
	return created(s.getDB(ctx).Create(m).Error)
}

func (s *GormStore) UpdateMessage(ctx context.Context, sessionID, id string, fn func(*model.ChatMessage) error) (*model.ChatMessage, error) {
	return lockedUpdate(ctx, s.db, "id = ? AND session_id = ?", []any{id, sessionID}, fn)
}

func (s *GormStore) ListMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	messages := make([]model.ChatMessage, 0)
	err := s.getDB(ctx).Where("session_id = ?", sessionID).Order("created_at ASC").Find(&messages).Error
	return messages, err
}

// Questions

func (s *GormStore) CreateQuestion(ctx context.Context, q *model.Question) error {
	ensureID(&q.ID)
	return created(s.getDB(ctx).Create(q).Error)
}

func (s *GormStore) UpdateQuestion(ctx context.Context, sessionID, id string, fn func(*model.Question) error) (*model.Question, error) {
	return lockedUpdate(ctx, s.db, "id = ? AND session_id = ?", []any{id, sessionID}, fn)
}

func (s *GormStore) ListQuestions(ctx context.Context, sessionID string) ([]model.Question, error) {
	questions := make([]model.Question, 0)
	err := s.getDB(ctx).Where("session_id = ?", sessionID).Order("created_at ASC").Find(&questions).Error
	return questions, err
}

// Ideas

func (s *GormStore) CreateIdea(ctx context.Context, i *model.Idea) error {
	ensureID(&i.ID)
	return created(s.getDB(ctx).Create(i).Error)
}

func (s *GormStore) ListIdeas(ctx context.Context, sessionID string) ([]model.Idea, error) {
	ideas := make([]model.Idea, 0)
	err := s.getDB(ctx).Where("session_id = ?", sessionID).Order("created_at ASC").Find(&ideas).Error
	return ideas, err
}

// Priority zones

func (s *GormStore) CreateZone(ctx context.Context, z *model.PriorityZone) error {
	ensureID(&z.ID)
	return created(s.getDB(ctx).Create(z).Error)
}

func (s *GormStore) DeleteZone(ctx context.Context, sessionID, id string) error {
	res := s.getDB(ctx).Delete(&model.PriorityZone{}, "id = ? AND session_id = ?", id, sessionID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListZones(ctx context.Context, sessionID string) ([]model.PriorityZone, error) {
	zones := make([]model.PriorityZone, 0)
	err := s.getDB(ctx).Where("session_id = ?", sessionID).Order("created_at ASC").Find(&zones).Error
	return zones, err
}

// Activity log

func (s *GormStore) AppendActivity(ctx context.Context, a *model.SessionActivity) error {
	ensureID(&a.ID)
	stamp(&a.Timestamp, nil)
	return created(s.getDB(ctx).Create(a).Error)
}

func (s *GormStore) ListActivities(ctx context.Context, f ActivityFilter) ([]model.SessionActivity, error) {
	q := s.getDB(ctx).Where("session_id = ?", f.SessionID)
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if !f.Since.IsZero() {
		q = q.Where("timestamp >= ?", f.Since)
	}
	if !f.Until.IsZero() {
		q = q.Where("timestamp <= ?", f.Until)
	}
	if len(f.Actions) > 0 {
		q = q.Where("action IN ?", f.Actions)
	}

	activities := make([]model.SessionActivity, 0)
	err := q.Order("timestamp ASC").Limit(f.limit()).Find(&activities).Error
	return activities, err
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ Store = (*GormStore)(nil)
