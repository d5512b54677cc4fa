package model

import (
	"time"
)

// Reaction 이모지 반응
type Reaction struct {
	Emoji string  `json:"emoji"`
	Users []int64 `json:"users"`
	Count int     `json:"count"`
}

// ChatMessage 세션 채팅 메시지
type ChatMessage struct {
	ID         string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID  string      `gorm:"type:varchar(36);not null;index:idx_chat_session_created" json:"session_id"`
	SenderID   int64       `gorm:"not null" json:"sender_id"`
	SenderName string      `gorm:"type:varchar(100)" json:"sender_name"`
	Text       string      `gorm:"column:message;type:text;not null" json:"message"`
	Type       MessageType `gorm:"type:varchar(20);not null" json:"type"`
	ReplyTo    *string     `gorm:"type:varchar(36)" json:"reply_to,omitempty"`
	Mentions   []int64     `gorm:"type:jsonb;serializer:json" json:"mentions"`
	Reactions  []Reaction  `gorm:"type:jsonb;serializer:json" json:"reactions"`
	IsEdited   bool        `json:"is_edited"`
	EditedAt   *time.Time  `json:"edited_at,omitempty"`
	IsDeleted  bool        `json:"is_deleted"`
	DeletedAt  *time.Time  `json:"deleted_at,omitempty"`
	CreatedAt  time.Time   `gorm:"index:idx_chat_session_created" json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

// Redacted 삭제된 메시지는 본문을 비운 사본 반환
func (m ChatMessage) Redacted() ChatMessage {
	if m.IsDeleted {
		m.Text = ""
		m.Reactions = nil
	}
	return m
}

// ToggleReaction 사용자 이모지 반응 토글 (추가되면 true)
func (m *ChatMessage) ToggleReaction(emoji string, userID int64) bool {
	for i := range m.Reactions {
		r := &m.Reactions[i]
		if r.Emoji != emoji {
			continue
		}
		for j, id := range r.Users {
			if id == userID {
				r.Users = append(r.Users[:j], r.Users[j+1:]...)
				r.Count = len(r.Users)
				if r.Count == 0 {
					m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
				}
				return false
			}
		}
		r.Users = append(r.Users, userID)
		r.Count = len(r.Users)
		return true
	}
	m.Reactions = append(m.Reactions, Reaction{Emoji: emoji, Users: []int64{userID}, Count: 1})
	return true
}

func (m ChatMessage) Clone() ChatMessage {
	m.ReplyTo = clonePtr(m.ReplyTo)
	m.EditedAt = clonePtr(m.EditedAt)
	m.DeletedAt = clonePtr(m.DeletedAt)
	m.Mentions = append([]int64(nil), m.Mentions...)
	if m.Reactions != nil {
		reactions := make([]Reaction, len(m.Reactions))
		for i, r := range m.Reactions {
			r.Users = append([]int64(nil), r.Users...)
			reactions[i] = r
		}
		m.Reactions = reactions
	}
	return m
}
