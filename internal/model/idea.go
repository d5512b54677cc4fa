package model

import (
	"time"
)

// Idea 아이디어 목록 항목
type Idea struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID string    `gorm:"type:varchar(36);not null;index:idx_idea_session_created" json:"session_id"`
	Text      string    `gorm:"type:varchar(500);not null" json:"text"`
	CreatorID int64     `gorm:"not null" json:"creator_id"`
	CreatedAt time.Time `gorm:"index:idx_idea_session_created" json:"created_at"`
}

func (Idea) TableName() string {
	return "ideas"
}

// PriorityZone 보드 위 우선순위 영역
type PriorityZone struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID string    `gorm:"type:varchar(36);not null;index" json:"session_id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Kind      ZoneKind  `gorm:"type:varchar(20);not null" json:"kind"`
	Position  Point     `gorm:"type:jsonb;serializer:json" json:"position"`
	Size      Size      `gorm:"type:jsonb;serializer:json" json:"size"`
	Color     string    `gorm:"type:varchar(20)" json:"color"`
	CreatorID int64     `gorm:"not null" json:"creator_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (PriorityZone) TableName() string {
	return "priority_zones"
}
