package model

import (
	"time"
)

// ActivityMetadata 요청 메타데이터
type ActivityMetadata struct {
	ClientID  string `json:"client_id,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// SessionActivity 세션 활동 로그 (추가 전용)
type SessionActivity struct {
	ID         string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID  string           `gorm:"type:varchar(36);not null;index:idx_activity_session_ts" json:"session_id"`
	UserID     int64            `gorm:"not null;index" json:"user_id"`
	Action     ActivityAction   `gorm:"type:varchar(40);not null" json:"action"`
	TargetType TargetType       `gorm:"type:varchar(20)" json:"target_type"`
	TargetID   string           `gorm:"type:varchar(36)" json:"target_id,omitempty"`
	Data       map[string]any   `gorm:"type:jsonb;serializer:json" json:"data,omitempty"`
	Metadata   ActivityMetadata `gorm:"type:jsonb;serializer:json" json:"metadata"`
	Timestamp  time.Time        `gorm:"index:idx_activity_session_ts" json:"timestamp"`
}

func (SessionActivity) TableName() string {
	return "session_activities"
}

// ActionSummary 사용자별 액션 집계
type ActionSummary struct {
	Action       ActivityAction `json:"action"`
	Count        int64          `json:"count"`
	LastActivity time.Time      `json:"last_activity"`
}
