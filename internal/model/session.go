package model

import (
	"time"
)

// Identity 요청자 신원 (토큰에서 해석된 값)
type Identity struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
}

// Participant 세션 참가자
type Participant struct {
	UserID   int64           `json:"user_id"`
	Role     ParticipantRole `json:"role"`
	JoinedAt time.Time       `json:"joined_at"`
}

// SessionSettings 세션 기능 설정
type SessionSettings struct {
	MaxParticipants  int  `json:"max_participants"`
	AllowAnonymous   bool `json:"allow_anonymous"`
	EnableVoting     bool `json:"enable_voting"`
	EnableChat       bool `json:"enable_chat"`
	EnableQnA        bool `json:"enable_qna"`
	AutoSaveInterval int  `json:"auto_save_interval"`
}

// DefaultSessionSettings 기본 설정
func DefaultSessionSettings() SessionSettings {
	return SessionSettings{
		MaxParticipants:  DefaultMaxParticipants,
		EnableVoting:     true,
		EnableChat:       true,
		EnableQnA:        true,
		AutoSaveInterval: 30,
	}
}

// BoardState 진행자 제어 상태 (잠금, 타이머)
type BoardState struct {
	Locked         bool       `json:"locked"`
	LockedBy       *int64     `json:"locked_by,omitempty"`
	LockedAt       *time.Time `json:"locked_at,omitempty"`
	TimerRunning   bool       `json:"timer_running"`
	TimerStartedAt *time.Time `json:"timer_started_at,omitempty"`
	TimerDuration  int        `json:"timer_duration,omitempty"` // seconds, 0 = open-ended
}

// Session 브레인스토밍 세션
type Session struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title         string          `gorm:"type:varchar(50);not null" json:"title"`
	Description   string          `gorm:"type:varchar(300)" json:"description"`
	CreatorID     int64           `gorm:"not null;index" json:"creator_id"`
	Facilitators  []int64         `gorm:"type:jsonb;serializer:json" json:"facilitators"`
	Participants  []Participant   `gorm:"type:jsonb;serializer:json" json:"participants"`
	Privacy       Privacy         `gorm:"type:varchar(20);not null" json:"privacy"`
	PasswordHash  string          `gorm:"type:varchar(100)" json:"-"`
	ShareableLink string          `gorm:"type:varchar(64);uniqueIndex" json:"shareable_link"`
	Status        SessionStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	Template      Template        `gorm:"type:varchar(20)" json:"template"`
	Settings      SessionSettings `gorm:"type:jsonb;serializer:json" json:"settings"`
	Board         BoardState      `gorm:"type:jsonb;serializer:json" json:"board"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	EndedAt       *time.Time      `json:"ended_at,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Session) TableName() string {
	return "sessions"
}

// IsCreator 생성자 여부
func (s *Session) IsCreator(userID int64) bool {
	return s.CreatorID == userID
}

// IsFacilitator 생성자 또는 진행자 목록에 포함된 사용자
func (s *Session) IsFacilitator(userID int64) bool {
	if s.IsCreator(userID) {
		return true
	}
	for _, id := range s.Facilitators {
		if id == userID {
			return true
		}
	}
	return false
}

// IsParticipant 참가자 목록 포함 여부
func (s *Session) IsParticipant(userID int64) bool {
	return s.participantIndex(userID) >= 0
}

// IsMember 생성자, 진행자, 참가자 중 하나
func (s *Session) IsMember(userID int64) bool {
	return s.IsFacilitator(userID) || s.IsParticipant(userID)
}

// AddParticipant 참가자 추가 (이미 있으면 false)
func (s *Session) AddParticipant(userID int64, role ParticipantRole, at time.Time) bool {
	if s.IsParticipant(userID) {
		return false
	}
	s.Participants = append(s.Participants, Participant{UserID: userID, Role: role, JoinedAt: at})
	return true
}

// RemoveParticipant 참가자 제거 (없으면 false)
func (s *Session) RemoveParticipant(userID int64) bool {
	idx := s.participantIndex(userID)
	if idx < 0 {
		return false
	}
	s.Participants = append(s.Participants[:idx], s.Participants[idx+1:]...)
	return true
}

func (s *Session) participantIndex(userID int64) int {
	for i, p := range s.Participants {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// Clone 슬라이스까지 복사한 사본
func (s Session) Clone() Session {
	s.Facilitators = append([]int64(nil), s.Facilitators...)
	s.Participants = append([]Participant(nil), s.Participants...)
	s.Board.LockedBy = clonePtr(s.Board.LockedBy)
	s.Board.LockedAt = clonePtr(s.Board.LockedAt)
	s.Board.TimerStartedAt = clonePtr(s.Board.TimerStartedAt)
	s.StartedAt = clonePtr(s.StartedAt)
	s.EndedAt = clonePtr(s.EndedAt)
	return s
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
