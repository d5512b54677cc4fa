package model

import (
	"time"
)

// Point 캔버스 좌표
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size 요소 크기
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Content 요소 내용
type Content struct {
	Text            string `json:"text"`
	Color           string `json:"color"`
	BackgroundColor string `json:"background_color"`
	FontSize        int    `json:"font_size"`
	FontWeight      string `json:"font_weight"`
}

// Border 테두리 스타일
type Border struct {
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
	Radius float64 `json:"radius"`
}

// Style 요소 스타일
type Style struct {
	Border   Border  `json:"border"`
	Opacity  float64 `json:"opacity"`
	Rotation float64 `json:"rotation"`
}

// Connection 요소 간 연결선
type Connection struct {
	TargetElementID string `json:"target_element_id"`
	ConnectionType  string `json:"connection_type"`
}

// Vote 한 사용자의 투표 기록
type Vote struct {
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Votes 찬성/반대 투표 목록 (한 사용자는 최대 한쪽에만 존재)
type Votes struct {
	Upvotes   []Vote `json:"upvotes"`
	Downvotes []Vote `json:"downvotes"`
}

// CanvasElement 캔버스 요소
type CanvasElement struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID    string       `gorm:"type:varchar(36);not null;index:idx_canvas_session" json:"session_id"`
	Type         ElementType  `gorm:"type:varchar(20);not null" json:"type"`
	Position     Point        `gorm:"type:jsonb;serializer:json" json:"position"`
	Size         Size         `gorm:"type:jsonb;serializer:json" json:"size"`
	Content      Content      `gorm:"type:jsonb;serializer:json" json:"content"`
	Style        Style        `gorm:"type:jsonb;serializer:json" json:"style"`
	CreatorID    int64        `gorm:"not null" json:"creator_id"`
	PriorityZone *ZoneKind    `gorm:"type:varchar(20)" json:"priority_zone"`
	Connections  []Connection `gorm:"type:jsonb;serializer:json" json:"connections"`
	IsLocked     bool         `json:"is_locked"`
	IsVisible    bool         `json:"is_visible"`
	ZIndex       int          `json:"z_index"`
	Version      int64        `gorm:"not null" json:"version"`
	LastModified time.Time    `json:"last_modified"`
	ModifiedBy   *int64       `json:"modified_by,omitempty"`
	Votes        Votes        `gorm:"type:jsonb;serializer:json" json:"votes"`
	CreatedAt    time.Time    `gorm:"index:idx_canvas_session" json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (CanvasElement) TableName() string {
	return "canvas_elements"
}

// ElementPatch 부분 수정 (nil이 아닌 최상위 필드만 덮어씀)
type ElementPatch struct {
	Type        *ElementType  `json:"type,omitempty"`
	Position    *Point        `json:"position,omitempty"`
	Size        *Size         `json:"size,omitempty"`
	Content     *Content      `json:"content,omitempty"`
	Style       *Style        `json:"style,omitempty"`
	Connections *[]Connection `json:"connections,omitempty"`
	IsLocked    *bool         `json:"is_locked,omitempty"`
	IsVisible   *bool         `json:"is_visible,omitempty"`
	ZIndex      *int          `json:"z_index,omitempty"`
}

// Empty 변경 필드가 하나도 없는지
func (p ElementPatch) Empty() bool {
	return p.Type == nil && p.Position == nil && p.Size == nil && p.Content == nil &&
		p.Style == nil && p.Connections == nil && p.IsLocked == nil && p.IsVisible == nil && p.ZIndex == nil
}

// Apply 패치를 얕게 병합
func (e *CanvasElement) Apply(p ElementPatch) {
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.Position != nil {
		e.Position = *p.Position
	}
	if p.Size != nil {
		e.Size = *p.Size
	}
	if p.Content != nil {
		e.Content = *p.Content
	}
	if p.Style != nil {
		e.Style = *p.Style
	}
	if p.Connections != nil {
		e.Connections = append([]Connection(nil), (*p.Connections)...)
	}
	if p.IsLocked != nil {
		e.IsLocked = *p.IsLocked
	}
	if p.IsVisible != nil {
		e.IsVisible = *p.IsVisible
	}
	if p.ZIndex != nil {
		e.ZIndex = *p.ZIndex
	}
}

// ApplyDefaults 비어 있는 필드에 기본값 채움
func (e *CanvasElement) ApplyDefaults() {
	if e.Type == "" {
		e.Type = ElementStickyNote
	}
	if e.Size.Width == 0 && e.Size.Height == 0 {
		e.Size = Size{Width: 200, Height: 150}
	}
	if e.Content.Color == "" {
		e.Content.Color = "#ffffff"
	}
	if e.Content.BackgroundColor == "" {
		e.Content.BackgroundColor = "#ffeb3b"
	}
	if e.Content.FontSize == 0 {
		e.Content.FontSize = 14
	}
	if e.Content.FontWeight == "" {
		e.Content.FontWeight = "normal"
	}
	if e.Style.Border.Color == "" {
		e.Style.Border = Border{Color: "#000000", Width: 1, Radius: 0}
	}
	if e.Style.Opacity == 0 {
		e.Style.Opacity = 1
	}
	if e.Version == 0 {
		e.Version = 1
	}
}

// Clone 슬라이스까지 복사한 사본
func (e CanvasElement) Clone() CanvasElement {
	e.PriorityZone = clonePtr(e.PriorityZone)
	e.ModifiedBy = clonePtr(e.ModifiedBy)
	e.Connections = append([]Connection(nil), e.Connections...)
	e.Votes = e.Votes.Clone()
	return e
}

// Cast 투표 적용: 같은 쪽 재투표는 무시, 반대쪽 기록은 제거 후 추가
// 실제 변경이 있었으면 true
func (v *Votes) Cast(userID int64, kind VoteType, at time.Time) bool {
	same, other := &v.Upvotes, &v.Downvotes
	if kind == VoteDown {
		same, other = &v.Downvotes, &v.Upvotes
	}
	if hasVote(*same, userID) {
		return false
	}
	*other = removeVote(*other, userID)
	*same = append(*same, Vote{UserID: userID, Timestamp: at})
	return true
}

// Retract 사용자의 투표 제거 (있었으면 true)
func (v *Votes) Retract(userID int64) bool {
	before := len(v.Upvotes) + len(v.Downvotes)
	v.Upvotes = removeVote(v.Upvotes, userID)
	v.Downvotes = removeVote(v.Downvotes, userID)
	return len(v.Upvotes)+len(v.Downvotes) != before
}

// Score 찬성 - 반대
func (v Votes) Score() int {
	return len(v.Upvotes) - len(v.Downvotes)
}

func (v Votes) Clone() Votes {
	return Votes{
		Upvotes:   append([]Vote(nil), v.Upvotes...),
		Downvotes: append([]Vote(nil), v.Downvotes...),
	}
}

func hasVote(votes []Vote, userID int64) bool {
	for _, vote := range votes {
		if vote.UserID == userID {
			return true
		}
	}
	return false
}

func removeVote(votes []Vote, userID int64) []Vote {
	out := votes[:0:0]
	for _, vote := range votes {
		if vote.UserID != userID {
			out = append(out, vote)
		}
	}
	return out
}
