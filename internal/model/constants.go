package model

// Privacy 세션 공개 범위
type Privacy string

const (
	PrivacyPublic            Privacy = "public"
	PrivacyPrivate           Privacy = "private"
	PrivacyPasswordProtected Privacy = "password-protected"
)

func (p Privacy) Valid() bool {
	switch p {
	case PrivacyPublic, PrivacyPrivate, PrivacyPasswordProtected:
		return true
	}
	return false
}

// SessionStatus 세션 상태
type SessionStatus string

const (
	SessionStatusDraft     SessionStatus = "draft"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusArchived  SessionStatus = "archived"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusDraft, SessionStatusActive, SessionStatusPaused, SessionStatusCompleted, SessionStatusArchived:
		return true
	}
	return false
}

// Joinable 참가 가능한 상태인지 (draft, active)
func (s SessionStatus) Joinable() bool {
	return s == SessionStatusDraft || s == SessionStatusActive
}

// ParticipantRole 참가자 역할
type ParticipantRole string

const (
	RoleParticipant ParticipantRole = "participant"
	RoleFacilitator ParticipantRole = "facilitator"
	RoleViewer      ParticipantRole = "viewer"
)

// Template 보드 템플릿
type Template string

const (
	TemplateBlank       Template = "blank"
	TemplateSWOT        Template = "swot"
	TemplateLeanCanvas  Template = "lean-canvas"
	TemplateGrid        Template = "grid"
	TemplateUserJourney Template = "user-journey"
)

func (t Template) Valid() bool {
	switch t {
	case TemplateBlank, TemplateSWOT, TemplateLeanCanvas, TemplateGrid, TemplateUserJourney:
		return true
	}
	return false
}

// ElementType 캔버스 요소 타입
type ElementType string

const (
	ElementStickyNote ElementType = "sticky-note"
	ElementTextBox    ElementType = "text-box"
	ElementShape      ElementType = "shape"
	ElementArrow      ElementType = "arrow"
	ElementLine       ElementType = "line"
	ElementImage      ElementType = "image"
	ElementDrawing    ElementType = "drawing"
)

func (t ElementType) Valid() bool {
	switch t {
	case ElementStickyNote, ElementTextBox, ElementShape, ElementArrow, ElementLine, ElementImage, ElementDrawing:
		return true
	}
	return false
}

// ZoneKind 우선순위 영역 종류
type ZoneKind string

const (
	ZoneHighPriority   ZoneKind = "high-priority"
	ZoneMediumPriority ZoneKind = "medium-priority"
	ZoneLowPriority    ZoneKind = "low-priority"
	ZoneParkingLot     ZoneKind = "parking-lot"
	ZoneToDiscuss      ZoneKind = "to-discuss"
	ZoneCustom         ZoneKind = "custom"
)

func (z ZoneKind) Valid() bool {
	switch z {
	case ZoneHighPriority, ZoneMediumPriority, ZoneLowPriority, ZoneParkingLot, ZoneToDiscuss, ZoneCustom:
		return true
	}
	return false
}

// MessageType 채팅 메시지 타입
type MessageType string

const (
	MessageText         MessageType = "text"
	MessageSystem       MessageType = "system"
	MessageNotification MessageType = "notification"
)

func (m MessageType) Valid() bool {
	switch m {
	case MessageText, MessageSystem, MessageNotification:
		return true
	}
	return false
}

// QuestionStatus 질문 상태
type QuestionStatus string

const (
	QuestionPending  QuestionStatus = "pending"
	QuestionAnswered QuestionStatus = "answered"
	QuestionArchived QuestionStatus = "archived"
)

// QuestionCategory 질문 분류
type QuestionCategory string

const (
	CategoryGeneral       QuestionCategory = "general"
	CategoryTechnical     QuestionCategory = "technical"
	CategoryProcess       QuestionCategory = "process"
	CategoryClarification QuestionCategory = "clarification"
)

func (c QuestionCategory) Valid() bool {
	switch c {
	case CategoryGeneral, CategoryTechnical, CategoryProcess, CategoryClarification:
		return true
	}
	return false
}

// QuestionPriority 질문 우선순위
type QuestionPriority string

const (
	PriorityLow    QuestionPriority = "low"
	PriorityMedium QuestionPriority = "medium"
	PriorityHigh   QuestionPriority = "high"
)

func (p QuestionPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// VoteType 투표 종류
type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

func (v VoteType) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// ActivityAction 활동 로그 액션
type ActivityAction string

const (
	ActionElementCreated      ActivityAction = "element_created"
	ActionElementUpdated      ActivityAction = "element_updated"
	ActionElementDeleted      ActivityAction = "element_deleted"
	ActionElementMoved        ActivityAction = "element_moved"
	ActionElementResized      ActivityAction = "element_resized"
	ActionVoteAdded           ActivityAction = "vote_added"
	ActionVoteRemoved         ActivityAction = "vote_removed"
	ActionConnectionCreated   ActivityAction = "connection_created"
	ActionConnectionDeleted   ActivityAction = "connection_deleted"
	ActionChatMessageSent     ActivityAction = "chat_message_sent"
	ActionChatMessageEdited   ActivityAction = "chat_message_edited"
	ActionChatMessageDeleted  ActivityAction = "chat_message_deleted"
	ActionChatReactionToggled ActivityAction = "chat_reaction_toggled"
	ActionQuestionSubmitted   ActivityAction = "question_submitted"
	ActionQuestionUpvoted     ActivityAction = "question_upvoted"
	ActionQuestionDownvoted   ActivityAction = "question_downvoted"
	ActionQuestionAnswered    ActivityAction = "question_answered"
	ActionQuestionArchived    ActivityAction = "question_archived"
	ActionIdeaAdded           ActivityAction = "idea_added"
	ActionSessionJoined       ActivityAction = "session_joined"
	ActionSessionLeft         ActivityAction = "session_left"
	ActionTimerStarted        ActivityAction = "timer_started"
	ActionTimerStopped        ActivityAction = "timer_stopped"
	ActionBoardLocked         ActivityAction = "board_locked"
	ActionBoardUnlocked       ActivityAction = "board_unlocked"
	ActionTemplateLoaded      ActivityAction = "template_loaded"
	ActionPriorityZoneCreated ActivityAction = "priority_zone_created"
	ActionPriorityZoneDeleted ActivityAction = "priority_zone_deleted"
	ActionSessionCreated      ActivityAction = "session_created"
)

// TargetType 활동 대상 타입
type TargetType string

const (
	TargetCanvasElement TargetType = "canvas_element"
	TargetChatMessage   TargetType = "chat_message"
	TargetQuestion      TargetType = "question"
	TargetSession       TargetType = "session"
	TargetTimer         TargetType = "timer"
	TargetTemplate      TargetType = "template"
	TargetPriorityZone  TargetType = "priority_zone"
	TargetIdea          TargetType = "idea"
)

// 필드 길이 제한
const (
	MaxTitleLength         = 50
	MaxDescriptionLength   = 300
	MaxChatLength          = 1000
	MaxQuestionLength      = 500
	MaxAnswerLength        = 1000
	MaxIdeaLength          = 500
	MaxZoneNameLength      = 100
	DefaultMaxParticipants = 50
)
