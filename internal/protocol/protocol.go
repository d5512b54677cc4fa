// Package protocol defines the websocket envelope shared by the board server and its clients.
package protocol

import (
	"encoding/json"
	"time"

	"sessionboard-backend/internal/model"
)

// Event kinds broadcast to a session topic
const (
	KindCanvas      = "canvas-action"
	KindChat        = "chat-message"
	KindQuestion    = "question-action"
	KindIdea        = "idea-action"
	KindZone        = "zone-action"
	KindFacilitator = "facilitator-action"
	KindActivity    = "activity-action"
	KindViewerCount = "viewer-count"
	KindUserJoined  = "user-joined"
	KindUserLeft    = "user-left"
)

// Control messages between a socket and the server
const (
	TypeJoin   = "join-session"
	TypeLeave  = "leave-session"
	TypeJoined = "joined"
	TypeLeft   = "left"
	TypePing   = "ping"
	TypePong   = "pong"
	TypeError  = "error"
)

// Actions carried in Event.Action
const (
	ActionAdd       = "add"
	ActionUpdate    = "update"
	ActionDelete    = "delete"
	ActionDeleteAll = "deleteAll"
	ActionDrag      = "drag"
	ActionAnswer    = "answer"
	ActionVote      = "vote"
	ActionArchive   = "archive"
	ActionEdit      = "edit"
	ActionReact     = "react"
	ActionRemove    = "remove"

	ActionLock       = "lock"
	ActionUnlock     = "unlock"
	ActionStartTimer = "start-timer"
	ActionStopTimer  = "stop-timer"
)

// Error codes returned in REST error bodies and socket error events
const (
	CodeNotFound        = "NOT_FOUND"
	CodeAccessDenied    = "ACCESS_DENIED"
	CodeInvalidPassword = "INVALID_PASSWORD"
	CodeLocked          = "LOCKED"
	CodeValidation      = "VALIDATION"
	CodeCapacity        = "CAPACITY"
	CodeStateConflict   = "STATE_CONFLICT"
	CodeServerError     = "SERVER_ERROR"
)

// Event is the envelope for everything sent over a board socket.
// Client to server messages reuse it: Type is a control type or a relay kind.
type Event struct {
	Type      string          `json:"type"`
	Action    string          `json:"action,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	At        time.Time       `json:"at"`
	Origin    string          `json:"origin,omitempty"`
	Error     string          `json:"error,omitempty"`
	Code      string          `json:"code,omitempty"`
}

// NewEvent marshals payload into an event envelope
func NewEvent(kind, action, sessionID string, payload any) (Event, error) {
	ev := Event{Type: kind, Action: action, SessionID: sessionID, At: time.Now().UTC()}
	if payload == nil {
		return ev, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	ev.Payload = raw
	return ev, nil
}

// Decode unmarshals the payload into v
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}

// IsRelayKind reports whether clients may emit this kind onto a topic
func IsRelayKind(kind string) bool {
	switch kind {
	case KindCanvas, KindChat, KindQuestion, KindIdea, KindZone, KindFacilitator:
		return true
	}
	return false
}

// Payloads that are not full documents

// IDPayload identifies a removed document
type IDPayload struct {
	ID string `json:"id"`
}

// DragPayload is the position-only canvas broadcast
type DragPayload struct {
	ID       string      `json:"id"`
	Position model.Point `json:"position"`
}

// ViewerCountPayload is the live connection count of a session
type ViewerCountPayload struct {
	Count int64 `json:"count"`
}

// PresencePayload announces a user joining or leaving
type PresencePayload struct {
	UserID       int64  `json:"userId"`
	Nickname     string `json:"nickname,omitempty"`
	ConnectionID string `json:"connectionId,omitempty"`
}

// JoinedPayload acknowledges a join-session request
type JoinedPayload struct {
	ConnectionID string `json:"connectionId"`
	CanWrite     bool   `json:"canWrite"`
	Facilitator  bool   `json:"facilitator"`
}

// AnswerPayload carries one new answer and the question's resulting status
type AnswerPayload struct {
	ID         string               `json:"id"`
	Answer     model.Answer         `json:"answer"`
	Status     model.QuestionStatus `json:"status"`
	AnsweredAt *time.Time           `json:"answered_at,omitempty"`
}

// FacilitatorPayload is the board state after a facilitator control
type FacilitatorPayload struct {
	Board    model.BoardState `json:"board"`
	ActorID  int64            `json:"actor_id"`
	Duration int              `json:"duration,omitempty"`
}
