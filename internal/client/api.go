// Package client is the board's client-side sync core: a reconciling cache of
// one session view and the optimistic canvas gestures that write through it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sessionboard-backend/internal/model"
)

// SessionView is the session document plus the caller's access to it
type SessionView struct {
	Session model.Session `json:"session"`
	Access  struct {
		Level       string `json:"level"`
		CanWrite    bool   `json:"can_write"`
		Facilitator bool   `json:"facilitator"`
	} `json:"access"`
}

// API is the request/response side of the board transport
type API interface {
	GetSession(ctx context.Context, sessionID string) (*SessionView, error)
	JoinSession(ctx context.Context, sessionID, password string) error

	ListElements(ctx context.Context, sessionID string) ([]model.CanvasElement, error)
	CreateElement(ctx context.Context, sessionID string, el model.CanvasElement) (*model.CanvasElement, error)
	UpdateElement(ctx context.Context, sessionID, elementID string, p model.ElementPatch) (*model.CanvasElement, error)
	DeleteElement(ctx context.Context, sessionID, elementID string) error
	DeleteAllElements(ctx context.Context, sessionID string) error
	VoteElement(ctx context.Context, sessionID, elementID string, kind model.VoteType) (*model.CanvasElement, error)
	AssignZone(ctx context.Context, sessionID, elementID string, zone *model.ZoneKind) (*model.CanvasElement, error)

	ListMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	PostMessage(ctx context.Context, sessionID string, msg model.ChatMessage) (*model.ChatMessage, error)

	ListQuestions(ctx context.Context, sessionID string) ([]model.Question, error)
	AskQuestion(ctx context.Context, sessionID string, q model.Question) (*model.Question, error)
	AnswerQuestion(ctx context.Context, sessionID, questionID, text string) (*model.Question, error)
}

// HTTPAPI talks to the board REST API
type HTTPAPI struct {
	base   string
	token  string
	client *http.Client
}

// NewHTTPAPI creates an API client for baseURL (e.g. http://localhost:8080)
func NewHTTPAPI(baseURL, token string) *HTTPAPI {
	return &HTTPAPI{
		base:   strings.TrimRight(baseURL, "/") + "/api/sessions",
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Privacy model.Privacy   `json:"privacy"`
}

func (a *HTTPAPI) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.base+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServer, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrServer, err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("%w: decode response: %v", ErrServer, err)
		}
	}
	if resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Error, Privacy: env.Privacy}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func sessionPath(sessionID string, parts ...string) string {
	p := "/" + url.PathEscape(sessionID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func (a *HTTPAPI) GetSession(ctx context.Context, sessionID string) (*SessionView, error) {
	var v SessionView
	if err := a.do(ctx, http.MethodGet, sessionPath(sessionID), nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (a *HTTPAPI) JoinSession(ctx context.Context, sessionID, password string) error {
	return a.do(ctx, http.MethodPost, sessionPath(sessionID, "join"), map[string]string{"password": password}, nil)
}

func (a *HTTPAPI) ListElements(ctx context.Context, sessionID string) ([]model.CanvasElement, error) {
	var out []model.CanvasElement
	err := a.do(ctx, http.MethodGet, sessionPath(sessionID, "elements"), nil, &out)
	return out, err
}

func (a *HTTPAPI) CreateElement(ctx context.Context, sessionID string, el model.CanvasElement) (*model.CanvasElement, error) {
	var out model.CanvasElement
	if err := a.do(ctx, http.MethodPost, sessionPath(sessionID, "elements"), el, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) UpdateElement(ctx context.Context, sessionID, elementID string, p model.ElementPatch) (*model.CanvasElement, error) {
	var out model.CanvasElement
	if err := a.do(ctx, http.MethodPatch, sessionPath(sessionID, "elements", elementID), p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) DeleteElement(ctx context.Context, sessionID, elementID string) error {
	return a.do(ctx, http.MethodDelete, sessionPath(sessionID, "elements", elementID), nil, nil)
}

func (a *HTTPAPI) DeleteAllElements(ctx context.Context, sessionID string) error {
	return a.do(ctx, http.MethodDelete, sessionPath(sessionID, "elements"), nil, nil)
}

func (a *HTTPAPI) VoteElement(ctx context.Context, sessionID, elementID string, kind model.VoteType) (*model.CanvasElement, error) {
	var out model.CanvasElement
	if err := a.do(ctx, http.MethodPost, sessionPath(sessionID, "elements", elementID, "vote"), map[string]any{"type": kind}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) AssignZone(ctx context.Context, sessionID, elementID string, zone *model.ZoneKind) (*model.CanvasElement, error) {
	var out model.CanvasElement
	if err := a.do(ctx, http.MethodPut, sessionPath(sessionID, "elements", elementID, "zone"), map[string]any{"zone": zone}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) ListMessages(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	var out []model.ChatMessage
	err := a.do(ctx, http.MethodGet, sessionPath(sessionID, "messages"), nil, &out)
	return out, err
}

func (a *HTTPAPI) PostMessage(ctx context.Context, sessionID string, msg model.ChatMessage) (*model.ChatMessage, error) {
	var out model.ChatMessage
	body := map[string]any{"id": msg.ID, "message": msg.Text, "type": msg.Type}
	if err := a.do(ctx, http.MethodPost, sessionPath(sessionID, "messages"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) ListQuestions(ctx context.Context, sessionID string) ([]model.Question, error) {
	var out []model.Question
	err := a.do(ctx, http.MethodGet, sessionPath(sessionID, "questions"), nil, &out)
	return out, err
}

func (a *HTTPAPI) AskQuestion(ctx context.Context, sessionID string, q model.Question) (*model.Question, error) {
	var out model.Question
	body := map[string]any{
		"id":           q.ID,
		"question":     q.Text,
		"category":     q.Category,
		"priority":     q.Priority,
		"is_anonymous": q.IsAnonymous,
	}
	if err := a.do(ctx, http.MethodPost, sessionPath(sessionID, "questions"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *HTTPAPI) AnswerQuestion(ctx context.Context, sessionID, questionID, text string) (*model.Question, error) {
	var out model.Question
	if err := a.do(ctx, http.MethodPost, sessionPath(sessionID, "questions", questionID, "answer"), map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
