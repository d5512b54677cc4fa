package client

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
)

// State of one open session view
type State string

const (
	StateLoading      State = "loading"
	StateJoined       State = "joined"
	StateJoinRequired State = "join-required"
	StateError        State = "error"
)

const (
	DefaultPollInterval   = 2 * time.Second
	DefaultChatWindow     = 20
	DefaultQuestionWindow = 10
	activityWindow        = 50
)

// Board is the client's reconciling cache of one session.
//
// Broadcast events mutate it incrementally; every poll replaces the canvas,
// chat and questions wholesale so a missed event heals on the next tick.
type Board struct {
	api       API
	sessionID string
	clock     clock.Clock
	interval  time.Duration
	chatMax   int
	qnaMax    int
	log       zerolog.Logger
	resync    chan struct{}

	mu         sync.RWMutex
	state      State
	privacy    model.Privacy
	err        error
	session    *model.Session
	canWrite   bool
	facilitate bool
	board      model.BoardState
	viewers    int64

	elements   []model.CanvasElement
	pending    map[string]int
	failed     map[string]bool
	messages   []model.ChatMessage
	questions  []model.Question
	ideas      []model.Idea
	zones      []model.PriorityZone
	activities []model.SessionActivity
}

// BoardOption configures a Board
type BoardOption func(*Board)

// WithClock replaces the poll clock
func WithClock(c clock.Clock) BoardOption {
	return func(b *Board) { b.clock = c }
}

// WithPollInterval sets the reconciliation interval
func WithPollInterval(d time.Duration) BoardOption {
	return func(b *Board) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithWindows bounds the cached chat and question lists
func WithWindows(chat, questions int) BoardOption {
	return func(b *Board) {
		if chat > 0 {
			b.chatMax = chat
		}
		if questions > 0 {
			b.qnaMax = questions
		}
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) BoardOption {
	return func(b *Board) { b.log = l }
}

// NewBoard creates the view for one session. Call Open to load it.
func NewBoard(api API, sessionID string, opts ...BoardOption) *Board {
	b := &Board{
		api:       api,
		sessionID: sessionID,
		clock:     clock.New(),
		interval:  DefaultPollInterval,
		chatMax:   DefaultChatWindow,
		qnaMax:    DefaultQuestionWindow,
		log:       zerolog.Nop(),
		resync:    make(chan struct{}, 1),
		state:     StateLoading,
		pending:   make(map[string]int),
		failed:    make(map[string]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With().Str("component", "Board").Str("session", sessionID).Logger()
	return b
}

// SessionID of this view
func (b *Board) SessionID() string { return b.sessionID }

// Open loads the session, chat, questions and canvas in parallel.
//
// An access denial moves the view to join-required, keeping the privacy mode
// so the caller knows whether to prompt for a password. Any other failure
// moves it to error and keeps whatever was cached.
func (b *Board) Open(ctx context.Context) error {
	b.mu.Lock()
	b.state = StateLoading
	b.mu.Unlock()

	var (
		view      *SessionView
		messages  []model.ChatMessage
		questions []model.Question
		elements  []model.CanvasElement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		view, err = b.api.GetSession(gctx, b.sessionID)
		return err
	})
	g.Go(func() (err error) {
		messages, err = b.api.ListMessages(gctx, b.sessionID)
		return err
	})
	g.Go(func() (err error) {
		questions, err = b.api.ListQuestions(gctx, b.sessionID)
		return err
	})
	g.Go(func() (err error) {
		elements, err = b.api.ListElements(gctx, b.sessionID)
		return err
	})

	err := g.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
	switch {
	case errors.Is(err, ErrAccessDenied):
		b.state = StateJoinRequired
		b.privacy = PrivacyOf(err)
		return err
	case err != nil:
		b.state = StateError
		return err
	}

	b.applyView(view)
	b.replaceElements(elements)
	b.replaceMessages(messages)
	b.replaceQuestions(questions)
	b.state = StateJoined
	return nil
}

// Join joins the session and reloads it. A failure keeps join-required.
func (b *Board) Join(ctx context.Context, password string) error {
	if err := b.api.JoinSession(ctx, b.sessionID, password); err != nil {
		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
		return err
	}
	return b.Open(ctx)
}

// Poll re-fetches the session, canvas, chat and questions and replaces them
// wholesale. Board state and access come from the session so a lock or role
// change missed on the socket still lands.
func (b *Board) Poll(ctx context.Context) error {
	if b.State() != StateJoined {
		return nil
	}

	var (
		view      *SessionView
		elements  []model.CanvasElement
		messages  []model.ChatMessage
		questions []model.Question
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		view, err = b.api.GetSession(gctx, b.sessionID)
		return err
	})
	g.Go(func() (err error) {
		elements, err = b.api.ListElements(gctx, b.sessionID)
		return err
	})
	g.Go(func() (err error) {
		messages, err = b.api.ListMessages(gctx, b.sessionID)
		return err
	})
	g.Go(func() (err error) {
		questions, err = b.api.ListQuestions(gctx, b.sessionID)
		return err
	})
	if err := g.Wait(); err != nil {
		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = nil
	b.applyView(view)
	b.replaceElements(elements)
	b.replaceMessages(messages)
	b.replaceQuestions(questions)
	return nil
}

// Refresh fetches the session, chat and questions outside the poll cadence
func (b *Board) Refresh(ctx context.Context) error {
	if b.State() != StateJoined {
		return nil
	}

	var (
		view      *SessionView
		messages  []model.ChatMessage
		questions []model.Question
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		view, err = b.api.GetSession(gctx, b.sessionID)
		return err
	})
	g.Go(func() (err error) {
		messages, err = b.api.ListMessages(gctx, b.sessionID)
		return err
	})
	g.Go(func() (err error) {
		questions, err = b.api.ListQuestions(gctx, b.sessionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.applyView(view)
	b.replaceMessages(messages)
	b.replaceQuestions(questions)
	return nil
}

// applyView installs session metadata, board state and access. Caller holds mu.
func (b *Board) applyView(view *SessionView) {
	s := view.Session
	b.session = &s
	b.privacy = s.Privacy
	b.board = s.Board
	b.canWrite = view.Access.CanWrite
	b.facilitate = view.Access.Facilitator
}

// Reconnected schedules an immediate chat and question refresh
func (b *Board) Reconnected() {
	select {
	case b.resync <- struct{}{}:
	default:
	}
}

// Run polls every interval and refreshes after reconnects until ctx ends
func (b *Board) Run(ctx context.Context) error {
	ticker := b.clock.Ticker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := b.Poll(ctx); err != nil && ctx.Err() == nil {
				b.log.Warn().Err(err).Msg("poll failed")
			}
		case <-b.resync:
			if err := b.Refresh(ctx); err != nil && ctx.Err() == nil {
				b.log.Warn().Err(err).Msg("refresh after reconnect failed")
			}
		}
	}
}

// Apply folds one broadcast event into the cache. Applying the same event
// twice leaves the same state.
func (b *Board) Apply(ev protocol.Event) {
	if ev.SessionID != "" && ev.SessionID != b.sessionID {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	switch ev.Type {
	case protocol.KindCanvas:
		err = b.applyCanvas(ev)
	case protocol.KindChat:
		err = b.applyChat(ev)
	case protocol.KindQuestion:
		err = b.applyQuestion(ev)
	case protocol.KindIdea:
		var idea model.Idea
		if err = ev.Decode(&idea); err == nil {
			b.ideas = upsert(b.ideas, idea, func(i model.Idea) string { return i.ID })
		}
	case protocol.KindZone:
		err = b.applyZone(ev)
	case protocol.KindFacilitator:
		var p protocol.FacilitatorPayload
		if err = ev.Decode(&p); err == nil {
			b.board = p.Board
		}
	case protocol.KindActivity:
		var a model.SessionActivity
		if err = ev.Decode(&a); err == nil {
			b.activities = upsert(b.activities, a, func(a model.SessionActivity) string { return a.ID })
			sort.SliceStable(b.activities, func(i, j int) bool {
				return b.activities[i].Timestamp.After(b.activities[j].Timestamp)
			})
			b.activities = bound(b.activities, activityWindow)
		}
	case protocol.KindViewerCount:
		var p protocol.ViewerCountPayload
		if err = ev.Decode(&p); err == nil {
			b.viewers = p.Count
		}
	}
	if err != nil {
		b.log.Debug().Err(err).Str("type", ev.Type).Str("action", ev.Action).Msg("dropping undecodable event")
	}
}

func (b *Board) applyCanvas(ev protocol.Event) error {
	switch ev.Action {
	case protocol.ActionAdd, protocol.ActionUpdate:
		var el model.CanvasElement
		if err := ev.Decode(&el); err != nil {
			return err
		}
		b.putElement(el)
	case protocol.ActionDrag:
		var p protocol.DragPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		if i := b.elementIndex(p.ID); i >= 0 {
			b.elements[i].Position = p.Position
		}
	case protocol.ActionDelete:
		var p protocol.IDPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		b.removeElement(p.ID)
	case protocol.ActionDeleteAll:
		b.elements = nil
	}
	return nil
}

func (b *Board) applyChat(ev protocol.Event) error {
	if ev.Action == protocol.ActionDelete {
		var p protocol.IDPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		for i := range b.messages {
			if b.messages[i].ID == p.ID {
				b.messages[i].IsDeleted = true
				b.messages[i] = b.messages[i].Redacted()
			}
		}
		return nil
	}

	var msg model.ChatMessage
	if err := ev.Decode(&msg); err != nil {
		return err
	}
	if ev.Action != protocol.ActionAdd && ev.Action != "" && !contains(b.messages, msg.ID, messageID) {
		// edits to messages that already scrolled out of the window
		return nil
	}
	b.messages = upsert(b.messages, msg, messageID)
	b.sortMessages()
	return nil
}

func (b *Board) applyQuestion(ev protocol.Event) error {
	if ev.Action == protocol.ActionAnswer {
		var p protocol.AnswerPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		for i := range b.questions {
			q := &b.questions[i]
			if q.ID != p.ID {
				continue
			}
			if !q.HasAnswer(p.Answer.ID) {
				q.Answers = append(q.Answers, p.Answer)
			}
			q.Status = p.Status
			if p.AnsweredAt != nil {
				at := *p.AnsweredAt
				q.AnsweredAt = &at
			}
		}
		return nil
	}

	var q model.Question
	if err := ev.Decode(&q); err != nil {
		return err
	}
	b.questions = upsert(b.questions, q, questionID)
	b.sortQuestions()
	return nil
}

func (b *Board) applyZone(ev protocol.Event) error {
	if ev.Action == protocol.ActionRemove {
		var p protocol.IDPayload
		if err := ev.Decode(&p); err != nil {
			return err
		}
		b.zones = remove(b.zones, p.ID, func(z model.PriorityZone) string { return z.ID })
		return nil
	}
	var z model.PriorityZone
	if err := ev.Decode(&z); err != nil {
		return err
	}
	b.zones = upsert(b.zones, z, func(z model.PriorityZone) string { return z.ID })
	return nil
}

// replace* install a server snapshot. Caller holds mu.

func (b *Board) replaceElements(els []model.CanvasElement) {
	out := make([]model.CanvasElement, len(els))
	copy(out, els)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	b.elements = out
	// a snapshot supersedes failed writes; in-flight ones stay unsynced
	b.failed = make(map[string]bool)
}

func (b *Board) replaceMessages(msgs []model.ChatMessage) {
	b.messages = append([]model.ChatMessage(nil), msgs...)
	b.sortMessages()
}

func (b *Board) replaceQuestions(qs []model.Question) {
	b.questions = append([]model.Question(nil), qs...)
	b.sortQuestions()
}

func (b *Board) sortMessages() {
	sort.SliceStable(b.messages, func(i, j int) bool {
		return b.messages[i].CreatedAt.After(b.messages[j].CreatedAt)
	})
	b.messages = bound(b.messages, b.chatMax)
}

func (b *Board) sortQuestions() {
	sort.SliceStable(b.questions, func(i, j int) bool {
		return b.questions[i].CreatedAt.After(b.questions[j].CreatedAt)
	})
	b.questions = bound(b.questions, b.qnaMax)
}

func (b *Board) elementIndex(id string) int {
	for i := range b.elements {
		if b.elements[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) putElement(el model.CanvasElement) {
	if i := b.elementIndex(el.ID); i >= 0 {
		b.elements[i] = el
		return
	}
	b.elements = append(b.elements, el)
}

func (b *Board) removeElement(id string) {
	b.elements = remove(b.elements, id, func(e model.CanvasElement) string { return e.ID })
}

// Accessors return copies

// State of the view
func (b *Board) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Privacy of the session, known even when the view is join-required
func (b *Board) Privacy() model.Privacy {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.privacy
}

// Err is the last load, join or poll failure
func (b *Board) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

// Session returns the loaded session document
func (b *Board) Session() (model.Session, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.session == nil {
		return model.Session{}, false
	}
	return b.session.Clone(), true
}

// CanWrite reports whether the caller may modify the board
func (b *Board) CanWrite() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.canWrite
}

// Facilitator reports whether the caller facilitates the session
func (b *Board) Facilitator() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.facilitate
}

// BoardState is the facilitator lock and timer
func (b *Board) BoardState() model.BoardState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.board
}

// Viewers is the live connection count
func (b *Board) Viewers() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.viewers
}

// Elements in creation order
func (b *Board) Elements() []model.CanvasElement {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.CanvasElement, len(b.elements))
	for i, el := range b.elements {
		out[i] = el.Clone()
	}
	return out
}

// Element by id
func (b *Board) Element(id string) (model.CanvasElement, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i := b.elementIndex(id); i >= 0 {
		return b.elements[i].Clone(), true
	}
	return model.CanvasElement{}, false
}

// Unsynced reports whether a local change to the element has not been
// acknowledged by the server
func (b *Board) Unsynced(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.pending[id] > 0 || b.failed[id]
}

// Messages newest first, at most the chat window
func (b *Board) Messages() []model.ChatMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.ChatMessage, len(b.messages))
	for i, m := range b.messages {
		out[i] = m.Clone()
	}
	return out
}

// Questions newest first, at most the question window
func (b *Board) Questions() []model.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Question, len(b.questions))
	for i, q := range b.questions {
		out[i] = q.Clone()
	}
	return out
}

// Ideas received during this view
func (b *Board) Ideas() []model.Idea {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]model.Idea(nil), b.ideas...)
}

// Zones received during this view
func (b *Board) Zones() []model.PriorityZone {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]model.PriorityZone(nil), b.zones...)
}

// Activities newest first
func (b *Board) Activities() []model.SessionActivity {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]model.SessionActivity(nil), b.activities...)
}

func messageID(m model.ChatMessage) string { return m.ID }
func questionID(q model.Question) string   { return q.ID }

func upsert[T any](list []T, v T, id func(T) string) []T {
	key := id(v)
	for i := range list {
		if id(list[i]) == key {
			list[i] = v
			return list
		}
	}
	return append(list, v)
}

func remove[T any](list []T, key string, id func(T) string) []T {
	out := list[:0]
	for _, v := range list {
		if id(v) != key {
			out = append(out, v)
		}
	}
	return out
}

func contains[T any](list []T, key string, id func(T) string) bool {
	for _, v := range list {
		if id(v) == key {
			return true
		}
	}
	return false
}

func bound[T any](list []T, n int) []T {
	if n > 0 && len(list) > n {
		return list[:n]
	}
	return list
}
