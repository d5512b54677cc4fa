package client

import (
	"context"
	"sync"
	"time"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
)

// fakeServer is an in-memory stand-in for the board API shared by several
// clients.
type fakeServer struct {
	mu        sync.Mutex
	session   model.Session
	members   map[int64]bool
	password  string
	elements  []model.CanvasElement
	messages  []model.ChatMessage
	questions []model.Question
	failRead  error
	failWrite error
	reads     int
}

func newFakeServer(privacy model.Privacy, members ...int64) *fakeServer {
	srv := &fakeServer{
		session: model.Session{
			ID:        "s1",
			Title:     "Retro",
			CreatorID: 1,
			Privacy:   privacy,
			Status:    model.SessionStatusActive,
			Settings:  model.DefaultSessionSettings(),
		},
		members: make(map[int64]bool),
	}
	for _, m := range members {
		srv.members[m] = true
	}
	return srv
}

func (s *fakeServer) as(user int64) *fakeAPI { return &fakeAPI{srv: s, user: user} }

func (s *fakeServer) addMessage(text string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, model.ChatMessage{ID: text, SessionID: "s1", Text: text, CreatedAt: at})
}

func (s *fakeServer) addElement(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements = append(s.elements, model.CanvasElement{ID: id, SessionID: "s1", Version: 1, CreatedAt: at})
}

func (s *fakeServer) element(id string) (model.CanvasElement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, el := range s.elements {
		if el.ID == id {
			return el.Clone(), true
		}
	}
	return model.CanvasElement{}, false
}

// setBoard changes board state without telling any client
func (s *fakeServer) setBoard(state model.BoardState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Board = state
}

func (s *fakeServer) setFailures(read, write error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRead, s.failWrite = read, write
}

func (s *fakeServer) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

type fakeAPI struct {
	srv  *fakeServer
	user int64
}

func apiErr(status int, code string) *APIError {
	return &APIError{Status: status, Code: code, Message: code}
}

// read gate, caller holds srv.mu
func (a *fakeAPI) readable() error {
	a.srv.reads++
	if a.srv.failRead != nil {
		return a.srv.failRead
	}
	if a.srv.session.Privacy != model.PrivacyPublic && !a.srv.members[a.user] {
		e := apiErr(403, protocol.CodeAccessDenied)
		e.Privacy = a.srv.session.Privacy
		return e
	}
	return nil
}

// write gate, caller holds srv.mu
func (a *fakeAPI) writable() error {
	if a.srv.failWrite != nil {
		return a.srv.failWrite
	}
	if !a.srv.members[a.user] {
		return apiErr(403, protocol.CodeAccessDenied)
	}
	return nil
}

func (a *fakeAPI) index(id string) int {
	for i := range a.srv.elements {
		if a.srv.elements[i].ID == id {
			return i
		}
	}
	return -1
}

func (a *fakeAPI) GetSession(_ context.Context, _ string) (*SessionView, error) {
	a.srv.mu.Lock()
	defer a.srv.mu.Unlock()
	if err := a.readable(); err != nil {
		return nil, err
	}
	v := &SessionView{Session: a.srv.session.Clone()}
	v.Access.Level = "read"
	if a.srv.members[a.user] {
		v.Access.Level = "write"
		v.Access.CanWrite = true
	}
	v.Access.Facilitator = a.user == a.srv.session.CreatorID
	return v, nil
}

func (a *fakeAPI) JoinSession(_ context.Context, _ string, password string) error {
	a.srv.mu.Lock()
	defer a.srv.mu.Unlock()
	if a.srv.session.Privacy == model.PrivacyPasswordProtected && password != a.srv.password {
		e := apiErr(401, protocol.CodeInvalidPassword)
		e.Privacy = model.PrivacyPasswordProtected
		return e
	}
	if a.srv.session.Privacy == model.PrivacyPrivate {
		return apiErr(403, protocol.CodeAccessDenied)
	}
	a.srv.members[a.user] = true
	return nil
}

func (a *fakeAPI) ListElements(_ context.Context, _ string) ([]model.CanvasElement, error) {
	a.srv.mu.Lock()
	defer a.srv.mu.Unlock()
	if err := a.readable(); err != nil {
		return nil, err
	}
	out := make([]model.CanvasElement, len(a.srv.elements))
	for i, el := range a.srv.elements {
		out[i] = el.Clone()
	}
	return out, nil
}

func (a *fakeAPI) CreateElement(_ context.Context, _ string, el model.CanvasElement) (*model.CanvasElement, error) {
	a.srv.mu.Lock()
	defer a.srv.mu.Unlock()
	if err := a.writable(); err != nil {
		return nil, err
	}
	el.Version = 1
	a.srv.elements = append(a.srv.elements, el.Clone())
	return &el, nil
}

func (a *fakeAPI) UpdateElement(_ context.Context, _, elementID string, p model.ElementPatch) (*model.CanvasElement, error) {
	a.srv.mu.Lock()
	defer a.srv.mu.Unlock()
	if err := a.writable(); err != nil {
		return nil, err
	}
	i := a.index(elementID)
	if i < 0 {
		return nil, apiErr(404, protocol.CodeNotFound)
	}
	a.srv.elements[i].Apply(p)
	a.srv.elements[i].Version++
	out := a.srv.elements[i].Clone()
	return &out, nil
}

func (a *fakeAPI) DeleteElement(_ context.Context, _, elementID string) error {
	a.srv.mu.Lock()
	defer a.srv.mu.Unlock()
	if err := a.writable(); err != nil {
		return err
	}
	if i := a.index(elementID); i >= 0 {
		a.srv.elements = append(a.srv.elements[:i], a.srv.elements[i+1:]...)
	}
	return nil
}

func (a *fakeAPI) DeleteAllElements(_ context.Context, _ string) error {
	a.srv.mu.Lock()
	defer a.srv.mu.Unlock()
	if err := a.writable(); err != nil {
		return err
	}
	a.srv.elements = nil
	return nil
}

func (a *fakeAPI) VoteElement(_ context.Context, _, elementID string, kind model.VoteType) (*model.CanvasElement, error) {
	a.srv.mu.Lock()
	defer a.srv.mu.Unlock()
	if err := a.writable(); err != nil {
		return nil, err
	}
	i := a.index(elementID)
	if i < 0 {
		return nil, apiErr(404, protocol.CodeNotFound)
	}
	a.srv.elements[i].Votes.Cast(a.user, kind, time.Now())
	out := a.srv.elements[i].Clone()
	return &out, nil
}

func (a *fakeAPI) AssignZone(_ context.Context, _, elementID string, zone *model.ZoneKind) (*model.CanvasElement, error) {
	a.srv.mu.Lock()
	defer a.srv.mu.Unlock()
	if err := a.writable(); err != nil {
		return nil, err
	}
	i := a.index(elementID)
	if i < 0 {
		return nil, apiErr(404, protocol.CodeNotFound)
	}
	a.srv.elements[i].PriorityZone = zone
	a.srv.elements[i].Version++
	out := a.srv.elements[i].Clone()
	return &out, nil
}

func (a *fakeAPI) ListMessages(_ context.Context, _ string) ([]model.ChatMessage, error) {
	a.srv.mu.Lock()
	defer a.srv.mu.Unlock()
	if err := a.readable(); err != nil {
		return nil, err
	}
	return append([]model.ChatMessage(nil), a.srv.messages...), nil
}

func (a *fakeAPI) PostMessage(_ context.Context, _ string, msg model.ChatMessage) (*model.ChatMessage, error) {
	a.srv.mu.Lock()
	defer a.srv.mu.Unlock()
	if err := a.writable(); err != nil {
		return nil, err
	}
	a.srv.messages = append(a.srv.messages, msg)
	return &msg, nil
}

func (a *fakeAPI) ListQuestions(_ context.Context, _ string) ([]model.Question, error) {
	a.srv.mu.Lock()
	defer a.srv.mu.Unlock()
	if err := a.readable(); err != nil {
		return nil, err
	}
	return append([]model.Question(nil), a.srv.questions...), nil
}

func (a *fakeAPI) AskQuestion(_ context.Context, _ string, q model.Question) (*model.Question, error) {
	a.srv.mu.Lock()
	defer a.srv.mu.Unlock()
	if err := a.writable(); err != nil {
		return nil, err
	}
	a.srv.questions = append(a.srv.questions, q)
	return &q, nil
}

func (a *fakeAPI) AnswerQuestion(_ context.Context, _, questionID, text string) (*model.Question, error) {
	a.srv.mu.Lock()
	defer a.srv.mu.Unlock()
	if err := a.writable(); err != nil {
		return nil, err
	}
	for i := range a.srv.questions {
		if a.srv.questions[i].ID == questionID {
			a.srv.questions[i].AddAnswer(model.Answer{ID: text, AuthorID: a.user, Text: text, CreatedAt: time.Now()})
			out := a.srv.questions[i].Clone()
			return &out, nil
		}
	}
	return nil, apiErr(404, protocol.CodeNotFound)
}

// bus fans emitted events out to every attached board, sender included,
// the way the hub does.
type bus struct {
	mu     sync.Mutex
	boards []*Board
	sent   []protocol.Event
	down   bool
}

func (b *bus) attach(boards ...*Board) { b.boards = append(b.boards, boards...) }

func (b *bus) Emit(ev protocol.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.down {
		return ErrDisconnected
	}
	b.sent = append(b.sent, ev)
	for _, board := range b.boards {
		board.Apply(ev)
	}
	return nil
}

func (b *bus) actions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.sent))
	for i, ev := range b.sent {
		out[i] = ev.Action
	}
	return out
}
