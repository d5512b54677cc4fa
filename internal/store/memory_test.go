package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionboard-backend/internal/model"
)

func TestMemoryStore_Sessions(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	t.Run("create assigns id and timestamps", func(t *testing.T) {
		s := &model.Session{Title: "Retro", CreatorID: 1}
		require.NoError(t, st.CreateSession(ctx, s))
		assert.NotEmpty(t, s.ID)
		assert.False(t, s.CreatedAt.IsZero())

		got, err := st.GetSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "Retro", got.Title)
	})

	t.Run("missing session", func(t *testing.T) {
		_, err := st.GetSession(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("returned documents are copies", func(t *testing.T) {
		s := &model.Session{Title: "Copy", CreatorID: 1, Facilitators: []int64{2}}
		require.NoError(t, st.CreateSession(ctx, s))

		got, err := st.GetSession(ctx, s.ID)
		require.NoError(t, err)
		got.Facilitators[0] = 99

		again, err := st.GetSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, again.Facilitators)
	})

	t.Run("update error aborts write", func(t *testing.T) {
		s := &model.Session{Title: "Before", CreatorID: 1}
		require.NoError(t, st.CreateSession(ctx, s))

		boom := errors.New("boom")
		_, err := st.UpdateSession(ctx, s.ID, func(sess *model.Session) error {
			sess.Title = "After"
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := st.GetSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "Before", got.Title)
	})
}

func TestMemoryStore_ListSessions(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mine := &model.Session{Title: "mine", CreatorID: 1, Status: model.SessionStatusActive, CreatedAt: base}
	facilitated := &model.Session{Title: "facilitated", CreatorID: 2, Facilitators: []int64{1}, Status: model.SessionStatusDraft, CreatedAt: base.Add(time.Minute)}
	joined := &model.Session{Title: "joined", CreatorID: 3, Status: model.SessionStatusActive, CreatedAt: base.Add(2 * time.Minute),
		Participants: []model.Participant{{UserID: 1, Role: model.RoleParticipant}}}
	other := &model.Session{Title: "other", CreatorID: 4, Status: model.SessionStatusActive, CreatedAt: base.Add(3 * time.Minute)}
	for _, s := range []*model.Session{mine, facilitated, joined, other} {
		require.NoError(t, st.CreateSession(ctx, s))
	}

	t.Run("membership newest first", func(t *testing.T) {
		got, total, err := st.ListSessions(ctx, SessionFilter{UserID: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"joined", "facilitated", "mine"}, []string{got[0].Title, got[1].Title, got[2].Title})
	})

	t.Run("status filter", func(t *testing.T) {
		got, total, err := st.ListSessions(ctx, SessionFilter{UserID: 1, Status: model.SessionStatusActive})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, got, 2)
	})

	t.Run("pagination keeps total", func(t *testing.T) {
		got, total, err := st.ListSessions(ctx, SessionFilter{UserID: 1, Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, got, 1)
		assert.Equal(t, "facilitated", got[0].Title)
	})
}

func TestMemoryStore_Elements(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	top := &model.CanvasElement{SessionID: "s1", ZIndex: 2, CreatedAt: base}
	first := &model.CanvasElement{SessionID: "s1", ZIndex: 0, CreatedAt: base.Add(time.Second)}
	second := &model.CanvasElement{SessionID: "s1", ZIndex: 0, CreatedAt: base.Add(2 * time.Second)}
	foreign := &model.CanvasElement{ID: "shared-id", SessionID: "s2"}
	for _, e := range []*model.CanvasElement{top, first, second, foreign} {
		require.NoError(t, st.CreateElement(ctx, e))
	}

	t.Run("ordered by z-index then creation", func(t *testing.T) {
		got, err := st.ListElements(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{first.ID, second.ID, top.ID}, []string{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("scoped by session", func(t *testing.T) {
		_, err := st.GetElement(ctx, "s1", "shared-id")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, st.DeleteElement(ctx, "s1", "shared-id"), ErrNotFound)
		_, err = st.UpdateElement(ctx, "s1", "shared-id", func(*model.CanvasElement) error { return nil })
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("client supplied id is kept", func(t *testing.T) {
		got, err := st.GetElement(ctx, "s2", "shared-id")
		require.NoError(t, err)
		assert.Equal(t, "s2", got.SessionID)
	})

	t.Run("delete all only touches one session", func(t *testing.T) {
		n, err := st.DeleteElements(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		left, err := st.ListElements(ctx, "s2")
		require.NoError(t, err)
		assert.Len(t, left, 1)
	})
}

func TestMemoryStore_DeleteSessionCascades(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	s := &model.Session{Title: "gone", CreatorID: 1}
	require.NoError(t, st.CreateSession(ctx, s))
	require.NoError(t, st.CreateElement(ctx, &model.CanvasElement{SessionID: s.ID}))
	require.NoError(t, st.CreateMessage(ctx, &model.ChatMessage{SessionID: s.ID, Text: "hi"}))
	require.NoError(t, st.CreateQuestion(ctx, &model.Question{SessionID: s.ID, Text: "why?"}))
	require.NoError(t, st.CreateIdea(ctx, &model.Idea{SessionID: s.ID, Text: "idea"}))
	require.NoError(t, st.CreateZone(ctx, &model.PriorityZone{SessionID: s.ID, Name: "Later"}))
	require.NoError(t, st.AppendActivity(ctx, &model.SessionActivity{SessionID: s.ID, Action: model.ActionSessionCreated}))

	require.NoError(t, st.DeleteSession(ctx, s.ID))
	assert.ErrorIs(t, st.DeleteSession(ctx, s.ID), ErrNotFound)

	elements, _ := st.ListElements(ctx, s.ID)
	messages, _ := st.ListMessages(ctx, s.ID)
	questions, _ := st.ListQuestions(ctx, s.ID)
	ideas, _ := st.ListIdeas(ctx, s.ID)
	zones, _ := st.ListZones(ctx, s.ID)
	activities, _ := st.ListActivities(ctx, ActivityFilter{SessionID: s.ID})
	assert.Empty(t, elements)
	assert.Empty(t, messages)
	assert.Empty(t, questions)
	assert.Empty(t, ideas)
	assert.Empty(t, zones)
	assert.Empty(t, activities)
}

func TestMemoryStore_ChatOrdering(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// identical timestamps fall back to insertion order
	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, st.CreateMessage(ctx, &model.ChatMessage{SessionID: "s1", Text: text, CreatedAt: at}))
	}
	got, err := st.ListMessages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Text)
	assert.Equal(t, "c", got[2].Text)
}

func TestMemoryStore_ListActivities(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	add := func(user int64, action model.ActivityAction, offset time.Duration) {
		require.NoError(t, st.AppendActivity(ctx, &model.SessionActivity{
			SessionID: "s1", UserID: user, Action: action, Timestamp: base.Add(offset),
		}))
	}
	add(1, model.ActionElementCreated, 0)
	add(2, model.ActionChatMessageSent, time.Minute)
	add(1, model.ActionElementUpdated, 2*time.Minute)
	add(1, model.ActionElementCreated, 3*time.Minute)

	t.Run("window", func(t *testing.T) {
		got, err := st.ListActivities(ctx, ActivityFilter{SessionID: "s1", Since: base.Add(time.Minute), Until: base.Add(2 * time.Minute)})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("action set and user", func(t *testing.T) {
		got, err := st.ListActivities(ctx, ActivityFilter{SessionID: "s1", UserID: 1, Actions: []model.ActivityAction{model.ActionElementCreated}})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.True(t, got[0].Timestamp.Before(got[1].Timestamp))
	})

	t.Run("limit", func(t *testing.T) {
		got, err := st.ListActivities(ctx, ActivityFilter{SessionID: "s1", Limit: 3})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})
}

func TestMemoryStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	require.NoError(t, st.CreateElement(ctx, &model.CanvasElement{ID: "e1", SessionID: "s1"}))
	assert.ErrorIs(t, st.CreateElement(ctx, &model.CanvasElement{ID: "e1", SessionID: "s1"}), ErrConflict)
}
