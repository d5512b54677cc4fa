package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
)

func ptr[T any](v T) *T { return &v }

func TestCreateElement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)

	id := uuid.NewString()
	el, err := f.board.CreateElement(ctx, bob, s.ID, model.CanvasElement{
		ID:       id,
		Position: model.Point{X: 10, Y: 20},
		Content:  model.Content{Text: "ship it"},
		Version:  42,
		IsLocked: true,
	})
	require.NoError(t, err)

	assert.Equal(t, id, el.ID)
	assert.Equal(t, model.ElementStickyNote, el.Type)
	assert.EqualValues(t, 1, el.Version)
	assert.False(t, el.IsLocked)
	assert.True(t, el.IsVisible)
	assert.Equal(t, bob.UserID, el.CreatorID)
	assert.Equal(t, model.Size{Width: 200, Height: 150}, el.Size)

	events := f.pub.of(protocol.KindCanvas)
	require.Len(t, events, 1)
	assert.Equal(t, protocol.ActionAdd, events[0].Action)
	assert.Equal(t, s.ID, events[0].SessionID)
	var got model.CanvasElement
	require.NoError(t, events[0].Decode(&got))
	assert.Equal(t, id, got.ID)

	_, err = f.board.CreateElement(ctx, bob, s.ID, model.CanvasElement{ID: id})
	require.Error(t, err)
	assert.Equal(t, protocol.CodeStateConflict, Code(err))

	_, err = f.board.CreateElement(ctx, bob, s.ID, model.CanvasElement{ID: "not-a-uuid"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.board.CreateElement(ctx, bob, s.ID, model.CanvasElement{Type: "blob"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestPublishHappensAfterPersist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)

	var checked int
	f.pub.onPublish = func(sessionID string, ev protocol.Event) {
		if ev.Type != protocol.KindCanvas {
			return
		}
		var el model.CanvasElement
		require.NoError(t, ev.Decode(&el))
		stored, err := f.store.GetElement(ctx, sessionID, el.ID)
		require.NoError(t, err)
		assert.Equal(t, el.Version, stored.Version)
		checked++
	}

	el, err := f.board.CreateElement(ctx, bob, s.ID, model.CanvasElement{})
	require.NoError(t, err)
	_, err = f.board.UpdateElement(ctx, bob, s.ID, el.ID, model.ElementPatch{Content: &model.Content{Text: "v2"}})
	require.NoError(t, err)
	assert.Equal(t, 2, checked)

	// activity is appended before the domain event goes out
	f.pub.mu.Lock()
	kinds := []string{f.pub.events[0].Type, f.pub.events[1].Type}
	f.pub.mu.Unlock()
	assert.Equal(t, []string{protocol.KindActivity, protocol.KindCanvas}, kinds)
}

func TestFailedWritePublishesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)

	_, err := f.board.UpdateElement(ctx, bob, s.ID, uuid.NewString(), model.ElementPatch{ZIndex: ptr(3)})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = f.board.UpdateElement(ctx, bob, s.ID, "x", model.ElementPatch{})
	require.ErrorIs(t, err, ErrValidation)

	f.pub.mu.Lock()
	defer f.pub.mu.Unlock()
	assert.Empty(t, f.pub.events)
}

func TestUpdateElementBumpsVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)

	el, err := f.board.CreateElement(ctx, alice, s.ID, model.CanvasElement{Content: model.Content{Text: "a"}})
	require.NoError(t, err)

	const n = 5
	for i := 0; i < n; i++ {
		f.clock.Add(time.Second)
		el, err = f.board.UpdateElement(ctx, bob, s.ID, el.ID, model.ElementPatch{Position: &model.Point{X: float64(i), Y: 1}})
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1+n, el.Version)
	assert.Equal(t, f.clock.Now().UTC(), el.LastModified)
	require.NotNil(t, el.ModifiedBy)
	assert.Equal(t, bob.UserID, *el.ModifiedBy)
	assert.Equal(t, "a", el.Content.Text, "untouched fields survive a shallow merge")

	updates := f.pub.of(protocol.KindCanvas)
	require.Len(t, updates, n)
	var last model.CanvasElement
	require.NoError(t, updates[n-1].Decode(&last))
	assert.Equal(t, el.Version, last.Version)
}

func TestLockedElementRejectsWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)

	el, err := f.board.CreateElement(ctx, bob, s.ID, model.CanvasElement{})
	require.NoError(t, err)

	_, err = f.board.SetElementLock(ctx, bob, s.ID, el.ID, true)
	require.ErrorIs(t, err, ErrAccessDenied)
	_, err = f.board.UpdateElement(ctx, bob, s.ID, el.ID, model.ElementPatch{IsLocked: ptr(true)})
	require.ErrorIs(t, err, ErrAccessDenied)

	locked, err := f.board.SetElementLock(ctx, alice, s.ID, el.ID, true)
	require.NoError(t, err)
	require.True(t, locked.IsLocked)
	f.pub.reset()

	f.clock.Add(time.Minute)
	_, err = f.board.UpdateElement(ctx, bob, s.ID, el.ID, model.ElementPatch{Position: &model.Point{X: 99}})
	require.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, protocol.CodeLocked, Code(err))
	require.ErrorIs(t, f.board.DeleteElement(ctx, bob, s.ID, el.ID), ErrLocked)
	_, err = f.board.VoteElement(ctx, bob, s.ID, el.ID, model.VoteUp)
	require.ErrorIs(t, err, ErrLocked)

	stored, err := f.store.GetElement(ctx, s.ID, el.ID)
	require.NoError(t, err)
	assert.Equal(t, locked.Version, stored.Version)
	assert.Equal(t, locked.LastModified, stored.LastModified)
	assert.Equal(t, model.Point{}, stored.Position)
	assert.Empty(t, f.pub.of(protocol.KindCanvas))

	unlocked, err := f.board.SetElementLock(ctx, alice, s.ID, el.ID, false)
	require.NoError(t, err)
	_, err = f.board.UpdateElement(ctx, bob, s.ID, el.ID, model.ElementPatch{Position: &model.Point{X: 99}})
	require.NoError(t, err)
	assert.Greater(t, unlocked.Version, locked.Version)
}

func TestDeleteElements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)

	a, err := f.board.CreateElement(ctx, bob, s.ID, model.CanvasElement{})
	require.NoError(t, err)
	b, err := f.board.CreateElement(ctx, bob, s.ID, model.CanvasElement{})
	require.NoError(t, err)
	_, err = f.board.SetElementLock(ctx, alice, s.ID, b.ID, true)
	require.NoError(t, err)
	_, err = f.board.CreateElement(ctx, bob, s.ID, model.CanvasElement{})
	require.NoError(t, err)
	f.pub.reset()

	require.NoError(t, f.board.DeleteElement(ctx, bob, s.ID, a.ID))
	require.ErrorIs(t, f.board.DeleteElement(ctx, bob, s.ID, a.ID), ErrNotFound)

	n, err := f.board.DeleteAllElements(ctx, bob, s.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	els, err := f.board.ListElements(ctx, bob, s.ID)
	require.NoError(t, err)
	assert.Empty(t, els)

	events := f.pub.of(protocol.KindCanvas)
	require.Len(t, events, 2)
	assert.Equal(t, protocol.ActionDelete, events[0].Action)
	var id protocol.IDPayload
	require.NoError(t, events[0].Decode(&id))
	assert.Equal(t, a.ID, id.ID)
	assert.Equal(t, protocol.ActionDeleteAll, events[1].Action)
}

func TestVoteElement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)

	el, err := f.board.CreateElement(ctx, alice, s.ID, model.CanvasElement{})
	require.NoError(t, err)
	f.pub.reset()

	el, err = f.board.VoteElement(ctx, bob, s.ID, el.ID, model.VoteUp)
	require.NoError(t, err)
	assert.Len(t, el.Votes.Upvotes, 1)

	el, err = f.board.VoteElement(ctx, bob, s.ID, el.ID, model.VoteDown)
	require.NoError(t, err)
	assert.Empty(t, el.Votes.Upvotes)
	assert.Len(t, el.Votes.Downvotes, 1)

	el, err = f.board.VoteElement(ctx, bob, s.ID, el.ID, model.VoteDown)
	require.NoError(t, err)
	assert.Len(t, el.Votes.Downvotes, 1)
	assert.EqualValues(t, 1, el.Version, "votes don't bump the version")
	assert.Len(t, f.pub.of(protocol.KindCanvas), 2, "repeat vote is a no-op")

	el, err = f.board.VoteElement(ctx, alice, s.ID, el.ID, model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 0, el.Votes.Score())

	el, err = f.board.RetractVote(ctx, bob, s.ID, el.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, el.Votes.Score())

	_, err = f.board.VoteElement(ctx, bob, s.ID, el.ID, "sideways")
	require.ErrorIs(t, err, ErrValidation)
}

func TestVotingDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)

	el, err := f.board.CreateElement(ctx, alice, s.ID, model.CanvasElement{})
	require.NoError(t, err)
	settings := s.Settings
	settings.EnableVoting = false
	_, err = f.board.UpdateSession(ctx, alice, s.ID, SessionPatch{Settings: &settings})
	require.NoError(t, err)

	_, err = f.board.VoteElement(ctx, bob, s.ID, el.ID, model.VoteUp)
	require.ErrorIs(t, err, ErrStateConflict)
}

func TestAssignZone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)

	el, err := f.board.CreateElement(ctx, alice, s.ID, model.CanvasElement{})
	require.NoError(t, err)

	el, err = f.board.AssignZone(ctx, bob, s.ID, el.ID, ptr(model.ZoneParkingLot))
	require.NoError(t, err)
	require.NotNil(t, el.PriorityZone)
	assert.Equal(t, model.ZoneParkingLot, *el.PriorityZone)
	assert.EqualValues(t, 2, el.Version)

	el, err = f.board.AssignZone(ctx, bob, s.ID, el.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, el.PriorityZone)

	_, err = f.board.AssignZone(ctx, bob, s.ID, el.ID, ptr(model.ZoneKind("backlog")))
	require.ErrorIs(t, err, ErrValidation)
}

func TestListElementsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)

	top, err := f.board.CreateElement(ctx, alice, s.ID, model.CanvasElement{ZIndex: 5})
	require.NoError(t, err)
	first, err := f.board.CreateElement(ctx, alice, s.ID, model.CanvasElement{})
	require.NoError(t, err)
	second, err := f.board.CreateElement(ctx, alice, s.ID, model.CanvasElement{})
	require.NoError(t, err)

	els, err := f.board.ListElements(ctx, bob, s.ID)
	require.NoError(t, err)
	require.Len(t, els, 3)
	assert.Equal(t, []string{first.ID, second.ID, top.ID}, []string{els[0].ID, els[1].ID, els[2].ID})
}

func TestUpdateAction(t *testing.T) {
	assert.Equal(t, model.ActionElementMoved, updateAction(model.ElementPatch{Position: &model.Point{}}))
	assert.Equal(t, model.ActionElementResized, updateAction(model.ElementPatch{Size: &model.Size{}}))
	assert.Equal(t, model.ActionElementUpdated, updateAction(model.ElementPatch{Position: &model.Point{}, Size: &model.Size{}}))
	assert.Equal(t, model.ActionElementUpdated, updateAction(model.ElementPatch{Position: &model.Point{}, ZIndex: ptr(1)}))
}

func TestConnectionActivity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)

	a, err := f.board.CreateElement(ctx, bob, s.ID, model.CanvasElement{})
	require.NoError(t, err)
	b, err := f.board.CreateElement(ctx, bob, s.ID, model.CanvasElement{})
	require.NoError(t, err)
	c, err := f.board.CreateElement(ctx, bob, s.ID, model.CanvasElement{})
	require.NoError(t, err)

	toB := model.Connection{TargetElementID: b.ID, ConnectionType: "arrow"}
	toC := model.Connection{TargetElementID: c.ID, ConnectionType: "line"}

	_, err = f.board.UpdateElement(ctx, bob, s.ID, a.ID, model.ElementPatch{Connections: &[]model.Connection{toB}})
	require.NoError(t, err)
	_, err = f.board.UpdateElement(ctx, bob, s.ID, a.ID, model.ElementPatch{Connections: &[]model.Connection{toC}})
	require.NoError(t, err)

	created, err := f.board.Timeline(ctx, alice, s.ID, TimelineQuery{Actions: []model.ActivityAction{model.ActionConnectionCreated}})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, a.ID, created[0].TargetID)
	assert.Equal(t, b.ID, created[0].Data["target_element_id"])
	assert.Equal(t, c.ID, created[1].Data["target_element_id"])

	deleted, err := f.board.Timeline(ctx, alice, s.ID, TimelineQuery{Actions: []model.ActivityAction{model.ActionConnectionDeleted}})
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, b.ID, deleted[0].Data["target_element_id"])

	// patches that leave connections alone record none
	_, err = f.board.UpdateElement(ctx, bob, s.ID, a.ID, model.ElementPatch{Position: &model.Point{X: 5}})
	require.NoError(t, err)
	created, err = f.board.Timeline(ctx, alice, s.ID, TimelineQuery{Actions: []model.ActivityAction{model.ActionConnectionCreated, model.ActionConnectionDeleted}})
	require.NoError(t, err)
	assert.Len(t, created, 3)
}

func TestConnectionDiff(t *testing.T) {
	x := model.Connection{TargetElementID: "x", ConnectionType: "arrow"}
	y := model.Connection{TargetElementID: "y", ConnectionType: "arrow"}
	yLine := model.Connection{TargetElementID: "y", ConnectionType: "line"}

	added, removed := connectionDiff([]model.Connection{x, y}, []model.Connection{x, yLine})
	assert.Equal(t, []model.Connection{yLine}, added)
	assert.Equal(t, []model.Connection{y}, removed)

	added, removed = connectionDiff(nil, nil)
	assert.Empty(t, added)
	assert.Empty(t, removed)
}
