package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
)

func TestPostMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)

	msg, err := f.board.PostMessage(ctx, bob, s.ID, MessageInput{Text: "  hello  ", Mentions: []int64{alice.UserID}})
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, model.MessageText, msg.Type)
	assert.Equal(t, "bob", msg.SenderName)

	events := f.pub.of(protocol.KindChat)
	require.Len(t, events, 1)
	assert.Equal(t, protocol.ActionAdd, events[0].Action)

	_, err = f.board.PostMessage(ctx, bob, s.ID, MessageInput{Text: "   "})
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.board.PostMessage(ctx, bob, s.ID, MessageInput{Text: strings.Repeat("a", model.MaxChatLength+1)})
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.board.PostMessage(ctx, bob, s.ID, MessageInput{Text: "x", Type: "shout"})
	require.ErrorIs(t, err, ErrValidation)
	_, err = f.board.PostMessage(ctx, carol, s.ID, MessageInput{Text: "let me in"})
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestChatDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)

	settings := s.Settings
	settings.EnableChat = false
	_, err := f.board.UpdateSession(ctx, alice, s.ID, SessionPatch{Settings: &settings})
	require.NoError(t, err)

	_, err = f.board.PostMessage(ctx, bob, s.ID, MessageInput{Text: "hi"})
	require.ErrorIs(t, err, ErrStateConflict)
}

func TestEditAndDeleteMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)

	msg, err := f.board.PostMessage(ctx, bob, s.ID, MessageInput{Text: "frist"})
	require.NoError(t, err)

	_, err = f.board.EditMessage(ctx, alice, s.ID, msg.ID, "first")
	require.ErrorIs(t, err, ErrAccessDenied)

	edited, err := f.board.EditMessage(ctx, bob, s.ID, msg.ID, "first")
	require.NoError(t, err)
	assert.Equal(t, "first", edited.Text)
	assert.True(t, edited.IsEdited)
	require.NotNil(t, edited.EditedAt)

	// facilitators may delete anyone's message
	require.NoError(t, f.board.DeleteMessage(ctx, alice, s.ID, msg.ID))
	require.NoError(t, f.board.DeleteMessage(ctx, alice, s.ID, msg.ID))
	assert.Len(t, f.pub.of(protocol.KindChat), 3)

	msgs, err := f.board.ListMessages(ctx, bob, s.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsDeleted)
	assert.Empty(t, msgs[0].Text)

	_, err = f.board.EditMessage(ctx, bob, s.ID, msg.ID, "again")
	require.ErrorIs(t, err, ErrStateConflict)
}

func TestDeleteMessageRequiresSenderOrFacilitator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)
	_, err := f.board.JoinSession(ctx, carol, s.ID, "")
	require.NoError(t, err)

	msg, err := f.board.PostMessage(ctx, bob, s.ID, MessageInput{Text: "mine"})
	require.NoError(t, err)
	require.ErrorIs(t, f.board.DeleteMessage(ctx, carol, s.ID, msg.ID), ErrAccessDenied)
	require.NoError(t, f.board.DeleteMessage(ctx, bob, s.ID, msg.ID))
}

func TestReactMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPrivate)

	msg, err := f.board.PostMessage(ctx, bob, s.ID, MessageInput{Text: "lunch?"})
	require.NoError(t, err)

	msg, err = f.board.ReactMessage(ctx, alice, s.ID, msg.ID, "👍")
	require.NoError(t, err)
	require.Len(t, msg.Reactions, 1)
	assert.Equal(t, 1, msg.Reactions[0].Count)

	msg, err = f.board.ReactMessage(ctx, alice, s.ID, msg.ID, "👍")
	require.NoError(t, err)
	assert.Empty(t, msg.Reactions)

	events := f.pub.of(protocol.KindChat)
	assert.Equal(t, protocol.ActionReact, events[len(events)-1].Action)
}

func TestListMessagesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.session(t, model.PrivacyPublic)

	for _, text := range []string{"one", "two", "three"} {
		_, err := f.board.PostMessage(ctx, bob, s.ID, MessageInput{Text: text})
		require.NoError(t, err)
	}

	msgs, err := f.board.ListMessages(ctx, carol, s.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, "three", msgs[2].Text)
}
