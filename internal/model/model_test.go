package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVotesCast(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("upvote twice is idempotent", func(t *testing.T) {
		var v Votes
		assert.True(t, v.Cast(7, VoteUp, now))
		assert.False(t, v.Cast(7, VoteUp, now))
		assert.Len(t, v.Upvotes, 1)
		assert.Empty(t, v.Downvotes)
	})

	t.Run("switching side moves the vote", func(t *testing.T) {
		var v Votes
		v.Cast(7, VoteUp, now)
		assert.True(t, v.Cast(7, VoteDown, now))
		assert.Empty(t, v.Upvotes)
		require.Len(t, v.Downvotes, 1)
		assert.Equal(t, int64(7), v.Downvotes[0].UserID)
		assert.Equal(t, -1, v.Score())
	})

	t.Run("users never appear in both lists", func(t *testing.T) {
		var v Votes
		seq := []VoteType{VoteUp, VoteDown, VoteDown, VoteUp, VoteUp, VoteDown}
		for _, kind := range seq {
			v.Cast(1, kind, now)
			v.Cast(2, VoteUp, now)
			assert.False(t, hasVote(v.Upvotes, 1) && hasVote(v.Downvotes, 1))
		}
		assert.Len(t, v.Upvotes, 1)
		assert.Len(t, v.Downvotes, 1)
	})

	t.Run("retract", func(t *testing.T) {
		var v Votes
		v.Cast(3, VoteDown, now)
		assert.True(t, v.Retract(3))
		assert.False(t, v.Retract(3))
	})
}

func TestElementApplyIsShallow(t *testing.T) {
	el := CanvasElement{
		Position: Point{X: 1, Y: 2},
		Content:  Content{Text: "hello", BackgroundColor: "#ffeb3b"},
	}
	pos := Point{X: 40, Y: 50}
	el.Apply(ElementPatch{Position: &pos})

	assert.Equal(t, pos, el.Position)
	assert.Equal(t, "hello", el.Content.Text)

	content := Content{BackgroundColor: "#00ff00"}
	el.Apply(ElementPatch{Content: &content})
	assert.Equal(t, "", el.Content.Text, "top-level field replaced wholesale")
	assert.Equal(t, "#00ff00", el.Content.BackgroundColor)
}

func TestElementDefaults(t *testing.T) {
	var el CanvasElement
	el.ApplyDefaults()

	assert.Equal(t, ElementStickyNote, el.Type)
	assert.Equal(t, Size{Width: 200, Height: 150}, el.Size)
	assert.Equal(t, "#ffffff", el.Content.Color)
	assert.Equal(t, "#ffeb3b", el.Content.BackgroundColor)
	assert.Equal(t, 14, el.Content.FontSize)
	assert.Equal(t, "#000000", el.Style.Border.Color)
	assert.Equal(t, float64(1), el.Style.Opacity)
	assert.Equal(t, int64(1), el.Version)
}

func TestElementCloneIsDeep(t *testing.T) {
	zone := ZoneParkingLot
	el := CanvasElement{PriorityZone: &zone}
	el.Votes.Cast(1, VoteUp, time.Now())

	cp := el.Clone()
	cp.Votes.Upvotes[0].UserID = 99
	*cp.PriorityZone = ZoneCustom

	assert.Equal(t, int64(1), el.Votes.Upvotes[0].UserID)
	assert.Equal(t, ZoneParkingLot, *el.PriorityZone)
}

func TestQuestionAddAnswer(t *testing.T) {
	q := Question{Status: QuestionPending}
	first := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	q.AddAnswer(Answer{ID: "a1", AuthorID: 5, Text: "Yes", CreatedAt: first})
	assert.Equal(t, QuestionAnswered, q.Status)
	require.NotNil(t, q.AnsweredBy)
	assert.Equal(t, int64(5), *q.AnsweredBy)
	assert.Equal(t, first, *q.AnsweredAt)

	q.AddAnswer(Answer{ID: "a2", AuthorID: 6, Text: "Also", CreatedAt: first.Add(time.Minute)})
	assert.Len(t, q.Answers, 2)
	assert.Equal(t, int64(5), *q.AnsweredBy, "later answers only append")
	assert.True(t, q.HasAnswer("a2"))
}

func TestToggleReaction(t *testing.T) {
	var m ChatMessage
	assert.True(t, m.ToggleReaction("👍", 1))
	assert.True(t, m.ToggleReaction("👍", 2))
	require.Len(t, m.Reactions, 1)
	assert.Equal(t, 2, m.Reactions[0].Count)

	assert.False(t, m.ToggleReaction("👍", 1))
	assert.Equal(t, 1, m.Reactions[0].Count)
	assert.False(t, m.ToggleReaction("👍", 2))
	assert.Empty(t, m.Reactions)
}

func TestSessionMembership(t *testing.T) {
	s := Session{CreatorID: 1, Facilitators: []int64{2}}
	now := time.Now()

	assert.True(t, s.IsFacilitator(1))
	assert.True(t, s.IsFacilitator(2))
	assert.False(t, s.IsMember(3))

	assert.True(t, s.AddParticipant(3, RoleParticipant, now))
	assert.False(t, s.AddParticipant(3, RoleParticipant, now))
	assert.True(t, s.IsMember(3))
	assert.False(t, s.IsFacilitator(3))

	assert.True(t, s.RemoveParticipant(3))
	assert.False(t, s.IsMember(3))
}

func TestRedactedMessage(t *testing.T) {
	m := ChatMessage{Text: "secret", IsDeleted: true}
	assert.Empty(t, m.Redacted().Text)
	assert.Equal(t, "secret", m.Text)
}
