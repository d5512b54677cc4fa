package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
)

// ListIdeas 아이디어 목록 (생성 순)
func (b *Board) ListIdeas(ctx context.Context, caller model.Identity, sessionID string) ([]model.Idea, error) {
	if _, _, err := b.authorize(ctx, caller, sessionID, needRead); err != nil {
		return nil, err
	}
	return b.store.ListIdeas(ctx, sessionID)
}

// AddIdea 아이디어 추가
func (b *Board) AddIdea(ctx context.Context, caller model.Identity, sessionID, text string) (*model.Idea, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationf("idea text is required")
	}
	if utf8.RuneCountInString(text) > model.MaxIdeaLength {
		return nil, validationf("idea must be at most %d characters", model.MaxIdeaLength)
	}
	if _, _, err := b.authorize(ctx, caller, sessionID, needWrite); err != nil {
		return nil, err
	}

	idea := &model.Idea{
		SessionID: sessionID,
		Text:      text,
		CreatorID: caller.UserID,
		CreatedAt: b.now(),
	}
	if err := b.store.CreateIdea(ctx, idea); err != nil {
		return nil, err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionIdeaAdded,
		targetType: model.TargetIdea,
		targetID:   idea.ID,
		kind:       protocol.KindIdea,
		verb:       protocol.ActionAdd,
		payload:    idea,
	})
	return idea, nil
}
