package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
)

// MessageInput 채팅 메시지 전송 요청
type MessageInput struct {
	ID       string            `json:"id"`
	Text     string            `json:"message"`
	Type     model.MessageType `json:"type"`
	ReplyTo  *string           `json:"reply_to"`
	Mentions []int64           `json:"mentions"`
}

func validateChatText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", validationf("message is required")
	}
	if utf8.RuneCountInString(text) > model.MaxChatLength {
		return "", validationf("message must be at most %d characters", model.MaxChatLength)
	}
	return text, nil
}

// chatGate 채팅 쓰기 권한과 채팅 활성화 여부 확인
func (b *Board) chatGate(ctx context.Context, caller model.Identity, sessionID string) (*model.Session, Access, error) {
	s, access, err := b.authorize(ctx, caller, sessionID, needWrite)
	if err != nil {
		return nil, access, err
	}
	if !s.Settings.EnableChat {
		return nil, access, conflictf("chat is disabled")
	}
	return s, access, nil
}

// ListMessages 전체 채팅 기록 (생성 순). 삭제된 메시지는 본문이 비워짐
func (b *Board) ListMessages(ctx context.Context, caller model.Identity, sessionID string) ([]model.ChatMessage, error) {
	if _, _, err := b.authorize(ctx, caller, sessionID, needRead); err != nil {
		return nil, err
	}
	msgs, err := b.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i] = msgs[i].Redacted()
	}
	return msgs, nil
}

// PostMessage 채팅 메시지 전송
func (b *Board) PostMessage(ctx context.Context, caller model.Identity, sessionID string, in MessageInput) (*model.ChatMessage, error) {
	text, err := validateChatText(in.Text)
	if err != nil {
		return nil, err
	}
	kind := in.Type
	if kind == "" {
		kind = model.MessageText
	}
	if !kind.Valid() {
		return nil, validationf("unknown message type %q", kind)
	}
	if in.ID != "" {
		if _, err := uuid.Parse(in.ID); err != nil {
			return nil, validationf("message id must be a UUID")
		}
	}
	if _, _, err := b.chatGate(ctx, caller, sessionID); err != nil {
		return nil, err
	}

	now := b.now()
	msg := &model.ChatMessage{
		ID:         in.ID,
		SessionID:  sessionID,
		SenderID:   caller.UserID,
		SenderName: caller.Nickname,
		Text:       text,
		Type:       kind,
		ReplyTo:    in.ReplyTo,
		Mentions:   append([]int64{}, in.Mentions...),
		Reactions:  []model.Reaction{},
		CreatedAt:  now,
	}
	if err := b.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionChatMessageSent,
		targetType: model.TargetChatMessage,
		targetID:   msg.ID,
		kind:       protocol.KindChat,
		verb:       protocol.ActionAdd,
		payload:    msg,
	})
	return msg, nil
}

// EditMessage 메시지 수정 (작성자만)
func (b *Board) EditMessage(ctx context.Context, caller model.Identity, sessionID, messageID, text string) (*model.ChatMessage, error) {
	text, err := validateChatText(text)
	if err != nil {
		return nil, err
	}
	s, _, err := b.chatGate(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}

	updated, err := b.store.UpdateMessage(ctx, sessionID, messageID, func(m *model.ChatMessage) error {
		if m.SenderID != caller.UserID {
			return denied(s.Privacy, "only the sender can edit a message")
		}
		if m.IsDeleted {
			return conflictf("message was deleted")
		}
		now := b.now()
		m.Text = text
		m.IsEdited = true
		m.EditedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionChatMessageEdited,
		targetType: model.TargetChatMessage,
		targetID:   messageID,
		kind:       protocol.KindChat,
		verb:       protocol.ActionEdit,
		payload:    updated,
	})
	return updated, nil
}

// DeleteMessage 메시지 소프트 삭제 (작성자 또는 진행자)
func (b *Board) DeleteMessage(ctx context.Context, caller model.Identity, sessionID, messageID string) error {
	s, access, err := b.authorize(ctx, caller, sessionID, needWrite)
	if err != nil {
		return err
	}

	var already bool
	_, err = b.store.UpdateMessage(ctx, sessionID, messageID, func(m *model.ChatMessage) error {
		if m.SenderID != caller.UserID && !access.Facilitator {
			return denied(s.Privacy, "only the sender or a facilitator can delete a message")
		}
		if already = m.IsDeleted; already {
			return nil
		}
		now := b.now()
		m.IsDeleted = true
		m.DeletedAt = &now
		return nil
	})
	if err != nil || already {
		return err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionChatMessageDeleted,
		targetType: model.TargetChatMessage,
		targetID:   messageID,
		kind:       protocol.KindChat,
		verb:       protocol.ActionDelete,
		payload:    protocol.IDPayload{ID: messageID},
	})
	return nil
}

// ReactMessage 이모지 반응 토글
func (b *Board) ReactMessage(ctx context.Context, caller model.Identity, sessionID, messageID, emoji string) (*model.ChatMessage, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, validationf("emoji is required")
	}
	if _, _, err := b.chatGate(ctx, caller, sessionID); err != nil {
		return nil, err
	}

	updated, err := b.store.UpdateMessage(ctx, sessionID, messageID, func(m *model.ChatMessage) error {
		if m.IsDeleted {
			return conflictf("message was deleted")
		}
		m.ToggleReaction(emoji, caller.UserID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionChatReactionToggled,
		targetType: model.TargetChatMessage,
		targetID:   messageID,
		data:       map[string]any{"emoji": emoji},
		kind:       protocol.KindChat,
		verb:       protocol.ActionReact,
		payload:    updated,
	})
	return updated, nil
}
