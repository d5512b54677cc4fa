package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
)

// QuestionInput 질문 등록 요청
type QuestionInput struct {
	ID          string                 `json:"id"`
	Text        string                 `json:"question"`
	Category    model.QuestionCategory `json:"category"`
	Priority    model.QuestionPriority `json:"priority"`
	IsAnonymous bool                   `json:"is_anonymous"`
}

func (b *Board) qnaGate(ctx context.Context, caller model.Identity, sessionID string, n need) (*model.Session, Access, error) {
	s, access, err := b.authorize(ctx, caller, sessionID, n)
	if err != nil {
		return nil, access, err
	}
	if !s.Settings.EnableQnA {
		return nil, access, conflictf("Q&A is disabled")
	}
	return s, access, nil
}

// ListQuestions 질문 목록 (생성 순, 익명 질문은 작성자 가림)
func (b *Board) ListQuestions(ctx context.Context, caller model.Identity, sessionID string) ([]model.Question, error) {
	if _, _, err := b.authorize(ctx, caller, sessionID, needRead); err != nil {
		return nil, err
	}
	qs, err := b.store.ListQuestions(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for i := range qs {
		qs[i] = qs[i].Anonymized()
	}
	return qs, nil
}

// AskQuestion 질문 등록
func (b *Board) AskQuestion(ctx context.Context, caller model.Identity, sessionID string, in QuestionInput) (*model.Question, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, validationf("question is required")
	}
	if utf8.RuneCountInString(text) > model.MaxQuestionLength {
		return nil, validationf("question must be at most %d characters", model.MaxQuestionLength)
	}
	category := in.Category
	if category == "" {
		category = model.CategoryGeneral
	}
	if !category.Valid() {
		return nil, validationf("unknown category %q", category)
	}
	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !priority.Valid() {
		return nil, validationf("unknown priority %q", priority)
	}
	if in.ID != "" {
		if _, err := uuid.Parse(in.ID); err != nil {
			return nil, validationf("question id must be a UUID")
		}
	}
	if _, _, err := b.qnaGate(ctx, caller, sessionID, needWrite); err != nil {
		return nil, err
	}

	q := &model.Question{
		ID:          in.ID,
		SessionID:   sessionID,
		AuthorID:    caller.UserID,
		AuthorName:  caller.Nickname,
		Text:        text,
		Status:      model.QuestionPending,
		Category:    category,
		Priority:    priority,
		IsAnonymous: in.IsAnonymous,
		Votes:       model.Votes{},
		Answers:     []model.Answer{},
		CreatedAt:   b.now(),
	}
	if err := b.store.CreateQuestion(ctx, q); err != nil {
		return nil, err
	}

	out := q.Anonymized()
	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionQuestionSubmitted,
		targetType: model.TargetQuestion,
		targetID:   q.ID,
		data:       map[string]any{"category": category, "anonymous": in.IsAnonymous},
		kind:       protocol.KindQuestion,
		verb:       protocol.ActionAdd,
		payload:    out,
	})
	return &out, nil
}

// AnswerQuestion 답변 추가. 첫 답변이 질문을 answered로 전환
func (b *Board) AnswerQuestion(ctx context.Context, caller model.Identity, sessionID, questionID, text string) (*model.Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationf("answer is required")
	}
	if utf8.RuneCountInString(text) > model.MaxAnswerLength {
		return nil, validationf("answer must be at most %d characters", model.MaxAnswerLength)
	}
	if _, _, err := b.qnaGate(ctx, caller, sessionID, needWrite); err != nil {
		return nil, err
	}

	answer := model.Answer{
		ID:         uuid.NewString(),
		AuthorID:   caller.UserID,
		AuthorName: caller.Nickname,
		Text:       text,
		CreatedAt:  b.now(),
	}
	updated, err := b.store.UpdateQuestion(ctx, sessionID, questionID, func(q *model.Question) error {
		if q.Status == model.QuestionArchived {
			return conflictf("question is archived")
		}
		q.AddAnswer(answer)
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionQuestionAnswered,
		targetType: model.TargetQuestion,
		targetID:   questionID,
		data:       map[string]any{"answer_id": answer.ID},
		kind:       protocol.KindQuestion,
		verb:       protocol.ActionAnswer,
		payload: protocol.AnswerPayload{
			ID:         questionID,
			Answer:     answer,
			Status:     updated.Status,
			AnsweredAt: updated.AnsweredAt,
		},
	})
	out := updated.Anonymized()
	return &out, nil
}

// VoteQuestion 질문 투표 (캔버스 투표와 같은 배타 규칙)
func (b *Board) VoteQuestion(ctx context.Context, caller model.Identity, sessionID, questionID string, kind model.VoteType) (*model.Question, error) {
	if !kind.Valid() {
		return nil, validationf("vote type must be upvote or downvote")
	}
	if _, _, err := b.qnaGate(ctx, caller, sessionID, needWrite); err != nil {
		return nil, err
	}

	var changed bool
	updated, err := b.store.UpdateQuestion(ctx, sessionID, questionID, func(q *model.Question) error {
		changed = q.Votes.Cast(caller.UserID, kind, b.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := updated.Anonymized()
	if !changed {
		return &out, nil
	}

	action := model.ActionQuestionUpvoted
	if kind == model.VoteDown {
		action = model.ActionQuestionDownvoted
	}
	b.commit(ctx, sessionID, caller, change{
		action:     action,
		targetType: model.TargetQuestion,
		targetID:   questionID,
		kind:       protocol.KindQuestion,
		verb:       protocol.ActionVote,
		payload:    out,
	})
	return &out, nil
}

// ArchiveQuestion 질문 보관 (진행자)
func (b *Board) ArchiveQuestion(ctx context.Context, caller model.Identity, sessionID, questionID string) (*model.Question, error) {
	if _, _, err := b.authorize(ctx, caller, sessionID, needFacilitator); err != nil {
		return nil, err
	}

	updated, err := b.store.UpdateQuestion(ctx, sessionID, questionID, func(q *model.Question) error {
		q.Status = model.QuestionArchived
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := updated.Anonymized()
	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionQuestionArchived,
		targetType: model.TargetQuestion,
		targetID:   questionID,
		kind:       protocol.KindQuestion,
		verb:       protocol.ActionArchive,
		payload:    out,
	})
	return &out, nil
}
