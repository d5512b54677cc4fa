package service

import (
	"context"
	"sort"
	"time"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/store"
)

// TimelineQuery 활동 타임라인 조회 조건
type TimelineQuery struct {
	Since   time.Time
	Until   time.Time
	Actions []model.ActivityAction
	Limit   int
}

// Timeline 세션 활동 타임라인 (오래된 순)
func (b *Board) Timeline(ctx context.Context, caller model.Identity, sessionID string, q TimelineQuery) ([]model.SessionActivity, error) {
	if _, _, err := b.authorize(ctx, caller, sessionID, needRead); err != nil {
		return nil, err
	}
	if !q.Since.IsZero() && !q.Until.IsZero() && q.Until.Before(q.Since) {
		return nil, validationf("until must not be before since")
	}
	return b.store.ListActivities(ctx, store.ActivityFilter{
		SessionID: sessionID,
		Since:     q.Since,
		Until:     q.Until,
		Actions:   q.Actions,
		Limit:     q.Limit,
	})
}

// UserSummary 한 사용자의 액션별 횟수와 마지막 활동 시각 (횟수 내림차순)
func (b *Board) UserSummary(ctx context.Context, caller model.Identity, sessionID string, userID int64) ([]model.ActionSummary, error) {
	if _, _, err := b.authorize(ctx, caller, sessionID, needRead); err != nil {
		return nil, err
	}
	acts, err := b.store.ListActivities(ctx, store.ActivityFilter{
		SessionID: sessionID,
		UserID:    userID,
	})
	if err != nil {
		return nil, err
	}

	byAction := make(map[model.ActivityAction]*model.ActionSummary)
	for _, a := range acts {
		sum, ok := byAction[a.Action]
		if !ok {
			sum = &model.ActionSummary{Action: a.Action}
			byAction[a.Action] = sum
		}
		sum.Count++
		if a.Timestamp.After(sum.LastActivity) {
			sum.LastActivity = a.Timestamp
		}
	}

	out := make([]model.ActionSummary, 0, len(byAction))
	for _, sum := range byAction {
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Action < out[j].Action
	})
	return out, nil
}
