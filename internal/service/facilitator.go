package service

import (
	"context"
	"time"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
)

// setBoard 진행자 전용 보드 상태 변경 공통 처리
func (b *Board) setBoard(ctx context.Context, caller model.Identity, sessionID string, verb string, action model.ActivityAction, targetType model.TargetType, fn func(*model.BoardState, time.Time) error) (*model.BoardState, error) {
	if _, _, err := b.authorize(ctx, caller, sessionID, needFacilitator); err != nil {
		return nil, err
	}

	updated, err := b.store.UpdateSession(ctx, sessionID, func(s *model.Session) error {
		return fn(&s.Board, b.now())
	})
	if err != nil {
		return nil, err
	}

	state := updated.Board
	b.commit(ctx, sessionID, caller, change{
		action:     action,
		targetType: targetType,
		targetID:   sessionID,
		data:       map[string]any{"duration": state.TimerDuration},
		kind:       protocol.KindFacilitator,
		verb:       verb,
		payload: protocol.FacilitatorPayload{
			Board:    state,
			ActorID:  caller.UserID,
			Duration: state.TimerDuration,
		},
	})
	return &state, nil
}

// LockBoard 보드 잠금. 잠긴 동안 진행자 외에는 캔버스를 수정할 수 없음
func (b *Board) LockBoard(ctx context.Context, caller model.Identity, sessionID string) (*model.BoardState, error) {
	return b.setBoard(ctx, caller, sessionID, protocol.ActionLock, model.ActionBoardLocked, model.TargetSession,
		func(st *model.BoardState, now time.Time) error {
			if st.Locked {
				return conflictf("board is already locked")
			}
			by := caller.UserID
			st.Locked = true
			st.LockedBy = &by
			st.LockedAt = &now
			return nil
		})
}

// UnlockBoard 보드 잠금 해제
func (b *Board) UnlockBoard(ctx context.Context, caller model.Identity, sessionID string) (*model.BoardState, error) {
	return b.setBoard(ctx, caller, sessionID, protocol.ActionUnlock, model.ActionBoardUnlocked, model.TargetSession,
		func(st *model.BoardState, _ time.Time) error {
			if !st.Locked {
				return conflictf("board is not locked")
			}
			st.Locked = false
			st.LockedBy = nil
			st.LockedAt = nil
			return nil
		})
}

// StartTimer 타이머 시작 (durationSec 0이면 제한 없음)
func (b *Board) StartTimer(ctx context.Context, caller model.Identity, sessionID string, durationSec int) (*model.BoardState, error) {
	if durationSec < 0 {
		return nil, validationf("duration must not be negative")
	}
	return b.setBoard(ctx, caller, sessionID, protocol.ActionStartTimer, model.ActionTimerStarted, model.TargetTimer,
		func(st *model.BoardState, now time.Time) error {
			st.TimerRunning = true
			st.TimerStartedAt = &now
			st.TimerDuration = durationSec
			return nil
		})
}

// StopTimer 타이머 정지
func (b *Board) StopTimer(ctx context.Context, caller model.Identity, sessionID string) (*model.BoardState, error) {
	return b.setBoard(ctx, caller, sessionID, protocol.ActionStopTimer, model.ActionTimerStopped, model.TargetTimer,
		func(st *model.BoardState, _ time.Time) error {
			if !st.TimerRunning {
				return conflictf("timer is not running")
			}
			st.TimerRunning = false
			st.TimerStartedAt = nil
			st.TimerDuration = 0
			return nil
		})
}
