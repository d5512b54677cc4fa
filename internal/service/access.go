package service

import (
	"context"

	"sessionboard-backend/internal/model"
)

// Level 세션 접근 수준
type Level int

const (
	LevelNone Level = iota
	LevelRead
	LevelFull
)

func (l Level) String() string {
	switch l {
	case LevelFull:
		return "full"
	case LevelRead:
		return "read"
	default:
		return "none"
	}
}

// Access 세션에 대한 요청자의 접근 권한
type Access struct {
	Level       Level
	Facilitator bool
	Privacy     model.Privacy
}

func (a Access) CanRead() bool { return a.Level >= LevelRead }
func (a Access) CanWrite() bool { return a.Level == LevelFull }

// Resolve 세션 접근 게이트
//   - 생성자, 진행자, 참가자: full
//   - 공개 세션의 비회원: read
//   - 그 외: none
func Resolve(s *model.Session, userID int64) Access {
	a := Access{Privacy: s.Privacy}
	switch {
	case s.IsMember(userID):
		a.Level = LevelFull
		a.Facilitator = s.IsFacilitator(userID)
	case s.Privacy == model.PrivacyPublic:
		a.Level = LevelRead
	}
	return a
}

type need int

const (
	needRead need = iota
	needWrite
	needFacilitator
)

// check 요구 수준을 만족하지 않으면 AccessError
func (a Access) check(n need) error {
	switch n {
	case needRead:
		if a.CanRead() {
			return nil
		}
		return denied(a.Privacy, "not a session member")
	case needWrite:
		if a.CanWrite() {
			return nil
		}
		return denied(a.Privacy, "only session members can modify the board")
	default:
		if a.Facilitator {
			return nil
		}
		if !a.CanRead() {
			return denied(a.Privacy, "not a session member")
		}
		return denied(a.Privacy, "facilitator permission required")
	}
}

// authorize 세션을 불러와 접근 수준을 검사
func (b *Board) authorize(ctx context.Context, caller model.Identity, sessionID string, n need) (*model.Session, Access, error) {
	s, err := b.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, Access{}, err
	}
	access := Resolve(s, caller.UserID)
	if err := access.check(n); err != nil {
		return nil, access, err
	}
	return s, access, nil
}

// Authorize 세션 구독 등 외부 진입점용 접근 확인 (read 이상이면 허용)
// 구독 시점의 보드 상태도 함께 돌려준다
func (b *Board) Authorize(ctx context.Context, sessionID string, userID int64) (Access, model.BoardState, error) {
	s, access, err := b.authorize(ctx, model.Identity{UserID: userID}, sessionID, needRead)
	if err != nil {
		return access, model.BoardState{}, err
	}
	return access, s.Board, nil
}

// canvasWritable 보드 잠금 상태에서는 진행자만 캔버스 수정 가능
func canvasWritable(s *model.Session, a Access) error {
	if s.Board.Locked && !a.Facilitator {
		return lockedf("board is locked by the facilitator")
	}
	return nil
}
