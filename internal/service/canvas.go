package service

import (
	"context"

	"github.com/google/uuid"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
)

// ListElements 캔버스 요소 목록 (z-index, 생성 순)
func (b *Board) ListElements(ctx context.Context, caller model.Identity, sessionID string) ([]model.CanvasElement, error) {
	if _, _, err := b.authorize(ctx, caller, sessionID, needRead); err != nil {
		return nil, err
	}
	return b.store.ListElements(ctx, sessionID)
}

// canvasGate 캔버스 쓰기 권한과 보드 잠금 확인
func (b *Board) canvasGate(ctx context.Context, caller model.Identity, sessionID string) (*model.Session, Access, error) {
	s, access, err := b.authorize(ctx, caller, sessionID, needWrite)
	if err != nil {
		return nil, access, err
	}
	if err := canvasWritable(s, access); err != nil {
		return nil, access, err
	}
	return s, access, nil
}

// CreateElement 캔버스 요소 생성. 클라이언트가 준 ID가 있으면 그대로 사용
func (b *Board) CreateElement(ctx context.Context, caller model.Identity, sessionID string, el model.CanvasElement) (*model.CanvasElement, error) {
	if _, _, err := b.canvasGate(ctx, caller, sessionID); err != nil {
		return nil, err
	}

	if el.ID != "" {
		if _, err := uuid.Parse(el.ID); err != nil {
			return nil, validationf("element id must be a UUID")
		}
	}
	if el.Type != "" && !el.Type.Valid() {
		return nil, validationf("unknown element type %q", el.Type)
	}
	if el.PriorityZone != nil && !el.PriorityZone.Valid() {
		return nil, validationf("unknown priority zone %q", *el.PriorityZone)
	}

	now := b.now()
	el.SessionID = sessionID
	el.CreatorID = caller.UserID
	el.Version = 1
	el.IsVisible = true
	el.IsLocked = false
	el.Votes = model.Votes{}
	el.LastModified = now
	el.ModifiedBy = nil
	el.CreatedAt = now
	el.ApplyDefaults()

	if err := b.store.CreateElement(ctx, &el); err != nil {
		return nil, err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionElementCreated,
		targetType: model.TargetCanvasElement,
		targetID:   el.ID,
		data:       map[string]any{"type": el.Type},
		kind:       protocol.KindCanvas,
		verb:       protocol.ActionAdd,
		payload:    el,
	})
	return &el, nil
}

// updateAction 패치 내용에 맞는 활동 종류
func updateAction(p model.ElementPatch) model.ActivityAction {
	rest := p
	rest.Position, rest.Size = nil, nil
	if !rest.Empty() {
		return model.ActionElementUpdated
	}
	switch {
	case p.Position != nil && p.Size == nil:
		return model.ActionElementMoved
	case p.Size != nil && p.Position == nil:
		return model.ActionElementResized
	}
	return model.ActionElementUpdated
}

// UpdateElement 요소 수정 (얕은 병합, version 1 증가)
// 잠긴 요소는 거부하며 version과 수정 시각은 그대로 둔다
func (b *Board) UpdateElement(ctx context.Context, caller model.Identity, sessionID, elementID string, p model.ElementPatch) (*model.CanvasElement, error) {
	if p.Empty() {
		return nil, validationf("nothing to update")
	}
	if p.Type != nil && !p.Type.Valid() {
		return nil, validationf("unknown element type %q", *p.Type)
	}
	s, access, err := b.canvasGate(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	if p.IsLocked != nil && !access.Facilitator {
		return nil, denied(s.Privacy, "facilitator permission required to lock elements")
	}

	var before []model.Connection
	updated, err := b.store.UpdateElement(ctx, sessionID, elementID, func(e *model.CanvasElement) error {
		if e.IsLocked {
			return lockedf("element is locked")
		}
		before = append(before[:0], e.Connections...)
		e.Apply(p)
		e.Version++
		e.LastModified = b.now()
		by := caller.UserID
		e.ModifiedBy = &by
		return nil
	})
	if err != nil {
		return nil, err
	}

	if p.Connections != nil {
		added, removed := connectionDiff(before, updated.Connections)
		for _, c := range added {
			b.record(ctx, sessionID, caller, model.ActionConnectionCreated, model.TargetCanvasElement, elementID, connectionData(c))
		}
		for _, c := range removed {
			b.record(ctx, sessionID, caller, model.ActionConnectionDeleted, model.TargetCanvasElement, elementID, connectionData(c))
		}
	}
	b.commit(ctx, sessionID, caller, change{
		action:     updateAction(p),
		targetType: model.TargetCanvasElement,
		targetID:   elementID,
		data:       map[string]any{"version": updated.Version},
		kind:       protocol.KindCanvas,
		verb:       protocol.ActionUpdate,
		payload:    updated,
	})
	return updated, nil
}

// connectionDiff 이전/이후 연결 목록 비교
func connectionDiff(before, after []model.Connection) (added, removed []model.Connection) {
	seen := make(map[model.Connection]bool, len(before))
	for _, c := range before {
		seen[c] = true
	}
	kept := make(map[model.Connection]bool, len(after))
	for _, c := range after {
		kept[c] = true
		if !seen[c] {
			added = append(added, c)
		}
	}
	for _, c := range before {
		if !kept[c] {
			removed = append(removed, c)
		}
	}
	return added, removed
}

func connectionData(c model.Connection) map[string]any {
	return map[string]any{"target_element_id": c.TargetElementID, "connection_type": c.ConnectionType}
}

// SetElementLock 요소 잠금/해제 (진행자). 잠긴 요소를 풀 수 있는 유일한 경로
func (b *Board) SetElementLock(ctx context.Context, caller model.Identity, sessionID, elementID string, locked bool) (*model.CanvasElement, error) {
	if _, _, err := b.authorize(ctx, caller, sessionID, needFacilitator); err != nil {
		return nil, err
	}

	updated, err := b.store.UpdateElement(ctx, sessionID, elementID, func(e *model.CanvasElement) error {
		if e.IsLocked == locked {
			return nil
		}
		e.IsLocked = locked
		e.Version++
		e.LastModified = b.now()
		by := caller.UserID
		e.ModifiedBy = &by
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionElementUpdated,
		targetType: model.TargetCanvasElement,
		targetID:   elementID,
		data:       map[string]any{"locked": locked},
		kind:       protocol.KindCanvas,
		verb:       protocol.ActionUpdate,
		payload:    updated,
	})
	return updated, nil
}

// DeleteElement 요소 삭제 (잠긴 요소는 거부)
func (b *Board) DeleteElement(ctx context.Context, caller model.Identity, sessionID, elementID string) error {
	if _, _, err := b.canvasGate(ctx, caller, sessionID); err != nil {
		return err
	}

	el, err := b.store.GetElement(ctx, sessionID, elementID)
	if err != nil {
		return err
	}
	if el.IsLocked {
		return lockedf("element is locked")
	}
	if err := b.store.DeleteElement(ctx, sessionID, elementID); err != nil {
		return err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionElementDeleted,
		targetType: model.TargetCanvasElement,
		targetID:   elementID,
		kind:       protocol.KindCanvas,
		verb:       protocol.ActionDelete,
		payload:    protocol.IDPayload{ID: elementID},
	})
	return nil
}

// DeleteAllElements 보드 초기화 (세션 단위 작업이라 요소 잠금은 보지 않음)
func (b *Board) DeleteAllElements(ctx context.Context, caller model.Identity, sessionID string) (int64, error) {
	if _, _, err := b.canvasGate(ctx, caller, sessionID); err != nil {
		return 0, err
	}

	n, err := b.store.DeleteElements(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionElementDeleted,
		targetType: model.TargetSession,
		targetID:   sessionID,
		data:       map[string]any{"count": n, "all": true},
		kind:       protocol.KindCanvas,
		verb:       protocol.ActionDeleteAll,
	})
	return n, nil
}

// VoteElement 찬성/반대 투표 (한쪽만 유지, 같은 쪽 재투표는 변화 없음)
func (b *Board) VoteElement(ctx context.Context, caller model.Identity, sessionID, elementID string, kind model.VoteType) (*model.CanvasElement, error) {
	if !kind.Valid() {
		return nil, validationf("vote type must be upvote or downvote")
	}
	s, _, err := b.canvasGate(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.Settings.EnableVoting {
		return nil, conflictf("voting is disabled")
	}

	var changed bool
	updated, err := b.store.UpdateElement(ctx, sessionID, elementID, func(e *model.CanvasElement) error {
		if e.IsLocked {
			return lockedf("element is locked")
		}
		changed = e.Votes.Cast(caller.UserID, kind, b.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return updated, nil
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionVoteAdded,
		targetType: model.TargetCanvasElement,
		targetID:   elementID,
		data:       map[string]any{"vote": kind},
		kind:       protocol.KindCanvas,
		verb:       protocol.ActionUpdate,
		payload:    updated,
	})
	return updated, nil
}

// RetractVote 내 투표 취소
func (b *Board) RetractVote(ctx context.Context, caller model.Identity, sessionID, elementID string) (*model.CanvasElement, error) {
	s, _, err := b.canvasGate(ctx, caller, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.Settings.EnableVoting {
		return nil, conflictf("voting is disabled")
	}

	var changed bool
	updated, err := b.store.UpdateElement(ctx, sessionID, elementID, func(e *model.CanvasElement) error {
		if e.IsLocked {
			return lockedf("element is locked")
		}
		changed = e.Votes.Retract(caller.UserID)
		return nil
	})
	if err != nil || !changed {
		return updated, err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionVoteRemoved,
		targetType: model.TargetCanvasElement,
		targetID:   elementID,
		kind:       protocol.KindCanvas,
		verb:       protocol.ActionUpdate,
		payload:    updated,
	})
	return updated, nil
}

// AssignZone 우선순위 영역 지정 (nil이면 해제)
func (b *Board) AssignZone(ctx context.Context, caller model.Identity, sessionID, elementID string, zone *model.ZoneKind) (*model.CanvasElement, error) {
	if zone != nil && !zone.Valid() {
		return nil, validationf("unknown priority zone %q", *zone)
	}
	if _, _, err := b.canvasGate(ctx, caller, sessionID); err != nil {
		return nil, err
	}

	updated, err := b.store.UpdateElement(ctx, sessionID, elementID, func(e *model.CanvasElement) error {
		if e.IsLocked {
			return lockedf("element is locked")
		}
		if zone == nil {
			e.PriorityZone = nil
		} else {
			z := *zone
			e.PriorityZone = &z
		}
		e.Version++
		e.LastModified = b.now()
		by := caller.UserID
		e.ModifiedBy = &by
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionElementUpdated,
		targetType: model.TargetCanvasElement,
		targetID:   elementID,
		data:       map[string]any{"priority_zone": updated.PriorityZone},
		kind:       protocol.KindCanvas,
		verb:       protocol.ActionUpdate,
		payload:    updated,
	})
	return updated, nil
}
