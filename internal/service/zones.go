package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
)

// ZoneInput 우선순위 영역 생성 요청
type ZoneInput struct {
	Name     string         `json:"name"`
	Kind     model.ZoneKind `json:"kind"`
	Position model.Point    `json:"position"`
	Size     model.Size     `json:"size"`
	Color    string         `json:"color"`
}

// ListZones 우선순위 영역 목록
func (b *Board) ListZones(ctx context.Context, caller model.Identity, sessionID string) ([]model.PriorityZone, error) {
	if _, _, err := b.authorize(ctx, caller, sessionID, needRead); err != nil {
		return nil, err
	}
	return b.store.ListZones(ctx, sessionID)
}

// AddZone 우선순위 영역 추가 (보드 잠금 적용)
func (b *Board) AddZone(ctx context.Context, caller model.Identity, sessionID string, in ZoneInput) (*model.PriorityZone, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationf("zone name is required")
	}
	if utf8.RuneCountInString(name) > model.MaxZoneNameLength {
		return nil, validationf("zone name must be at most %d characters", model.MaxZoneNameLength)
	}
	kind := in.Kind
	if kind == "" {
		kind = model.ZoneCustom
	}
	if !kind.Valid() {
		return nil, validationf("unknown priority zone %q", kind)
	}
	if _, _, err := b.canvasGate(ctx, caller, sessionID); err != nil {
		return nil, err
	}

	z := &model.PriorityZone{
		SessionID: sessionID,
		Name:      name,
		Kind:      kind,
		Position:  in.Position,
		Size:      in.Size,
		Color:     in.Color,
		CreatorID: caller.UserID,
		CreatedAt: b.now(),
	}
	if err := b.store.CreateZone(ctx, z); err != nil {
		return nil, err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionPriorityZoneCreated,
		targetType: model.TargetPriorityZone,
		targetID:   z.ID,
		data:       map[string]any{"kind": kind, "name": name},
		kind:       protocol.KindZone,
		verb:       protocol.ActionAdd,
		payload:    z,
	})
	return z, nil
}

// RemoveZone 우선순위 영역 삭제
func (b *Board) RemoveZone(ctx context.Context, caller model.Identity, sessionID, zoneID string) error {
	if _, _, err := b.canvasGate(ctx, caller, sessionID); err != nil {
		return err
	}
	if err := b.store.DeleteZone(ctx, sessionID, zoneID); err != nil {
		return err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionPriorityZoneDeleted,
		targetType: model.TargetPriorityZone,
		targetID:   zoneID,
		kind:       protocol.KindZone,
		verb:       protocol.ActionRemove,
		payload:    protocol.IDPayload{ID: zoneID},
	})
	return nil
}
