// Package service implements the session board operations: the access gate,
// the shared board state and the activity log.
//
// Every successful mutation persists first, then appends to the activity log,
// then publishes to the session topic. Nothing is published for a failed write.
package service

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
	"sessionboard-backend/internal/store"
)

// Publisher 세션 토픽으로 이벤트 발행
type Publisher interface {
	Publish(sessionID string, ev protocol.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, protocol.Event) {}

// Board 세션 보드 서비스
type Board struct {
	store store.Store
	pub   Publisher
	clock clock.Clock
	log   zerolog.Logger
}

// Option Board 생성 옵션
type Option func(*Board)

// WithClock 시간 소스 교체 (테스트용)
func WithClock(c clock.Clock) Option {
	return func(b *Board) { b.clock = c }
}

// WithLogger 로거 지정
func WithLogger(l zerolog.Logger) Option {
	return func(b *Board) { b.log = l }
}

// WithPublisher 이벤트 발행자 지정
func WithPublisher(p Publisher) Option {
	return func(b *Board) {
		if p != nil {
			b.pub = p
		}
	}
}

// NewBoard Board 생성
func NewBoard(st store.Store, opts ...Option) *Board {
	b := &Board{
		store: st,
		pub:   nopPublisher{},
		clock: clock.New(),
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With().Str("component", "Board").Logger()
	return b
}

// SetPublisher 허브가 보드보다 늦게 생성되는 경우 발행자 연결
func (b *Board) SetPublisher(p Publisher) {
	if p != nil {
		b.pub = p
	}
}

func (b *Board) now() time.Time {
	return b.clock.Now().UTC()
}

type metadataKey struct{}

// WithMetadata 요청 메타데이터를 컨텍스트에 첨부 (활동 로그에 기록됨)
func WithMetadata(ctx context.Context, md model.ActivityMetadata) context.Context {
	return context.WithValue(ctx, metadataKey{}, md)
}

func metadataFrom(ctx context.Context) model.ActivityMetadata {
	md, _ := ctx.Value(metadataKey{}).(model.ActivityMetadata)
	return md
}

// change 하나의 성공한 변경에 대한 활동 기록과 발행 이벤트
type change struct {
	action     model.ActivityAction
	targetType model.TargetType
	targetID   string
	data       map[string]any

	kind    string
	verb    string
	payload any
}

// commit 영속화 이후 호출: 활동 기록 후 이벤트 발행
func (b *Board) commit(ctx context.Context, sessionID string, caller model.Identity, c change) {
	if c.action != "" {
		b.record(ctx, sessionID, caller, c.action, c.targetType, c.targetID, c.data)
	}
	if c.kind != "" {
		b.publish(sessionID, c.kind, c.verb, c.payload)
	}
}

func (b *Board) publish(sessionID, kind, verb string, payload any) {
	ev, err := protocol.NewEvent(kind, verb, sessionID, payload)
	if err != nil {
		b.log.Error().Err(err).Str("session", sessionID).Str("kind", kind).Msg("failed to encode event")
		return
	}
	b.pub.Publish(sessionID, ev)
}

// record 활동 로그 추가. 실패는 로그만 남김
func (b *Board) record(ctx context.Context, sessionID string, caller model.Identity, action model.ActivityAction, targetType model.TargetType, targetID string, data map[string]any) {
	a := &model.SessionActivity{
		SessionID:  sessionID,
		UserID:     caller.UserID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Data:       data,
		Metadata:   metadataFrom(ctx),
		Timestamp:  b.now(),
	}
	if err := b.store.AppendActivity(ctx, a); err != nil {
		b.log.Warn().Err(err).Str("session", sessionID).Str("action", string(action)).Msg("failed to append activity")
		return
	}
	b.publish(sessionID, protocol.KindActivity, string(action), a)
}
