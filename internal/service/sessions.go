package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/store"
)

// SessionInput 세션 생성 요청
type SessionInput struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Privacy     model.Privacy          `json:"privacy"`
	Password    string                 `json:"password"`
	Template    model.Template         `json:"template"`
	Settings    *model.SessionSettings `json:"settings"`
}

// SessionPatch 세션 수정 요청 (nil 필드는 유지)
type SessionPatch struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Privacy     *model.Privacy         `json:"privacy"`
	Password    *string                `json:"password"`
	Template    *model.Template        `json:"template"`
	Settings    *model.SessionSettings `json:"settings"`
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", validationf("title is required")
	}
	if utf8.RuneCountInString(title) > model.MaxTitleLength {
		return "", validationf("title must be at most %d characters", model.MaxTitleLength)
	}
	return title, nil
}

func validateDescription(desc string) (string, error) {
	desc = strings.TrimSpace(desc)
	if utf8.RuneCountInString(desc) > model.MaxDescriptionLength {
		return "", validationf("description must be at most %d characters", model.MaxDescriptionLength)
	}
	return desc, nil
}

func normalizeSettings(s model.SessionSettings) model.SessionSettings {
	if s.MaxParticipants <= 0 {
		s.MaxParticipants = model.DefaultMaxParticipants
	}
	return s
}

func hashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CreateSession 세션 생성. 생성자는 진행자이자 facilitator 역할 참가자가 됨
func (b *Board) CreateSession(ctx context.Context, caller model.Identity, in SessionInput) (*model.Session, error) {
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	desc, err := validateDescription(in.Description)
	if err != nil {
		return nil, err
	}

	privacy := in.Privacy
	if privacy == "" {
		privacy = model.PrivacyPrivate
	}
	if !privacy.Valid() {
		return nil, validationf("unknown privacy %q", privacy)
	}

	template := in.Template
	if template == "" {
		template = model.TemplateBlank
	}
	if !template.Valid() {
		return nil, validationf("unknown template %q", template)
	}

	settings := model.DefaultSessionSettings()
	if in.Settings != nil {
		settings = normalizeSettings(*in.Settings)
	}

	now := b.now()
	s := &model.Session{
		Title:         title,
		Description:   desc,
		CreatorID:     caller.UserID,
		Facilitators:  []int64{caller.UserID},
		Privacy:       privacy,
		ShareableLink: strings.ReplaceAll(uuid.NewString(), "-", ""),
		Status:        model.SessionStatusDraft,
		Template:      template,
		Settings:      settings,
		CreatedAt:     now,
	}
	s.AddParticipant(caller.UserID, model.RoleFacilitator, now)

	if privacy == model.PrivacyPasswordProtected {
		if in.Password == "" {
			return nil, validationf("password is required for password-protected sessions")
		}
		if s.PasswordHash, err = hashPassword(in.Password); err != nil {
			return nil, err
		}
	}

	if err := b.store.CreateSession(ctx, s); err != nil {
		return nil, err
	}

	b.commit(ctx, s.ID, caller, change{
		action:     model.ActionSessionCreated,
		targetType: model.TargetSession,
		targetID:   s.ID,
		data:       map[string]any{"title": s.Title, "template": s.Template},
	})
	return s, nil
}

// GetSession 세션 조회 (read 이상)
func (b *Board) GetSession(ctx context.Context, caller model.Identity, sessionID string) (*model.Session, Access, error) {
	return b.authorize(ctx, caller, sessionID, needRead)
}

// ListSessions 내가 생성, 진행, 참가한 세션 목록
func (b *Board) ListSessions(ctx context.Context, caller model.Identity, status model.SessionStatus, limit, offset int) ([]model.Session, int64, error) {
	if status != "" && !status.Valid() {
		return nil, 0, validationf("unknown status %q", status)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return b.store.ListSessions(ctx, store.SessionFilter{
		UserID: caller.UserID,
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
}

// UpdateSession 세션 정보 수정 (진행자)
func (b *Board) UpdateSession(ctx context.Context, caller model.Identity, sessionID string, p SessionPatch) (*model.Session, error) {
	if _, _, err := b.authorize(ctx, caller, sessionID, needFacilitator); err != nil {
		return nil, err
	}

	var templateChanged bool
	updated, err := b.store.UpdateSession(ctx, sessionID, func(s *model.Session) error {
		if p.Title != nil {
			title, err := validateTitle(*p.Title)
			if err != nil {
				return err
			}
			s.Title = title
		}
		if p.Description != nil {
			desc, err := validateDescription(*p.Description)
			if err != nil {
				return err
			}
			s.Description = desc
		}
		if p.Privacy != nil {
			if !p.Privacy.Valid() {
				return validationf("unknown privacy %q", *p.Privacy)
			}
			s.Privacy = *p.Privacy
		}
		if p.Password != nil {
			if *p.Password == "" {
				s.PasswordHash = ""
			} else {
				hash, err := hashPassword(*p.Password)
				if err != nil {
					return err
				}
				s.PasswordHash = hash
			}
		}
		if s.Privacy == model.PrivacyPasswordProtected && s.PasswordHash == "" {
			return validationf("password is required for password-protected sessions")
		}
		if p.Template != nil {
			if !p.Template.Valid() {
				return validationf("unknown template %q", *p.Template)
			}
			templateChanged = s.Template != *p.Template
			s.Template = *p.Template
		}
		if p.Settings != nil {
			s.Settings = normalizeSettings(*p.Settings)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if templateChanged {
		b.commit(ctx, sessionID, caller, change{
			action:     model.ActionTemplateLoaded,
			targetType: model.TargetTemplate,
			targetID:   sessionID,
			data:       map[string]any{"template": updated.Template},
		})
	}
	return updated, nil
}

// StartSession 세션 시작 (draft, paused → active)
func (b *Board) StartSession(ctx context.Context, caller model.Identity, sessionID string) (*model.Session, error) {
	if _, _, err := b.authorize(ctx, caller, sessionID, needFacilitator); err != nil {
		return nil, err
	}
	return b.store.UpdateSession(ctx, sessionID, func(s *model.Session) error {
		if s.Status != model.SessionStatusDraft && s.Status != model.SessionStatusPaused {
			return conflictf("cannot start a %s session", s.Status)
		}
		now := b.now()
		s.Status = model.SessionStatusActive
		if s.StartedAt == nil {
			s.StartedAt = &now
		}
		return nil
	})
}

// EndSession 세션 종료 (active, paused → completed)
func (b *Board) EndSession(ctx context.Context, caller model.Identity, sessionID string) (*model.Session, error) {
	if _, _, err := b.authorize(ctx, caller, sessionID, needFacilitator); err != nil {
		return nil, err
	}
	return b.store.UpdateSession(ctx, sessionID, func(s *model.Session) error {
		if s.Status != model.SessionStatusActive && s.Status != model.SessionStatusPaused {
			return conflictf("cannot end a %s session", s.Status)
		}
		now := b.now()
		s.Status = model.SessionStatusCompleted
		s.EndedAt = &now
		return nil
	})
}

// DeleteSession 세션과 하위 데이터 삭제 (생성자만)
func (b *Board) DeleteSession(ctx context.Context, caller model.Identity, sessionID string) error {
	s, _, err := b.authorize(ctx, caller, sessionID, needRead)
	if err != nil {
		return err
	}
	if !s.IsCreator(caller.UserID) {
		return denied(s.Privacy, "only the creator can delete a session")
	}
	return b.store.DeleteSession(ctx, sessionID)
}

// JoinSession 세션 참가
//
// 검사 순서: 존재 → 상태(draft, active) → 비밀번호 → 중복 참가 → 정원
func (b *Board) JoinSession(ctx context.Context, caller model.Identity, sessionID, password string) (*model.Session, error) {
	joined, err := b.store.UpdateSession(ctx, sessionID, func(s *model.Session) error {
		if !s.Status.Joinable() {
			return conflictf("session is %s", s.Status)
		}
		if s.Privacy == model.PrivacyPasswordProtected {
			if bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password)) != nil {
				return &AccessError{Privacy: s.Privacy, Reason: "invalid password", InvalidPassword: true}
			}
		}
		if s.IsParticipant(caller.UserID) {
			return conflictf("already a participant")
		}
		if len(s.Participants) >= s.Settings.MaxParticipants {
			return ErrCapacity
		}
		s.AddParticipant(caller.UserID, model.RoleParticipant, b.now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionSessionJoined,
		targetType: model.TargetSession,
		targetID:   sessionID,
		data:       map[string]any{"nickname": caller.Nickname},
	})
	return joined, nil
}

// LeaveSession 참가 취소 (생성자는 나갈 수 없음)
func (b *Board) LeaveSession(ctx context.Context, caller model.Identity, sessionID string) error {
	_, err := b.store.UpdateSession(ctx, sessionID, func(s *model.Session) error {
		if s.IsCreator(caller.UserID) {
			return conflictf("the creator cannot leave their own session")
		}
		if !s.RemoveParticipant(caller.UserID) {
			if !s.IsMember(caller.UserID) && s.Privacy != model.PrivacyPublic {
				return denied(s.Privacy, "not a session member")
			}
			return conflictf("not a participant")
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.commit(ctx, sessionID, caller, change{
		action:     model.ActionSessionLeft,
		targetType: model.TargetSession,
		targetID:   sessionID,
	})
	return nil
}

// IsInvalidPassword 비밀번호 불일치 여부
func IsInvalidPassword(err error) bool {
	var accessErr *AccessError
	return errors.As(err, &accessErr) && accessErr.InvalidPassword
}
