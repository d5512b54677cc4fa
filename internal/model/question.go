package model

import (
	"time"
)

// Answer 질문에 대한 답변
type Answer struct {
	ID         string    `json:"id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	IsAccepted bool      `json:"is_accepted"`
	CreatedAt  time.Time `json:"created_at"`
}

// Question Q&A 질문
type Question struct {
	ID          string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID   string           `gorm:"type:varchar(36);not null;index:idx_question_session_created" json:"session_id"`
	AuthorID    int64            `gorm:"not null" json:"author_id"`
	AuthorName  string           `gorm:"type:varchar(100)" json:"author_name"`
	Text        string           `gorm:"column:question;type:varchar(500);not null" json:"question"`
	Status      QuestionStatus   `gorm:"type:varchar(20);not null" json:"status"`
	Category    QuestionCategory `gorm:"type:varchar(20)" json:"category"`
	Priority    QuestionPriority `gorm:"type:varchar(10)" json:"priority"`
	IsAnonymous bool             `json:"is_anonymous"`
	Votes       Votes            `gorm:"type:jsonb;serializer:json" json:"votes"`
	Answers     []Answer         `gorm:"type:jsonb;serializer:json" json:"answers"`
	AnsweredBy  *int64           `json:"answered_by,omitempty"`
	AnsweredAt  *time.Time       `json:"answered_at,omitempty"`
	CreatedAt   time.Time        `gorm:"index:idx_question_session_created" json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// AddAnswer 답변 추가. 첫 답변이면 상태를 answered로 전환
func (q *Question) AddAnswer(a Answer) {
	q.Answers = append(q.Answers, a)
	if q.Status == QuestionPending {
		q.Status = QuestionAnswered
		by, at := a.AuthorID, a.CreatedAt
		q.AnsweredBy = &by
		q.AnsweredAt = &at
	}
}

// HasAnswer 답변 ID 존재 여부
func (q *Question) HasAnswer(id string) bool {
	for _, a := range q.Answers {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Anonymized 익명 질문이면 작성자 정보를 가린 사본
func (q Question) Anonymized() Question {
	if q.IsAnonymous {
		q.AuthorID = 0
		q.AuthorName = "Anonymous"
	}
	return q
}

func (q Question) Clone() Question {
	q.Votes = q.Votes.Clone()
	q.Answers = append([]Answer(nil), q.Answers...)
	q.AnsweredBy = clonePtr(q.AnsweredBy)
	q.AnsweredAt = clonePtr(q.AnsweredAt)
	return q
}
