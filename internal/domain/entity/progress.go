package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProgressStatus - результат последнего ответа участника на вопрос
type ProgressStatus string

// Возможные статусы прогресса
const (
	ProgressStatusUnanswered ProgressStatus = "unanswered"
	ProgressStatusCorrect    ProgressStatus = "correct"
	ProgressStatusIncorrect  ProgressStatus = "incorrect"
)

// Значения новой записи прогресса
const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
)

// IsValid проверяет, является ли статус одним из допустимых
func (s ProgressStatus) IsValid() bool {
	switch s {
	case ProgressStatusUnanswered, ProgressStatusCorrect, ProgressStatusIncorrect:
		return true
	}
	return false
}

// ProgressRecord хранит состояние интервального повторения для пары (участник, вопрос).
// Запись создается при провижининге участника и далее только обновляется.
type ProgressRecord struct {
	MemberID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"member_id"`
	QuestionID     uuid.UUID      `gorm:"type:uuid;primaryKey;index:progress_question_id_idx" json:"question_id"`
	Status         ProgressStatus `gorm:"size:20;not null;default:'unanswered'" json:"status"`
	CorrectStreak  int            `gorm:"not null;default:0" json:"correct_streak"`
	Interval       int            `gorm:"not null;default:0" json:"interval"`
	EaseFactor     float64        `gorm:"type:double precision;not null;default:2.5" json:"ease_factor"`
	LastReviewedAt *time.Time     `json:"last_reviewed_at"`
	NextReviewAt   *time.Time     `gorm:"index:progress_next_review_at_idx" json:"next_review_at"`
}

// TableName определяет имя таблицы для GORM
func (ProgressRecord) TableName() string {
	return "member_question_progress"
}

// NewProgressRecord возвращает запись в начальном состоянии: (unanswered, 0, 0, 2.5, NULL, NULL)
func NewProgressRecord(memberID, questionID uuid.UUID) ProgressRecord {
	return ProgressRecord{
		MemberID:   memberID,
		QuestionID: questionID,
		Status:     ProgressStatusUnanswered,
		EaseFactor: DefaultEaseFactor,
	}
}

// Validate проверяет инварианты записи прогресса.
// Статус incorrect допускает ненулевую серию: правильные ответы после ошибки копят серию до перехода в correct.
func (p *ProgressRecord) Validate() error {
	if !p.Status.IsValid() {
		return fmt.Errorf("invalid progress status %q", p.Status)
	}
	if p.CorrectStreak < 0 {
		return fmt.Errorf("correct streak must be non-negative, got %d", p.CorrectStreak)
	}
	if p.Interval < 0 {
		return fmt.Errorf("interval must be non-negative, got %d", p.Interval)
	}
	if p.EaseFactor < MinEaseFactor {
		return fmt.Errorf("ease factor must be at least %.1f, got %v", MinEaseFactor, p.EaseFactor)
	}
	return nil
}

// IsDue проверяет, входит ли запись в набор вопросов к повторению на момент now
func (p *ProgressRecord) IsDue(now time.Time) bool {
	if p.Status == ProgressStatusIncorrect || p.Status == ProgressStatusUnanswered {
		return true
	}
	return p.NextReviewAt == nil || !p.NextReviewAt.After(now)
}

// NormalizeTime приводит время к UTC с точностью до микросекунд, как его хранит Postgres
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
