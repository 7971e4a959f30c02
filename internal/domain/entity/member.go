package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Member представляет "место" в команде: участника, закрепленного за одним банком вопросов
type Member struct {
	ID                     uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Name                   string        `gorm:"size:256;not null" json:"name"`
	TeamID                 uuid.UUID     `gorm:"type:uuid;not null;index:team_id_idx" json:"team_id"`
	AssignedQuestionBankID *uuid.UUID    `gorm:"type:uuid" json:"assigned_question_bank_id"`
	AssignedQuestionBank   *QuestionBank `gorm:"foreignKey:AssignedQuestionBankID" json:"assigned_question_bank,omitempty"`
	CreatedAt              time.Time     `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Member) TableName() string {
	return "members"
}

// BeforeCreate выдает UUID, если он не задан
func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// HasAssignedBank проверяет, закреплен ли за участником банк вопросов
func (m *Member) HasAssignedBank() bool {
	return m.AssignedQuestionBankID != nil && *m.AssignedQuestionBankID != uuid.Nil
}
