package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Режимы отображения банка вопросов
const (
	BankModeStandard   = "standard"
	BankModePoetryPair = "poetry-pair"
)

// QuestionBank представляет именованный набор вопросов команды
type QuestionBank struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TeamID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"team_id"`
	Name        string     `gorm:"size:256;not null" json:"name"`
	Description string     `gorm:"type:text;not null;default:''" json:"description,omitempty"`
	Mode        string     `gorm:"size:20;not null;default:'standard'" json:"mode"`
	Questions   []Question `gorm:"foreignKey:QuestionBankID" json:"questions,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (QuestionBank) TableName() string {
	return "question_banks"
}

// BeforeCreate выдает UUID и режим по умолчанию
func (b *QuestionBank) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Mode == "" {
		b.Mode = BankModeStandard
	}
	return nil
}

// IsValidBankMode проверяет, поддерживается ли режим банка
func IsValidBankMode(mode string) bool {
	return mode == BankModeStandard || mode == BankModePoetryPair
}
