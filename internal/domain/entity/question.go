package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Metadata - пользовательский тип для работы с JSONB (например, пары строк для режима poetry-pair)
type Metadata map[string]interface{}

// Scan реализует интерфейс sql.Scanner для Metadata
// Используется GORM для чтения JSONB данных из базы
func (m *Metadata) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*m = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to unmarshal JSONB value: expected []byte or string")
	}

	if len(bytes) == 0 {
		*m = nil
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Value реализует интерфейс driver.Valuer для Metadata
func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil // Пустые метаданные храним как NULL
	}
	return json.Marshal(m)
}

// Question представляет пару "вопрос - ответ" в банке вопросов
type Question struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionBankID uuid.UUID `gorm:"type:uuid;not null;index:question_bank_id_idx" json:"question_bank_id"`
	Prompt         string    `gorm:"column:question;type:text;not null" json:"question"`
	Answer         string    `gorm:"type:text;not null" json:"answer"`
	Metadata       Metadata  `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// BeforeCreate выдает UUID, если он не задан вызывающим кодом
func (q *Question) BeforeCreate(tx *gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}
