package entity

import (
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Team представляет команду, под которой входят участники
type Team struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"column:team_name;size:256;not null;uniqueIndex" json:"team_name"`
	PasswordHash string    `gorm:"size:256;not null" json:"-"`
	Members      []Member  `gorm:"foreignKey:TeamID" json:"members,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Team) TableName() string {
	return "teams"
}

// BeforeCreate выдает UUID и хеширует пароль, если он еще не является bcrypt-хешем
func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if len(t.PasswordHash) > 0 && !isBcryptHash(t.PasswordHash) {
		hashed, err := bcrypt.GenerateFromPassword([]byte(t.PasswordHash), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[Team.BeforeCreate] Ошибка при хешировании пароля команды %s: %v", t.Name, err)
			return err
		}
		t.PasswordHash = string(hashed)
	}
	return nil
}

// CheckPassword проверяет, соответствует ли переданный пароль хешу
func (t *Team) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(password)) == nil
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
