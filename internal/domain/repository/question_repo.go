package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/teamquiz-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с вопросами
type QuestionRepository interface {
	CreateBatch(ctx context.Context, questions []entity.Question) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Question, error)
	ListByBank(ctx context.Context, bankID uuid.UUID) ([]entity.Question, error)
	ListIDsByBank(ctx context.Context, bankID uuid.UUID) ([]uuid.UUID, error)

	// ListDue возвращает вопросы банка, по которым у участника есть запись прогресса,
	// подлежащая повторению на момент now
	ListDue(ctx context.Context, memberID, bankID uuid.UUID, now time.Time) ([]entity.Question, error)
}
