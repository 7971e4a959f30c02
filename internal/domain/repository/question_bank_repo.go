package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yourusername/teamquiz-api/internal/domain/entity"
)

// QuestionBankRepository определяет методы для работы с банками вопросов
type QuestionBankRepository interface {
	Create(ctx context.Context, bank *entity.QuestionBank) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.QuestionBank, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]entity.QuestionBank, error)
}
