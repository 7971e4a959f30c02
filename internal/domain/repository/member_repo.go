package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yourusername/teamquiz-api/internal/domain/entity"
)

// MemberRepository определяет методы для работы с участниками команды
type MemberRepository interface {
	Create(ctx context.Context, member *entity.Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Member, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]entity.Member, error)
	ListByBank(ctx context.Context, bankID uuid.UUID) ([]entity.Member, error)
	// AssignBank закрепляет банк вопросов за участником
	AssignBank(ctx context.Context, memberID, bankID uuid.UUID) error
}
