package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/yourusername/teamquiz-api/internal/domain/entity"
)

// TeamRepository определяет методы для работы с командами
type TeamRepository interface {
	// Create создает команду вместе с участниками (если они переданы)
	Create(ctx context.Context, team *entity.Team) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Team, error)
	GetByName(ctx context.Context, name string) (*entity.Team, error)
	// GetWithMembers возвращает команду с участниками и их закрепленными банками
	GetWithMembers(ctx context.Context, id uuid.UUID) (*entity.Team, error)
}
