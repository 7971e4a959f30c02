package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/teamquiz-api/internal/domain/entity"
)

// ProgressMutator изменяет запись прогресса внутри транзакции, удерживающей блокировку строки.
// Ошибка из мутатора откатывает транзакцию.
type ProgressMutator func(rec *entity.ProgressRecord) error

// ProgressRepository определяет методы для работы с записями прогресса участников
type ProgressRepository interface {
	// Get возвращает запись по (memberID, questionID) или apperrors.ErrNotFound
	Get(ctx context.Context, memberID, questionID uuid.UUID) (*entity.ProgressRecord, error)

	// Update атомарно читает запись с блокировкой, применяет mutate и сохраняет результат.
	// Конкурентные вызовы для одного ключа выполняются последовательно.
	Update(ctx context.Context, memberID, questionID uuid.UUID, mutate ProgressMutator) (*entity.ProgressRecord, error)

	// CreateMissing создает отсутствующие записи, существующие не трогает.
	// Возвращает число фактически созданных записей.
	CreateMissing(ctx context.Context, records []entity.ProgressRecord) (int64, error)

	// ListByMember возвращает все записи участника
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]entity.ProgressRecord, error)

	// CountByStatus считает записи участника по статусам в пределах банка
	CountByStatus(ctx context.Context, memberID, bankID uuid.UUID) (map[entity.ProgressStatus]int64, error)

	// CountDue считает вопросы банка, подлежащие повторению на момент now
	CountDue(ctx context.Context, memberID, bankID uuid.UUID, now time.Time) (int64, error)
}
