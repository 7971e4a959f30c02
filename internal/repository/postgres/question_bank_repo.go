package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/teamquiz-api/internal/pkg/errors"
)

// QuestionBankRepo реализует repository.QuestionBankRepository
type QuestionBankRepo struct {
	db *gorm.DB
}

// NewQuestionBankRepo создает новый репозиторий банков вопросов
func NewQuestionBankRepo(db *gorm.DB) *QuestionBankRepo {
	return &QuestionBankRepo{db: db}
}

// Create создает банк вопросов
func (r *QuestionBankRepo) Create(ctx context.Context, bank *entity.QuestionBank) error {
	return classifyError("create question bank", r.db.WithContext(ctx).Omit("Questions").Create(bank).Error)
}

// GetByID возвращает банк вопросов по ID
func (r *QuestionBankRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.QuestionBank, error) {
	var bank entity.QuestionBank
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&bank).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, classifyError("get question bank", err)
	}
	return &bank, nil
}

// ListByTeam возвращает банки команды
func (r *QuestionBankRepo) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]entity.QuestionBank, error) {
	var banks []entity.QuestionBank
	err := r.db.WithContext(ctx).Where("team_id = ?", teamID).Order("name").Find(&banks).Error
	if err != nil {
		return nil, classifyError("list question banks", err)
	}
	return banks, nil
}
