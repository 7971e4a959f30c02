package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/teamquiz-api/internal/pkg/errors"
)

const questionBatchSize = 200

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// CreateBatch создает пакет вопросов одной транзакцией
func (r *QuestionRepo) CreateBatch(ctx context.Context, questions []entity.Question) error {
	if len(questions) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&questions, questionBatchSize).Error
	})
	return classifyError("create questions", err)
}

// GetByID возвращает вопрос по ID
func (r *QuestionRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Question, error) {
	var question entity.Question
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&question).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, classifyError("get question", err)
	}
	return &question, nil
}

// ListByBank возвращает все вопросы банка
func (r *QuestionRepo) ListByBank(ctx context.Context, bankID uuid.UUID) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.WithContext(ctx).
		Where("question_bank_id = ?", bankID).
		Order("id").
		Find(&questions).Error
	if err != nil {
		return nil, classifyError("list questions", err)
	}
	return questions, nil
}

// ListIDsByBank возвращает только идентификаторы вопросов банка (для провижининга)
func (r *QuestionRepo) ListIDsByBank(ctx context.Context, bankID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&entity.Question{}).
		Where("question_bank_id = ?", bankID).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, classifyError("list question ids", err)
	}
	return ids, nil
}

// ListDue возвращает вопросы банка, подлежащие повторению участником.
// Вопросы без записи прогресса не попадают в выборку.
func (r *QuestionRepo) ListDue(ctx context.Context, memberID, bankID uuid.UUID, now time.Time) ([]entity.Question, error) {
	cond, args := dueCondition(now)
	var questions []entity.Question
	err := r.db.WithContext(ctx).
		Joins("JOIN member_question_progress p ON p.question_id = questions.id AND p.member_id = ?", memberID).
		Where("questions.question_bank_id = ?", bankID).
		Where(cond, args...).
		Order("questions.id").
		Find(&questions).Error
	if err != nil {
		return nil, classifyError("list due questions", err)
	}
	return questions, nil
}
