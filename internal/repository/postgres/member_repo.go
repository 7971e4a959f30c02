package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/teamquiz-api/internal/pkg/errors"
)

// MemberRepo реализует repository.MemberRepository
type MemberRepo struct {
	db *gorm.DB
}

// NewMemberRepo создает новый репозиторий участников
func NewMemberRepo(db *gorm.DB) *MemberRepo {
	return &MemberRepo{db: db}
}

// Create создает участника команды
func (r *MemberRepo) Create(ctx context.Context, member *entity.Member) error {
	return classifyError("create member", r.db.WithContext(ctx).Omit("AssignedQuestionBank").Create(member).Error)
}

// GetByID возвращает участника по ID
func (r *MemberRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Member, error) {
	var member entity.Member
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, classifyError("get member", err)
	}
	return &member, nil
}

// ListByTeam возвращает участников команды
func (r *MemberRepo) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]entity.Member, error) {
	var members []entity.Member
	err := r.db.WithContext(ctx).Where("team_id = ?", teamID).Order("name").Find(&members).Error
	if err != nil {
		return nil, classifyError("list members", err)
	}
	return members, nil
}

// ListByBank возвращает участников, за которыми закреплен банк
func (r *MemberRepo) ListByBank(ctx context.Context, bankID uuid.UUID) ([]entity.Member, error) {
	var members []entity.Member
	err := r.db.WithContext(ctx).Where("assigned_question_bank_id = ?", bankID).Order("name").Find(&members).Error
	if err != nil {
		return nil, classifyError("list members by bank", err)
	}
	return members, nil
}

// AssignBank закрепляет банк вопросов за участником
func (r *MemberRepo) AssignBank(ctx context.Context, memberID, bankID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Member{}).
		Where("id = ?", memberID).
		Update("assigned_question_bank_id", bankID)
	if result.Error != nil {
		return classifyError("assign bank", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
