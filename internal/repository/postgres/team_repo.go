package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/teamquiz-api/internal/pkg/errors"
)

// TeamRepo реализует repository.TeamRepository
type TeamRepo struct {
	db *gorm.DB
}

// NewTeamRepo создает новый репозиторий команд
func NewTeamRepo(db *gorm.DB) *TeamRepo {
	return &TeamRepo{db: db}
}

// Create создает команду вместе с участниками одной транзакцией
func (r *TeamRepo) Create(ctx context.Context, team *entity.Team) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := team.Members
		team.Members = nil
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		for i := range members {
			members[i].TeamID = team.ID
		}
		if len(members) > 0 {
			if err := tx.Omit("AssignedQuestionBank").Create(&members).Error; err != nil {
				return err
			}
		}
		team.Members = members
		return nil
	})
	return classifyError("create team", err)
}

// GetByID возвращает команду по ID
func (r *TeamRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Team, error) {
	return r.findOne(ctx, r.db.WithContext(ctx).Where("id = ?", id))
}

// GetByName возвращает команду по имени (для входа)
func (r *TeamRepo) GetByName(ctx context.Context, name string) (*entity.Team, error) {
	return r.findOne(ctx, r.db.WithContext(ctx).Where("team_name = ?", name))
}

// GetWithMembers возвращает команду с участниками и их банками
func (r *TeamRepo) GetWithMembers(ctx context.Context, id uuid.UUID) (*entity.Team, error) {
	q := r.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("members.name") }).
		Preload("Members.AssignedQuestionBank").
		Where("id = ?", id)
	return r.findOne(ctx, q)
}

func (r *TeamRepo) findOne(_ context.Context, q *gorm.DB) (*entity.Team, error) {
	var team entity.Team
	if err := q.Take(&team).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, classifyError("get team", err)
	}
	return &team, nil
}
