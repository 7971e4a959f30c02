package handler

import (
	"context"

	"github.com/google/uuid"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	"github.com/yourusername/teamquiz-api/internal/service"
)

// Интерфейсы сервисов, которые используют обработчики

// ProgressService - операции прогресса участника
type ProgressService interface {
	RecordAnswerOnce(ctx context.Context, idempotencyKey string, memberID, questionID uuid.UUID, isCorrect bool) (*service.AnswerResult, error)
	DueQuestions(ctx context.Context, memberID, bankID uuid.UUID) ([]entity.Question, error)
	ReviewSummary(ctx context.Context, memberID, bankID uuid.UUID) (*service.ReviewSummary, error)
	ProgressReport(ctx context.Context, memberID uuid.UUID) ([]service.ProgressReportRow, error)
}

// QuestionService - чтение банков вопросов
type QuestionService interface {
	GetBank(ctx context.Context, bankID uuid.UUID) (*entity.QuestionBank, error)
	AllQuestions(ctx context.Context, bankID uuid.UUID) ([]entity.Question, error)
}

// TeamService - вход команды и проверка принадлежности участника
type TeamService interface {
	Login(ctx context.Context, teamName, password string) (*service.LoginResult, error)
	GetTeamWithMembers(ctx context.Context, teamID uuid.UUID) (*entity.Team, error)
	AuthorizeMember(ctx context.Context, teamID, memberID uuid.UUID) (*entity.Member, error)
}
