package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	"github.com/yourusername/teamquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/teamquiz-api/internal/pkg/errors"
	"github.com/yourusername/teamquiz-api/pkg/auth"
)

// dummyHash сравнивается при неизвестной команде, чтобы время ответа не выдавало существование имени
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("teamquiz-dummy-password"), bcrypt.DefaultCost)

// LoginResult - результат входа команды
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Team      *entity.Team `json:"team"`
}

// NewMember описывает участника при создании команды
type NewMember struct {
	Name   string
	BankID *uuid.UUID
}

// TeamService предоставляет методы для работы с командами и участниками
type TeamService struct {
	teamRepo   repository.TeamRepository
	memberRepo repository.MemberRepository
	bankRepo   repository.QuestionBankRepository
	jwtService *auth.JWTService
}

// NewTeamService создает новый сервис команд
func NewTeamService(
	teamRepo repository.TeamRepository,
	memberRepo repository.MemberRepository,
	bankRepo repository.QuestionBankRepository,
	jwtService *auth.JWTService,
) *TeamService {
	return &TeamService{
		teamRepo:   teamRepo,
		memberRepo: memberRepo,
		bankRepo:   bankRepo,
		jwtService: jwtService,
	}
}

// Login проверяет пароль команды и выпускает токен
func (s *TeamService) Login(ctx context.Context, teamName, password string) (*LoginResult, error) {
	teamName = strings.TrimSpace(teamName)
	if teamName == "" || password == "" {
		return nil, fmt.Errorf("team name and password are required: %w", apperrors.ErrValidation)
	}

	team, err := s.teamRepo.GetByName(ctx, teamName)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			log.Printf("[TeamService] Вход: команда %q не найдена", teamName)
			return nil, fmt.Errorf("invalid team name or password: %w", apperrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	if !team.CheckPassword(password) {
		log.Printf("[TeamService] Вход: неверный пароль для команды %s", team.ID)
		return nil, fmt.Errorf("invalid team name or password: %w", apperrors.ErrUnauthorized)
	}

	token, expiresAt, err := s.jwtService.GenerateTeamToken(team.ID, team.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	log.Printf("[TeamService] Команда %s (%s) вошла в систему", team.ID, team.Name)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Team: team}, nil
}

// GetTeamWithMembers возвращает команду с участниками (выбор "места")
func (s *TeamService) GetTeamWithMembers(ctx context.Context, teamID uuid.UUID) (*entity.Team, error) {
	return s.teamRepo.GetWithMembers(ctx, teamID)
}

// AuthorizeMember проверяет, что участник существует и принадлежит команде
func (s *TeamService) AuthorizeMember(ctx context.Context, teamID, memberID uuid.UUID) (*entity.Member, error) {
	if memberID == uuid.Nil {
		return nil, fmt.Errorf("member_id is required: %w", apperrors.ErrValidation)
	}
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("member %s: %w", memberID, err)
	}
	if member.TeamID != teamID {
		log.Printf("[TeamService] Участник %s не принадлежит команде %s", memberID, teamID)
		return nil, fmt.Errorf("member %s does not belong to team: %w", memberID, apperrors.ErrForbidden)
	}
	return member, nil
}

// CreateTeam создает команду с участниками
func (s *TeamService) CreateTeam(ctx context.Context, name, password string, members []NewMember) (*entity.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("team name is required: %w", apperrors.ErrValidation)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters: %w", apperrors.ErrValidation)
	}

	team := &entity.Team{Name: name, PasswordHash: password}
	for _, m := range members {
		if strings.TrimSpace(m.Name) == "" {
			return nil, fmt.Errorf("member name is required: %w", apperrors.ErrValidation)
		}
		team.Members = append(team.Members, entity.Member{Name: strings.TrimSpace(m.Name), AssignedQuestionBankID: m.BankID})
	}

	if err := s.teamRepo.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	log.Printf("[TeamService] Создана команда %s (%s), участников: %d", team.ID, team.Name, len(team.Members))
	return team, nil
}

// AssignBank закрепляет за участником банк той же команды.
// Записи прогресса создаются отдельно (ProgressService.ProvisionMember).
func (s *TeamService) AssignBank(ctx context.Context, memberID, bankID uuid.UUID) (*entity.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("member %s: %w", memberID, err)
	}
	bank, err := s.bankRepo.GetByID(ctx, bankID)
	if err != nil {
		return nil, fmt.Errorf("bank %s: %w", bankID, err)
	}
	if bank.TeamID != member.TeamID {
		return nil, fmt.Errorf("bank %s belongs to another team: %w", bankID, apperrors.ErrForbidden)
	}
	if err := s.memberRepo.AssignBank(ctx, memberID, bankID); err != nil {
		return nil, fmt.Errorf("failed to assign bank: %w", err)
	}
	member.AssignedQuestionBankID = &bank.ID
	log.Printf("[TeamService] Участнику %s закреплен банк %s", memberID, bankID)
	return member, nil
}
