package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	"github.com/yourusername/teamquiz-api/internal/handler/helper"
)

// UpdateProgressRequest - тело PATCH /api/progress
type UpdateProgressRequest struct {
	MemberID   uuid.UUID `json:"member_id" binding:"required"`
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	// Указатель, чтобы отличить false от отсутствующего поля
	IsCorrect *bool `json:"is_correct" binding:"required"`
}

// TeamLoginRequest - тело POST /api/auth/team/login
type TeamLoginRequest struct {
	TeamName string `json:"team_name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// QuestionResponse представляет вопрос в формате для ответа клиенту
type QuestionResponse struct {
	ID       uuid.UUID          `json:"id"`
	BankID   uuid.UUID          `json:"question_bank_id"`
	Question string             `json:"question"`
	Answer   string             `json:"answer"`
	Metadata entity.Metadata    `json:"metadata,omitempty"`
	Source   *helper.PoemSource `json:"source,omitempty"`
}

// QuestionListResponse - ответ GET /api/banks/:bankId/questions
type QuestionListResponse struct {
	Mode      string             `json:"mode"`
	BankMode  string             `json:"bank_mode"`
	Questions []QuestionResponse `json:"questions"`
}

// BankResponse - краткое описание банка вопросов
type BankResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Mode        string    `json:"mode"`
}

// MemberResponse - участник ("место") команды
type MemberResponse struct {
	ID           uuid.UUID     `json:"id"`
	Name         string        `json:"name"`
	QuestionBank *BankResponse `json:"question_bank,omitempty"`
}

// TeamResponse - команда с участниками
type TeamResponse struct {
	ID       uuid.UUID        `json:"id"`
	TeamName string           `json:"team_name"`
	Members  []MemberResponse `json:"members"`
}

// LoginResponse - ответ на вход команды
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Team      *TeamResponse `json:"team"`
}

// NewQuestionResponse создает DTO для вопроса; для poetry-pair добавляется подпись источника
func NewQuestionResponse(q *entity.Question, bankMode string) QuestionResponse {
	resp := QuestionResponse{
		ID:       q.ID,
		BankID:   q.QuestionBankID,
		Question: q.Prompt,
		Answer:   q.Answer,
		Metadata: q.Metadata,
	}
	if bankMode == entity.BankModePoetryPair {
		resp.Source = helper.ConvertPoemSource(q.Metadata)
	}
	return resp
}

// NewQuestionListResponse преобразует список вопросов
func NewQuestionListResponse(mode string, bank *entity.QuestionBank, questions []entity.Question) *QuestionListResponse {
	resp := &QuestionListResponse{
		Mode:      mode,
		BankMode:  bank.Mode,
		Questions: make([]QuestionResponse, 0, len(questions)),
	}
	for i := range questions {
		resp.Questions = append(resp.Questions, NewQuestionResponse(&questions[i], bank.Mode))
	}
	return resp
}

// NewTeamResponse создает DTO команды; PasswordHash не попадает в ответ
func NewTeamResponse(team *entity.Team) *TeamResponse {
	if team == nil {
		return nil
	}
	resp := &TeamResponse{
		ID:       team.ID,
		TeamName: team.Name,
		Members:  make([]MemberResponse, 0, len(team.Members)),
	}
	for _, m := range team.Members {
		member := MemberResponse{ID: m.ID, Name: m.Name}
		if m.AssignedQuestionBank != nil {
			member.QuestionBank = &BankResponse{
				ID:          m.AssignedQuestionBank.ID,
				Name:        m.AssignedQuestionBank.Name,
				Description: m.AssignedQuestionBank.Description,
				Mode:        m.AssignedQuestionBank.Mode,
			}
		}
		resp.Members = append(resp.Members, member)
	}
	return resp
}
