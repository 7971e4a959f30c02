package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	"github.com/yourusername/teamquiz-api/internal/handler/dto"
	"github.com/yourusername/teamquiz-api/internal/middleware"
	apperrors "github.com/yourusername/teamquiz-api/internal/pkg/errors"
)

// Режимы выдачи вопросов
const (
	QuestionModeAll    = "all"
	QuestionModeReview = "review"
)

// QuestionHandler обрабатывает запросы к банкам вопросов
type QuestionHandler struct {
	questionService QuestionService
	progressService ProgressService
	teamService     TeamService
}

// NewQuestionHandler создает новый обработчик вопросов
func NewQuestionHandler(questionService QuestionService, progressService ProgressService, teamService TeamService) *QuestionHandler {
	return &QuestionHandler{
		questionService: questionService,
		progressService: progressService,
		teamService:     teamService,
	}
}

// GetQuestions возвращает вопросы банка: все (mode=all) или к повторению (mode=review)
func (h *QuestionHandler) GetQuestions(c *gin.Context) {
	ctx := c.Request.Context()
	bankID := c.MustGet("bankID").(uuid.UUID)
	teamID, ok := middleware.TeamIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	mode := c.DefaultQuery("mode", QuestionModeAll)
	if mode != QuestionModeAll && mode != QuestionModeReview {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown mode %q, expected all or review", mode)})
		return
	}

	bank, err := h.questionService.GetBank(ctx, bankID)
	if err != nil {
		handleError(c, "QuestionHandler", err)
		return
	}
	if bank.TeamID != teamID {
		handleError(c, "QuestionHandler", fmt.Errorf("bank %s belongs to another team: %w", bankID, apperrors.ErrForbidden))
		return
	}

	var questions []entity.Question
	switch mode {
	case QuestionModeReview:
		memberID, err := uuid.Parse(c.Query("member_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "member_id query parameter is required in review mode"})
			return
		}
		if _, err := h.teamService.AuthorizeMember(ctx, teamID, memberID); err != nil {
			handleError(c, "QuestionHandler", err)
			return
		}
		questions, err = h.progressService.DueQuestions(ctx, memberID, bankID)
		if err != nil {
			handleError(c, "QuestionHandler", err)
			return
		}
	default:
		questions, err = h.questionService.AllQuestions(ctx, bankID)
		if err != nil {
			handleError(c, "QuestionHandler", err)
			return
		}
	}

	c.JSON(http.StatusOK, dto.NewQuestionListResponse(mode, bank, questions))
}
