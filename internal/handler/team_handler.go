package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/teamquiz-api/internal/handler/dto"
	"github.com/yourusername/teamquiz-api/internal/middleware"
)

// TeamHandler обрабатывает вход команды и выбор участника
type TeamHandler struct {
	teamService TeamService
}

// NewTeamHandler создает новый обработчик команд
func NewTeamHandler(teamService TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// Login обрабатывает вход команды по имени и паролю
func (h *TeamHandler) Login(c *gin.Context) {
	var req dto.TeamLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.teamService.Login(c.Request.Context(), req.TeamName, req.Password)
	if err != nil {
		handleError(c, "TeamHandler", err)
		return
	}

	team := result.Team
	// Участники нужны клиенту для выбора "места" сразу после входа
	if full, err := h.teamService.GetTeamWithMembers(c.Request.Context(), team.ID); err == nil {
		team = full
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Team:      dto.NewTeamResponse(team),
	})
}

// Me возвращает команду из токена вместе с участниками
func (h *TeamHandler) Me(c *gin.Context) {
	teamID, ok := middleware.TeamIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	team, err := h.teamService.GetTeamWithMembers(c.Request.Context(), teamID)
	if err != nil {
		handleError(c, "TeamHandler", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTeamResponse(team))
}
