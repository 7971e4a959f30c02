package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/teamquiz-api/internal/pkg/errors"
	"github.com/yourusername/teamquiz-api/internal/service"
)

func newTeamRouter(teams *MockTeamService, teamID uuid.UUID) *gin.Engine {
	h := NewTeamHandler(teams)
	r := gin.New()
	r.POST("/api/auth/team/login", h.Login)
	r.GET("/api/team/me", withTeam(teamID), h.Me)
	return r
}

func sampleTeam() *entity.Team {
	bankID := uuid.New()
	return &entity.Team{
		ID:           uuid.New(),
		Name:         "alpha",
		PasswordHash: "$2a$10$secret",
		Members: []entity.Member{
			{ID: uuid.New(), Name: "seat 1", AssignedQuestionBankID: &bankID, AssignedQuestionBank: &entity.QuestionBank{ID: bankID, Name: "Стихи", Mode: entity.BankModePoetryPair}},
			{ID: uuid.New(), Name: "seat 2"},
		},
	}
}

func TestTeamLogin(t *testing.T) {
	teams := new(MockTeamService)
	team := sampleTeam()
	expires := time.Now().Add(168 * time.Hour).UTC()
	teams.On("Login", mock.Anything, "alpha", "secret1").Return(&service.LoginResult{Token: "jwt", ExpiresAt: expires, Team: &entity.Team{ID: team.ID, Name: team.Name}}, nil)
	teams.On("GetTeamWithMembers", mock.Anything, team.ID).Return(team, nil)

	w := doRequest(newTeamRouter(teams, team.ID), http.MethodPost, "/api/auth/team/login", map[string]string{"team_name": "alpha", "password": "secret1"}, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "jwt", resp["token"])
	teamResp := resp["team"].(map[string]interface{})
	assert.Len(t, teamResp["members"], 2)
	assert.NotContains(t, w.Body.String(), "$2a$", "Хеш пароля не должен попадать в ответ")
}

func TestTeamLogin_Errors(t *testing.T) {
	t.Run("нет пароля", func(t *testing.T) {
		w := doRequest(newTeamRouter(new(MockTeamService), uuid.New()), http.MethodPost, "/api/auth/team/login", map[string]string{"team_name": "alpha"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("неверный пароль", func(t *testing.T) {
		teams := new(MockTeamService)
		teams.On("Login", mock.Anything, "alpha", "wrong").Return(nil, wrapErr(apperrors.ErrUnauthorized))
		w := doRequest(newTeamRouter(teams, uuid.New()), http.MethodPost, "/api/auth/team/login", map[string]string{"team_name": "alpha", "password": "wrong"}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestTeamMe(t *testing.T) {
	teams := new(MockTeamService)
	team := sampleTeam()
	teams.On("GetTeamWithMembers", mock.Anything, team.ID).Return(team, nil)

	w := doRequest(newTeamRouter(teams, team.ID), http.MethodGet, "/api/team/me", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "alpha", resp["team_name"])
	members := resp["members"].([]interface{})
	first := members[0].(map[string]interface{})
	assert.Equal(t, "poetry-pair", first["question_bank"].(map[string]interface{})["mode"])
	second := members[1].(map[string]interface{})
	assert.Nil(t, second["question_bank"])
}
