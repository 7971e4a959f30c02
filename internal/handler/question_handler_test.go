package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	"github.com/yourusername/teamquiz-api/internal/middleware"
	apperrors "github.com/yourusername/teamquiz-api/internal/pkg/errors"
)

type questionFixture struct {
	router    *gin.Engine
	questions *MockQuestionService
	progress  *MockProgressService
	teams     *MockTeamService
	teamID    uuid.UUID
	bank      *entity.QuestionBank
}

func newQuestionFixture(mode string) *questionFixture {
	f := &questionFixture{
		questions: new(MockQuestionService),
		progress:  new(MockProgressService),
		teams:     new(MockTeamService),
		teamID:    uuid.New(),
	}
	f.bank = &entity.QuestionBank{ID: uuid.New(), TeamID: f.teamID, Name: "Стихи", Mode: mode}

	h := NewQuestionHandler(f.questions, f.progress, f.teams)
	r := gin.New()
	r.GET("/api/banks/:bankId/questions", withTeam(f.teamID), middleware.ExtractUUIDParam("bankId", "bankID"), h.GetQuestions)
	f.router = r
	return f
}

func (f *questionFixture) path(query string) string {
	return "/api/banks/" + f.bank.ID.String() + "/questions" + query
}

func TestGetQuestions_AllMode(t *testing.T) {
	f := newQuestionFixture(entity.BankModePoetryPair)
	f.questions.On("GetBank", mock.Anything, f.bank.ID).Return(f.bank, nil)
	f.questions.On("AllQuestions", mock.Anything, f.bank.ID).Return([]entity.Question{
		{ID: uuid.New(), QuestionBankID: f.bank.ID, Prompt: "床前明月光", Answer: "疑是地上霜", Metadata: entity.Metadata{"title": "静夜思", "author": "李白"}},
	}, nil)

	w := doRequest(f.router, http.MethodGet, f.path(""), nil, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "all", resp["mode"])
	assert.Equal(t, "poetry-pair", resp["bank_mode"])
	questions := resp["questions"].([]interface{})
	require.Len(t, questions, 1)
	q := questions[0].(map[string]interface{})
	assert.Equal(t, "床前明月光", q["question"])
	assert.Equal(t, "李白", q["source"].(map[string]interface{})["author"])
	f.progress.AssertNotCalled(t, "DueQuestions", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetQuestions_ReviewMode(t *testing.T) {
	f := newQuestionFixture(entity.BankModeStandard)
	memberID := uuid.New()
	f.questions.On("GetBank", mock.Anything, f.bank.ID).Return(f.bank, nil)
	f.teams.On("AuthorizeMember", mock.Anything, f.teamID, memberID).Return(&entity.Member{ID: memberID, TeamID: f.teamID}, nil)
	f.progress.On("DueQuestions", mock.Anything, memberID, f.bank.ID).Return([]entity.Question{}, nil)

	w := doRequest(f.router, http.MethodGet, f.path("?mode=review&member_id="+memberID.String()), nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "review", resp["mode"])
	assert.Empty(t, resp["questions"], "Пустой набор к повторению - не ошибка")
	f.questions.AssertNotCalled(t, "AllQuestions", mock.Anything, mock.Anything)
}

func TestGetQuestions_Errors(t *testing.T) {
	t.Run("неизвестный режим", func(t *testing.T) {
		f := newQuestionFixture(entity.BankModeStandard)
		w := doRequest(f.router, http.MethodGet, f.path("?mode=random"), nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("review без member_id", func(t *testing.T) {
		f := newQuestionFixture(entity.BankModeStandard)
		f.questions.On("GetBank", mock.Anything, f.bank.ID).Return(f.bank, nil)
		w := doRequest(f.router, http.MethodGet, f.path("?mode=review"), nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("банк другой команды", func(t *testing.T) {
		f := newQuestionFixture(entity.BankModeStandard)
		f.bank.TeamID = uuid.New()
		f.questions.On("GetBank", mock.Anything, f.bank.ID).Return(f.bank, nil)
		w := doRequest(f.router, http.MethodGet, f.path(""), nil, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("банк не найден", func(t *testing.T) {
		f := newQuestionFixture(entity.BankModeStandard)
		f.questions.On("GetBank", mock.Anything, f.bank.ID).Return(nil, wrapErr(apperrors.ErrNotFound))
		w := doRequest(f.router, http.MethodGet, f.path(""), nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("участник чужой команды", func(t *testing.T) {
		f := newQuestionFixture(entity.BankModeStandard)
		memberID := uuid.New()
		f.questions.On("GetBank", mock.Anything, f.bank.ID).Return(f.bank, nil)
		f.teams.On("AuthorizeMember", mock.Anything, f.teamID, memberID).Return(nil, wrapErr(apperrors.ErrForbidden))
		w := doRequest(f.router, http.MethodGet, f.path("?mode=review&member_id="+memberID.String()), nil, nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("сбой хранилища", func(t *testing.T) {
		f := newQuestionFixture(entity.BankModeStandard)
		f.questions.On("GetBank", mock.Anything, f.bank.ID).Return(f.bank, nil)
		f.questions.On("AllQuestions", mock.Anything, f.bank.ID).Return(nil, wrapErr(apperrors.ErrPersistence))
		w := doRequest(f.router, http.MethodGet, f.path(""), nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
