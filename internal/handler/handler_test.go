package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	"github.com/yourusername/teamquiz-api/internal/middleware"
	"github.com/yourusername/teamquiz-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ============================================================================
// Моки сервисов
// ============================================================================

type MockProgressService struct {
	mock.Mock
}

func (m *MockProgressService) RecordAnswerOnce(ctx context.Context, idempotencyKey string, memberID, questionID uuid.UUID, isCorrect bool) (*service.AnswerResult, error) {
	args := m.Called(ctx, idempotencyKey, memberID, questionID, isCorrect)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AnswerResult), args.Error(1)
}

func (m *MockProgressService) DueQuestions(ctx context.Context, memberID, bankID uuid.UUID) ([]entity.Question, error) {
	args := m.Called(ctx, memberID, bankID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockProgressService) ReviewSummary(ctx context.Context, memberID, bankID uuid.UUID) (*service.ReviewSummary, error) {
	args := m.Called(ctx, memberID, bankID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReviewSummary), args.Error(1)
}

func (m *MockProgressService) ProgressReport(ctx context.Context, memberID uuid.UUID) ([]service.ProgressReportRow, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.ProgressReportRow), args.Error(1)
}

type MockQuestionService struct {
	mock.Mock
}

func (m *MockQuestionService) GetBank(ctx context.Context, bankID uuid.UUID) (*entity.QuestionBank, error) {
	args := m.Called(ctx, bankID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.QuestionBank), args.Error(1)
}

func (m *MockQuestionService) AllQuestions(ctx context.Context, bankID uuid.UUID) ([]entity.Question, error) {
	args := m.Called(ctx, bankID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

type MockTeamService struct {
	mock.Mock
}

func (m *MockTeamService) Login(ctx context.Context, teamName, password string) (*service.LoginResult, error) {
	args := m.Called(ctx, teamName, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}

func (m *MockTeamService) GetTeamWithMembers(ctx context.Context, teamID uuid.UUID) (*entity.Team, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Team), args.Error(1)
}

func (m *MockTeamService) AuthorizeMember(ctx context.Context, teamID, memberID uuid.UUID) (*entity.Member, error) {
	args := m.Called(ctx, teamID, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Member), args.Error(1)
}

// ============================================================================
// Вспомогательные функции
// ============================================================================

// withTeam подменяет RequireTeam: выставляет команду в контекст без токена
func withTeam(teamID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextTeamID, teamID)
		c.Next()
	}
}

func doRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		var raw []byte
		switch b := body.(type) {
		case string:
			raw = []byte(b)
		default:
			raw, _ = json.Marshal(b)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// parseJSONResponse парсит JSON ответ из *httptest.ResponseRecorder
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err, "Response body should be valid JSON: %s", w.Body.String())
	return resp
}

func wrapErr(sentinel error) error {
	return fmt.Errorf("wrapped: %w", sentinel)
}
