package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/teamquiz-api/internal/config"
	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	"github.com/yourusername/teamquiz-api/internal/service"
	"github.com/yourusername/teamquiz-api/internal/service/review"
)

func newTestConfig() *config.Config {
	defaults := review.DefaultConfig()
	return &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpirationHrs: 1},
		Review: config.ReviewConfig{
			InitialEaseFactor: defaults.InitialEaseFactor,
			MinEaseFactor:     defaults.MinEaseFactor,
			EaseBonus:         defaults.EaseBonus,
			MasteryStreak:     defaults.MasteryStreak,
			FirstInterval:     defaults.FirstInterval,
			SecondInterval:    defaults.SecondInterval,
		},
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "app.db") + "?_busy_timeout=5000&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&entity.Team{},
		&entity.QuestionBank{},
		&entity.Question{},
		&entity.Member{},
		&entity.ProgressRecord{},
	))
	return db
}

func TestNewServices_RejectsInvalidConfig(t *testing.T) {
	cfg := newTestConfig()
	cfg.JWT.Secret = ""
	_, err := NewServices(cfg, newTestDB(t), nil, nil)
	assert.Error(t, err)

	cfg = newTestConfig()
	cfg.Review.MinEaseFactor = 0
	_, err = NewServices(cfg, newTestDB(t), nil, nil)
	assert.Error(t, err)
}

// Полный цикл без Redis: команда -> банк -> закрепление -> провижининг -> ответы -> очередь повторения
func TestNewServices_ProvisionAndReview(t *testing.T) {
	ctx := context.Background()
	services, err := NewServices(newTestConfig(), newTestDB(t), nil, nil)
	require.NoError(t, err)

	team, err := services.Teams.CreateTeam(ctx, "Совы", "secret1", []service.NewMember{{Name: "Анна"}})
	require.NoError(t, err)
	require.Len(t, team.Members, 1)
	memberID := team.Members[0].ID

	login, err := services.Teams.Login(ctx, "Совы", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, login.Token)

	imported, err := services.Questions.ImportBank(ctx, &entity.QuestionBank{TeamID: team.ID, Name: "Столицы"}, []entity.Question{
		{Prompt: "Франция", Answer: "Париж"},
		{Prompt: "Италия", Answer: "Рим"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, imported.Questions)
	assert.Zero(t, imported.Provisioned, "За банком еще нет участников")
	bankID := imported.Bank.ID

	_, err = services.Teams.AssignBank(ctx, memberID, bankID)
	require.NoError(t, err)
	n, err := services.Progress.ProvisionMember(ctx, memberID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = services.Progress.ProvisionBank(ctx, bankID)
	require.NoError(t, err)
	assert.Zero(t, n, "Повторный провижининг не создает записей")

	questions, err := services.Questions.AllQuestions(ctx, bankID)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	for i := 0; i < 2; i++ {
		_, err = services.Progress.RecordAnswer(ctx, memberID, questions[0].ID, true)
		require.NoError(t, err)
	}
	res, err := services.Progress.RecordAnswer(ctx, memberID, questions[1].ID, false)
	require.NoError(t, err)
	assert.Equal(t, entity.ProgressStatusIncorrect, res.Status)

	due, err := services.Progress.DueQuestions(ctx, memberID, bankID)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, questions[1].ID, due[0].ID)

	summary, err := services.Progress.ReviewSummary(ctx, memberID, bankID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Total)
	assert.Equal(t, int64(1), summary.Correct)
	assert.Equal(t, int64(1), summary.Incorrect)
	assert.Equal(t, int64(1), summary.Due)
}
