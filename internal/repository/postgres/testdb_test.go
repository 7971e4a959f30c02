package postgres

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
)

// newTestDB открывает SQLite во временном каталоге с той же схемой, что и в Postgres.
// SQLite не поддерживает FOR UPDATE, драйвер GORM опускает это выражение;
// одно соединение в пуле сериализует транзакции.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "teamquiz.db") + "?_busy_timeout=5000&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
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

type fixture struct {
	team      *entity.Team
	bank      *entity.QuestionBank
	otherBank *entity.QuestionBank
	member    *entity.Member
	questions []entity.Question
}

// seedFixture создает команду, два банка, участника и n вопросов в первом банке
func seedFixture(t *testing.T, db *gorm.DB, n int) *fixture {
	t.Helper()
	ctx := context.Background()

	team := &entity.Team{Name: "team-" + uuid.NewString()[:8], PasswordHash: "pw"}
	require.NoError(t, NewTeamRepo(db).Create(ctx, team))

	bankRepo := NewQuestionBankRepo(db)
	bank := &entity.QuestionBank{TeamID: team.ID, Name: "Основной"}
	require.NoError(t, bankRepo.Create(ctx, bank))
	other := &entity.QuestionBank{TeamID: team.ID, Name: "Другой", Mode: entity.BankModePoetryPair}
	require.NoError(t, bankRepo.Create(ctx, other))

	member := &entity.Member{Name: "Аня", TeamID: team.ID, AssignedQuestionBankID: &bank.ID}
	require.NoError(t, NewMemberRepo(db).Create(ctx, member))

	questions := make([]entity.Question, n)
	for i := range questions {
		questions[i] = entity.Question{
			QuestionBankID: bank.ID,
			Prompt:         "Вопрос " + uuid.NewString()[:4],
			Answer:         "Ответ",
		}
	}
	require.NoError(t, NewQuestionRepo(db).CreateBatch(ctx, questions))

	return &fixture{team: team, bank: bank, otherBank: other, member: member, questions: questions}
}

// provision создает начальные записи прогресса для всех вопросов фикстуры
func (f *fixture) provision(t *testing.T, repo *ProgressRepo) {
	t.Helper()
	records := make([]entity.ProgressRecord, len(f.questions))
	for i, q := range f.questions {
		records[i] = entity.NewProgressRecord(f.member.ID, q.ID)
	}
	created, err := repo.CreateMissing(context.Background(), records)
	require.NoError(t, err)
	require.EqualValues(t, len(f.questions), created)
}
