package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// BeforeCreate не использует tx напрямую
var mockTx *gorm.DB = nil

func TestTeam_BeforeCreate_HashesPassword(t *testing.T) {
	team := &Team{Name: "alpha", PasswordHash: "secret-pass"}

	err := team.BeforeCreate(mockTx)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, team.ID, "BeforeCreate должен выдать UUID")
	assert.NotEqual(t, "secret-pass", team.PasswordHash, "Пароль должен быть захеширован")
	assert.True(t, team.CheckPassword("secret-pass"))
	assert.False(t, team.CheckPassword("wrong"))
}

func TestTeam_BeforeCreate_KeepsExistingHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	id := uuid.New()
	team := &Team{ID: id, Name: "beta", PasswordHash: string(hash)}

	require.NoError(t, team.BeforeCreate(mockTx))

	assert.Equal(t, id, team.ID, "Заданный ID не должен меняться")
	assert.Equal(t, string(hash), team.PasswordHash, "Уже хешированный пароль не должен изменяться")
}

func TestQuestionBank_BeforeCreate_DefaultMode(t *testing.T) {
	bank := &QuestionBank{Name: "Стихи"}

	require.NoError(t, bank.BeforeCreate(mockTx))

	assert.Equal(t, BankModeStandard, bank.Mode)
	assert.True(t, IsValidBankMode(BankModePoetryPair))
	assert.False(t, IsValidBankMode("flashcards"))
}

func TestMember_HasAssignedBank(t *testing.T) {
	bankID := uuid.New()
	nilID := uuid.Nil

	assert.False(t, (&Member{}).HasAssignedBank())
	assert.False(t, (&Member{AssignedQuestionBankID: &nilID}).HasAssignedBank())
	assert.True(t, (&Member{AssignedQuestionBankID: &bankID}).HasAssignedBank())
}

func TestMetadata_ScanValue(t *testing.T) {
	var m Metadata
	require.NoError(t, m.Scan([]byte(`{"left":"Роза","right":"мороза"}`)))
	assert.Equal(t, "Роза", m["left"])

	v, err := m.Value()
	require.NoError(t, err)
	assert.NotNil(t, v)

	var empty Metadata
	v, err = empty.Value()
	require.NoError(t, err)
	assert.Nil(t, v, "Пустые метаданные хранятся как NULL")

	require.NoError(t, m.Scan(nil))
	assert.Nil(t, m)
	assert.Error(t, m.Scan(42), "Неподдерживаемый тип должен давать ошибку")
}
