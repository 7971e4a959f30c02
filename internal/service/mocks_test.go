package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	"github.com/yourusername/teamquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/teamquiz-api/internal/pkg/errors"
)

// ============================================================================
// Моки репозиториев
// ============================================================================

// MockProgressRepository реализует repository.ProgressRepository
type MockProgressRepository struct {
	mock.Mock
}

func (m *MockProgressRepository) Get(ctx context.Context, memberID, questionID uuid.UUID) (*entity.ProgressRecord, error) {
	args := m.Called(ctx, memberID, questionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProgressRecord), args.Error(1)
}

func (m *MockProgressRepository) Update(ctx context.Context, memberID, questionID uuid.UUID, mutate repository.ProgressMutator) (*entity.ProgressRecord, error) {
	args := m.Called(ctx, memberID, questionID, mutate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.ProgressRecord), args.Error(1)
}

func (m *MockProgressRepository) CreateMissing(ctx context.Context, records []entity.ProgressRecord) (int64, error) {
	args := m.Called(ctx, records)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProgressRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]entity.ProgressRecord, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ProgressRecord), args.Error(1)
}

func (m *MockProgressRepository) CountByStatus(ctx context.Context, memberID, bankID uuid.UUID) (map[entity.ProgressStatus]int64, error) {
	args := m.Called(ctx, memberID, bankID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entity.ProgressStatus]int64), args.Error(1)
}

func (m *MockProgressRepository) CountDue(ctx context.Context, memberID, bankID uuid.UUID, now time.Time) (int64, error) {
	args := m.Called(ctx, memberID, bankID, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockQuestionRepository реализует repository.QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) CreateBatch(ctx context.Context, questions []entity.Question) error {
	args := m.Called(ctx, questions)
	return args.Error(0)
}

func (m *MockQuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) ListByBank(ctx context.Context, bankID uuid.UUID) ([]entity.Question, error) {
	args := m.Called(ctx, bankID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepository) ListIDsByBank(ctx context.Context, bankID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, bankID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockQuestionRepository) ListDue(ctx context.Context, memberID, bankID uuid.UUID, now time.Time) ([]entity.Question, error) {
	args := m.Called(ctx, memberID, bankID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

// MockMemberRepository реализует repository.MemberRepository
type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) Create(ctx context.Context, member *entity.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Member), args.Error(1)
}

func (m *MockMemberRepository) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]entity.Member, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Member), args.Error(1)
}

func (m *MockMemberRepository) ListByBank(ctx context.Context, bankID uuid.UUID) ([]entity.Member, error) {
	args := m.Called(ctx, bankID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Member), args.Error(1)
}

func (m *MockMemberRepository) AssignBank(ctx context.Context, memberID, bankID uuid.UUID) error {
	args := m.Called(ctx, memberID, bankID)
	return args.Error(0)
}

// MockTeamRepository реализует repository.TeamRepository
type MockTeamRepository struct {
	mock.Mock
}

func (m *MockTeamRepository) Create(ctx context.Context, team *entity.Team) error {
	args := m.Called(ctx, team)
	return args.Error(0)
}

func (m *MockTeamRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Team), args.Error(1)
}

func (m *MockTeamRepository) GetByName(ctx context.Context, name string) (*entity.Team, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Team), args.Error(1)
}

func (m *MockTeamRepository) GetWithMembers(ctx context.Context, id uuid.UUID) (*entity.Team, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Team), args.Error(1)
}

// MockQuestionBankRepository реализует repository.QuestionBankRepository
type MockQuestionBankRepository struct {
	mock.Mock
}

func (m *MockQuestionBankRepository) Create(ctx context.Context, bank *entity.QuestionBank) error {
	args := m.Called(ctx, bank)
	return args.Error(0)
}

func (m *MockQuestionBankRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.QuestionBank, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.QuestionBank), args.Error(1)
}

func (m *MockQuestionBankRepository) ListByTeam(ctx context.Context, teamID uuid.UUID) ([]entity.QuestionBank, error) {
	args := m.Called(ctx, teamID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.QuestionBank), args.Error(1)
}

// MockCacheRepository реализует repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepository) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockCacheRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(ctx, key, value, expiration)
	return args.Bool(0), args.Error(1)
}

// MockNotifier реализует Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyTeam(teamID uuid.UUID, eventType string, data interface{}) {
	m.Called(teamID, eventType, data)
}

// ============================================================================
// In-memory репозиторий прогресса с блокировкой по ключу
// ============================================================================

type progressKey struct {
	member   uuid.UUID
	question uuid.UUID
}

// memoryProgressRepo повторяет семантику Update: чтение под блокировкой ключа, mutate, запись
type memoryProgressRepo struct {
	mu      sync.Mutex
	locks   map[progressKey]*sync.Mutex
	records map[progressKey]entity.ProgressRecord
	// failNext - ошибка, которую вернет следующий Update до записи
	failNext error
}

func newMemoryProgressRepo() *memoryProgressRepo {
	return &memoryProgressRepo{
		locks:   make(map[progressKey]*sync.Mutex),
		records: make(map[progressKey]entity.ProgressRecord),
	}
}

func (r *memoryProgressRepo) lockFor(k progressKey) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[k]
	if !ok {
		l = &sync.Mutex{}
		r.locks[k] = l
	}
	return l
}

func (r *memoryProgressRepo) Get(_ context.Context, memberID, questionID uuid.UUID) (*entity.ProgressRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[progressKey{memberID, questionID}]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &rec, nil
}

func (r *memoryProgressRepo) Update(ctx context.Context, memberID, questionID uuid.UUID, mutate repository.ProgressMutator) (*entity.ProgressRecord, error) {
	k := progressKey{memberID, questionID}
	l := r.lockFor(k)
	l.Lock()
	defer l.Unlock()

	r.mu.Lock()
	rec, ok := r.records[k]
	failure := r.failNext
	r.failNext = nil
	r.mu.Unlock()
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	if failure != nil {
		return nil, failure
	}

	if err := mutate(&rec); err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.records[k] = rec
	r.mu.Unlock()
	return &rec, nil
}

func (r *memoryProgressRepo) CreateMissing(_ context.Context, records []entity.ProgressRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var created int64
	for _, rec := range records {
		k := progressKey{rec.MemberID, rec.QuestionID}
		if _, ok := r.records[k]; ok {
			continue
		}
		r.records[k] = rec
		created++
	}
	return created, nil
}

func (r *memoryProgressRepo) ListByMember(_ context.Context, memberID uuid.UUID) ([]entity.ProgressRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.ProgressRecord
	for k, rec := range r.records {
		if k.member == memberID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryProgressRepo) CountByStatus(_ context.Context, memberID, _ uuid.UUID) (map[entity.ProgressStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[entity.ProgressStatus]int64)
	for k, rec := range r.records {
		if k.member == memberID {
			counts[rec.Status]++
		}
	}
	return counts, nil
}

func (r *memoryProgressRepo) CountDue(_ context.Context, memberID, _ uuid.UUID, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due int64
	for k, rec := range r.records {
		if k.member == memberID && rec.IsDue(now) {
			due++
		}
	}
	return due, nil
}

// dueQuestionRepo отдает вопросы через набор записей memoryProgressRepo
type dueQuestionRepo struct {
	MockQuestionRepository
	progress  *memoryProgressRepo
	questions []entity.Question
}

func (r *dueQuestionRepo) ListDue(ctx context.Context, memberID, _ uuid.UUID, now time.Time) ([]entity.Question, error) {
	var out []entity.Question
	for _, q := range r.questions {
		rec, err := r.progress.Get(ctx, memberID, q.ID)
		if err != nil {
			continue
		}
		if rec.IsDue(now) {
			out = append(out, q)
		}
	}
	return out, nil
}
