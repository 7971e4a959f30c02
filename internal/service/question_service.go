package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	"github.com/yourusername/teamquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/teamquiz-api/internal/pkg/errors"
)

// QuestionCacheConfig содержит настройки кеша списков вопросов
type QuestionCacheConfig struct {
	// TTL - время жизни списка в Redis
	TTL time.Duration
	// LocalSize - число банков в локальном LRU процесса (0 отключает LRU)
	LocalSize int
	// LocalTTL - время жизни в локальном LRU
	LocalTTL time.Duration
}

// DefaultQuestionCacheConfig возвращает настройки по умолчанию
func DefaultQuestionCacheConfig() QuestionCacheConfig {
	return QuestionCacheConfig{
		TTL:       10 * time.Minute,
		LocalSize: 128,
		LocalTTL:  30 * time.Second,
	}
}

// BankProvisioner создает записи прогресса для участников банка
type BankProvisioner interface {
	ProvisionBank(ctx context.Context, bankID uuid.UUID) (int64, error)
}

// ImportResult - итог импорта банка
type ImportResult struct {
	Bank        *entity.QuestionBank `json:"bank"`
	Questions   int                  `json:"questions"`
	Provisioned int64                `json:"provisioned"`
}

// QuestionService предоставляет методы для работы с банками вопросов
type QuestionService struct {
	bankRepo     repository.QuestionBankRepository
	questionRepo repository.QuestionRepository
	cacheRepo    repository.CacheRepository
	provisioner  BankProvisioner
	local        *expirable.LRU[uuid.UUID, []entity.Question]
	cfg          QuestionCacheConfig
}

// NewQuestionService создает новый сервис вопросов. cacheRepo может быть nil.
func NewQuestionService(
	bankRepo repository.QuestionBankRepository,
	questionRepo repository.QuestionRepository,
	cacheRepo repository.CacheRepository,
	provisioner BankProvisioner,
	cfg QuestionCacheConfig,
) *QuestionService {
	s := &QuestionService{
		bankRepo:     bankRepo,
		questionRepo: questionRepo,
		cacheRepo:    cacheRepo,
		provisioner:  provisioner,
		cfg:          cfg,
	}
	if cfg.LocalSize > 0 {
		s.local = expirable.NewLRU[uuid.UUID, []entity.Question](cfg.LocalSize, nil, cfg.LocalTTL)
	}
	return s
}

func bankQuestionsKey(bankID uuid.UUID) string {
	return fmt.Sprintf("bank:%s:questions", bankID)
}

// GetBank возвращает банк вопросов
func (s *QuestionService) GetBank(ctx context.Context, bankID uuid.UUID) (*entity.QuestionBank, error) {
	return s.bankRepo.GetByID(ctx, bankID)
}

// AllQuestions возвращает все вопросы банка: LRU процесса, затем Redis, затем БД
func (s *QuestionService) AllQuestions(ctx context.Context, bankID uuid.UUID) ([]entity.Question, error) {
	if bankID == uuid.Nil {
		return nil, fmt.Errorf("bank_id is required: %w", apperrors.ErrValidation)
	}

	if s.local != nil {
		if questions, ok := s.local.Get(bankID); ok {
			return questions, nil
		}
	}

	key := bankQuestionsKey(bankID)
	if s.cacheRepo != nil {
		var cached []entity.Question
		err := s.cacheRepo.GetJSON(ctx, key, &cached)
		if err == nil {
			s.storeLocal(bankID, cached)
			return cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[QuestionService] Ошибка чтения кеша %s: %v", key, err)
		}
	}

	questions, err := s.questionRepo.ListByBank(ctx, bankID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions of bank %s: %w", bankID, err)
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(ctx, key, questions, s.cfg.TTL); err != nil {
			log.Printf("[QuestionService] Ошибка записи кеша %s: %v", key, err)
		}
	}
	s.storeLocal(bankID, questions)
	return questions, nil
}

// InvalidateBank сбрасывает кеш вопросов банка
func (s *QuestionService) InvalidateBank(ctx context.Context, bankID uuid.UUID) {
	if s.local != nil {
		s.local.Remove(bankID)
	}
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Delete(ctx, bankQuestionsKey(bankID)); err != nil {
		log.Printf("[QuestionService] Ошибка сброса кеша банка %s: %v", bankID, err)
	}
}

// ImportBank создает банк с вопросами и выполняет провижининг закрепленных участников
func (s *QuestionService) ImportBank(ctx context.Context, bank *entity.QuestionBank, questions []entity.Question) (*ImportResult, error) {
	bank.Name = strings.TrimSpace(bank.Name)
	if bank.Name == "" {
		return nil, fmt.Errorf("bank name is required: %w", apperrors.ErrValidation)
	}
	if bank.TeamID == uuid.Nil {
		return nil, fmt.Errorf("team is required: %w", apperrors.ErrValidation)
	}
	if bank.Mode == "" {
		bank.Mode = entity.BankModeStandard
	}
	if !entity.IsValidBankMode(bank.Mode) {
		return nil, fmt.Errorf("unknown bank mode %q: %w", bank.Mode, apperrors.ErrValidation)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("bank has no questions: %w", apperrors.ErrValidation)
	}
	for i, q := range questions {
		if strings.TrimSpace(q.Prompt) == "" || strings.TrimSpace(q.Answer) == "" {
			return nil, fmt.Errorf("question #%d has empty text or answer: %w", i+1, apperrors.ErrValidation)
		}
	}

	if err := s.bankRepo.Create(ctx, bank); err != nil {
		return nil, fmt.Errorf("failed to create bank: %w", err)
	}
	return s.AddQuestions(ctx, bank, questions)
}

// AddQuestions добавляет вопросы в существующий банк
func (s *QuestionService) AddQuestions(ctx context.Context, bank *entity.QuestionBank, questions []entity.Question) (*ImportResult, error) {
	for i := range questions {
		questions[i].QuestionBankID = bank.ID
	}
	if err := s.questionRepo.CreateBatch(ctx, questions); err != nil {
		return nil, fmt.Errorf("failed to create questions: %w", err)
	}
	s.InvalidateBank(ctx, bank.ID)

	result := &ImportResult{Bank: bank, Questions: len(questions)}
	if s.provisioner != nil {
		provisioned, err := s.provisioner.ProvisionBank(ctx, bank.ID)
		if err != nil {
			return nil, fmt.Errorf("questions imported but provisioning failed: %w", err)
		}
		result.Provisioned = provisioned
	}

	log.Printf("[QuestionService] В банк %s (%s) добавлено вопросов: %d", bank.ID, bank.Name, len(questions))
	return result, nil
}

func (s *QuestionService) storeLocal(bankID uuid.UUID, questions []entity.Question) {
	if s.local != nil {
		s.local.Add(bankID, questions)
	}
}
