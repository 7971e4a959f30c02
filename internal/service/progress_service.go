package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/teamquiz-api/internal/domain/entity"
	"github.com/yourusername/teamquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/teamquiz-api/internal/pkg/errors"
	"github.com/yourusername/teamquiz-api/internal/service/review"
)

// EventProgressUpdated - тип события в ленте команды после сохранения ответа
const EventProgressUpdated = "progress:updated"

const (
	idempotencyPending   = "pending"
	maxIdempotencyKeyLen = 128
	cleanupTimeout       = 2 * time.Second
)

// Notifier доставляет события участникам команды (websocket)
type Notifier interface {
	NotifyTeam(teamID uuid.UUID, eventType string, data interface{})
}

// AnswerResult - состояние записи после ответа
type AnswerResult struct {
	MemberID       uuid.UUID             `json:"member_id"`
	QuestionID     uuid.UUID             `json:"question_id"`
	Status         entity.ProgressStatus `json:"status"`
	CorrectStreak  int                   `json:"correct_streak"`
	Interval       int                   `json:"interval"`
	EaseFactor     float64               `json:"ease_factor"`
	LastReviewedAt *time.Time            `json:"last_reviewed_at"`
	NextReviewAt   *time.Time            `json:"next_review_at"`
	Graduated      bool                  `json:"graduated"`
	// Replayed - результат возвращен из кеша идемпотентности, повторной записи не было
	Replayed bool `json:"replayed,omitempty"`
}

// ReviewSummary - счетчики прогресса участника по банку
type ReviewSummary struct {
	MemberID   uuid.UUID `json:"member_id"`
	BankID     uuid.UUID `json:"bank_id"`
	Total      int64     `json:"total"`
	Unanswered int64     `json:"unanswered"`
	Correct    int64     `json:"correct"`
	Incorrect  int64     `json:"incorrect"`
	Due        int64     `json:"due"`
}

// ProgressReportRow - строка отчета о прогрессе участника
type ProgressReportRow struct {
	Question entity.Question
	Progress entity.ProgressRecord
}

// ProgressService предоставляет методы для работы с прогрессом участников
type ProgressService struct {
	progressRepo   repository.ProgressRepository
	questionRepo   repository.QuestionRepository
	memberRepo     repository.MemberRepository
	cacheRepo      repository.CacheRepository
	scheduler      *review.Scheduler
	notifier       Notifier
	idempotencyTTL time.Duration
	now            func() time.Time
}

// NewProgressService создает новый сервис прогресса.
// cacheRepo и notifier могут быть nil: тогда идемпотентность и уведомления отключены.
func NewProgressService(
	progressRepo repository.ProgressRepository,
	questionRepo repository.QuestionRepository,
	memberRepo repository.MemberRepository,
	cacheRepo repository.CacheRepository,
	scheduler *review.Scheduler,
	notifier Notifier,
	idempotencyTTL time.Duration,
) *ProgressService {
	if scheduler == nil {
		scheduler = review.NewScheduler(nil)
	}
	if idempotencyTTL <= 0 {
		idempotencyTTL = 24 * time.Hour
	}
	return &ProgressService{
		progressRepo:   progressRepo,
		questionRepo:   questionRepo,
		memberRepo:     memberRepo,
		cacheRepo:      cacheRepo,
		scheduler:      scheduler,
		notifier:       notifier,
		idempotencyTTL: idempotencyTTL,
		now:            time.Now,
	}
}

// RecordAnswer применяет ответ участника к записи прогресса.
// Чтение, расчет и запись выполняются одной транзакцией с блокировкой строки.
func (s *ProgressService) RecordAnswer(ctx context.Context, memberID, questionID uuid.UUID, isCorrect bool) (*AnswerResult, error) {
	if memberID == uuid.Nil || questionID == uuid.Nil {
		return nil, fmt.Errorf("member_id and question_id are required: %w", apperrors.ErrValidation)
	}

	now := entity.NormalizeTime(s.now())
	graduated := false

	rec, err := s.progressRepo.Update(ctx, memberID, questionID, func(rec *entity.ProgressRecord) error {
		result := s.scheduler.Schedule(review.Outcome{Correct: isCorrect}, review.StateOf(rec), now)
		result.Apply(rec, now)
		graduated = result.Graduated
		return nil
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[ProgressService] Запись прогресса не найдена: member=%s question=%s", memberID, questionID)
			return nil, fmt.Errorf("progress record for member %s and question %s: %w", memberID, questionID, err)
		}
		log.Printf("[ProgressService] Ошибка сохранения ответа member=%s question=%s: %v", memberID, questionID, err)
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}

	result := newAnswerResult(rec, graduated)
	log.Printf("[ProgressService] Ответ сохранен: member=%s question=%s correct=%t status=%s streak=%d interval=%d",
		memberID, questionID, isCorrect, result.Status, result.CorrectStreak, result.Interval)

	s.publish(ctx, result)
	return result, nil
}

// RecordAnswerOnce - RecordAnswer с ключом идемпотентности клиента.
// Повтор с тем же ключом возвращает сохраненный результат без повторной записи.
func (s *ProgressService) RecordAnswerOnce(ctx context.Context, idempotencyKey string, memberID, questionID uuid.UUID, isCorrect bool) (*AnswerResult, error) {
	if idempotencyKey == "" || s.cacheRepo == nil {
		return s.RecordAnswer(ctx, memberID, questionID, isCorrect)
	}
	if len(idempotencyKey) > maxIdempotencyKeyLen {
		return nil, fmt.Errorf("idempotency key is longer than %d characters: %w", maxIdempotencyKeyLen, apperrors.ErrValidation)
	}

	key := fmt.Sprintf("progress:idem:%s:%s:%s", memberID, questionID, idempotencyKey)
	reserved, err := s.cacheRepo.SetNX(ctx, key, idempotencyPending, s.idempotencyTTL)
	if err != nil {
		// Redis недоступен: работаем без идемпотентности
		log.Printf("[ProgressService] Не удалось зарезервировать ключ идемпотентности %s: %v", key, err)
		return s.RecordAnswer(ctx, memberID, questionID, isCorrect)
	}

	if !reserved {
		return s.replay(ctx, key)
	}

	result, err := s.RecordAnswer(ctx, memberID, questionID, isCorrect)
	if err != nil {
		// Снимаем резерв, чтобы клиент мог повторить запрос
		cleanupCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		if delErr := s.cacheRepo.Delete(cleanupCtx, key); delErr != nil {
			log.Printf("[ProgressService] Не удалось удалить ключ идемпотентности %s: %v", key, delErr)
		}
		return nil, err
	}

	if err := s.cacheRepo.SetJSON(ctx, key, result, s.idempotencyTTL); err != nil {
		log.Printf("[ProgressService] Не удалось сохранить результат для ключа %s: %v", key, err)
	}
	return result, nil
}

func (s *ProgressService) replay(ctx context.Context, key string) (*AnswerResult, error) {
	raw, err := s.cacheRepo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Резерв снят между SetNX и Get: первая попытка завершилась ошибкой
			return nil, fmt.Errorf("previous attempt with this idempotency key failed, retry: %w", apperrors.ErrConflict)
		}
		return nil, fmt.Errorf("failed to read idempotency record: %w", apperrors.ErrPersistence)
	}
	if raw == idempotencyPending {
		return nil, fmt.Errorf("answer with this idempotency key is still being processed: %w", apperrors.ErrConflict)
	}

	var stored AnswerResult
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Printf("[ProgressService] Поврежденная запись идемпотентности %s: %v", key, err)
		return nil, fmt.Errorf("corrupted idempotency record: %w", apperrors.ErrConflict)
	}
	stored.Replayed = true
	log.Printf("[ProgressService] Повтор запроса по ключу идемпотентности: member=%s question=%s", stored.MemberID, stored.QuestionID)
	return &stored, nil
}

// DueQuestions возвращает вопросы банка, которые участнику пора повторить
func (s *ProgressService) DueQuestions(ctx context.Context, memberID, bankID uuid.UUID) ([]entity.Question, error) {
	if memberID == uuid.Nil || bankID == uuid.Nil {
		return nil, fmt.Errorf("member_id and bank_id are required: %w", apperrors.ErrValidation)
	}
	questions, err := s.questionRepo.ListDue(ctx, memberID, bankID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list due questions: %w", err)
	}
	return questions, nil
}

// ReviewSummary считает прогресс участника по банку (для бейджа "к повторению")
func (s *ProgressService) ReviewSummary(ctx context.Context, memberID, bankID uuid.UUID) (*ReviewSummary, error) {
	summary := &ReviewSummary{MemberID: memberID, BankID: bankID}
	now := s.now()

	var counts map[entity.ProgressStatus]int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.progressRepo.CountByStatus(gctx, memberID, bankID)
		return err
	})
	g.Go(func() error {
		var err error
		summary.Due, err = s.progressRepo.CountDue(gctx, memberID, bankID, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build review summary: %w", err)
	}

	summary.Unanswered = counts[entity.ProgressStatusUnanswered]
	summary.Correct = counts[entity.ProgressStatusCorrect]
	summary.Incorrect = counts[entity.ProgressStatusIncorrect]
	summary.Total = summary.Unanswered + summary.Correct + summary.Incorrect
	return summary, nil
}

// ProvisionMember создает недостающие записи прогресса по всем вопросам закрепленного банка.
// Повторный вызов безопасен.
func (s *ProgressService) ProvisionMember(ctx context.Context, memberID uuid.UUID) (int64, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return 0, fmt.Errorf("failed to get member %s: %w", memberID, err)
	}
	if !member.HasAssignedBank() {
		return 0, fmt.Errorf("member %s has no assigned question bank: %w", memberID, apperrors.ErrValidation)
	}

	ids, err := s.questionRepo.ListIDsByBank(ctx, *member.AssignedQuestionBankID)
	if err != nil {
		return 0, fmt.Errorf("failed to list questions of bank %s: %w", *member.AssignedQuestionBankID, err)
	}

	records := make([]entity.ProgressRecord, 0, len(ids))
	for _, questionID := range ids {
		records = append(records, entity.NewProgressRecord(memberID, questionID))
	}
	created, err := s.progressRepo.CreateMissing(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("failed to provision member %s: %w", memberID, err)
	}

	log.Printf("[ProgressService] Провижининг участника %s: вопросов %d, создано записей %d", memberID, len(ids), created)
	return created, nil
}

// ProvisionBank выполняет провижининг всех участников, за которыми закреплен банк
func (s *ProgressService) ProvisionBank(ctx context.Context, bankID uuid.UUID) (int64, error) {
	members, err := s.memberRepo.ListByBank(ctx, bankID)
	if err != nil {
		return 0, fmt.Errorf("failed to list members of bank %s: %w", bankID, err)
	}
	var total int64
	for _, m := range members {
		created, err := s.ProvisionMember(ctx, m.ID)
		if err != nil {
			return total, err
		}
		total += created
	}
	return total, nil
}

// ProgressReport возвращает прогресс участника по каждому вопросу закрепленного банка
func (s *ProgressService) ProgressReport(ctx context.Context, memberID uuid.UUID) ([]ProgressReportRow, error) {
	member, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get member %s: %w", memberID, err)
	}
	if !member.HasAssignedBank() {
		return []ProgressReportRow{}, nil
	}

	questions, err := s.questionRepo.ListByBank(ctx, *member.AssignedQuestionBankID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	records, err := s.progressRepo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}

	byQuestion := make(map[uuid.UUID]entity.ProgressRecord, len(records))
	for _, rec := range records {
		byQuestion[rec.QuestionID] = rec
	}

	rows := make([]ProgressReportRow, 0, len(questions))
	for _, q := range questions {
		rec, ok := byQuestion[q.ID]
		if !ok {
			// Вопрос добавлен после провижининга
			rec = entity.NewProgressRecord(memberID, q.ID)
		}
		rows = append(rows, ProgressReportRow{Question: q, Progress: rec})
	}
	return rows, nil
}

// publish отправляет событие в ленту команды; ошибки только логируются
func (s *ProgressService) publish(ctx context.Context, result *AnswerResult) {
	if s.notifier == nil {
		return
	}
	member, err := s.memberRepo.GetByID(ctx, result.MemberID)
	if err != nil {
		log.Printf("[ProgressService] Не удалось определить команду участника %s для уведомления: %v", result.MemberID, err)
		return
	}
	s.notifier.NotifyTeam(member.TeamID, EventProgressUpdated, result)
}

func newAnswerResult(rec *entity.ProgressRecord, graduated bool) *AnswerResult {
	return &AnswerResult{
		MemberID:       rec.MemberID,
		QuestionID:     rec.QuestionID,
		Status:         rec.Status,
		CorrectStreak:  rec.CorrectStreak,
		Interval:       rec.Interval,
		EaseFactor:     rec.EaseFactor,
		LastReviewedAt: rec.LastReviewedAt,
		NextReviewAt:   rec.NextReviewAt,
		Graduated:      graduated,
	}
}
